package contact

import (
	"strings"

	"github.com/celerix-dev/celerix-contacts/pkg/schema"
)

// Owner is the identity a contact query is scoped to.
// The zero value is the anonymous caller, who sees only sandbox contacts.
type Owner struct {
	userID string
}

// Anonymous returns the scope of an unauthenticated caller.
func Anonymous() Owner {
	return Owner{}
}

// OwnedBy returns the scope of an authenticated user. A blank id yields the
// anonymous scope.
func OwnedBy(userID string) Owner {
	return Owner{userID: strings.TrimSpace(userID)}
}

func (o Owner) IsAnonymous() bool {
	return o.userID == ""
}

// UserID is empty for the anonymous scope.
func (o Owner) UserID() string {
	return o.userID
}

// Ref is the value stored in Contact.UserID for contacts created under this scope.
func (o Owner) Ref() *string {
	if o.IsAnonymous() {
		return nil
	}
	id := o.userID
	return &id
}

// Matches is the ownership rule: anonymous callers match contacts without an
// owner, users match contacts whose owner is exactly them.
func (o Owner) Matches(c schema.Contact) bool {
	if o.IsAnonymous() {
		return c.UserID == nil
	}
	return c.UserID != nil && *c.UserID == o.userID
}

func (o Owner) String() string {
	if o.IsAnonymous() {
		return "anonymous"
	}
	return "user:" + o.userID
}

// MatchesTerm reports whether term is a case-insensitive substring of the
// contact's first name, last name, email or phone number.
func MatchesTerm(c schema.Contact, term string) bool {
	for _, field := range []string{c.FirstName, c.LastName, c.Email, c.PhoneNumber} {
		if ContainsFold(field, term) {
			return true
		}
	}
	return false
}

// ContainsFold reports whether term is a substring of s under Unicode lower-casing.
// Every backend's search applies this rule.
func ContainsFold(s, term string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(term))
}
