package schema

import "strings"

// Contact is one address-book entry.
// A nil UserID places the contact in the shared sandbox pool.
type Contact struct {
	ID          int64   `json:"id"`
	FirstName   string  `json:"first_name" validate:"required"`
	LastName    string  `json:"last_name" validate:"required"`
	PhoneNumber string  `json:"phone_number" validate:"required,phone10"`
	Email       string  `json:"email" validate:"required,email"`
	UserID      *string `json:"user_id,omitempty"`
}

// IsSandbox reports whether the contact has no owner.
func (c Contact) IsSandbox() bool {
	return c.UserID == nil
}

// SortField selects the ordering of a contact listing.
type SortField string

const (
	SortByFirstName SortField = "FirstName"
	SortByLastName  SortField = "LastName"
)

// ParseSortField maps a query value onto a SortField.
// Unknown and empty values fall back to SortByFirstName.
func ParseSortField(s string) SortField {
	switch {
	case strings.EqualFold(s, string(SortByLastName)):
		return SortByLastName
	default:
		return SortByFirstName
	}
}
