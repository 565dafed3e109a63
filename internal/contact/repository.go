// Package contact holds the contact domain: the ownership scope, the repository
// port implemented by the storage engines, and the application service used by the
// HTTP layer.
package contact

import (
	"context"

	"github.com/celerix-dev/celerix-contacts/pkg/schema"
)

// Repository persists contacts. Every operation is scoped by an Owner and must
// behave as if contacts outside that scope did not exist.
type Repository interface {
	// List returns one page of the owner's contacts ordered by sort, ties broken by id.
	List(ctx context.Context, owner Owner, sort schema.SortField, req schema.PageRequest) (schema.Page[schema.Contact], error)
	// Search returns one page of the owner's contacts matching term (see MatchesTerm),
	// ordered by first name. An empty term yields an empty page.
	Search(ctx context.Context, owner Owner, term string, req schema.PageRequest) (schema.Page[schema.Contact], error)
	// Get returns ErrNotFound when the contact is missing or out of scope.
	Get(ctx context.Context, owner Owner, id int64) (schema.Contact, error)
	// Create stores c with UserID taken from owner and returns it with its new id.
	Create(ctx context.Context, owner Owner, c schema.Contact) (schema.Contact, error)
	// Update overwrites the data fields of an in-scope contact. Ownership never changes.
	Update(ctx context.Context, owner Owner, c schema.Contact) (schema.Contact, error)
	// Delete removes an in-scope contact.
	Delete(ctx context.Context, owner Owner, id int64) error
	// DeleteSandbox removes every contact without an owner and reports how many.
	DeleteSandbox(ctx context.Context) (int, error)
}
