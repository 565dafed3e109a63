package sdk

import (
	"context"
	"errors"

	"github.com/celerix-dev/celerix-contacts/pkg/schema"
)

var (
	// ErrNotFound is matched by API errors for absent or hidden contacts.
	ErrNotFound = errors.New("contact not found")
	// ErrUnauthorized is matched by API errors for rejected credentials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalid is matched by API errors for rejected input.
	ErrInvalid = errors.New("invalid request")
)

// --- Functional Interfaces (Interface Segregation) ---

// ContactReader lists, searches and fetches contacts visible to the caller.
type ContactReader interface {
	ListContacts(ctx context.Context, sortBy schema.SortField, page int) (schema.Page[schema.Contact], error)
	SearchContacts(ctx context.Context, term string, page int) (schema.Page[schema.Contact], error)
	GetContact(ctx context.Context, id int64) (schema.Contact, error)
}

// ContactWriter creates, edits and deletes the caller's contacts.
type ContactWriter interface {
	CreateContact(ctx context.Context, c schema.Contact) (schema.Contact, error)
	UpdateContact(ctx context.Context, c schema.Contact) (schema.Contact, error)
	DeleteContact(ctx context.Context, id int64) error
}

// SandboxAdmin refills the shared sandbox.
type SandboxAdmin interface {
	ResetSandbox(ctx context.Context) error
}

// AccountClient manages the caller's session.
type AccountClient interface {
	Register(ctx context.Context, email, password string) (schema.Session, error)
	Login(ctx context.Context, email, password string, remember bool) (schema.Session, error)
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) (schema.Identity, error)
}

// --- Composite Interfaces ---

// ContactsAPI is everything the Celerix Contacts daemon offers.
type ContactsAPI interface {
	ContactReader
	ContactWriter
	SandboxAdmin
	AccountClient
}
