// Package engine is the embedded, in-memory storage engine for Celerix Contacts.
// It keeps contacts and users in maps and can persist JSON snapshots to disk.
package engine

import (
	"errors"

	"github.com/celerix-dev/celerix-contacts/internal/account"
	"github.com/celerix-dev/celerix-contacts/internal/contact"
	"github.com/celerix-dev/celerix-contacts/pkg/schema"
)

// ErrUnknownOwner is returned when a contact is created for a user that does not exist.
var ErrUnknownOwner = errors.New("owner does not exist")

// SnapshotFile is the name of the snapshot inside the data directory.
const SnapshotFile = "contacts.json"

// Snapshot is the persisted form of a MemStore.
type Snapshot struct {
	Version  uint64           `json:"version"`
	NextID   int64            `json:"next_id"`
	Contacts []schema.Contact `json:"contacts"`
	Users    []UserRecord     `json:"users"`
}

// UserRecord is a user as written to disk. Unlike schema.User it keeps the
// password hash.
type UserRecord struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	UserName     string `json:"user_name"`
	PasswordHash string `json:"password_hash"`
	CreatedAt    string `json:"created_at"`
}

var (
	_ contact.Repository = (*MemStore)(nil)
	_ account.UserStore  = (*MemStore)(nil)
)
