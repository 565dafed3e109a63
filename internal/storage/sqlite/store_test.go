package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/celerix-dev/celerix-contacts/internal/account"
	"github.com/celerix-dev/celerix-contacts/internal/contact"
	"github.com/celerix-dev/celerix-contacts/internal/contact/contacttest"
	"github.com/celerix-dev/celerix-contacts/pkg/schema"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "contacts.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func addUser(t *testing.T, s *Store, id string) {
	t.Helper()
	err := s.CreateUser(context.Background(), schema.User{
		ID:           id,
		Email:        id + "@example.com",
		UserName:     id + "@example.com",
		PasswordHash: "x",
		CreatedAt:    time.Now(),
	})
	if err != nil {
		t.Fatalf("create user %s: %v", id, err)
	}
}

func TestStore_Repository(t *testing.T) {
	contacttest.Run(t, func(t *testing.T) contacttest.Fixture {
		s := openTempStore(t)
		return contacttest.Fixture{
			Repo:    s,
			AddUser: func(t *testing.T, id string) { addUser(t, s, id) },
		}
	})
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(context.Background(), " "); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "contacts.db")
	ctx := context.Background()

	first, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if _, err := first.Create(ctx, contact.Anonymous(), contacttest.NewContact("Ann", "Lee")); err != nil {
		t.Fatalf("create contact: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()

	page, err := second.List(ctx, contact.Anonymous(), schema.SortByFirstName, schema.NewPageRequest(1, 10))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.TotalCount != 1 {
		t.Fatalf("total = %d, want 1", page.TotalCount)
	}
}

func TestUsers(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()
	created := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	u := schema.User{ID: "u-1", Email: "Ann@Example.com", UserName: "Ann@Example.com", PasswordHash: "h", CreatedAt: created}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("create user: %v", err)
	}

	dup := u
	dup.ID = "u-2"
	dup.Email = "ann@example.COM"
	if err := s.CreateUser(ctx, dup); !errors.Is(err, account.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	got, err := s.UserByEmail(ctx, " ANN@example.com")
	if err != nil {
		t.Fatalf("user by email: %v", err)
	}
	if got.ID != "u-1" || got.Email != "Ann@Example.com" || !got.CreatedAt.Equal(created) {
		t.Fatalf("unexpected user: %+v", got)
	}
	if _, err := s.UserByID(ctx, "missing"); !errors.Is(err, account.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if n, err := s.CountUsers(ctx); err != nil || n != 1 {
		t.Fatalf("count users = %d (err %v), want 1", n, err)
	}
}

func TestCreateRejectsUnknownOwner(t *testing.T) {
	s := openTempStore(t)
	if _, err := s.Create(context.Background(), contact.OwnedBy("ghost"), contacttest.NewContact("Ann", "Lee")); err == nil {
		t.Fatal("expected foreign key error for unknown owner")
	}
}

func TestUpSection(t *testing.T) {
	content := "-- +migrate Up\nCREATE TABLE a (x);\n-- +migrate Down\nDROP TABLE a;\n"
	if got := upSection(content); got != "\nCREATE TABLE a (x);\n" {
		t.Fatalf("upSection = %q", got)
	}
	if got := upSection("CREATE TABLE b (y);"); got != "CREATE TABLE b (y);" {
		t.Fatalf("upSection without markers = %q", got)
	}
}
