package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/celerix-dev/celerix-contacts/internal/config"
	"github.com/celerix-dev/celerix-contacts/internal/contact"
	"github.com/celerix-dev/celerix-contacts/internal/contact/contacttest"
	"github.com/celerix-dev/celerix-contacts/internal/engine"
	"github.com/celerix-dev/celerix-contacts/internal/storage/sqlite"
	"github.com/celerix-dev/celerix-contacts/pkg/schema"
)

func TestOpenSelectsBackend(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		cfg  config.Config
		is   func(Backend) bool
	}{
		{"memory", config.Config{Storage: config.StorageMemory, DataDir: dir}, func(b Backend) bool {
			_, ok := b.(*engine.MemStore)
			return ok
		}},
		{"sqlite", config.Config{Storage: config.StorageSQLite, SQLitePath: filepath.Join(dir, "c.db")}, func(b Backend) bool {
			_, ok := b.(*sqlite.Store)
			return ok
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Open(context.Background(), tt.cfg, nil)
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			defer b.Close()

			if !tt.is(b) {
				t.Errorf("Unexpected backend type %T", b)
			}

			ctx := context.Background()
			if _, err := b.Create(ctx, contact.Anonymous(), contacttest.NewContact("Ann", "Lee")); err != nil {
				t.Fatalf("Create failed: %v", err)
			}
			page, err := b.List(ctx, contact.Anonymous(), schema.SortByFirstName, schema.NewPageRequest(1, 10))
			if err != nil || page.TotalCount != 1 {
				t.Errorf("Expected 1 contact, got %d (err %v)", page.TotalCount, err)
			}
		})
	}
}

func TestOpenMemoryReloadsSnapshot(t *testing.T) {
	ctx := context.Background()
	cfg := config.Config{Storage: config.StorageMemory, DataDir: t.TempDir()}

	first, err := Open(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := first.Create(ctx, contact.Anonymous(), contacttest.NewContact("Ann", "Lee")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second, err := Open(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer second.Close()
	page, _ := second.List(ctx, contact.Anonymous(), schema.SortByFirstName, schema.NewPageRequest(1, 10))
	if page.TotalCount != 1 {
		t.Errorf("Expected reloaded contact, got %d", page.TotalCount)
	}
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	if _, err := Open(context.Background(), config.Config{Storage: "mongo"}, nil); err == nil {
		t.Fatal("Expected error for unknown backend")
	}
}
