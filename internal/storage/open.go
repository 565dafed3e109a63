// Package storage selects the backend holding contacts and user accounts.
package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/celerix-dev/celerix-contacts/internal/account"
	"github.com/celerix-dev/celerix-contacts/internal/config"
	"github.com/celerix-dev/celerix-contacts/internal/contact"
	"github.com/celerix-dev/celerix-contacts/internal/engine"
	"github.com/celerix-dev/celerix-contacts/internal/logging"
	"github.com/celerix-dev/celerix-contacts/internal/storage/postgres"
	"github.com/celerix-dev/celerix-contacts/internal/storage/sqlite"
)

// Backend is everything the daemon needs from a store.
type Backend interface {
	contact.Repository
	account.UserStore
	Close() error
}

var (
	_ Backend = (*engine.MemStore)(nil)
	_ Backend = (*sqlite.Store)(nil)
	_ Backend = (*postgres.Store)(nil)
)

// Open returns the backend named by cfg.Storage.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (Backend, error) {
	logger = logging.Component(logger, "storage").With(zap.String("backend", cfg.Storage))

	switch cfg.Storage {
	case config.StorageMemory:
		p, err := engine.NewPersistence(cfg.DataDir, logger)
		if err != nil {
			return nil, fmt.Errorf("init persistence: %w", err)
		}
		snap, err := p.Load()
		if err != nil {
			return nil, fmt.Errorf("load snapshot: %w", err)
		}
		logger.Info("memory store loaded",
			zap.String("data_dir", cfg.DataDir),
			zap.Int("contacts", len(snap.Contacts)),
			zap.Int("users", len(snap.Users)),
		)
		return engine.NewMemStore(snap, p), nil

	case config.StorageSQLite:
		s, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("sqlite store opened", zap.String("path", cfg.SQLitePath))
		return s, nil

	case config.StoragePostgres:
		s, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		logger.Info("postgres store opened")
		return s, nil

	default:
		return nil, fmt.Errorf("unknown storage %q", cfg.Storage)
	}
}
