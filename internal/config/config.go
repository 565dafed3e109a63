// Package config loads daemon settings from CELERIX_CONTACTS_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Prefix is prepended to every variable name.
const Prefix = "CELERIX_CONTACTS_"

// Storage backends.
const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config controls the contacts daemon.
type Config struct {
	HTTPAddr      string        `env:"HTTP_ADDR"      envDefault:":7003"`
	Storage       string        `env:"STORAGE"        envDefault:"sqlite"`
	SQLitePath    string        `env:"SQLITE_PATH"    envDefault:"./data/contacts.db"`
	PostgresDSN   string        `env:"POSTGRES_DSN"`
	DataDir       string        `env:"DATA_DIR"       envDefault:"./data"`
	PageSize      int           `env:"PAGE_SIZE"      envDefault:"10"`
	SessionSecret string        `env:"SESSION_SECRET"`
	SessionTTL    time.Duration `env:"SESSION_TTL"    envDefault:"12h"`
	RememberTTL   time.Duration `env:"REMEMBER_TTL"   envDefault:"720h"`
	TLS           bool          `env:"TLS"            envDefault:"false"`
	LogLevel      string        `env:"LOG_LEVEL"      envDefault:"info"`
	LogFormat     string        `env:"LOG_FORMAT"     envDefault:"json"`
	SeedDemo      bool          `env:"SEED_DEMO"      envDefault:"true"`
	CORSOrigin    string        `env:"CORS_ORIGIN"    envDefault:"*"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Storage = strings.ToLower(strings.TrimSpace(cfg.Storage))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the daemon cannot start with.
func (c Config) Validate() error {
	switch c.Storage {
	case StorageSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("%sSQLITE_PATH is required for sqlite storage", Prefix)
		}
	case StoragePostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return fmt.Errorf("%sPOSTGRES_DSN is required for postgres storage", Prefix)
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown storage %q (want sqlite, postgres or memory)", c.Storage)
	}
	if c.PageSize < 1 {
		return fmt.Errorf("page size must be at least 1, got %d", c.PageSize)
	}
	if c.SessionTTL <= 0 || c.RememberTTL <= 0 {
		return fmt.Errorf("session lifetimes must be positive")
	}
	if c.SessionSecret != "" && len(c.SessionSecret) < 16 {
		return fmt.Errorf("%sSESSION_SECRET must be at least 16 bytes", Prefix)
	}
	return nil
}
