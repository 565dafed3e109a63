package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HTTPAddr != ":7003" || cfg.Storage != StorageSQLite || cfg.PageSize != 10 {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
	if cfg.SessionTTL != 12*time.Hour || cfg.RememberTTL != 30*24*time.Hour {
		t.Errorf("Unexpected session lifetimes: %v / %v", cfg.SessionTTL, cfg.RememberTTL)
	}
	if !cfg.SeedDemo || cfg.TLS {
		t.Errorf("Unexpected flags: seed=%v tls=%v", cfg.SeedDemo, cfg.TLS)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv(Prefix+"STORAGE", " Memory ")
	t.Setenv(Prefix+"PAGE_SIZE", "25")
	t.Setenv(Prefix+"SESSION_TTL", "30m")
	t.Setenv(Prefix+"TLS", "true")
	t.Setenv(Prefix+"DATA_DIR", "/tmp/contacts")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Storage != StorageMemory || cfg.PageSize != 25 || cfg.SessionTTL != 30*time.Minute || !cfg.TLS {
		t.Errorf("Unexpected config: %+v", cfg)
	}
	if cfg.DataDir != "/tmp/contacts" {
		t.Errorf("Expected data dir /tmp/contacts, got %s", cfg.DataDir)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"unknown storage", map[string]string{"STORAGE": "mongo"}, "unknown storage"},
		{"postgres without dsn", map[string]string{"STORAGE": "postgres"}, "POSTGRES_DSN"},
		{"zero page size", map[string]string{"PAGE_SIZE": "0"}, "page size"},
		{"short secret", map[string]string{"SESSION_SECRET": "abc"}, "SESSION_SECRET"},
		{"unparsable duration", map[string]string{"SESSION_TTL": "soon"}, "parse env"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(Prefix+k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
