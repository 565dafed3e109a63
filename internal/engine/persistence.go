package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/celerix-dev/celerix-contacts/internal/logging"
)

// Persistence handles the disk I/O for the MemStore.
type Persistence struct {
	DataDir string
	mu      sync.Mutex // Protects concurrent writes to the filesystem
	saved   uint64     // version of the newest snapshot on disk
	logger  *zap.Logger
}

// NewPersistence initializes a persistence handler writing into dir.
func NewPersistence(dir string, logger *zap.Logger) (*Persistence, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Persistence{DataDir: dir, logger: logging.Component(logger, "engine")}, nil
}

func (p *Persistence) path() string {
	return filepath.Join(p.DataDir, SnapshotFile)
}

// Save writes snap atomically. Snapshots not newer than the one on disk are skipped.
func (p *Persistence) Save(snap *Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if snap.Version != 0 && snap.Version <= p.saved {
		return nil
	}

	bytes, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		p.logger.Error("Failed to encode snapshot", zap.Error(err))
		return err
	}

	filePath := p.path()
	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, bytes, 0600); err != nil {
		p.logger.Error("Failed to write snapshot", zap.String("path", tempPath), zap.Error(err))
		return err
	}
	if err := os.Rename(tempPath, filePath); err != nil {
		p.logger.Error("Failed to replace snapshot", zap.String("path", filePath), zap.Error(err))
		return err
	}
	p.saved = snap.Version
	return nil
}

// Load reads the snapshot from the data directory. A missing file yields an empty
// snapshot.
func (p *Persistence) Load() (*Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	content, err := os.ReadFile(p.path())
	if errors.Is(err, os.ErrNotExist) {
		return &Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(content, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", p.path(), err)
	}
	p.saved = snap.Version
	return &snap, nil
}
