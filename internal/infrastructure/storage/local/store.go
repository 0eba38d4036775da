// Package local provides the in-process family stores: a memory store for
// tests and single-shot runs, and a JSON file store for the CLI.
package local

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/turtacn/FamilyScope/internal/domain/family"
	"github.com/turtacn/FamilyScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FamilyScope/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Memory
// ─────────────────────────────────────────────────────────────────────────────

// MemoryStore keeps one collection in memory.
type MemoryStore struct {
	mu     sync.Mutex
	stored *family.Collection
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(ctx context.Context) (*family.Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stored == nil {
		return family.NewCollection(), nil
	}
	return s.stored.Clone(), nil
}

func (s *MemoryStore) Save(ctx context.Context, c *family.Collection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var version int64
	if s.stored != nil {
		version = s.stored.Version
	}
	if version != c.Version {
		return family.ConflictError(version, c.Version)
	}
	c.Version++
	c.UpdatedAt = time.Now().UTC()
	s.stored = c.Clone()
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// File
// ─────────────────────────────────────────────────────────────────────────────

// FileStore persists the collection as one JSON document.  Writes go to a
// temporary sibling and are renamed into place.
type FileStore struct {
	mu     sync.Mutex
	path   string
	logger logging.Logger
}

// NewFileStore creates a FileStore at path.  The parent directory is created
// on first save.
func NewFileStore(path string, logger logging.Logger) *FileStore {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &FileStore{path: path, logger: logger.Named("file_store")}
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(ctx context.Context) (*family.Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *FileStore) Save(ctx context.Context, c *family.Collection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read()
	if err != nil {
		return err
	}
	if current.Version != c.Version {
		return family.ConflictError(current.Version, c.Version)
	}

	next := c.Clone()
	next.Version++
	next.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode family collection")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create store directory")
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to write family collection")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to replace family collection")
	}

	c.Version = next.Version
	c.UpdatedAt = next.UpdatedAt
	s.logger.Debug("saved family collection", logging.Int("records", c.Len()), logging.Int64("version", c.Version))
	return nil
}

func (s *FileStore) read() (*family.Collection, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return family.NewCollection(), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to read family collection")
	}
	c := family.NewCollection()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "family collection file is corrupt").
			WithDetail(s.path)
	}
	if c.Records == nil {
		c.Records = []family.Record{}
	}
	return c, nil
}

//Personal.AI order the ending
