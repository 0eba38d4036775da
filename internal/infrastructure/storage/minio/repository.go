package minio

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/turtacn/FamilyScope/internal/domain/family"
	"github.com/turtacn/FamilyScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FamilyScope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/FamilyScope/pkg/errors"
)

// FamilyStore keeps each session's collection as one JSON object at
// families/<session>.json.
//
// The version check reads the stored object before writing it and holds a
// process-wide mutex across both, so it is atomic for writers sharing one
// FamilyStore.  Writers in different processes need the redis or postgres
// backend.
type FamilyStore struct {
	client  *Client
	key     string
	metrics *prometheus.AppMetrics
	logger  logging.Logger
	mu      sync.Mutex
}

func NewFamilyStore(client *Client, session string, metrics *prometheus.AppMetrics, log logging.Logger) *FamilyStore {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &FamilyStore{
		client:  client,
		key:     FamilyKey(session),
		metrics: metrics,
		logger:  log.Named("minio_family_store"),
	}
}

// FamilyKey is the object key of a session's collection.
func FamilyKey(session string) string { return "families/" + session + ".json" }

func (s *FamilyStore) Ping(ctx context.Context) error { return s.client.Ping(ctx) }

func (s *FamilyStore) Load(ctx context.Context) (*family.Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() { s.metrics.RecordStoreOp("minio", "load", time.Since(start)) }()
	return s.read(ctx)
}

func (s *FamilyStore) Save(ctx context.Context, c *family.Collection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	defer func() { s.metrics.RecordStoreOp("minio", "save", time.Since(start)) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read(ctx)
	if err != nil {
		return err
	}
	if current.Version != c.Version {
		return family.ConflictError(current.Version, c.Version)
	}

	next := c.Clone()
	next.Version++
	next.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(next)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode family collection")
	}
	if err := s.client.PutObject(ctx, s.key, data, "application/json"); err != nil {
		return err
	}

	c.Version = next.Version
	c.UpdatedAt = next.UpdatedAt
	s.logger.Debug("saved family collection", logging.Int("records", c.Len()), logging.Int64("version", c.Version))
	return nil
}

func (s *FamilyStore) read(ctx context.Context) (*family.Collection, error) {
	data, err := s.client.GetObject(ctx, s.key)
	if errors.Is(err, ErrObjectNotFound) {
		return family.NewCollection(), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to read family collection")
	}
	c := family.NewCollection()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "stored family collection is corrupt").
			WithDetail("key=" + s.key)
	}
	if c.Records == nil {
		c.Records = []family.Record{}
	}
	return c, nil
}

//Personal.AI order the ending
