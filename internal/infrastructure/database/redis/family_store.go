package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/FamilyScope/internal/domain/family"
	"github.com/turtacn/FamilyScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FamilyScope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/FamilyScope/pkg/errors"
)

// FamilyStore keeps the collection as one JSON value under
// <prefix>family:<session>.  Save is a WATCH/MULTI transaction on that key.
type FamilyStore struct {
	client  *Client
	key     string
	metrics *prometheus.AppMetrics
	logger  logging.Logger
}

// FamilyStoreOption configures a FamilyStore.
type FamilyStoreOption func(*FamilyStore)

func WithStoreMetrics(m *prometheus.AppMetrics) FamilyStoreOption {
	return func(s *FamilyStore) { s.metrics = m }
}

func NewFamilyStore(client *Client, session string, log logging.Logger, opts ...FamilyStoreOption) *FamilyStore {
	if log == nil {
		log = logging.NewNopLogger()
	}
	s := &FamilyStore{
		client: client,
		key:    client.Key("family", session),
		logger: log.Named("redis_family_store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the Redis key holding the collection.
func (s *FamilyStore) Key() string { return s.key }

func (s *FamilyStore) Ping(ctx context.Context) error { return s.client.Ping(ctx) }

func (s *FamilyStore) Load(ctx context.Context) (*family.Collection, error) {
	if s.client.isClosed() {
		return nil, ErrClientClosed
	}
	start := time.Now()
	defer func() { s.metrics.RecordStoreOp("redis", "load", time.Since(start)) }()

	data, err := s.client.rdb.Get(ctx, s.key).Bytes()
	return decodeCollection(data, err)
}

func (s *FamilyStore) Save(ctx context.Context, c *family.Collection) error {
	if s.client.isClosed() {
		return ErrClientClosed
	}
	start := time.Now()
	defer func() { s.metrics.RecordStoreOp("redis", "save", time.Since(start)) }()

	next := c.Clone()
	next.Version = c.Version + 1
	next.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(next)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode family collection")
	}

	txf := func(tx *redis.Tx) error {
		current, err := decodeCollection(tx.Get(ctx, s.key).Bytes())
		if err != nil {
			return err
		}
		if current.Version != c.Version {
			return family.ConflictError(current.Version, c.Version)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.key, payload, 0)
			return nil
		})
		return err
	}

	err = s.client.rdb.Watch(ctx, txf, s.key)
	switch {
	case err == nil:
	case errors.Is(err, redis.TxFailedErr):
		return errors.Conflict("family collection changed during save")
	case errors.GetCode(err) != errors.CodeUnknown:
		return err
	default:
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to save family collection")
	}

	c.Version = next.Version
	c.UpdatedAt = next.UpdatedAt
	s.logger.Debug("saved family collection", logging.Int("records", c.Len()), logging.Int64("version", c.Version))
	return nil
}

func decodeCollection(data []byte, err error) (*family.Collection, error) {
	if errors.Is(err, redis.Nil) {
		return family.NewCollection(), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "failed to read family collection")
	}
	c := family.NewCollection()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "stored family collection is corrupt")
	}
	if c.Records == nil {
		c.Records = []family.Record{}
	}
	return c, nil
}

//Personal.AI order the ending
