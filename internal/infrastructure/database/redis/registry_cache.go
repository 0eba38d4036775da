package redis

import (
	"context"
	"time"

	"github.com/turtacn/FamilyScope/internal/domain/patent"
	"github.com/turtacn/FamilyScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FamilyScope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/FamilyScope/pkg/errors"
	ptypes "github.com/turtacn/FamilyScope/pkg/types/patent"
)

// CachedRegistry fronts a RegistrySource with a Cache.  Found records are
// cached for ttl; not-found answers are cached as negative results.  Other
// upstream failures are never cached, and a failing cache falls through to
// the source.
type CachedRegistry struct {
	inner   patent.RegistrySource
	cache   Cache
	ttl     time.Duration
	metrics *prometheus.AppMetrics
	logger  logging.Logger
}

func NewCachedRegistry(inner patent.RegistrySource, cache Cache, ttl time.Duration, metrics *prometheus.AppMetrics, log logging.Logger) *CachedRegistry {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &CachedRegistry{inner: inner, cache: cache, ttl: ttl, metrics: metrics, logger: log.Named("registry_cache")}
}

func (r *CachedRegistry) Name() string { return r.inner.Name() }

func (r *CachedRegistry) FetchByID(ctx context.Context, number ptypes.Number) (*patent.RegistryRecord, error) {
	key := "registry:" + number.String()

	var rec patent.RegistryRecord
	err := r.cache.Get(ctx, key, &rec)
	switch {
	case err == nil:
		r.metrics.RecordCacheAccess("registry", true)
		return &rec, nil
	case errors.Is(err, ErrCachedNull):
		r.metrics.RecordCacheAccess("registry", true)
		return nil, errors.PatentNotFound(number.String())
	case !errors.Is(err, ErrCacheMiss):
		r.logger.Warn("registry cache unavailable", logging.PatentNumber(number.String()), logging.Err(err))
	}
	r.metrics.RecordCacheAccess("registry", false)

	fetched, err := r.inner.FetchByID(ctx, number)
	if errors.IsCode(err, errors.ErrCodePatentNotFound) {
		if setErr := r.cache.SetNull(ctx, key); setErr != nil {
			r.logger.Debug("failed to cache not-found", logging.Err(setErr))
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	if setErr := r.cache.Set(ctx, key, fetched, r.ttl); setErr != nil {
		r.logger.Debug("failed to cache registry record", logging.Err(setErr))
	}
	return fetched, nil
}

//Personal.AI order the ending
