// Package resolver implements a TTL-bounded cache-aside lookup of entities.
//
// A Resolver consults its cache first and only falls back to the
// authoritative Lookup when the entry is absent, unreadable or older than the
// configured TTL. Every call records exactly one of hit, miss or expired on
// the Metrics sink, and a cache write happens only after a refresh.
//
// Concurrent resolutions of the same id may each refresh and overwrite the
// cache. Callers needing one in-flight fetch per key must add their own
// single-flight layer.
package resolver

import (
	"context"
	"time"

	"object-denormalizer/internal/cache"
	"object-denormalizer/internal/common/errors"
	"object-denormalizer/internal/common/logging"
)

// Entity is a resolvable value that records whether a particular resolution
// was served from a fresh cache entry.
type Entity interface {
	SetCacheHit(hit bool)
}

// Lookup fetches the authoritative entity for id. Failures should be
// lookup-kind AppErrors.
type Lookup[T any] interface {
	Fetch(ctx context.Context, id string) (T, error)
}

// LookupFunc adapts a function to Lookup
type LookupFunc[T any] func(ctx context.Context, id string) (T, error)

func (f LookupFunc[T]) Fetch(ctx context.Context, id string) (T, error) {
	return f(ctx, id)
}

// Metrics receives one outcome per resolution plus decode failures
type Metrics interface {
	IncCacheHit()
	IncCacheMiss()
	IncCacheExpired()
	IncCacheDecodeError()
}

// Resolver is the cache-aside TTL policy over a cache.Service
type Resolver[T Entity] struct {
	ttl     time.Duration
	lookup  Lookup[T]
	cache   *cache.Service[T]
	metrics Metrics
	logger  logging.Logger
	now     func() time.Time
}

// Option configures a Resolver
type Option func(*options)

type options struct {
	logger logging.Logger
	now    func() time.Time
}

// WithLogger sets the logger; the global logger is used otherwise
func WithLogger(logger logging.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock replaces time.Now when judging entry age
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// New creates a resolver treating entries older than ttl as stale
func New[T Entity](ttl time.Duration, lookup Lookup[T], svc *cache.Service[T], metrics Metrics, opts ...Option) *Resolver[T] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.GetGlobalLogger()
	}

	return &Resolver[T]{
		ttl:     ttl,
		lookup:  lookup,
		cache:   svc,
		metrics: metrics,
		logger:  o.logger.WithFields(logging.Field{Key: "component", Value: "resolver"}),
		now:     o.now,
	}
}

// TTL returns the staleness bound
func (r *Resolver[T]) TTL() time.Duration {
	return r.ttl
}

// Resolve returns the entity for entityID. correlationID only tags log lines.
// Lookup errors are returned as-is and leave the cache untouched.
func (r *Resolver[T]) Resolve(ctx context.Context, correlationID, entityID string) (T, error) {
	logger := r.logger.WithFields(
		logging.Field{Key: "event_id", Value: correlationID},
		logging.Field{Key: "object_id", Value: entityID},
	)

	entry := r.readEntry(ctx, logger, entityID)

	switch {
	case entry == nil:
		r.metrics.IncCacheMiss()
		logger.Debug("Cache miss, fetching entity")
	case r.isStale(entry):
		r.metrics.IncCacheExpired()
		logger.Debug("Cache entry expired, refreshing entity",
			logging.Field{Key: "age", Value: entry.Age(r.now())},
			logging.Field{Key: "ttl", Value: r.ttl},
		)
	default:
		r.metrics.IncCacheHit()
		entry.Value.SetCacheHit(true)
		return entry.Value, nil
	}

	return r.refresh(ctx, logger, entityID)
}

func (r *Resolver[T]) refresh(ctx context.Context, logger logging.Logger, entityID string) (T, error) {
	value, err := r.lookup.Fetch(ctx, entityID)
	if err != nil {
		var zero T
		return zero, err
	}

	value.SetCacheHit(false)

	if err := r.cache.Put(ctx, entityID, value); err != nil {
		logger.Warn("Failed to write refreshed entity to cache", logging.Field{Key: "error", Value: err.Error()})
	}

	return value, nil
}

// readEntry treats both unreadable entries and store failures as absent so a
// broken cache degrades to lookups instead of failing events.
func (r *Resolver[T]) readEntry(ctx context.Context, logger logging.Logger, entityID string) *cache.Entry[T] {
	entry, err := r.cache.Get(ctx, entityID)
	if err == nil {
		return entry
	}

	if errors.IsType(err, errors.ErrTypeCacheDecode) {
		r.metrics.IncCacheDecodeError()
		logger.Warn("Discarding unreadable cache entry", logging.Field{Key: "error", Value: err.Error()})
		return nil
	}

	logger.Error("Cache read failed, falling back to lookup", err)
	return nil
}

// isStale reports whether entry is older than the TTL. Entries stamped in the
// future count as fresh.
func (r *Resolver[T]) isStale(entry *cache.Entry[T]) bool {
	return entry.Age(r.now()) > r.ttl
}
