// Package cache provides the generic serialization layer between typed
// values and the raw string-keyed Store. It has no notion of TTL: every value
// is wrapped in an Entry stamped with its write time and callers decide what
// an entry's age means.
package cache

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"object-denormalizer/internal/common/errors"
)

// Service reads and writes Entry[T] values as JSON documents in a Store.
// It is safe for concurrent use when the underlying Store is.
type Service[T any] struct {
	store     Store
	keyPrefix string
	now       func() time.Time
}

// Option configures a Service
type Option func(*options)

type options struct {
	keyPrefix string
	now       func() time.Time
}

// WithKeyPrefix namespaces every key written by the service
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		o.keyPrefix = prefix
	}
}

// WithClock replaces time.Now as the source of write timestamps
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// NewService creates a cache service over store
func NewService[T any](store Store, opts ...Option) *Service[T] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	return &Service[T]{
		store:     store,
		keyPrefix: o.keyPrefix,
		now:       o.now,
	}
}

// Get returns the entry stored under key, or nil when there is none.
// Stored bytes that are not a valid entry yield a cache_decode AppError.
func (s *Service[T]) Get(ctx context.Context, key string) (*Entry[T], error) {
	storeKey := s.keyPrefix + key

	raw, found, err := s.store.Get(ctx, storeKey)
	if err != nil {
		return nil, errors.ConnectionError("cache store read failed", err).WithContext("key", storeKey)
	}
	if !found {
		return nil, nil
	}

	entry, err := decodeEntry[T](raw)
	if err != nil {
		return nil, errors.CacheDecodeError(storeKey, err)
	}

	return entry, nil
}

// Validator is implemented by cached values that can tell a decoded but
// unusable value apart from a real one.
type Validator interface {
	Validate() error
}

// storedEntry keeps the value raw so a missing or null value can be told
// apart from a zero one.
type storedEntry struct {
	Value     json.RawMessage `json:"value"`
	WrittenAt int64           `json:"written_at"`
}

func decodeEntry[T any](raw string) (*Entry[T], error) {
	var stored storedEntry
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, err
	}
	if stored.WrittenAt == 0 {
		return nil, errMissingTimestamp
	}
	if len(stored.Value) == 0 || string(stored.Value) == "null" {
		return nil, errMissingValue
	}

	entry := &Entry[T]{WrittenAt: stored.WrittenAt}
	if err := json.Unmarshal(stored.Value, &entry.Value); err != nil {
		return nil, err
	}
	if v, ok := any(entry.Value).(Validator); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}

	return entry, nil
}

// Put stamps value with the current time and overwrites whatever is stored under key.
func (s *Service[T]) Put(ctx context.Context, key string, value T) error {
	storeKey := s.keyPrefix + key

	data, err := json.Marshal(NewEntry(value, s.now()))
	if err != nil {
		return errors.InternalError("failed to encode cache entry", err).WithContext("key", storeKey)
	}

	if err := s.store.Put(ctx, storeKey, string(data)); err != nil {
		return errors.ConnectionError("cache store write failed", err).WithContext("key", storeKey)
	}

	return nil
}

// Now returns the service clock's current time
func (s *Service[T]) Now() time.Time {
	return s.now()
}

var (
	errMissingTimestamp = stderrors.New("entry has no written_at timestamp")
	errMissingValue     = stderrors.New("entry has no value")
)
