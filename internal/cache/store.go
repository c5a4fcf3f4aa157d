package cache

import "context"

// Store is the raw string-keyed key-value storage backing the cache.
// Get reports found=false with a nil error when the key is absent.
type Store interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Put(ctx context.Context, key, value string) error
	Health() error
	Close() error
}
