package content

import (
	"time"

	"object-denormalizer/internal/cache"
	"object-denormalizer/internal/common/logging"
	"object-denormalizer/internal/resolver"
)

// KeyPrefix namespaces content entries in a shared cache store
const KeyPrefix = "content:"

// Service resolves content ids through the cache
type Service = resolver.Resolver[*Content]

// NewService wires a content resolver over store. Entries older than ttl are
// refreshed through lookup. opts are applied after the KeyPrefix default.
func NewService(store cache.Store, lookup resolver.Lookup[*Content], metrics resolver.Metrics, ttl time.Duration, logger logging.Logger, opts ...cache.Option) *Service {
	opts = append([]cache.Option{cache.WithKeyPrefix(KeyPrefix)}, opts...)
	svc := cache.NewService[*Content](store, opts...)
	return resolver.New[*Content](ttl, lookup, svc, metrics, resolver.WithLogger(logger))
}
