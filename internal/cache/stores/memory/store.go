// Package memory implements cache.Store in process memory on top of
// github.com/patrickmn/go-cache. Entries never expire inside the store; the
// resolver owns staleness.
package memory

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Store keeps raw cache entries in a go-cache instance
type Store struct {
	cache *gocache.Cache
}

// New creates an empty in-memory store
func New() *Store {
	return &Store{
		cache: gocache.New(gocache.NoExpiration, 10*time.Minute),
	}
}

// Get returns the raw value stored under key
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	val, found := s.cache.Get(key)
	if !found {
		return "", false, nil
	}

	str, ok := val.(string)
	if !ok {
		return "", false, fmt.Errorf("unexpected value type %T under key %q", val, key)
	}
	return str, true, nil
}

// Put overwrites the raw value under key
func (s *Store) Put(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.cache.Set(key, value, gocache.NoExpiration)
	return nil
}

// Len reports how many keys are stored
func (s *Store) Len() int {
	return s.cache.ItemCount()
}

func (s *Store) Health() error {
	return nil
}

// Close drops every stored entry
func (s *Store) Close() error {
	s.cache.Flush()
	return nil
}
