// Package stores builds the configured cache.Store backend.
package stores

import (
	"fmt"

	"object-denormalizer/internal/cache"
	"object-denormalizer/internal/cache/stores/memory"
	"object-denormalizer/internal/cache/stores/redis"
	"object-denormalizer/internal/cache/stores/sqlstore"
)

// Type represents the cache store backend
type Type string

const (
	TypeMemory   Type = "memory"
	TypeRedis    Type = "redis"
	TypeSQLite   Type = "sqlite"
	TypePostgres Type = "postgres"
)

// Config holds the settings for every backend; only the section matching Type is read.
type Config struct {
	Type     Type
	Redis    redis.Config
	SQLite   sqlstore.SQLiteConfig
	Postgres sqlstore.PostgresConfig
}

// New creates a store based on configuration
func New(config Config) (cache.Store, error) {
	switch config.Type {
	case TypeMemory, "":
		return memory.New(), nil

	case TypeRedis:
		return redis.NewStore(&config.Redis)

	case TypeSQLite:
		return sqlstore.OpenSQLite(&config.SQLite)

	case TypePostgres:
		return sqlstore.OpenPostgres(&config.Postgres)

	default:
		return nil, fmt.Errorf("unknown cache store type: %s", config.Type)
	}
}
