// Package sqlstore implements cache.Store as a single key/value table in
// SQLite (mattn/go-sqlite3) or PostgreSQL (pgx through database/sql).
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

const (
	tableName      = "cache_entries"
	migrateTimeout = 10 * time.Second
)

type dialect struct {
	name   string
	schema string
	get    string
	put    string
}

var sqliteDialect = dialect{
	name: "sqlite",
	schema: `CREATE TABLE IF NOT EXISTS ` + tableName + ` (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	get: `SELECT value FROM ` + tableName + ` WHERE key = ?`,
	put: `INSERT INTO ` + tableName + ` (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
}

var postgresDialect = dialect{
	name: "postgres",
	schema: `CREATE TABLE IF NOT EXISTS ` + tableName + ` (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	get: `SELECT value FROM ` + tableName + ` WHERE key = $1`,
	put: `INSERT INTO ` + tableName + ` (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
}

// Store keeps cache entries in a SQL table. Writes are upserts, so the last
// writer wins.
type Store struct {
	db      *sql.DB
	dialect dialect
}

// OpenSQLite opens (and migrates) a SQLite-backed store
func OpenSQLite(config *SQLiteConfig) (*Store, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid SQLite config: %w", err)
	}

	db, err := sql.Open("sqlite3", config.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	return newStore(db, sqliteDialect)
}

// OpenPostgres opens (and migrates) a PostgreSQL-backed store using the pgx driver
func OpenPostgres(config *PostgresConfig) (*Store, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid PostgreSQL config: %w", err)
	}

	connConfig, err := pgx.ParseConfig(config.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse PostgreSQL config: %w", err)
	}

	return newStore(stdlib.OpenDB(*connConfig), postgresDialect)
}

func newStore(db *sql.DB, d dialect) (*Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), migrateTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", d.name, err)
	}

	if _, err := db.ExecContext(ctx, d.schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate %s database: %w", d.name, err)
	}

	return &Store{db: db, dialect: d}, nil
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.dialect.get, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read cache entry %s: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) Put(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.put, key, value); err != nil {
		return fmt.Errorf("failed to write cache entry %s: %w", key, err)
	}
	return nil
}

// Driver names the SQL dialect in use
func (s *Store) Driver() string {
	return s.dialect.name
}

func (s *Store) Health() error {
	return s.db.Ping()
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
