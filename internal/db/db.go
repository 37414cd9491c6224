// Package db provides the database-backed token stores for tap-to-play.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// createCacheTable holds the single token row. The schema predates this
// service, so it is created only when missing.
const createCacheTable = `CREATE TABLE IF NOT EXISTS cache (tokens TEXT NOT NULL)`

// DB wraps a PostgreSQL connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// New creates a new database connection pool. maxConns <= 0 keeps the pgx default.
func New(ctx context.Context, databaseURL string, maxConns int32) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}
	if maxConns > 0 {
		config.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the database connection pool.
func (db *DB) Close() {
	db.pool.Close()
}

// Migrate creates the cache table if it does not exist.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, createCacheTable); err != nil {
		return fmt.Errorf("creating cache table: %w", err)
	}
	return nil
}

// AcquireCache checks a connection out of the pool for one request.
// The returned store must be closed to give the connection back.
func (db *DB) AcquireCache(ctx context.Context) (*CacheStore, error) {
	conn, err := db.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}
	return &CacheStore{conn: conn}, nil
}
