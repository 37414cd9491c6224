package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const (
	sqliteUpdateTokens = `UPDATE cache SET tokens = ?`
	sqliteInsertTokens = `INSERT INTO cache (tokens) VALUES (?)`
)

// SQLite holds the cache table in a SQLite file, for running without Postgres.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens the database at path. The path can be ":memory:".
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Migrate creates the cache table if it does not exist.
func (s *SQLite) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createCacheTable); err != nil {
		return fmt.Errorf("creating cache table: %w", err)
	}
	return nil
}

// AcquireCache reserves a connection for one request.
func (s *SQLite) AcquireCache(ctx context.Context) (*SQLiteCacheStore, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}
	return &SQLiteCacheStore{conn: conn}, nil
}

// SQLiteCacheStore is the SQLite counterpart of CacheStore.
type SQLiteCacheStore struct {
	conn *sql.Conn
}

// Load returns the JSON token blob.
// Returns (nil, nil) if the table is empty.
func (s *SQLiteCacheStore) Load(ctx context.Context) ([]byte, error) {
	if s.conn == nil {
		return nil, errClosed
	}

	var tokens string
	err := s.conn.QueryRowContext(ctx, selectTokens).Scan(&tokens)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying cached token: %w", err)
	}
	return []byte(tokens), nil
}

// Save overwrites the token row, inserting it when the table is empty.
func (s *SQLiteCacheStore) Save(ctx context.Context, payload []byte) error {
	if s.conn == nil {
		return errClosed
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, sqliteUpdateTokens, string(payload))
	if err != nil {
		return fmt.Errorf("updating cached token: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("counting updated rows: %w", err)
	}
	if affected == 0 {
		if _, err := tx.ExecContext(ctx, sqliteInsertTokens, string(payload)); err != nil {
			return fmt.Errorf("inserting cached token: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing cached token: %w", err)
	}
	return nil
}

// Close returns the connection to the pool.
func (s *SQLiteCacheStore) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
