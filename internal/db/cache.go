package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	selectTokens = `SELECT tokens FROM cache LIMIT 1`
	updateTokens = `UPDATE cache SET tokens = $1`
	insertTokens = `INSERT INTO cache (tokens) VALUES ($1)`
)

// errClosed is returned by a store used after Close.
var errClosed = errors.New("token store is closed")

// CacheStore reads and writes the single row of the cache table over one
// pooled connection.
type CacheStore struct {
	conn *pgxpool.Conn
}

// Load returns the JSON token blob.
// Returns (nil, nil) if the table is empty.
func (s *CacheStore) Load(ctx context.Context) ([]byte, error) {
	if s.conn == nil {
		return nil, errClosed
	}

	var tokens string
	err := s.conn.QueryRow(ctx, selectTokens).Scan(&tokens)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying cached token: %w", err)
	}
	return []byte(tokens), nil
}

// Save overwrites the token row, inserting it when the table is empty.
func (s *CacheStore) Save(ctx context.Context, payload []byte) error {
	if s.conn == nil {
		return errClosed
	}

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, updateTokens, string(payload))
	if err != nil {
		return fmt.Errorf("updating cached token: %w", err)
	}
	if result.RowsAffected() == 0 {
		if _, err := tx.Exec(ctx, insertTokens, string(payload)); err != nil {
			return fmt.Errorf("inserting cached token: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing cached token: %w", err)
	}
	return nil
}

// Close returns the connection to the pool.
func (s *CacheStore) Close() error {
	if s.conn != nil {
		s.conn.Release()
		s.conn = nil
	}
	return nil
}
