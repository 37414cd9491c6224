package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// tokenStore is the method set both cache stores share.
type tokenStore interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, payload []byte) error
	Close() error
}

func openTestSQLite(t *testing.T) *SQLite {
	t.Helper()

	ctx := context.Background()
	s, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "tap.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return s
}

// exerciseStore runs the single-row contract against a store factory.
func exerciseStore(t *testing.T, acquire func(ctx context.Context) (tokenStore, error), count func(ctx context.Context) int) {
	ctx := context.Background()

	store, err := acquire(ctx)
	if err != nil {
		t.Fatalf("acquire error = %v", err)
	}

	data, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() on empty table error = %v", err)
	}
	if data != nil {
		t.Fatalf("Load() on empty table = %s, want nil", data)
	}

	first := []byte(`{"access_token":"first","scope":"streaming"}`)
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	second := []byte(`{"access_token":"second","scope":"streaming"}`)
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if n := count(ctx); n != 1 {
		t.Errorf("cache table has %d rows, want 1", n)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := store.Load(ctx); err == nil {
		t.Error("Load() after Close should fail")
	}
	if err := store.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	// A new request sees the overwritten row.
	next, err := acquire(ctx)
	if err != nil {
		t.Fatalf("acquire error = %v", err)
	}
	defer next.Close()

	data, err = next.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(data) != string(second) {
		t.Errorf("Load() = %s, want %s", data, second)
	}
}

func TestSQLiteCacheStore(t *testing.T) {
	s := openTestSQLite(t)

	exerciseStore(t,
		func(ctx context.Context) (tokenStore, error) { return s.AcquireCache(ctx) },
		func(ctx context.Context) int {
			var n int
			if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cache`).Scan(&n); err != nil {
				t.Fatalf("counting rows: %v", err)
			}
			return n
		},
	)
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	s := openTestSQLite(t)

	if err := s.Migrate(context.Background()); err != nil {
		t.Errorf("second Migrate() error = %v", err)
	}
}

// TestPostgresCacheStore runs against a real database when
// TAP_TO_PLAY_TEST_DATABASE_URL is set. The cache table is emptied first.
func TestPostgresCacheStore(t *testing.T) {
	url := os.Getenv("TAP_TO_PLAY_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TAP_TO_PLAY_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	database, err := New(ctx, url, 2)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if _, err := database.pool.Exec(ctx, `DELETE FROM cache`); err != nil {
		t.Fatalf("clearing cache table: %v", err)
	}

	exerciseStore(t,
		func(ctx context.Context) (tokenStore, error) { return database.AcquireCache(ctx) },
		func(ctx context.Context) int {
			var n int
			if err := database.pool.QueryRow(ctx, `SELECT COUNT(*) FROM cache`).Scan(&n); err != nil {
				t.Fatalf("counting rows: %v", err)
			}
			return n
		},
	)
}
