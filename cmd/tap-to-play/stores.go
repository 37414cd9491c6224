package main

import (
	"context"
	"fmt"

	"github.com/justestif/go-spotify-tap-to-play/internal/auth"
	"github.com/justestif/go-spotify-tap-to-play/internal/config"
	"github.com/justestif/go-spotify-tap-to-play/internal/db"
	"github.com/justestif/go-spotify-tap-to-play/internal/web"
)

// storeBackend is the token store selected by the configuration.
type storeBackend struct {
	name     string
	location string
	open     web.StoreOpener
	migrate  func(ctx context.Context) error
	close    func() error

	// local backends create their table on startup.
	local bool
}

func noMigration(context.Context) error { return nil }
func noClose() error                    { return nil }

// openBackend connects the configured token store.
func openBackend(ctx context.Context, cfg config.DatabaseConfig) (*storeBackend, error) {
	switch cfg.Store {
	case config.StorePostgres:
		pool, err := db.New(ctx, cfg.URL, cfg.MaxConns)
		if err != nil {
			return nil, err
		}
		return &storeBackend{
			name: cfg.Store,
			open: func(ctx context.Context) (auth.TokenStore, error) {
				store, err := pool.AcquireCache(ctx)
				if err != nil {
					return nil, err
				}
				return store, nil
			},
			migrate: pool.Migrate,
			close: func() error {
				pool.Close()
				return nil
			},
		}, nil

	case config.StoreSQLite:
		lite, err := db.OpenSQLite(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}
		return &storeBackend{
			name:     cfg.Store,
			location: cfg.Path,
			open: func(ctx context.Context) (auth.TokenStore, error) {
				store, err := lite.AcquireCache(ctx)
				if err != nil {
					return nil, err
				}
				return store, nil
			},
			migrate: lite.Migrate,
			close:   lite.Close,
			local:   true,
		}, nil

	case config.StoreFile:
		file := auth.NewFileStore(cfg.Path)
		return &storeBackend{
			name:     cfg.Store,
			location: file.Path(),
			open: func(context.Context) (auth.TokenStore, error) {
				return file, nil
			},
			migrate: noMigration,
			close:   noClose,
			local:   true,
		}, nil

	case config.StoreMemory:
		mem := auth.NewMemoryStore()
		return &storeBackend{
			name: cfg.Store,
			open: func(context.Context) (auth.TokenStore, error) {
				return mem, nil
			},
			migrate: noMigration,
			close:   noClose,
			local:   true,
		}, nil

	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownStore, cfg.Store)
	}
}
