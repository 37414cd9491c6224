// Command tap-to-play serves an HTTP endpoint that starts a Spotify playlist,
// shuffled, on a fixed device.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/justestif/go-spotify-tap-to-play/internal/auth"
	"github.com/justestif/go-spotify-tap-to-play/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "tap-to-play",
		Usage: "Start a Spotify playlist from a single GET request",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   config.DefaultPath,
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			playlistsCommand(),
			devicesCommand(),
			tokenCommand(),
		},
	}

	return app.Run(context.Background(), os.Args)
}

// env is what every command needs once configuration is loaded.
type env struct {
	cfg     *config.Config
	logger  *log.Logger
	auth    *auth.Authenticator
	backend *storeBackend
}

// setup loads configuration and connects the token store.
// The caller closes the backend.
func setup(ctx context.Context, cmd *cli.Command) (*env, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := config.NewLogger(os.Stderr, cfg.Log.Level)

	a, err := auth.New(cfg.Spotify.ClientID, cfg.Spotify.ClientSecret, cfg.Spotify.RedirectURI)
	if err != nil {
		return nil, err
	}

	backend, err := openBackend(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening %s token store: %w", cfg.Database.Store, err)
	}
	logger.Debug("token store ready", "store", backend.name)

	return &env{cfg: cfg, logger: logger, auth: a, backend: backend}, nil
}

func (e *env) close() {
	if err := e.backend.close(); err != nil {
		e.logger.Warn("closing token store", "err", err)
	}
}
