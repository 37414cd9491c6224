package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v3"

	"github.com/justestif/go-spotify-tap-to-play/internal/auth"
	"github.com/justestif/go-spotify-tap-to-play/internal/playback"
	spotifyclient "github.com/justestif/go-spotify-tap-to-play/internal/spotify"
	"github.com/justestif/go-spotify-tap-to-play/internal/web"
	webfs "github.com/justestif/go-spotify-tap-to-play/web"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP server",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			defer e.close()

			if err := e.cfg.ValidatePlayer(); err != nil {
				return err
			}
			if e.backend.local {
				if err := e.backend.migrate(ctx); err != nil {
					return err
				}
			}

			templates, err := fs.Sub(webfs.TemplatesFS, "templates")
			if err != nil {
				return fmt.Errorf("creating templates filesystem: %w", err)
			}

			svc := playback.New(e.cfg.Player.DeviceID, e.logger)
			e.logger.Info("playback configured", "device", svc.DeviceID(), "store", e.backend.name, "location", e.backend.location)

			server, err := web.NewServer(web.ServerConfig{
				Addr:        e.cfg.Server.Addr,
				Auth:        e.auth,
				Stores:      e.backend.open,
				Playback:    svc,
				Logger:      e.logger,
				TemplatesFS: templates,
				RateLimit:   e.cfg.Server.RateLimit,
				Burst:       e.cfg.Server.Burst,
			})
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}

			return server.Run()
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create the token cache table if it does not exist",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			defer e.close()

			if err := e.backend.migrate(ctx); err != nil {
				return err
			}
			e.logger.Info("token store migrated", "store", e.backend.name)
			return nil
		},
	}
}

func playlistsCommand() *cli.Command {
	return &cli.Command{
		Name:  "playlists",
		Usage: "List playlists with the key each one is played by",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withClient(ctx, cmd, nil, func(e *env, client *spotifyclient.Client) error {
				playlists, err := client.Playlists(ctx)
				if err != nil {
					return err
				}

				t := table.NewWriter()
				t.SetOutputMirror(os.Stdout)
				t.AppendHeader(table.Row{"#", "Name", "Key", "URI"})
				for i, p := range playlists {
					t.AppendRow(table.Row{i + 1, p.Name, playback.Normalize(p.Name), p.URI})
				}
				t.SetStyle(table.StyleRounded)
				t.Render()
				return nil
			})
		},
	}
}

func devicesCommand() *cli.Command {
	return &cli.Command{
		Name:  "devices",
		Usage: "List Spotify Connect devices",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withClient(ctx, cmd, auth.ExtraScopes, func(e *env, client *spotifyclient.Client) error {
				devices, err := client.Devices(ctx)
				if err != nil {
					return err
				}

				t := table.NewWriter()
				t.SetOutputMirror(os.Stdout)
				t.AppendHeader(table.Row{"#", "Name", "Type", "Status", "Device ID"})
				for i, d := range devices {
					status := "Inactive"
					if d.Active {
						status = "Active"
					}
					if d.ID == e.cfg.Player.DeviceID {
						status += " (configured)"
					}
					t.AppendRow(table.Row{i + 1, d.Name, d.Type, status, d.ID})
				}
				t.SetStyle(table.StyleRounded)
				t.Render()
				return nil
			})
		},
	}
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Show the stored token's scope and expiry",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			defer e.close()

			store, err := e.backend.open(ctx)
			if err != nil {
				return err
			}
			tokens := e.auth.Manager(store)
			defer tokens.Close()

			tok, err := tokens.CachedToken(ctx)
			if err != nil {
				return err
			}
			if tok == nil {
				fmt.Printf("No usable token stored. Run serve and open /auth/login to authorize (scope %q).\n", e.auth.Scope())
				return nil
			}

			api, err := tokens.Client(ctx)
			if err != nil {
				return err
			}
			user, err := spotifyclient.New(api).UserID(ctx)
			if err != nil {
				return err
			}

			expires := "never"
			if tok.ExpiresAt != 0 {
				expires = time.Unix(tok.ExpiresAt, 0).Format(time.RFC3339)
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendRows([]table.Row{
				{"User", user},
				{"Scope", tok.Scope},
				{"Expires", expires},
				{"Store", e.backend.name},
			})
			t.SetStyle(table.StyleRounded)
			t.Render()
			return nil
		},
	}
}

// withClient runs fn with a Spotify client authorized by the stored token,
// which must also cover scopes.
func withClient(ctx context.Context, cmd *cli.Command, scopes []string, fn func(*env, *spotifyclient.Client) error) error {
	e, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer e.close()

	store, err := e.backend.open(ctx)
	if err != nil {
		return err
	}
	tokens := e.auth.Require(scopes...).Manager(store)
	defer tokens.Close()

	api, err := tokens.Client(ctx)
	if errors.Is(err, auth.ErrNotAuthorized) {
		return fmt.Errorf("%w: open /auth/login to grant %q", err, e.auth.Require(scopes...).Scope())
	}
	if err != nil {
		return err
	}
	return fn(e, spotifyclient.New(api))
}
