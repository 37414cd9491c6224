// Package config loads tap-to-play settings from a TOML file and the environment.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/justestif/go-spotify-tap-to-play/internal/auth"
)

//go:embed tap-to-play.example.toml
var exampleConf []byte

// DefaultPath is the config file looked up when no path is given.
const DefaultPath = "tap-to-play.toml"

// Token store backends.
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreFile     = "file"
	StoreMemory   = "memory"
)

var (
	// ErrMissingDatabaseURL is returned when the postgres store has no connection string.
	ErrMissingDatabaseURL = errors.New("missing DATABASE_URL for postgres token store")

	// ErrMissingStorePath is returned when a sqlite or file store has no path.
	ErrMissingStorePath = errors.New("missing path for token store")

	// ErrUnknownStore is returned for an unrecognized token store backend.
	ErrUnknownStore = errors.New("unknown token store")

	// ErrMissingDevice is returned when no playback device is configured.
	ErrMissingDevice = errors.New("missing PLAYER_DEVICE_ID")
)

// Config is the full application configuration.
type Config struct {
	Spotify  SpotifyConfig  `toml:"spotify"`
	Player   PlayerConfig   `toml:"player"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
}

// SpotifyConfig contains the OAuth client credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// PlayerConfig selects where playback happens.
type PlayerConfig struct {
	DeviceID string `toml:"device_id"`
}

// DatabaseConfig selects and configures the token store.
type DatabaseConfig struct {
	Store    string `toml:"store"`
	URL      string `toml:"url"`
	Path     string `toml:"path"`
	MaxConns int32  `toml:"max_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Addr      string  `toml:"addr"`
	RateLimit float64 `toml:"rate_limit"`
	Burst     int     `toml:"burst"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the configuration described by the embedded example file.
func Default() *Config {
	var cfg Config
	if err := toml.Unmarshal(exampleConf, &cfg); err != nil {
		panic(fmt.Sprintf("parsing embedded default config: %v", err))
	}
	return &cfg
}

// LoadFile reads a TOML file on top of the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Load builds the configuration from, in increasing precedence: the defaults,
// the TOML file at path (skipped when it does not exist), a .env file in the
// working directory, and the process environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			loaded, err := LoadFile(path)
			if err != nil {
				return nil, err
			}
			cfg = loaded
		}
	}

	// A missing .env is the common case in production.
	_ = godotenv.Load()

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides fields with non-empty environment variables.
func (c *Config) applyEnv(getenv func(string) string) error {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	set(&c.Spotify.ClientID, "SPOTIFY_ID")
	set(&c.Spotify.ClientSecret, "SPOTIFY_SECRET")
	set(&c.Spotify.RedirectURI, "SPOTIFY_REDIRECT_URI")
	set(&c.Player.DeviceID, "PLAYER_DEVICE_ID")
	set(&c.Database.Store, "TOKEN_STORE")
	set(&c.Database.URL, "DATABASE_URL")
	set(&c.Database.Path, "TOKEN_STORE_PATH")
	set(&c.Server.Addr, "LISTEN_ADDR")
	set(&c.Log.Level, "LOG_LEVEL")

	// Hosting platforms hand out only a port.
	if port := getenv("PORT"); port != "" {
		if _, err := strconv.Atoi(port); err != nil {
			return fmt.Errorf("invalid PORT %q: %w", port, err)
		}
		c.Server.Addr = ":" + port
	}
	return nil
}

// Validate checks the settings every command needs: credentials and a usable token store.
func (c *Config) Validate() error {
	if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" {
		return fmt.Errorf("%w: set SPOTIFY_ID and SPOTIFY_SECRET", auth.ErrMissingCredentials)
	}

	switch c.Database.Store {
	case StorePostgres:
		if c.Database.URL == "" {
			return ErrMissingDatabaseURL
		}
	case StoreSQLite, StoreFile:
		if c.Database.Path == "" {
			return fmt.Errorf("%w: %s", ErrMissingStorePath, c.Database.Store)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStore, c.Database.Store)
	}
	return nil
}

// ValidatePlayer checks the settings the playback route needs on top of Validate.
func (c *Config) ValidatePlayer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Player.DeviceID == "" {
		return ErrMissingDevice
	}
	return nil
}
