// Package playback resolves a spoken or tagged playlist name and starts it
// shuffled on the configured device.
package playback

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/justestif/go-spotify-tap-to-play/internal/spotify"
)

var (
	// ErrEmptyName is returned when a name has no letters or numbers.
	ErrEmptyName = errors.New("playlist name is empty")

	// ErrPlaylistNotFound is returned when no playlist matches the name.
	ErrPlaylistNotFound = errors.New("playlist not found")
)

// Remote is the part of the Spotify API playback drives.
type Remote interface {
	Playlists(ctx context.Context) ([]spotify.Playlist, error)
	Play(ctx context.Context, deviceID, contextURI string) error
	Shuffle(ctx context.Context, deviceID string, on bool) error
}

// Result describes what was started.
type Result struct {
	Playlist string `json:"playlist"`
	Key      string `json:"key"`
	URI      string `json:"uri"`
	DeviceID string `json:"device"`
}

// Service starts playlists on one device.
type Service struct {
	deviceID string
	logger   *log.Logger
}

// New creates a Service that plays on deviceID.
func New(deviceID string, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{deviceID: deviceID, logger: logger}
}

// DeviceID returns the device playback is sent to.
func (s *Service) DeviceID() string {
	return s.deviceID
}

// Index maps normalized names to playlists. When two names normalize to
// the same key the later playlist wins.
func (s *Service) Index(playlists []spotify.Playlist) map[string]spotify.Playlist {
	index := make(map[string]spotify.Playlist, len(playlists))
	for _, p := range playlists {
		key := Normalize(p.Name)
		if prev, ok := index[key]; ok {
			s.logger.Debug("playlist name collision", "key", key, "dropped", prev.URI, "kept", p.URI)
		}
		index[key] = p
	}
	return index
}

// Play looks name up among the user's playlists, starts it on the device
// and then turns shuffle on. Nothing is sent to the device when the lookup fails.
func (s *Service) Play(ctx context.Context, remote Remote, name string) (*Result, error) {
	key := Normalize(name)
	if key == "" {
		return nil, ErrEmptyName
	}

	playlists, err := remote.Playlists(ctx)
	if err != nil {
		return nil, err
	}

	playlist, ok := s.Index(playlists)[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPlaylistNotFound, name)
	}

	// Starting playback first wakes the device so the shuffle call has a target.
	if err := remote.Play(ctx, s.deviceID, playlist.URI); err != nil {
		return nil, err
	}
	if err := remote.Shuffle(ctx, s.deviceID, true); err != nil {
		return nil, err
	}

	s.logger.Info("playing", "playlist", playlist.Name, "uri", playlist.URI, "device", s.deviceID)

	return &Result{
		Playlist: playlist.Name,
		Key:      key,
		URI:      playlist.URI,
		DeviceID: s.deviceID,
	}, nil
}
