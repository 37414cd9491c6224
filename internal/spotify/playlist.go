package spotify

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"
)

// playlistPageSize is the largest page Spotify serves for playlist listings.
const playlistPageSize = 50

// Playlist is a playlist reference as far as playback cares.
type Playlist struct {
	ID   string
	Name string
	URI  string
}

// Playlists returns the current user's playlists.
// Only the first page is fetched; later pages are not followed.
func (c *Client) Playlists(ctx context.Context) ([]Playlist, error) {
	page, err := c.api.CurrentUsersPlaylists(ctx, spotify.Limit(playlistPageSize))
	if err != nil {
		return nil, fmt.Errorf("fetching playlists: %w", err)
	}

	playlists := make([]Playlist, len(page.Playlists))
	for i, p := range page.Playlists {
		playlists[i] = convertPlaylist(p)
	}
	return playlists, nil
}

// convertPlaylist converts a Spotify SimplePlaylist to a Playlist.
func convertPlaylist(p spotify.SimplePlaylist) Playlist {
	return Playlist{
		ID:   p.ID.String(),
		Name: p.Name,
		URI:  string(p.URI),
	}
}
