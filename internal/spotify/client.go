// Package spotify exposes the few Web API calls tap-to-play makes: the
// current user, the playlist listing and the playback controls.
package spotify

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"
)

// Client issues playback-related requests with an authorized API client.
type Client struct {
	api *spotify.Client
}

// New wraps api. Its transport must carry the stored token.
func New(api *spotify.Client) *Client {
	return &Client{api: api}
}

// UserID returns the Spotify ID of the account the stored token belongs to.
func (c *Client) UserID(ctx context.Context) (string, error) {
	user, err := c.api.CurrentUser(ctx)
	if err != nil {
		return "", fmt.Errorf("looking up token owner: %w", err)
	}
	return user.ID, nil
}
