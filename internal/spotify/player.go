package spotify

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"
)

// Device is a Spotify Connect device.
type Device struct {
	ID     string
	Name   string
	Type   string
	Active bool
}

// Devices lists the user's available Connect devices.
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	devices, err := c.api.PlayerDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching devices: %w", err)
	}

	result := make([]Device, len(devices))
	for i, d := range devices {
		result[i] = Device{
			ID:     d.ID.String(),
			Name:   d.Name,
			Type:   d.Type,
			Active: d.Active,
		}
	}
	return result, nil
}

// Play starts playback of contextURI on deviceID.
// An empty deviceID targets the user's active device.
func (c *Client) Play(ctx context.Context, deviceID, contextURI string) error {
	uri := spotify.URI(contextURI)
	opts := &spotify.PlayOptions{
		DeviceID:        deviceOpt(deviceID),
		PlaybackContext: &uri,
	}

	if err := c.api.PlayOpt(ctx, opts); err != nil {
		return fmt.Errorf("starting playback of %s: %w", contextURI, err)
	}
	return nil
}

// Shuffle sets the shuffle state on deviceID.
func (c *Client) Shuffle(ctx context.Context, deviceID string, on bool) error {
	opts := &spotify.PlayOptions{DeviceID: deviceOpt(deviceID)}

	if err := c.api.ShuffleOpt(ctx, on, opts); err != nil {
		return fmt.Errorf("setting shuffle to %v: %w", on, err)
	}
	return nil
}

func deviceOpt(deviceID string) *spotify.ID {
	if deviceID == "" {
		return nil
	}
	id := spotify.ID(deviceID)
	return &id
}
