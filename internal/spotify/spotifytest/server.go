// Package spotifytest provides an in-process fake of the Spotify Web API
// endpoints used by tap-to-play.
package spotifytest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// Playlist is a playlist served by the fake.
type Playlist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// Device is a Connect device served by the fake.
type Device struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Active bool   `json:"is_active"`
}

// Call records one playback command received by the fake.
type Call struct {
	// Path is "me/player/play" or "me/player/shuffle".
	Path       string
	DeviceID   string
	State      string
	ContextURI string
	// Auth is the Authorization header the client sent.
	Auth string
}

// Server fakes the Spotify Web API.
type Server struct {
	*httptest.Server

	Playlists []Playlist
	Devices   []Device

	// PlayStatus, when non-zero, is returned for play requests instead of 204.
	PlayStatus int

	mu    sync.Mutex
	calls []Call
}

// NewServer starts a fake serving playlists. It is closed when the test ends.
func NewServer(t *testing.T, playlists ...Playlist) *Server {
	t.Helper()

	s := &Server{Playlists: playlists}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// BaseURL is the value to pass to spotify.WithBaseURL.
func (s *Server) BaseURL() string {
	return s.URL + "/"
}

// Calls returns the playback commands received so far, in order.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/")

	switch {
	case r.Method == http.MethodGet && path == "me":
		writeJSON(w, http.StatusOK, map[string]string{"id": "tester", "display_name": "Tester"})

	case r.Method == http.MethodGet && path == "me/playlists":
		items := s.Playlists
		if items == nil {
			items = []Playlist{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"items": items,
			"limit": 50,
			"total": len(items),
		})

	case r.Method == http.MethodGet && path == "me/player/devices":
		writeJSON(w, http.StatusOK, map[string]any{"devices": s.Devices})

	case r.Method == http.MethodPut && (path == "me/player/play" || path == "me/player/shuffle"):
		call := Call{
			Path:     path,
			DeviceID: r.URL.Query().Get("device_id"),
			State:    r.URL.Query().Get("state"),
			Auth:     r.Header.Get("Authorization"),
		}
		if body, _ := io.ReadAll(r.Body); len(body) > 0 {
			var payload struct {
				ContextURI string `json:"context_uri"`
			}
			_ = json.Unmarshal(body, &payload)
			call.ContextURI = payload.ContextURI
		}

		s.mu.Lock()
		s.calls = append(s.calls, call)
		s.mu.Unlock()

		if path == "me/player/play" && s.PlayStatus != 0 {
			writeJSON(w, s.PlayStatus, map[string]any{
				"error": map[string]any{"status": s.PlayStatus, "message": "Device not found"},
			})
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
