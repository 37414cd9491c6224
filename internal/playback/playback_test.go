package playback

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/justestif/go-spotify-tap-to-play/internal/spotify"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"My Playlist!", "myplaylist"},
		{"Road Trip", "roadtrip"},
		{"road-trip", "roadtrip"},
		{"  ROAD   trip  ", "roadtrip"},
		{"90s Hits", "90shits"},
		{"Café del Mar", "cafédelmar"},
		{"🔥 Workout 🔥", "workout"},
		{"!!!", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{"My Playlist!", "Café del Mar", "ÀÉÎ õü", "a_b.c", "Ⅻ Roman", ""}

	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize(Normalize(%q)) = %q, want %q", in, twice, once)
		}
	}
}

// fakeRemote records calls in order.
type fakeRemote struct {
	playlists []spotify.Playlist
	listErr   error
	playErr   error
	calls     []string
}

func (f *fakeRemote) Playlists(context.Context) ([]spotify.Playlist, error) {
	f.calls = append(f.calls, "list")
	return f.playlists, f.listErr
}

func (f *fakeRemote) Play(_ context.Context, deviceID, uri string) error {
	f.calls = append(f.calls, "play "+deviceID+" "+uri)
	return f.playErr
}

func (f *fakeRemote) Shuffle(_ context.Context, deviceID string, on bool) error {
	state := "off"
	if on {
		state = "on"
	}
	f.calls = append(f.calls, "shuffle "+deviceID+" "+state)
	return nil
}

func newTestService() *Service {
	return New("phone", log.New(io.Discard))
}

func libraryRemote() *fakeRemote {
	return &fakeRemote{playlists: []spotify.Playlist{
		{ID: "1", Name: "Road Trip", URI: "spotify:playlist:1"},
		{ID: "2", Name: "Chill Vibes", URI: "spotify:playlist:2"},
	}}
}

func TestPlay(t *testing.T) {
	remote := libraryRemote()

	res, err := newTestService().Play(context.Background(), remote, "roadtrip")
	if err != nil {
		t.Fatalf("Play() error = %v", err)
	}

	want := Result{Playlist: "Road Trip", Key: "roadtrip", URI: "spotify:playlist:1", DeviceID: "phone"}
	if *res != want {
		t.Errorf("Play() = %+v, want %+v", *res, want)
	}

	wantCalls := []string{"list", "play phone spotify:playlist:1", "shuffle phone on"}
	if len(remote.calls) != len(wantCalls) {
		t.Fatalf("calls = %v, want %v", remote.calls, wantCalls)
	}
	for i := range wantCalls {
		if remote.calls[i] != wantCalls[i] {
			t.Errorf("call %d = %q, want %q", i, remote.calls[i], wantCalls[i])
		}
	}
}

func TestPlay_NameVariants(t *testing.T) {
	for _, name := range []string{"Chill Vibes", "chill-vibes", "CHILLVIBES", " chill vibes! "} {
		t.Run(name, func(t *testing.T) {
			res, err := newTestService().Play(context.Background(), libraryRemote(), name)
			if err != nil {
				t.Fatalf("Play() error = %v", err)
			}
			if res.URI != "spotify:playlist:2" {
				t.Errorf("URI = %q, want spotify:playlist:2", res.URI)
			}
		})
	}
}

func TestPlay_NotFound(t *testing.T) {
	remote := libraryRemote()

	_, err := newTestService().Play(context.Background(), remote, "unknown")
	if !errors.Is(err, ErrPlaylistNotFound) {
		t.Fatalf("Play() error = %v, want ErrPlaylistNotFound", err)
	}

	if len(remote.calls) != 1 || remote.calls[0] != "list" {
		t.Errorf("calls = %v, want only the playlist listing", remote.calls)
	}
}

func TestPlay_EmptyName(t *testing.T) {
	remote := libraryRemote()

	for _, name := range []string{"", "  ", "?!"} {
		_, err := newTestService().Play(context.Background(), remote, name)
		if !errors.Is(err, ErrEmptyName) {
			t.Errorf("Play(%q) error = %v, want ErrEmptyName", name, err)
		}
	}
	if len(remote.calls) != 0 {
		t.Errorf("calls = %v, want none", remote.calls)
	}
}

func TestPlay_RemoteErrors(t *testing.T) {
	boom := errors.New("boom")

	t.Run("listing fails", func(t *testing.T) {
		remote := libraryRemote()
		remote.listErr = boom

		if _, err := newTestService().Play(context.Background(), remote, "roadtrip"); !errors.Is(err, boom) {
			t.Errorf("Play() error = %v, want %v", err, boom)
		}
	})

	t.Run("play fails skips shuffle", func(t *testing.T) {
		remote := libraryRemote()
		remote.playErr = boom

		if _, err := newTestService().Play(context.Background(), remote, "roadtrip"); !errors.Is(err, boom) {
			t.Errorf("Play() error = %v, want %v", err, boom)
		}
		if last := remote.calls[len(remote.calls)-1]; last != "play phone spotify:playlist:1" {
			t.Errorf("last call = %q, shuffle should not be sent", last)
		}
	})
}

func TestIndex_LastWriteWins(t *testing.T) {
	index := newTestService().Index([]spotify.Playlist{
		{Name: "Road Trip", URI: "spotify:playlist:first"},
		{Name: "road trip!", URI: "spotify:playlist:second"},
		{Name: "Other", URI: "spotify:playlist:other"},
	})

	if len(index) != 2 {
		t.Errorf("index has %d keys, want 2", len(index))
	}
	if got := index["roadtrip"].URI; got != "spotify:playlist:second" {
		t.Errorf("index[roadtrip] = %q, want the later playlist", got)
	}
}
