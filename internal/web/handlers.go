package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/zmb3/spotify/v2"

	"github.com/justestif/go-spotify-tap-to-play/internal/auth"
	"github.com/justestif/go-spotify-tap-to-play/internal/playback"
	spotifyclient "github.com/justestif/go-spotify-tap-to-play/internal/spotify"
)

const stateCookieName = "oauth_state"

// Handlers contains HTTP handlers for the web application.
type Handlers struct {
	auth      *auth.Authenticator
	stores    StoreOpener
	playback  *playback.Service
	templates *Templates
	logger    *log.Logger
	apiOpts   []spotify.ClientOption
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(a *auth.Authenticator, stores StoreOpener, svc *playback.Service, templates *Templates, logger *log.Logger, apiOpts ...spotify.ClientOption) *Handlers {
	return &Handlers{
		auth:      a,
		stores:    stores,
		playback:  svc,
		templates: templates,
		logger:    logger,
		apiOpts:   apiOpts,
	}
}

// Play starts the playlist named by the name query parameter (GET /).
func (h *Handlers) Play(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if playback.Normalize(name) == "" {
		h.fail(w, r, playback.ErrEmptyName)
		return
	}

	store, err := h.stores(r.Context())
	if err != nil {
		h.fail(w, r, fmt.Errorf("opening token store: %w", err))
		return
	}
	tokens := h.auth.Manager(store)
	defer func() {
		if err := tokens.Close(); err != nil {
			h.logger.Warn("closing token store", "err", err)
		}
	}()

	api, err := tokens.Client(r.Context(), h.apiOpts...)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.playback.Play(r.Context(), spotifyclient.New(api), name)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Login initiates the Spotify OAuth flow (GET /auth/login).
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	state := auth.NewState()

	// Store state in cookie for validation on callback
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300, // 5 minutes
	})

	http.Redirect(w, r, h.auth.AuthURL(state), http.StatusTemporaryRedirect)
}

// Callback handles the OAuth callback from Spotify and stores the token (GET /callback).
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	// Verify state
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || r.URL.Query().Get("state") != stateCookie.Value {
		h.authError(w, r, auth.ErrStateMismatch)
		return
	}

	// Clear state cookie
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	// Check for error from Spotify
	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		h.renderPage(w, http.StatusBadRequest, "auth_error", AuthErrorPageData{
			PageData: PageData{Title: "Authorization Failed"},
			Message:  fmt.Sprintf("Spotify auth error: %s", errMsg),
		})
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.renderPage(w, http.StatusBadRequest, "auth_error", AuthErrorPageData{
			PageData: PageData{Title: "Authorization Failed"},
			Message:  "Missing authorization code",
		})
		return
	}

	store, err := h.stores(r.Context())
	if err != nil {
		h.authError(w, r, fmt.Errorf("opening token store: %w", err))
		return
	}
	tokens := h.auth.Manager(store)
	defer tokens.Close()

	tok, err := tokens.Exchange(r.Context(), code)
	if err != nil {
		h.authError(w, r, err)
		return
	}
	h.logger.Info("stored new token", "scope", tok.Scope)

	data := AuthorizedPageData{
		PageData: PageData{Title: "Authorization Successful"},
		Scope:    tok.Scope,
	}
	if tok.ExpiresAt != 0 {
		data.Expires = time.Unix(tok.ExpiresAt, 0)
	}
	h.renderPage(w, http.StatusOK, "authorized", data)
}

// authError logs err and renders the authorization error page.
func (h *Handlers) authError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	h.logger.Warn("authorization failed", "path", r.URL.Path, "status", status, "err", err)
	h.renderPage(w, status, "auth_error", AuthErrorPageData{
		PageData: PageData{Title: "Authorization Failed"},
		Message:  err.Error(),
	})
}

func (h *Handlers) renderPage(w http.ResponseWriter, status int, page string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, page, data); err != nil {
		h.logger.Error("rendering template", "page", page, "err", err)
	}
}

// Health reports whether the token store is reachable (GET /healthz).
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	store, err := h.stores(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable"})
		return
	}
	defer store.Close()

	payload, err := store.Load(r.Context())
	if err != nil {
		h.logger.Error("health check", "err", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "token": payload != nil})
}

// fail logs err and writes the matching status code.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", r.URL.Path, "status", status, "err", err)
	} else {
		h.logger.Warn("request rejected", "path", r.URL.Path, "status", status, "err", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFor maps an error to an HTTP status code.
func statusFor(err error) int {
	var apiErr spotify.Error
	switch {
	case errors.Is(err, playback.ErrEmptyName), errors.Is(err, auth.ErrStateMismatch):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrNotAuthorized):
		return http.StatusUnauthorized
	case errors.Is(err, playback.ErrPlaylistNotFound):
		return http.StatusNotFound
	case errors.As(err, &apiErr) && apiErr.Status == http.StatusTooManyRequests:
		return http.StatusTooManyRequests
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
