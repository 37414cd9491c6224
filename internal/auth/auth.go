package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// DefaultScopes are needed to list playlists and control playback. Every
// stored token must cover them.
var DefaultScopes = []string{
	spotifyauth.ScopeUserModifyPlaybackState,
	spotifyauth.ScopePlaylistReadPrivate,
	"app-remote-control",
	"streaming",
}

// ExtraScopes are asked for at login on top of the required scopes but are
// not required of a stored token. Listing devices needs them.
var ExtraScopes = []string{
	spotifyauth.ScopeUserReadPlaybackState,
}

var (
	// ErrMissingCredentials is returned when the client ID or secret is empty.
	ErrMissingCredentials = errors.New("missing Spotify client ID or secret")

	// ErrNotAuthorized is returned when no stored token covers the requested scope.
	ErrNotAuthorized = errors.New("not authorized: no usable token stored")

	// ErrStateMismatch is returned when the OAuth state parameter doesn't match.
	ErrStateMismatch = errors.New("OAuth state mismatch")
)

// Authenticator holds the OAuth client configuration shared by every request.
type Authenticator struct {
	config   *oauth2.Config
	required []string
	extra    []string
	scope    string
	now      func() time.Time
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithEndpoint overrides the Spotify accounts endpoints.
func WithEndpoint(endpoint oauth2.Endpoint) Option {
	return func(a *Authenticator) {
		a.config.Endpoint = endpoint
	}
}

// WithScopes replaces DefaultScopes.
func WithScopes(scopes ...string) Option {
	return func(a *Authenticator) {
		a.required = scopes
	}
}

// WithExtraScopes replaces ExtraScopes.
func WithExtraScopes(scopes ...string) Option {
	return func(a *Authenticator) {
		a.extra = scopes
	}
}

// WithClock sets the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) {
		a.now = now
	}
}

// New creates an Authenticator for the given client credentials.
// Returns ErrMissingCredentials if either is empty.
func New(clientID, clientSecret, redirectURL string, opts ...Option) (*Authenticator, error) {
	if clientID == "" || clientSecret == "" {
		return nil, ErrMissingCredentials
	}

	a := &Authenticator{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:  spotifyauth.AuthURL,
				TokenURL: spotifyauth.TokenURL,
			},
		},
		required: DefaultScopes,
		extra:    ExtraScopes,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.build()

	return a, nil
}

func (a *Authenticator) build() {
	a.scope = NormalizeScope(strings.Join(a.required, " "))
	login := append(append([]string{}, a.required...), a.extra...)
	a.config.Scopes = strings.Fields(NormalizeScope(strings.Join(login, " ")))
}

// Require returns a copy of a whose stored tokens must also cover scopes.
func (a *Authenticator) Require(scopes ...string) *Authenticator {
	config := *a.config
	b := &Authenticator{
		config:   &config,
		required: append(append([]string{}, a.required...), scopes...),
		extra:    a.extra,
		now:      a.now,
	}
	b.build()
	return b
}

// LoginScope returns the normalized scope asked for on the consent page.
func (a *Authenticator) LoginScope() string {
	return strings.Join(a.config.Scopes, " ")
}

// Scope returns the normalized scope every stored token must cover.
func (a *Authenticator) Scope() string {
	return a.scope
}

// AuthURL returns the Spotify consent page URL for state.
func (a *Authenticator) AuthURL(state string) string {
	return a.config.AuthCodeURL(state)
}

// NewState returns a fresh value for the OAuth state parameter.
func NewState() string {
	return uuid.NewString()
}

// Manager binds the Authenticator to a store for the duration of one request.
func (a *Authenticator) Manager(store TokenStore) *TokenManager {
	return &TokenManager{auth: a, store: store}
}

// TokenManager reads, refreshes and writes the token through a TokenStore.
type TokenManager struct {
	auth  *Authenticator
	store TokenStore

	closeOnce sync.Once
	closeErr  error
}

// CachedToken returns the stored token if it covers the requested scope,
// refreshing and saving it first when it has expired.
// Returns (nil, nil) when nothing usable is stored.
func (m *TokenManager) CachedToken(ctx context.Context) (*Token, error) {
	payload, err := m.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading token: %w", err)
	}
	if payload == nil {
		return nil, nil
	}

	tok, err := decodeToken(payload)
	if err != nil {
		return nil, err
	}

	if !tok.Covers(m.auth.scope) {
		return nil, nil
	}

	if tok.Expired(m.auth.now()) {
		return m.refresh(ctx, tok)
	}
	return tok, nil
}

// refresh runs the refresh grant and persists the result.
func (m *TokenManager) refresh(ctx context.Context, tok *Token) (*Token, error) {
	if tok.RefreshToken == "" {
		return nil, fmt.Errorf("%w: token expired and has no refresh token", ErrNotAuthorized)
	}

	src := m.auth.config.TokenSource(ctx, &oauth2.Token{RefreshToken: tok.RefreshToken})
	next, err := src.Token()
	if err != nil {
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) && rErr.ErrorCode == "invalid_grant" {
			return nil, fmt.Errorf("%w: refresh token rejected: %v", ErrNotAuthorized, err)
		}
		return nil, fmt.Errorf("refreshing token: %w", err)
	}

	fresh := FromOAuth(next, tok.Scope, m.auth.now())
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = tok.RefreshToken
	}

	if err := m.SaveToken(ctx, fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

// SaveToken serializes tok and overwrites the stored record.
func (m *TokenManager) SaveToken(ctx context.Context, tok *Token) error {
	if tok == nil {
		return errors.New("cannot save nil token")
	}

	payload, err := encodeToken(tok)
	if err != nil {
		return err
	}

	if err := m.store.Save(ctx, payload); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}
	return nil
}

// Exchange trades an authorization code for a token and saves it.
func (m *TokenManager) Exchange(ctx context.Context, code string) (*Token, error) {
	t, err := m.auth.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging code for token: %w", err)
	}

	tok := FromOAuth(t, m.auth.LoginScope(), m.auth.now())
	if err := m.SaveToken(ctx, tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// Client returns a Spotify client authorized with the stored token.
// Tokens refreshed by the transport during the request are saved too.
func (m *TokenManager) Client(ctx context.Context, opts ...spotify.ClientOption) (*spotify.Client, error) {
	tok, err := m.CachedToken(ctx)
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, ErrNotAuthorized
	}

	src := oauth2.ReuseTokenSource(tok.OAuth(), &persistingSource{ctx: ctx, manager: m, current: tok})
	httpClient := oauth2.NewClient(ctx, src)

	opts = append([]spotify.ClientOption{spotify.WithRetry(true)}, opts...)
	return spotify.New(httpClient, opts...), nil
}

// Close releases the store. Safe to call more than once; only the first
// call reaches the store.
func (m *TokenManager) Close() error {
	m.closeOnce.Do(func() {
		m.closeErr = m.store.Close()
	})
	return m.closeErr
}

// persistingSource refreshes through the manager so the new token is stored.
type persistingSource struct {
	ctx     context.Context
	manager *TokenManager

	mu      sync.Mutex
	current *Token
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fresh, err := s.manager.refresh(s.ctx, s.current)
	if err != nil {
		return nil, err
	}
	s.current = fresh
	return fresh.OAuth(), nil
}
