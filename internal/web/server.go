// Package web provides the HTTP server that turns a GET request into playback.
package web

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/zmb3/spotify/v2"

	"github.com/justestif/go-spotify-tap-to-play/internal/auth"
	"github.com/justestif/go-spotify-tap-to-play/internal/playback"
)

// DefaultAddr is the default server address.
const DefaultAddr = "127.0.0.1:8080"

// StoreOpener opens the token store for one request.
type StoreOpener func(ctx context.Context) (auth.TokenStore, error)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr     string
	Auth     *auth.Authenticator
	Stores   StoreOpener
	Playback *playback.Service
	Logger   *log.Logger

	// TemplatesFS holds layouts/*.html and pages/*.html for the authorization pages.
	TemplatesFS fs.FS

	// RateLimit is the number of play requests allowed per second; 0 disables it.
	RateLimit float64
	Burst     int

	// APIOptions are passed to every Spotify client the handlers create.
	APIOptions []spotify.ClientOption
}

// Server is the HTTP server for the playback endpoint.
type Server struct {
	router   chi.Router
	server   *http.Server
	handlers *Handlers
	logger   *log.Logger
}

// NewServer creates a new web server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Auth == nil || cfg.Stores == nil || cfg.Playback == nil {
		return nil, errors.New("server needs an authenticator, a token store and a playback service")
	}
	if cfg.TemplatesFS == nil {
		return nil, errors.New("server needs templates")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	// Load templates
	templates, err := NewTemplates(cfg.TemplatesFS)
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	router := chi.NewRouter()

	s := &Server{
		router:   router,
		handlers: NewHandlers(cfg.Auth, cfg.Stores, cfg.Playback, templates, cfg.Logger, cfg.APIOptions...),
		logger:   cfg.Logger,
	}

	// Configure middleware
	s.setupMiddleware()

	// Configure routes
	s.setupRoutes(cfg.RateLimit, cfg.Burst)

	// Create HTTP server
	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// setupMiddleware configures middleware for the router.
func (s *Server) setupMiddleware() {
	requestLog := s.logger.StandardLog(log.StandardLogOptions{ForceLevel: log.InfoLevel})

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: requestLog, NoColor: true}))
	s.router.Use(middleware.Recoverer)
}

// setupRoutes configures routes for the application.
func (s *Server) setupRoutes(limit float64, burst int) {
	// Playback
	s.router.With(rateLimit(limit, burst)).Get("/", s.handlers.Play)

	// Auth routes
	s.router.Get("/auth/login", s.handlers.Login)
	s.router.Get("/callback", s.handlers.Callback)

	s.router.Get("/healthz", s.handlers.Health)
}

// Handler returns the router, for serving without a listener.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Run starts the server and handles graceful shutdown on interrupt signals.
func (s *Server) Run() error {
	// Channel to receive shutdown signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt or error
	select {
	case err := <-errCh:
		return err
	case <-stop:
		s.logger.Info("shutting down server")
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}
