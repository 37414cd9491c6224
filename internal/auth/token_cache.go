// Package auth provides Spotify OAuth2 authorization with a pluggable token store.
package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// TokenStore persists the serialized token record.
//
// A store is opened per request and closed exactly once when the request
// is done; Close releases whatever connection the store holds.
type TokenStore interface {
	// Load returns (nil, nil) when nothing is stored.
	Load(ctx context.Context) ([]byte, error)
	// Save replaces the stored record.
	Save(ctx context.Context, payload []byte) error
	Close() error
}

// FileStore keeps the token record in a file.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the file path where the token is stored.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the token file.
// Returns (nil, nil) if the file does not exist.
func (s *FileStore) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading token file: %w", err)
	}
	return data, nil
}

// Save writes the token file, creating the parent directory if needed.
func (s *FileStore) Save(_ context.Context, payload []byte) error {
	if len(payload) == 0 {
		return errors.New("cannot save empty token")
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}

	if err := os.WriteFile(s.path, payload, 0600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	return nil
}

// Close is a no-op; files are not held open between calls.
func (s *FileStore) Close() error {
	return nil
}

// MemoryStore keeps the token record in process memory. It outlives
// requests, so Close leaves the record in place.
type MemoryStore struct {
	mu   sync.RWMutex
	data []byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns a copy of the stored record.
func (s *MemoryStore) Load(_ context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.data == nil {
		return nil, nil
	}
	return append([]byte(nil), s.data...), nil
}

// Save replaces the stored record.
func (s *MemoryStore) Save(_ context.Context, payload []byte) error {
	if len(payload) == 0 {
		return errors.New("cannot save empty token")
	}

	s.mu.Lock()
	s.data = append([]byte(nil), payload...)
	s.mu.Unlock()
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

var (
	_ TokenStore = (*FileStore)(nil)
	_ TokenStore = (*MemoryStore)(nil)
)
