package auth

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStore_SaveAndLoad(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"token record", `{"access_token":"a","refresh_token":"r","scope":"streaming","expires_at":1}`},
		{"raw bytes kept as is", `{ "access_token" : "spaced" }`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewFileStore(filepath.Join(t.TempDir(), "token.json"))
			ctx := context.Background()

			if err := store.Save(ctx, []byte(tt.payload)); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			loaded, err := store.Load(ctx)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if string(loaded) != tt.payload {
				t.Errorf("Load() = %s, want %s", loaded, tt.payload)
			}
		})
	}
}

func TestFileStore_LoadNonExistent(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "nonexistent", "token.json"))

	data, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}
	if data != nil {
		t.Errorf("Load() = %s, want nil for non-existent file", data)
	}
}

func TestFileStore_SaveCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeply", "token.json")
	store := NewFileStore(path)

	if err := store.Save(context.Background(), []byte(`{}`)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("Save() did not create token file")
	}
}

func TestFileStore_SaveEmpty(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "token.json"))

	if err := store.Save(context.Background(), nil); err == nil {
		t.Error("Save(nil) should return error")
	}
}

func TestFileStore_FilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	store := NewFileStore(path)

	if err := store.Save(context.Background(), []byte(`{"access_token":"secret"}`)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if mode := info.Mode().Perm(); mode&0077 != 0 {
		t.Errorf("File permissions = %o, want 0600 (no group/other access)", mode)
	}
}

func TestFileStore_Path(t *testing.T) {
	path := "/custom/path/token.json"
	if got := NewFileStore(path).Path(); got != path {
		t.Errorf("Path() = %q, want %q", got, path)
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	data, err := store.Load(ctx)
	if err != nil || data != nil {
		t.Fatalf("Load() on empty store = %s, %v; want nil, nil", data, err)
	}

	payload := []byte(`{"access_token":"a"}`)
	if err := store.Save(ctx, payload); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	payload[2] = 'X'

	loaded, _ := store.Load(ctx)
	if string(loaded) != `{"access_token":"a"}` {
		t.Errorf("Load() = %s, store should keep its own copy", loaded)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if again, _ := store.Load(ctx); again == nil {
		t.Error("MemoryStore should keep its record after Close")
	}

	if err := store.Save(ctx, nil); err == nil {
		t.Error("Save(nil) should return error")
	}
}
