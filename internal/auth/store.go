package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/brettbeeson/notsolong/internal/api"
)

var (
	_ api.TokenStore = (*FileStore)(nil)
	_ api.TokenStore = (*MemoryStore)(nil)
)

// FileStore persists the token pair as JSON in a single file, the durable
// client storage for cross-restart sessions.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a FileStore writing to the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Get reads and parses the stored tokens. A missing or corrupt file reads as
// logged out and returns nil.
func (s *FileStore) Get() *api.Tokens {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}

	var tokens api.Tokens
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil
	}
	if tokens.Access == "" && tokens.Refresh == "" {
		return nil
	}

	return &tokens
}

// Set overwrites the persisted token pair.
func (s *FileStore) Set(tokens api.Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("failed to encode tokens: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	// 0600: the refresh token is a long-lived credential
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write tokens: %w", err)
	}

	return nil
}

// Clear removes the persisted value. A missing file is not an error.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove tokens: %w", err)
	}
	return nil
}

// MemoryStore keeps tokens in memory only. Used in tests and for one-shot
// commands that should not leave credentials on disk.
type MemoryStore struct {
	mu     sync.Mutex
	tokens *api.Tokens
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get() *api.Tokens {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokens == nil {
		return nil
	}
	copied := *s.tokens
	return &copied
}

func (s *MemoryStore) Set(tokens api.Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = &tokens
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = nil
	return nil
}
