// Package credentials keeps the bearer token used against the candidate
// store in a private file under the data directory.
package credentials

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// File stores a single bearer token. A fallback token (from config or the
// environment) is used when no token has been saved.
type File struct {
	path     string
	fallback string

	mu      sync.Mutex
	cleared bool
}

// NewFile returns a token store backed by path.
func NewFile(path, fallback string) *File {
	return &File{path: strings.TrimSpace(path), fallback: strings.TrimSpace(fallback)}
}

// Token returns the saved token, the fallback, or "".
func (f *File) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cleared {
		return ""
	}
	if f.path != "" {
		if data, err := os.ReadFile(f.path); err == nil {
			if token := strings.TrimSpace(string(data)); token != "" {
				return token
			}
		}
	}
	return f.fallback
}

// Set saves token with owner-only permissions.
func (f *File) Set(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token is empty")
	}
	if f.path == "" {
		return errors.New("credential file path not configured")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create credential directory: %w", err)
	}
	if err := os.WriteFile(f.path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write credential file: %w", err)
	}
	f.cleared = false
	return nil
}

// Clear removes the saved token. The fallback is suppressed for the rest of
// the process so a rejected token is not immediately reused.
func (f *File) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = true
	if f.path == "" {
		return nil
	}
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove credential file: %w", err)
	}
	return nil
}
