package credentials_test

import (
	"os"
	"path/filepath"
	"testing"

	"ncboard/internal/credentials"
)

func TestSetTokenClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth", "token")
	store := credentials.NewFile(path, "")

	if got := store.Token(); got != "" {
		t.Fatalf("expected no token, got %q", got)
	}
	if err := store.Set("  secret  "); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if got := store.Token(); got != "secret" {
		t.Fatalf("Token = %q, want secret", got)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat token: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 permissions, got %v", info.Mode().Perm())
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if got := store.Token(); got != "" {
		t.Fatalf("expected token cleared, got %q", got)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected token file removed, got %v", err)
	}
}

func TestFallbackSuppressedAfterClear(t *testing.T) {
	store := credentials.NewFile(filepath.Join(t.TempDir(), "token"), "from-env")
	if got := store.Token(); got != "from-env" {
		t.Fatalf("expected fallback token, got %q", got)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if got := store.Token(); got != "" {
		t.Fatalf("fallback should be suppressed after Clear, got %q", got)
	}
	if err := store.Set("fresh"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if got := store.Token(); got != "fresh" {
		t.Fatalf("expected new token, got %q", got)
	}
}

func TestSetRejectsEmpty(t *testing.T) {
	store := credentials.NewFile(filepath.Join(t.TempDir(), "token"), "")
	if err := store.Set("   "); err == nil {
		t.Fatal("expected error for empty token")
	}
}
