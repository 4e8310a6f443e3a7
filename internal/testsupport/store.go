package testsupport

import (
	"context"
	"testing"

	"ncboard/internal/candidates"
	"ncboard/internal/config"
	"ncboard/internal/record"
)

// MustOpenCandidates opens a candidates.Store for tests and registers cleanup.
func MustOpenCandidates(t testing.TB, cfg *config.Config) *candidates.Store {
	t.Helper()

	store, err := candidates.Open(cfg)
	if err != nil {
		t.Fatalf("candidates.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedCandidates imports records into store under sourceFile.
func SeedCandidates(t testing.TB, store *candidates.Store, sourceFile string, records []record.Record) {
	t.Helper()

	if _, err := store.Import(context.Background(), records, sourceFile); err != nil {
		t.Fatalf("store.Import: %v", err)
	}
}
