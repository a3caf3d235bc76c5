package testsupport

import (
	"context"
	"testing"

	"minuet/internal/config"
	"minuet/internal/journal"
)

// MustOpenStore opens a journal.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *journal.Store {
	t.Helper()

	store, err := journal.Open(cfg)
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewEntry creates a journal entry for tests using the provided store.
func NewEntry(t testing.TB, store *journal.Store, filename, userID, sessionID string) *journal.Entry {
	t.Helper()

	entry, err := store.NewEntry(context.Background(), filename, userID, sessionID)
	if err != nil {
		t.Fatalf("store.NewEntry: %v", err)
	}
	return entry
}
