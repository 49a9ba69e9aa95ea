package testutil

import (
	"testing"

	"github.com/kafky-yu/eagle-pics-server/internal/store"
)

// OpenStore returns a migrated store backed by a throwaway database file.
// It is closed automatically when the test finishes.
func OpenStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}
