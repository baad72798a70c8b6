package testsupport

import (
	"testing"

	"shiori/internal/catalog"
	"shiori/internal/config"
)

// MustOpenStore opens a catalog store for the supplied config and registers
// cleanup on test completion.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("open catalog store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close catalog store: %v", err)
		}
	})
	return store
}
