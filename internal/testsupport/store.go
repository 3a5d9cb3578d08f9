package testsupport

import (
	"testing"

	"github.com/Harky911/ReolinkANPR/internal/config"
	"github.com/Harky911/ReolinkANPR/internal/store"
)

// MustOpenStore opens a sightings store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}
