package testsupport

import (
	"testing"

	"snapvault/internal/config"
	"snapvault/internal/mediastore"
	"snapvault/internal/prefstore"
)

// MustOpenPrefs opens the preference store for a test config and closes it
// on cleanup.
func MustOpenPrefs(t testing.TB, cfg *config.Config) *prefstore.Store {
	t.Helper()
	store, err := prefstore.Open(cfg.PreferenceDBPath())
	if err != nil {
		t.Fatalf("open preference store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// MustOpenMedia opens the media store rooted at the test config's capture
// directory.
func MustOpenMedia(t testing.TB, cfg *config.Config) *mediastore.Store {
	t.Helper()
	store, err := mediastore.Open(cfg.Paths.CaptureDir)
	if err != nil {
		t.Fatalf("open media store: %v", err)
	}
	return store
}
