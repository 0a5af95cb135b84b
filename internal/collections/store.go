package collections

import (
	"context"
	"fmt"
	"strings"

	"snapvault/internal/naming"
	"snapvault/internal/prefstore"
	"snapvault/internal/services"
)

// Preference keys within the collections namespace.
const (
	prefKeyEntries        = "custom_collection_entries"
	prefKeyLastExportName = "last_export_username"
)

// Validation failures surfaced by Add. Both carry the services.ErrValidation
// marker so callers can classify without string matching.
var (
	ErrEmptyLabel   = fmt.Errorf("%w: collection label is empty", services.ErrValidation)
	ErrDuplicateKey = fmt.Errorf("%w: collection key already exists", services.ErrValidation)
)

// Store owns the persisted custom-collection records and the last-used export
// username. It layers on one preference namespace and never touches others.
type Store struct {
	prefs prefstore.Namespace
}

// NewStore builds a collection store over the given preference namespace.
func NewStore(prefs prefstore.Namespace) *Store {
	return &Store{prefs: prefs}
}

// Load returns the custom collections sorted case-insensitively by label.
// Malformed persisted records are silently dropped.
func (s *Store) Load(ctx context.Context) ([]Collection, error) {
	raw, err := s.prefs.GetStringSet(ctx, prefKeyEntries)
	if err != nil {
		return nil, fmt.Errorf("load collections: %w", err)
	}
	out := make([]Collection, 0, len(raw))
	for _, entry := range raw {
		if c, ok := decodeEntry(entry); ok {
			out = append(out, c)
		}
	}
	sortByLabel(out)
	return out, nil
}

// Add validates rawLabel, derives its sanitized key, and appends a new custom
// collection. reserved is the set of keys the new one must not collide with
// (built-ins plus anything the caller already displays); the currently stored
// custom set is checked as well. Returns the full updated custom list on
// success.
func (s *Store) Add(ctx context.Context, rawLabel string, reserved map[string]struct{}) ([]Collection, error) {
	trimmed := strings.TrimSpace(rawLabel)
	if trimmed == "" {
		return nil, ErrEmptyLabel
	}

	key := naming.Key(trimmed)
	if key == naming.DefaultKey {
		return nil, fmt.Errorf("%w: label %q sanitizes to nothing", ErrDuplicateKey, trimmed)
	}
	if _, taken := reserved[key]; taken {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, key)
	}

	current, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	for _, existing := range current {
		if existing.Key == key {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, key)
		}
	}

	updated := append(current, Collection{Key: key, Label: NormalizeLabel(trimmed)})
	sortByLabel(updated)

	encoded := make([]string, 0, len(updated))
	for _, c := range updated {
		encoded = append(encoded, encodeEntry(c))
	}
	if err := s.prefs.PutStringSet(ctx, prefKeyEntries, encoded); err != nil {
		return nil, fmt.Errorf("persist collections: %w", err)
	}
	return updated, nil
}

// LastExportName returns the username entered for the previous export, or ""
// when none has been stored.
func (s *Store) LastExportName(ctx context.Context) (string, error) {
	return s.prefs.GetString(ctx, prefKeyLastExportName, "")
}

// SaveLastExportName remembers the username used for a successful export.
func (s *Store) SaveLastExportName(ctx context.Context, name string) error {
	return s.prefs.PutString(ctx, prefKeyLastExportName, name)
}
