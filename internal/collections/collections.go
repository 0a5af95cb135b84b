package collections

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"snapvault/internal/naming"
)

// Collection pairs a sanitized, filesystem-safe key with its display label.
type Collection struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// builtinKeys is the fixed set of collections that exist for the process
// lifetime. The empty key is the default collection.
var builtinKeys = []string{
	naming.DefaultKey,
	"movies",
	"food",
	"shopping",
	"conversation",
	"location",
	"coupon",
	"calendar",
	"restaurant",
	"fashion",
	"transportation",
	"humor",
	"article",
	"music",
	"people",
	"books",
	"stock",
	"sports",
	"health",
}

// Builtins returns the fixed built-in collections, default first.
func Builtins() []Collection {
	out := make([]Collection, 0, len(builtinKeys))
	for _, key := range builtinKeys {
		out = append(out, Collection{Key: key, Label: naming.DisplayLabel(key)})
	}
	return out
}

// ReservedKeys returns the set of built-in keys no custom collection may reuse.
func ReservedKeys() map[string]struct{} {
	reserved := make(map[string]struct{}, len(builtinKeys))
	for _, key := range builtinKeys {
		reserved[key] = struct{}{}
	}
	return reserved
}

// Merged returns the full collection list: built-ins in declaration order
// followed by the custom entries (already label-sorted by the store).
func Merged(custom []Collection) []Collection {
	out := make([]Collection, 0, len(builtinKeys)+len(custom))
	out = append(out, Builtins()...)
	out = append(out, custom...)
	return out
}

var labelCollator = collate.New(language.Und, collate.IgnoreCase)

// sortByLabel orders collections by label, case-insensitively, in place.
func sortByLabel(items []Collection) {
	sort.SliceStable(items, func(i, j int) bool {
		return labelCollator.CompareString(items[i].Label, items[j].Label) < 0
	})
}

// entryDelimiter separates key from label in a persisted record. Labels have
// any occurrence replaced with a space before encoding so a record can always
// be split unambiguously.
const entryDelimiter = "||"

func encodeEntry(c Collection) string {
	return c.Key + entryDelimiter + c.Label
}

// decodeEntry parses one persisted record. Malformed records (no delimiter,
// empty key) report ok=false and are dropped by the caller.
func decodeEntry(raw string) (Collection, bool) {
	key, label, found := strings.Cut(raw, entryDelimiter)
	if !found || key == "" {
		return Collection{}, false
	}
	return Collection{Key: key, Label: label}, true
}

// NormalizeLabel strips the record delimiter out of a display label.
func NormalizeLabel(label string) string {
	return strings.ReplaceAll(label, entryDelimiter, " ")
}

func (c Collection) String() string {
	return fmt.Sprintf("%s (%s)", c.Label, keyOrDefault(c.Key))
}

func keyOrDefault(key string) string {
	if key == naming.DefaultKey {
		return "default"
	}
	return key
}
