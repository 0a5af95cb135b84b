package naming

import (
	"strings"
)

// DefaultKey is the reserved key of the built-in default collection.
const DefaultKey = ""

// Key normalizes arbitrary user text into a safe, lowercase folder/file name
// segment. Whitespace is trimmed, letters are lowercased, anything outside
// [a-z0-9_-] becomes an underscore, underscore runs collapse to one, and
// leading/trailing underscores are stripped. Empty input (or input that cleans
// down to nothing) maps to DefaultKey.
//
// Key is total and idempotent: Key(Key(x)) == Key(x) for all x.
func Key(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return DefaultKey
	}

	var b strings.Builder
	b.Grow(len(trimmed))
	lastUnderscore := false
	for _, r := range trimmed {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
			lastUnderscore = false
		default:
			// '_' and every unsafe character funnel through here so runs of
			// either collapse together.
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}

	cleaned := strings.Trim(b.String(), "_")
	if cleaned == "" {
		return DefaultKey
	}
	return cleaned
}

// DisplayLabel derives a user-facing label from a collection key: the default
// key labels as "Default", anything else gets its first letter upper-cased.
func DisplayLabel(key string) string {
	sanitized := Key(key)
	if sanitized == DefaultKey {
		return "Default"
	}
	return strings.ToUpper(sanitized[:1]) + sanitized[1:]
}
