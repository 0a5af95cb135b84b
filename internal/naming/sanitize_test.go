package naming

import (
	"strings"
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
		{"simple", "movies", "movies"},
		{"uppercase", "Movies", "movies"},
		{"spaces and punctuation", "My Trip!!", "my_trip"},
		{"underscore runs collapse", "a  -  b", "a_-_b"},
		{"consecutive unsafe", "a!!!b", "a_b"},
		{"leading trailing stripped", "__food__", "food"},
		{"all unsafe", "!!!", ""},
		{"digits and dashes kept", "trip-2024_v2", "trip-2024_v2"},
		{"unicode", "café", "caf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Key(tt.input); got != tt.want {
				t.Fatalf("Key(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestKeyIdempotent(t *testing.T) {
	inputs := []string{"", "   ", "My Trip!!", "a!!!b", "__x__", "Food & Drink", "café 2024", "already-clean_key"}
	for _, input := range inputs {
		once := Key(input)
		twice := Key(once)
		if once != twice {
			t.Errorf("Key not idempotent for %q: first %q, second %q", input, once, twice)
		}
	}
}

func TestKeyOutputAlphabet(t *testing.T) {
	inputs := []string{"Hello World?", "tab\there", "slash/back\\slash", "dots...", "mixed 123 ABC -_"}
	for _, input := range inputs {
		out := Key(input)
		for _, r := range out {
			ok := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-'
			if !ok {
				t.Fatalf("Key(%q) = %q contains unsafe rune %q", input, out, r)
			}
		}
		if strings.Contains(out, "__") {
			t.Fatalf("Key(%q) = %q contains underscore run", input, out)
		}
	}
}

func TestDisplayLabel(t *testing.T) {
	if got := DisplayLabel(""); got != "Default" {
		t.Fatalf("DisplayLabel(\"\") = %q", got)
	}
	if got := DisplayLabel("movies"); got != "Movies" {
		t.Fatalf("DisplayLabel(movies) = %q", got)
	}
	if got := DisplayLabel("My Trip"); got != "My_trip" {
		t.Fatalf("DisplayLabel(My Trip) = %q", got)
	}
}

func TestZipFileName(t *testing.T) {
	tests := []struct {
		username string
		label    string
		count    int
		want     string
	}{
		{"Alice", "Movies", 3, "alice-movies-3.zip"},
		{"", "Movies", 1, "user-movies-1.zip"},
		{"bob", "!!!", 2, "bob-collection-2.zip"},
		{"  ", "", 5, "user-collection-5.zip"},
	}
	for _, tt := range tests {
		if got := ZipFileName(tt.username, tt.label, tt.count); got != tt.want {
			t.Errorf("ZipFileName(%q, %q, %d) = %q, want %q", tt.username, tt.label, tt.count, got, tt.want)
		}
	}
}

func TestCaptureFileName(t *testing.T) {
	ts := time.UnixMilli(1700000000000)
	if got := CaptureFileName(ts); got != "capture_1700000000000.png" {
		t.Fatalf("CaptureFileName = %q", got)
	}
}
