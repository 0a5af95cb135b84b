package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCommand(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("output does not mention target path: %q", out)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[capture]") {
		t.Fatalf("sample config missing capture section:\n%s", data)
	}

	// A second init without --overwrite must refuse.
	if _, err := runCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when config already exists")
	}
	if _, err := runCommand(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("overwrite init: %v", err)
	}
}

func TestConfigValidateAcceptsSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	if _, err := runCommand(t, "config", "init", "--path", target); err != nil {
		t.Fatalf("config init: %v", err)
	}

	out, err := runCommand(t, "config", "validate", "--config", target)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "is valid") {
		t.Fatalf("unexpected validate output: %q", out)
	}
}

func TestDisplayKey(t *testing.T) {
	if got := displayKey(""); got != "default" {
		t.Fatalf("displayKey(\"\") = %q", got)
	}
	if got := displayKey("movies"); got != "movies" {
		t.Fatalf("displayKey(\"movies\") = %q", got)
	}
}
