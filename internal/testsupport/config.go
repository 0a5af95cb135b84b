// Package testsupport provides builders shared by package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"snapvault/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.CaptureDir = filepath.Join(base, "captures")
	cfg.Paths.ExportDir = filepath.Join(base, "exports")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Capture.Command = ""
	cfg.Capture.AutoIntervalSeconds = 0
	cfg.Notifications.NtfyTopic = ""

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithCaptureCommand sets the external screenshot command.
func WithCaptureCommand(command string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Capture.Command = command
	}
}

// WithAutoCapture enables the periodic capture ticker.
func WithAutoCapture(seconds int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Capture.AutoIntervalSeconds = seconds
	}
}

// WithNtfyTopic points notifications at the given endpoint.
func WithNtfyTopic(topic string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Notifications.NtfyTopic = topic
	}
}
