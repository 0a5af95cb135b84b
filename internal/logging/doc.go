// Package logging builds the slog loggers used across snapvault.
//
// Two output formats are supported: a compact console format for interactive
// terminals and JSON for log files and non-TTY output. NewFromConfig wires the
// configured log directory in as a second writer so daemon output is always
// captured on disk.
package logging
