// Package config loads, normalizes, and validates snapvault configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SNAPVAULT_CAPTURE_COMMAND. The Config type centralizes every knob the daemon
// and CLI need, so downstream code receives sanitized paths, canonical log
// formats, and clear validation errors.
package config
