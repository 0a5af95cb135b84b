// Package naming normalizes free-form user text into filesystem-safe
// identifiers and builds the capture and archive filenames used by the
// media store and exporter.
package naming
