// Package export bundles stored collections into zip archives, one archive
// per non-empty collection, with per-collection failure accounting.
package export
