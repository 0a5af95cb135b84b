// Package mediastore persists captured images on the local filesystem.
//
// Each collection maps to a directory under the configured capture root
// (the default collection uses the root itself). New files are staged with
// a ".pending" suffix and renamed into place on commit, so readers never
// observe a partially written image.
package mediastore
