// Package prefstore persists small key/value preferences backed by SQLite.
//
// Values are strings, booleans, or string sets, partitioned into independent
// namespaces so collection records and session settings can be reset
// separately. All writes go through transactions; string-set replacement is
// atomic.
package prefstore
