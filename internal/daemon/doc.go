// Package daemon hosts the long-lived snapvault process: it owns the
// capture session, the pending-confirmation slot, collection and media
// storage, and the export worker, and enforces single-instance execution
// through a lock file.
package daemon
