// Package ipc implements the JSON-RPC control surface between the snapvault
// CLI and the daemon, carried over a Unix domain socket.
package ipc
