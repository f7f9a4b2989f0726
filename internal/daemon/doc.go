// Package daemon wires the background services into a single-instance
// process: the sync poll loop, webhook dispatch, and the local HTTP API.
// A file lock in the log directory prevents concurrent daemons against the
// same database.
package daemon
