// Package daemon coordinates the long-running attendance process.
//
// It owns the capture loop's lifecycle behind a flock-based lock so that only
// one process writes the ledger at a time, and it is the single surface the
// IPC socket and HTTP API call for status, manual marks, and ledger queries.
package daemon
