// Package ipc exposes the daemon over JSON-RPC on a Unix domain socket and
// ships the matching client used by the CLI.
//
// The service is registered as "Rollcall"; request and response types live in
// types.go and are shared by both ends.
package ipc
