// Package main hosts the rollcall CLI entrypoint and command graph.
//
// "rollcall run" owns the camera and the attendance ledger; every other
// command either talks to that process over its IPC socket (status, mark,
// records, gallery list) or works offline against the configuration and
// gallery manifest (config, gallery build, doctor).
package main
