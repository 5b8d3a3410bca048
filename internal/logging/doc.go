// Package logging assembles structured slog loggers and formatting helpers used
// across rollcall.
//
// It owns the configurable console/JSON handlers, per-run log files, and the
// standard field keys (component, event_type, identity, frame) that the engine,
// ledger and scheduler attach to their log lines. The package also provides a
// no-op logger for tests and wiring code that cannot fail.
package logging
