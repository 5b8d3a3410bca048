// Package config loads, normalizes, and validates rollcall configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// ROLLCALL_LEDGER_PATH. The Config type centralizes every knob the capture
// loop, decision engine, ledger and CLI need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
