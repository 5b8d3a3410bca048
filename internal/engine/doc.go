// Package engine turns per-frame candidates into attendance decisions.
//
// The decision state is an explicit value: a ValidationState advanced by the
// pure Advance function, and a LockState created on confirmation and cleared on
// expiry. Engine owns one of each, reads time only through its injected Clock,
// and must be driven from a single goroutine. Every transition is published as
// an Event to the registered observers.
package engine
