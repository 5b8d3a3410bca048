package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"rollcall/internal/scheduler"
)

// Exit codes beyond 0 and 1. Scripts driving `rollcall mark` branch on
// exitNotRecorded; service managers restart on exitCaptureFailed.
const (
	exitFailure       = 1
	exitNotRecorded   = 2
	exitCaptureFailed = 3
	exitInterrupted   = 130
)

func main() {
	err := newRootCommand().Execute()
	if err == nil {
		return
	}
	code := exitCode(err)
	if code != exitInterrupted {
		fmt.Fprintln(os.Stderr, "rollcall:", err)
	}
	os.Exit(code)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	case errors.Is(err, errNotRecorded):
		return exitNotRecorded
	case errors.Is(err, scheduler.ErrCaptureFailed):
		return exitCaptureFailed
	default:
		return exitFailure
	}
}
