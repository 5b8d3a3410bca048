package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"rollcall/internal/ledger"
	"rollcall/internal/scheduler"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, 0},
		{"interrupted", fmt.Errorf("run: %w", context.Canceled), exitInterrupted},
		{"mark refused", errNotRecorded, exitNotRecorded},
		{"camera lost", fmt.Errorf("%w: /dev/video0 removed", scheduler.ErrCaptureFailed), exitCaptureFailed},
		{"other", errors.New("open ledger: permission denied"), exitFailure},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("%s: exitCode = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestWriteJSONEmptyRecordsIsArray(t *testing.T) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	var records []ledger.Record
	if err := writeJSON(cmd, records); err != nil {
		t.Fatalf("writeJSON: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "[]" {
		t.Fatalf("expected [], got %q", got)
	}
}
