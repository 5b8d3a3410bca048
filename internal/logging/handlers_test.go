package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, data []byte) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestTeeKeepsDebugFramesInRunFileOnly(t *testing.T) {
	var console, file bytes.Buffer
	infoLevel := new(slog.LevelVar)
	debugLevel := new(slog.LevelVar)
	debugLevel.Set(slog.LevelDebug)
	logger := slog.New(newTeeHandler(
		newPrettyHandler(&console, infoLevel, false),
		newJSONHandler(&file, debugLevel, false),
	)).With(String(FieldComponent, "scheduler"))

	logger.Debug("detection failed", Int64(FieldFrame, 42), String(FieldEventType, "detection_failed"))
	logger.Info("attendance recorded",
		String(FieldIdentity, "ALICE"),
		String(FieldSource, "manual"),
		Float64("confidence", 0.912345),
	)

	if strings.Contains(console.String(), "detection failed") {
		t.Fatalf("debug line leaked to console: %q", console.String())
	}
	if !strings.Contains(console.String(), "[scheduler] ALICE (manual) - attendance recorded") {
		t.Fatalf("unexpected console header: %q", console.String())
	}
	if !strings.Contains(console.String(), "Confidence: 0.91") {
		t.Fatalf("expected rounded confidence on console: %q", console.String())
	}
	if strings.Contains(console.String(), "Source:") {
		t.Fatalf("source belongs in the header, got %q", console.String())
	}

	entries := decodeLines(t, file.Bytes())
	if len(entries) != 2 {
		t.Fatalf("expected 2 run file entries, got %d", len(entries))
	}
	if entries[0][FieldFrame] != float64(42) || entries[0]["level"] != "debug" {
		t.Fatalf("unexpected debug entry %v", entries[0])
	}
	if entries[1]["confidence"] != 0.91 {
		t.Fatalf("expected rounded confidence in run file, got %v", entries[1]["confidence"])
	}
}

type failingHandler struct{ NoopHandler }

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("disk full") }

func TestTeeDeliversPastFailingHandler(t *testing.T) {
	var file bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newTeeHandler(failingHandler{}, nil, newJSONHandler(&file, lvl, false)))
	logger.Info("identity locked", String(FieldIdentity, "BOB"))
	if !strings.Contains(file.String(), `"identity":"BOB"`) {
		t.Fatalf("expected record delivered to the second handler, got %q", file.String())
	}
}

func TestJSONRunFileEncodesDurationsInSeconds(t *testing.T) {
	var file bytes.Buffer
	logger := slog.New(newJSONHandler(&file, new(slog.LevelVar), false))
	logger.Info("lock status", Duration("remaining", 119600_000_000), Float64("distance", 0.41234))
	entry := decodeLines(t, file.Bytes())[0]
	if entry["remaining"] != 119.6 {
		t.Fatalf("remaining = %v, want 119.6", entry["remaining"])
	}
	if entry["distance"] != 0.412 {
		t.Fatalf("distance = %v, want 0.412", entry["distance"])
	}
	ts, _ := entry["ts"].(string)
	if !strings.HasSuffix(ts, "Z") || !strings.Contains(ts, ".") {
		t.Fatalf("expected UTC millisecond timestamp, got %q", ts)
	}
}

func TestRunHandlerStampsSessionOnce(t *testing.T) {
	var file bytes.Buffer
	logger := slog.New(newRunHandler(newJSONHandler(&file, new(slog.LevelVar), false), "run-7"))

	logger.Info("capture loop started")
	logger.With(String(FieldSessionID, "run-7")).Info("already tagged")
	ctx := WithRequestID(context.Background(), "req-1")
	logger.InfoContext(ctx, "api request")
	WithContext(ctx, logger).InfoContext(ctx, "api request via WithContext")

	lines := strings.Split(strings.TrimSpace(file.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
	for _, line := range lines {
		if n := strings.Count(line, `"session_id"`); n != 1 {
			t.Fatalf("expected one session_id in %s, got %d", line, n)
		}
	}
	for _, line := range lines[2:] {
		if n := strings.Count(line, `"correlation_id":"req-1"`); n != 1 {
			t.Fatalf("expected one correlation_id in %s, got %d", line, n)
		}
	}
	if strings.Contains(lines[0], "correlation_id") {
		t.Fatalf("unexpected correlation id without request context: %s", lines[0])
	}
}

func TestRunHandlerWithoutSessionReturnsBase(t *testing.T) {
	base := newJSONHandler(&bytes.Buffer{}, new(slog.LevelVar), false)
	if got := newRunHandler(base, ""); got != base {
		t.Fatalf("expected base handler when no session id is set")
	}
	if _, ok := newRunHandler(nil, "x").(NoopHandler); !ok {
		t.Fatalf("expected noop handler for nil base")
	}
}
