package replay

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sample = `# two frames then a failure
{"faces":[{"box":[10,20,30,40],"matches":[{"id":"ALICE","distance":0.12},{"id":"BOB","distance":0.5}]}]}

{"faces":[]}
{"capture_error":"device unplugged"}
`

func TestParseAndRead(t *testing.T) {
	trace, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if trace.Len() != 3 {
		t.Fatalf("expected 3 frames, got %d", trace.Len())
	}
	ctx := context.Background()

	frame, err := trace.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	faces, err := trace.Detect(ctx, frame)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(faces) != 1 || len(faces[0].Matches) != 2 {
		t.Fatalf("unexpected faces %+v", faces)
	}
	if got := faces[0].Box; got.Min.X != 10 || got.Min.Y != 20 || got.Dx() != 30 || got.Dy() != 40 {
		t.Fatalf("unexpected box %v", got)
	}

	frame, err = trace.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if faces, _ := trace.Detect(ctx, frame); len(faces) != 0 {
		t.Fatalf("expected no faces, got %d", len(faces))
	}

	if _, err := trace.Read(ctx); err == nil || err.Error() != "device unplugged" {
		t.Fatalf("expected capture error, got %v", err)
	}
	if _, err := trace.Read(ctx); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestLoopRestarts(t *testing.T) {
	trace, err := Parse(strings.NewReader(`{"faces":[]}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	trace.Loop(true)
	for i := 0; i < 3; i++ {
		if _, err := trace.Read(context.Background()); err != nil {
			t.Fatalf("Read %d: %v", i, err)
		}
	}
}

func TestParseRejectsBadLine(t *testing.T) {
	_, err := Parse(strings.NewReader("{\"faces\":[]}\nnot json\n"))
	if err == nil || !strings.Contains(err.Error(), "trace line 2") {
		t.Fatalf("expected line error, got %v", err)
	}
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	trace, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if trace.Len() != 3 {
		t.Fatalf("expected 3 frames, got %d", trace.Len())
	}
	if _, err := Open(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing trace")
	}
}
