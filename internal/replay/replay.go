// Package replay feeds a recorded face-signal trace through the scheduler in
// place of a camera and detector.
//
// A trace is JSON lines, one captured frame per line:
//
//	{"faces":[{"box":[10,10,50,50],"matches":[{"id":"ALICE","distance":0.12}]}]}
//	{"faces":[]}
//	{"capture_error":"device unplugged"}
//
// Boxes are x, y, width, height. Blank lines and lines starting with # are
// ignored.
package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"strings"

	"rollcall/internal/recognition"
	"rollcall/internal/scheduler"
)

// TraceFace is one detected face in a trace line.
type TraceFace struct {
	Box     [4]int              `json:"box"`
	Matches []recognition.Match `json:"matches"`
}

// TraceLine is one captured frame.
type TraceLine struct {
	Faces        []TraceFace `json:"faces"`
	CaptureError string      `json:"capture_error,omitempty"`
}

// Frame is a replayed frame.
type Frame struct {
	Index int
	Faces []recognition.Face
}

// Close implements scheduler.Frame.
func (Frame) Close() error { return nil }

// Trace replays a parsed trace. It is both the frame source and the detector.
type Trace struct {
	lines []TraceLine
	pos   int
	loop  bool
}

// Parse reads a trace from r.
func Parse(r io.Reader) (*Trace, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	var (
		lines []TraceLine
		n     int
	)
	for scanner.Scan() {
		n++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var line TraceLine
		if err := json.Unmarshal([]byte(text), &line); err != nil {
			return nil, fmt.Errorf("trace line %d: %w", n, err)
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	return &Trace{lines: lines}, nil
}

// Open parses the trace file at path.
func Open(path string) (*Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Loop makes the trace restart from the beginning instead of ending.
func (t *Trace) Loop(enabled bool) { t.loop = enabled }

// Len returns the number of frames in the trace.
func (t *Trace) Len() int { return len(t.lines) }

// Read implements scheduler.Source.
func (t *Trace) Read(ctx context.Context) (scheduler.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.pos >= len(t.lines) {
		if !t.loop || len(t.lines) == 0 {
			return nil, io.EOF
		}
		t.pos = 0
	}
	line := t.lines[t.pos]
	t.pos++
	if line.CaptureError != "" {
		return nil, errors.New(line.CaptureError)
	}
	faces := make([]recognition.Face, 0, len(line.Faces))
	for _, f := range line.Faces {
		faces = append(faces, recognition.Face{
			Box:     image.Rect(f.Box[0], f.Box[1], f.Box[0]+f.Box[2], f.Box[1]+f.Box[3]),
			Matches: f.Matches,
		})
	}
	return Frame{Index: t.pos, Faces: faces}, nil
}

// Detect implements scheduler.Detector.
func (t *Trace) Detect(_ context.Context, frame scheduler.Frame) ([]recognition.Face, error) {
	f, ok := frame.(Frame)
	if !ok {
		return nil, fmt.Errorf("replay: unexpected frame type %T", frame)
	}
	return f.Faces, nil
}

// Close implements scheduler.Source.
func (t *Trace) Close() error { return nil }
