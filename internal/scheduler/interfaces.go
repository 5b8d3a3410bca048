package scheduler

import (
	"context"

	"rollcall/internal/engine"
	"rollcall/internal/recognition"
)

// Frame is one captured image. Its owner releases it with Close.
type Frame interface {
	Close() error
}

// Source yields captured frames. Read returns io.EOF when a finite source is
// exhausted.
type Source interface {
	Read(ctx context.Context) (Frame, error)
	Close() error
}

// Detector finds faces in a frame and measures them against the gallery.
type Detector interface {
	Detect(ctx context.Context, frame Frame) ([]recognition.Face, error)
}

// Action is an operator request returned by a Display.
type Action int

const (
	ActionNone Action = iota
	ActionQuit
	ActionMark
	ActionStatus
	ActionStats
	ActionGallery
)

// Display renders a frame with its overlay and reports operator input.
type Display interface {
	Show(frame Frame, overlays []engine.Overlay) (Action, error)
	Close() error
}
