package engine

import (
	"fmt"
	"image"
	"image/color"
)

// Overlay is one annotation drawn on a displayed frame.
type Overlay struct {
	Box   image.Rectangle
	Text  string
	Color color.RGBA
}

var (
	colorKnown   = color.RGBA{G: 255, A: 255}
	colorUnknown = color.RGBA{R: 255, A: 255}
	colorLocked  = color.RGBA{R: 255, G: 200, A: 255}
)

// Overlays renders the status as frame annotations. While locked only the
// locked identity is drawn; otherwise every candidate is labelled, the
// validating one with its progress.
func (s Status) Overlays() []Overlay {
	if s.Lock.Active() {
		secs := int(s.Remaining.Seconds())
		return []Overlay{{
			Box:   s.Lock.Box,
			Text:  fmt.Sprintf("%s (locked %ds)", s.Lock.Identity, secs),
			Color: colorLocked,
		}}
	}
	out := make([]Overlay, 0, len(s.Candidates))
	for i, c := range s.Candidates {
		if !c.Known() {
			out = append(out, Overlay{Box: c.Box, Text: c.Label, Color: colorUnknown})
			continue
		}
		text := fmt.Sprintf("%s %.2f", c.Label, c.Confidence)
		if i == 0 && s.Validation.Label == c.Label {
			text = fmt.Sprintf("%s %d/%d", text, s.Validation.Count, s.Validation.Required)
		}
		out = append(out, Overlay{Box: c.Box, Text: text, Color: colorKnown})
	}
	return out
}

// Summary is a one-line description of the decision state.
func (s Status) Summary() string {
	switch s.Phase {
	case PhaseLocked:
		return fmt.Sprintf("%s locked, %ds remaining", s.Lock.Identity, int(s.Remaining.Seconds()))
	case PhaseValidating:
		return fmt.Sprintf("validating %s %d/%d", s.Validation.Label, s.Validation.Count, s.Validation.Required)
	default:
		return "waiting for detection"
	}
}
