package engine

import (
	"image"
	"time"

	"rollcall/internal/recognition"
)

// ValidationState tracks a run of consecutive frames agreeing on one label.
// An empty Label is the idle state.
type ValidationState struct {
	Label      string    `json:"label,omitempty"`
	Count      int       `json:"count"`
	Required   int       `json:"required"`
	LastUpdate time.Time `json:"last_update"`
}

// NewValidationState returns an idle state requiring the given run length.
func NewValidationState(required int) ValidationState {
	if required < 1 {
		required = 1
	}
	return ValidationState{Required: required}
}

// Idle reports whether no label is being tracked.
func (s ValidationState) Idle() bool { return s.Label == "" }

// Reset returns the idle state, keeping the required count.
func (s ValidationState) Reset() ValidationState {
	return ValidationState{Required: s.Required, LastUpdate: s.LastUpdate}
}

// Step tags the result of one validation transition.
type Step int

const (
	// StepIdle means nothing was tracked and nothing recognisable arrived.
	StepIdle Step = iota
	// StepValidating means a run started or advanced without completing.
	StepValidating
	// StepReset means an in-progress run was discarded.
	StepReset
	// StepConfirmed means the run reached the required count.
	StepConfirmed
)

func (s Step) String() string {
	switch s {
	case StepIdle:
		return "idle"
	case StepValidating:
		return "validating"
	case StepReset:
		return "reset"
	case StepConfirmed:
		return "confirmed"
	default:
		return "unknown"
	}
}

// Transition describes one Advance call.
type Transition struct {
	Step Step
	// Label is the label now tracked, or confirmed.
	Label string
	// Previous is the label whose run was discarded, if any.
	Previous      string
	PreviousCount int
	Count         int
	Required      int
	Confidence    float64
	Box           image.Rectangle
}

// Advance applies one processed frame's leading candidate to the state. A nil
// or unrecognised candidate breaks the run. Reaching the required count
// confirms and returns the idle state.
func Advance(state ValidationState, candidate *recognition.Candidate, now time.Time) (ValidationState, Transition) {
	if state.Required < 1 {
		state.Required = 1
	}
	if candidate == nil || !candidate.Known() {
		if state.Idle() {
			return state, Transition{Step: StepIdle, Required: state.Required}
		}
		next := state.Reset()
		next.LastUpdate = now
		return next, Transition{
			Step:          StepReset,
			Previous:      state.Label,
			PreviousCount: state.Count,
			Required:      state.Required,
		}
	}

	tr := Transition{
		Label:      candidate.Label,
		Required:   state.Required,
		Confidence: candidate.Confidence,
		Box:        candidate.Box,
	}
	next := state
	next.LastUpdate = now
	if state.Label == candidate.Label {
		next.Count = state.Count + 1
	} else {
		if !state.Idle() {
			tr.Previous = state.Label
			tr.PreviousCount = state.Count
		}
		next.Label = candidate.Label
		next.Count = 1
	}
	tr.Count = next.Count

	if next.Count >= next.Required {
		tr.Step = StepConfirmed
		idle := next.Reset()
		return idle, tr
	}
	tr.Step = StepValidating
	return next, tr
}
