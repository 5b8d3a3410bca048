package daemon

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"rollcall/internal/engine"
	"rollcall/internal/ledger"
	"rollcall/internal/scheduler"
)

// Mark outcomes reported alongside the ledger's recorded and suppressed.
const (
	MarkNoCandidate   = "no_candidate"
	MarkNotRunning    = "not_running"
	MarkStorageFailed = "storage_failed"
)

// MarkResult is the outcome of a manual mark as reported to clients.
type MarkResult struct {
	Marked      bool      `json:"marked"`
	Identity    string    `json:"identity,omitempty"`
	Confidence  float64   `json:"confidence,omitempty"`
	Outcome     string    `json:"outcome"`
	Message     string    `json:"message"`
	LockedUntil time.Time `json:"locked_until,omitempty"`
}

// DescribeMark converts a Mark call into a client result. Errors a client can
// act on are folded into the result; anything else is returned.
func DescribeMark(decision engine.Decision, err error) (MarkResult, error) {
	switch {
	case errors.Is(err, engine.ErrNoRecognizedCandidate):
		return MarkResult{Outcome: MarkNoCandidate, Message: "no recognised face in view"}, nil
	case errors.Is(err, scheduler.ErrNotRunning):
		return MarkResult{Outcome: MarkNotRunning, Message: "capture loop is not running"}, nil
	case err != nil:
		return MarkResult{}, err
	}

	res := MarkResult{
		Identity:    decision.Lock.Identity,
		LockedUntil: decision.Lock.ExpiresAt,
	}
	switch {
	case decision.Err != nil:
		res.Outcome = MarkStorageFailed
		res.Message = fmt.Sprintf("%s locked but not saved: %v", res.Identity, decision.Err)
	case decision.Result != nil && decision.Result.Outcome == ledger.OutcomeRecorded:
		res.Marked = true
		res.Outcome = decision.Result.Outcome.String()
		res.Message = fmt.Sprintf("%s marked present at %s", res.Identity, decision.Result.Record.Time)
	default:
		res.Outcome = ledger.OutcomeSuppressed.String()
		res.Message = fmt.Sprintf("%s already recorded recently", res.Identity)
	}
	if decision.Result != nil {
		res.Confidence = parseConfidence(decision.Result.Record.Confidence)
	}
	return res, nil
}

func parseConfidence(value string) float64 {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return f
}
