package scheduler

import (
	"time"

	"rollcall/internal/engine"
)

// Status is a snapshot of the loop and the decision engine.
type Status struct {
	Running         bool          `json:"running"`
	StartedAt       time.Time     `json:"started_at"`
	Captured        int64         `json:"captured"`
	Recorded        int           `json:"recorded"`
	StorageFailures int           `json:"storage_failures"`
	LastOutcome     string        `json:"last_outcome,omitempty"`
	LastError       string        `json:"last_error,omitempty"`
	Engine          engine.Status `json:"engine"`
}

// Status returns the latest snapshot. It never touches engine state.
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.status
	st.Engine.Candidates = append(st.Engine.Candidates[:0:0], st.Engine.Candidates...)
	return st
}
