package engine

import (
	"image"
	"log/slog"
	"time"

	"rollcall/internal/ledger"
	"rollcall/internal/logging"
)

// EventKind names a state transition.
type EventKind string

const (
	EventValidationStarted  EventKind = "validation_started"
	EventValidationProgress EventKind = "validation_progress"
	EventValidationReset    EventKind = "validation_reset"
	EventConfirmed          EventKind = "confirmed"
	EventRecorded           EventKind = "attendance_recorded"
	EventSuppressed         EventKind = "attendance_suppressed"
	EventStorageFailed      EventKind = "attendance_storage_failed"
	EventLocked             EventKind = "locked"
	EventUnlocked           EventKind = "unlocked"
)

// Event is a structured notification of one transition.
type Event struct {
	Kind       EventKind       `json:"kind"`
	Identity   string          `json:"identity,omitempty"`
	Count      int             `json:"count,omitempty"`
	Required   int             `json:"required,omitempty"`
	Confidence float64         `json:"confidence,omitempty"`
	Source     ledger.Source   `json:"source,omitempty"`
	Box        image.Rectangle `json:"box"`
	At         time.Time       `json:"at"`
	ExpiresAt  time.Time       `json:"expires_at,omitempty"`
	Err        error           `json:"-"`
}

// Observer receives engine events synchronously on the engine goroutine.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Observe implements Observer.
func (f ObserverFunc) Observe(e Event) { f(e) }

// EventBuffer collects events in memory.
type EventBuffer struct {
	Events []Event
}

// Observe implements Observer.
func (b *EventBuffer) Observe(e Event) { b.Events = append(b.Events, e) }

// Count returns how many events of kind were observed.
func (b *EventBuffer) Count(kind EventKind) int {
	n := 0
	for _, e := range b.Events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// NewLogObserver reports events through a structured logger. Progress events
// are logged at debug level.
func NewLogObserver(logger *slog.Logger) Observer {
	logger = logging.NewComponentLogger(logger, "engine")
	return ObserverFunc(func(e Event) {
		attrs := []logging.Attr{
			logging.String(logging.FieldEventType, string(e.Kind)),
		}
		if e.Identity != "" {
			attrs = append(attrs, logging.String(logging.FieldIdentity, e.Identity))
		}
		switch e.Kind {
		case EventValidationStarted, EventValidationProgress:
			logger.Debug("validating identity", logging.Args(append(attrs,
				logging.Int("count", e.Count),
				logging.Int("required", e.Required))...)...)
		case EventValidationReset:
			logger.Debug("validation reset", logging.Args(append(attrs,
				logging.Int("count", e.Count))...)...)
		case EventConfirmed:
			logger.Info("identity confirmed", logging.Args(append(attrs,
				logging.Float64("confidence", e.Confidence))...)...)
		case EventRecorded:
			logger.Info("attendance recorded", logging.Args(append(attrs,
				logging.String(logging.FieldSource, string(e.Source)),
				logging.Float64("confidence", e.Confidence))...)...)
		case EventSuppressed:
			logger.Info("attendance already recorded recently", logging.Args(append(attrs,
				logging.String(logging.FieldSource, string(e.Source)))...)...)
		case EventStorageFailed:
			logging.WarnWithContext(logger, "attendance not saved", string(e.Kind), append(attrs,
				logging.Error(e.Err),
				logging.String(logging.FieldErrorHint, "check ledger path permissions and free disk space"),
				logging.String(logging.FieldImpact, "this attendance event is dropped"),
			)...)
		case EventLocked:
			logger.Info("identity locked", logging.Args(append(attrs,
				logging.Time("expires_at", e.ExpiresAt))...)...)
		case EventUnlocked:
			logger.Info("lock expired", logging.Args(attrs...)...)
		}
	})
}
