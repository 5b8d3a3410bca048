package engine

import (
	"context"
	"errors"
	"image"
	"time"

	"rollcall/internal/ledger"
	"rollcall/internal/recognition"
)

// ErrNoRecognizedCandidate is returned by Manual when the last processed
// frame holds no recognised face.
var ErrNoRecognizedCandidate = errors.New("no recognized candidate in the current frame")

var errNoLedger = errors.New("no ledger configured")

const (
	DefaultRequiredCount = 15
	DefaultLockDuration  = 120 * time.Second
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// LedgerWriter persists confirmed attendance.
type LedgerWriter interface {
	Record(ctx context.Context, identity string, confidence float64, now time.Time, source ledger.Source) (ledger.Result, error)
}

// Settings configures the debounce and lock.
type Settings struct {
	RequiredCount int
	LockDuration  time.Duration
}

// Outcome tags what a processed frame or manual mark did.
type Outcome int

const (
	OutcomeIdle Outcome = iota
	OutcomeValidating
	OutcomeReset
	OutcomeConfirmed
	OutcomeLocked
	OutcomeManual
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIdle:
		return "idle"
	case OutcomeValidating:
		return "validating"
	case OutcomeReset:
		return "reset"
	case OutcomeConfirmed:
		return "confirmed"
	case OutcomeLocked:
		return "locked"
	case OutcomeManual:
		return "manual"
	default:
		return "unknown"
	}
}

// Decision is the result of one Process or Manual call.
type Decision struct {
	Outcome    Outcome
	Transition Transition
	Lock       LockState
	// Unlocked is set when a lock expired at the start of this frame.
	Unlocked bool
	// Result is the ledger outcome of a confirmation or manual mark.
	Result *ledger.Result
	// Err is a ledger failure. The lock is taken regardless.
	Err error
}

// Engine owns the validation and lock state. It is not safe for concurrent
// use; the scheduler is its only caller.
type Engine struct {
	settings  Settings
	clock     Clock
	ledger    LedgerWriter
	observers []Observer

	validation ValidationState
	lock       LockState
	candidates []recognition.Candidate
	processed  int64
}

// Option customises an Engine.
type Option func(*Engine)

// WithClock injects the time source.
func WithClock(clock Clock) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithObserver subscribes an observer to engine events.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observers = append(e.observers, o)
		}
	}
}

// New returns an idle, unlocked engine.
func New(settings Settings, writer LedgerWriter, opts ...Option) *Engine {
	if settings.RequiredCount <= 0 {
		settings.RequiredCount = DefaultRequiredCount
	}
	if settings.LockDuration <= 0 {
		settings.LockDuration = DefaultLockDuration
	}
	e := &Engine{
		settings:   settings,
		clock:      SystemClock,
		ledger:     writer,
		validation: NewValidationState(settings.RequiredCount),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Subscribe adds an observer after construction.
func (e *Engine) Subscribe(o Observer) {
	if o != nil {
		e.observers = append(e.observers, o)
	}
}

// Process applies one processed frame. Lock expiry is evaluated first; while
// locked, only the lock position follows the identity and validation is
// frozen. Otherwise the first candidate advances validation, and a
// confirmation records attendance and locks the identity.
func (e *Engine) Process(ctx context.Context, candidates []recognition.Candidate) Decision {
	now := e.clock.Now()
	e.processed++

	var d Decision
	if e.lock.Expired(now) {
		prev := e.lock
		e.lock = LockState{}
		e.validation = e.validation.Reset()
		d.Unlocked = true
		e.emit(Event{Kind: EventUnlocked, Identity: prev.Identity, Box: prev.Box, At: now})
	}

	e.candidates = append(e.candidates[:0], candidates...)

	if e.lock.Active() {
		e.lock, _ = e.lock.Refresh(candidates)
		d.Outcome = OutcomeLocked
		d.Lock = e.lock
		return d
	}

	var lead *recognition.Candidate
	if len(candidates) > 0 {
		first := candidates[0]
		lead = &first
	}
	next, tr := Advance(e.validation, lead, now)
	e.validation = next
	d.Transition = tr

	if tr.Previous != "" {
		e.emit(Event{Kind: EventValidationReset, Identity: tr.Previous, Count: tr.PreviousCount, Required: tr.Required, At: now})
	}
	switch tr.Step {
	case StepIdle:
		d.Outcome = OutcomeIdle
	case StepReset:
		d.Outcome = OutcomeReset
	case StepValidating:
		d.Outcome = OutcomeValidating
		kind := EventValidationProgress
		if tr.Count == 1 {
			kind = EventValidationStarted
		}
		e.emit(Event{Kind: kind, Identity: tr.Label, Count: tr.Count, Required: tr.Required, Confidence: tr.Confidence, Box: tr.Box, At: now})
	case StepConfirmed:
		d.Outcome = OutcomeConfirmed
		e.emit(Event{Kind: EventConfirmed, Identity: tr.Label, Count: tr.Count, Required: tr.Required, Confidence: tr.Confidence, Box: tr.Box, At: now})
		e.commit(ctx, &d, tr.Label, tr.Confidence, tr.Box, now, ledger.SourceAuto)
	}
	d.Lock = e.lock
	return d
}

// Manual records the first recognised candidate of the last processed frame
// as manual attendance and locks it, bypassing validation and any current
// lock.
func (e *Engine) Manual(ctx context.Context) (Decision, error) {
	candidate, ok := recognition.FirstKnown(e.candidates)
	if !ok {
		return Decision{}, ErrNoRecognizedCandidate
	}
	now := e.clock.Now()
	d := Decision{Outcome: OutcomeManual}
	e.commit(ctx, &d, candidate.Label, candidate.Confidence, candidate.Box, now, ledger.SourceManual)
	d.Lock = e.lock
	return d, nil
}

func (e *Engine) commit(ctx context.Context, d *Decision, identity string, confidence float64, box image.Rectangle, now time.Time, source ledger.Source) {
	var (
		res ledger.Result
		err = errNoLedger
	)
	if e.ledger != nil {
		res, err = e.ledger.Record(ctx, identity, confidence, now, source)
	}
	base := Event{Identity: identity, Confidence: confidence, Source: source, Box: box, At: now}
	switch {
	case err != nil:
		d.Err = err
		ev := base
		ev.Kind = EventStorageFailed
		ev.Err = err
		e.emit(ev)
	case res.Recorded():
		d.Result = &res
		ev := base
		ev.Kind = EventRecorded
		e.emit(ev)
	default:
		d.Result = &res
		ev := base
		ev.Kind = EventSuppressed
		e.emit(ev)
	}

	e.lock = NewLock(identity, box, now, e.settings.LockDuration)
	e.validation = e.validation.Reset()
	ev := base
	ev.Kind = EventLocked
	ev.ExpiresAt = e.lock.ExpiresAt
	e.emit(ev)
}

func (e *Engine) emit(ev Event) {
	for _, o := range e.observers {
		o.Observe(ev)
	}
}

// Phase summarises the engine state.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseValidating Phase = "validating"
	PhaseLocked     Phase = "locked"
)

// Status is a point-in-time copy of the engine state.
type Status struct {
	Phase      Phase                   `json:"phase"`
	Validation ValidationState         `json:"validation"`
	Lock       LockState               `json:"lock"`
	Remaining  time.Duration           `json:"remaining"`
	Candidates []recognition.Candidate `json:"candidates"`
	Processed  int64                   `json:"processed"`
	At         time.Time               `json:"at"`
}

// Status reports the current state. Candidates are those of the last
// processed frame.
func (e *Engine) Status() Status {
	now := e.clock.Now()
	st := Status{
		Phase:      PhaseIdle,
		Validation: e.validation,
		Lock:       e.lock,
		Remaining:  e.lock.Remaining(now),
		Candidates: append([]recognition.Candidate(nil), e.candidates...),
		Processed:  e.processed,
		At:         now,
	}
	switch {
	case e.lock.Active():
		st.Phase = PhaseLocked
	case !e.validation.Idle():
		st.Phase = PhaseValidating
	}
	return st
}

// Settings returns the effective settings.
func (e *Engine) Settings() Settings { return e.settings }
