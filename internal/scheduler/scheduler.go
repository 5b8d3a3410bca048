package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"rollcall/internal/engine"
	"rollcall/internal/logging"
	"rollcall/internal/recognition"
)

var (
	// ErrCaptureFailed ends Run when the source stops producing frames.
	ErrCaptureFailed = errors.New("capture failed")
	// ErrNotRunning is returned by Mark when no loop is active.
	ErrNotRunning = errors.New("scheduler not running")
	// ErrAlreadyRunning is returned by a second concurrent Run.
	ErrAlreadyRunning = errors.New("scheduler already running")
)

const (
	DefaultFrameSkip    = 3
	DefaultTargetPeriod = 100 * time.Millisecond
)

// Settings tunes the loop cadence.
type Settings struct {
	FrameSkip          int
	TargetPeriod       time.Duration
	MaxCaptureFailures int
	HeartbeatFrames    int
	OverlayHold        time.Duration
}

type markRequest struct {
	reply chan markReply
}

type markReply struct {
	decision engine.Decision
	err      error
}

// Scheduler runs the capture, detect, decide, display loop.
type Scheduler struct {
	settings   Settings
	source     Source
	detector   Detector
	display    Display
	classifier *recognition.Classifier
	engine     *engine.Engine
	logger     *slog.Logger

	now   func() time.Time
	sleep func(context.Context, time.Duration)

	marks    chan markRequest
	handlers map[Action]func(context.Context)

	mu        sync.RWMutex
	running   bool
	done      chan struct{}
	status    Status
	overlays  []engine.Overlay
	overlayAt time.Time
}

// Option customises a Scheduler.
type Option func(*Scheduler)

// WithDisplay attaches a display. Without one the loop runs headless.
func WithDisplay(d Display) Option {
	return func(s *Scheduler) { s.display = d }
}

// WithClock replaces the time source used for pacing and overlay hold.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSleep replaces the pacing sleep.
func WithSleep(sleep func(context.Context, time.Duration)) Option {
	return func(s *Scheduler) {
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

// WithActionHandler runs fn on the loop goroutine whenever the display
// returns action. Quit, mark and status are handled by the scheduler itself.
func WithActionHandler(action Action, fn func(context.Context)) Option {
	return func(s *Scheduler) {
		if fn == nil {
			return
		}
		if s.handlers == nil {
			s.handlers = make(map[Action]func(context.Context))
		}
		s.handlers[action] = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logging.NewComponentLogger(logger, "scheduler") }
}

// New builds a scheduler. Source, detector, classifier and engine are
// required.
func New(settings Settings, source Source, detector Detector, classifier *recognition.Classifier, eng *engine.Engine, opts ...Option) (*Scheduler, error) {
	if source == nil {
		return nil, errors.New("scheduler: source is required")
	}
	if detector == nil {
		return nil, errors.New("scheduler: detector is required")
	}
	if classifier == nil {
		return nil, errors.New("scheduler: classifier is required")
	}
	if eng == nil {
		return nil, errors.New("scheduler: engine is required")
	}
	if settings.FrameSkip <= 0 {
		settings.FrameSkip = DefaultFrameSkip
	}
	if settings.TargetPeriod < 0 {
		settings.TargetPeriod = 0
	}
	if settings.MaxCaptureFailures <= 0 {
		settings.MaxCaptureFailures = 1
	}
	s := &Scheduler{
		settings:   settings,
		source:     source,
		detector:   detector,
		classifier: classifier,
		engine:     eng,
		logger:     logging.NewComponentLogger(nil, "scheduler"),
		now:        time.Now,
		sleep:      sleepContext,
		marks:      make(chan markRequest),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.status.Engine = eng.Status()
	return s, nil
}

// Run loops until ctx is cancelled, the display asks to quit, a finite source
// ends, or capture fails MaxCaptureFailures times in a row. Only the last
// case returns an error.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	s.done = make(chan struct{})
	s.status.Running = true
	s.status.StartedAt = s.now()
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.status.Running = false
		close(s.done)
		s.mu.Unlock()
	}()

	s.logger.Info("capture loop started",
		logging.String(logging.FieldEventType, "scheduler_started"),
		logging.Int("frame_skip", s.settings.FrameSkip),
		logging.Duration("target_period", s.settings.TargetPeriod),
	)

	var (
		captured int64
		failures int
	)
	for {
		if ctx.Err() != nil {
			s.logger.Info("capture loop stopped", logging.String(logging.FieldEventType, "scheduler_stopped"))
			return nil
		}
		start := s.now()
		s.drainMarks(ctx)

		frame, err := s.source.Read(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.Info("frame source exhausted", logging.String(logging.FieldEventType, "source_exhausted"))
				return nil
			}
			if ctx.Err() != nil {
				continue
			}
			failures++
			s.setLastError(err)
			if failures >= s.settings.MaxCaptureFailures {
				logging.ErrorWithContext(s.logger, "capture failed; stopping", "capture_failed",
					logging.Error(err),
					logging.Int("consecutive_failures", failures),
					logging.String(logging.FieldErrorHint, "check that the camera is connected and not in use"),
				)
				return fmt.Errorf("%w: %w", ErrCaptureFailed, err)
			}
			logging.WarnWithContext(s.logger, "frame read failed", "capture_retry",
				logging.Error(err),
				logging.Int("consecutive_failures", failures),
				logging.String(logging.FieldImpact, "frame skipped"),
			)
			s.pace(ctx, start)
			continue
		}
		failures = 0
		captured++

		action := s.iterate(ctx, frame, captured)
		if cerr := frame.Close(); cerr != nil {
			s.logger.Debug("frame release failed", logging.Error(cerr))
		}

		if s.settings.HeartbeatFrames > 0 && captured%int64(s.settings.HeartbeatFrames) == 0 {
			st := s.Status()
			s.logger.Debug("system active",
				logging.String(logging.FieldEventType, "heartbeat"),
				logging.Int64("captured", captured),
				logging.Int64("processed", st.Engine.Processed),
				logging.String("phase", string(st.Engine.Phase)),
			)
		}

		switch action {
		case ActionQuit:
			s.logger.Info("quit requested", logging.String(logging.FieldEventType, "scheduler_quit"))
			return nil
		case ActionMark:
			s.mark(ctx)
		case ActionStatus:
			s.logStatus()
		case ActionNone:
		default:
			if fn := s.handlers[action]; fn != nil {
				fn(ctx)
			}
		}

		s.pace(ctx, start)
	}
}

// iterate processes one captured frame when the frame counter is due, then
// renders it. Detection errors are treated as a frame without faces.
func (s *Scheduler) iterate(ctx context.Context, frame Frame, captured int64) Action {
	if captured%int64(s.settings.FrameSkip) == 0 {
		faces, err := s.detector.Detect(ctx, frame)
		if err != nil {
			s.logger.Debug("detection failed",
				logging.String(logging.FieldEventType, "detection_failed"),
				logging.Int64(logging.FieldFrame, captured),
				logging.Error(err),
			)
			faces = nil
		}
		candidates := s.classifier.ClassifyFrame(faces)
		decision := s.engine.Process(ctx, candidates)
		s.publish(captured, decision)
	} else {
		s.mu.Lock()
		s.status.Captured = captured
		s.mu.Unlock()
	}

	if s.display == nil {
		return ActionNone
	}
	action, err := s.display.Show(frame, s.Overlays())
	if err != nil {
		s.logger.Debug("display failed", logging.Error(err))
		return ActionNone
	}
	return action
}

func (s *Scheduler) publish(captured int64, decision engine.Decision) {
	st := s.engine.Status()
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Captured = captured
	s.status.Engine = st
	s.status.LastOutcome = decision.Outcome.String()
	if decision.Err != nil {
		s.status.LastError = decision.Err.Error()
		s.status.StorageFailures++
	}
	if decision.Result != nil && decision.Result.Recorded() {
		s.status.Recorded++
	}

	items := st.Overlays()
	switch {
	case len(items) > 0:
		s.overlays = items
		s.overlayAt = now
	case s.settings.OverlayHold > 0 && now.Sub(s.overlayAt) < s.settings.OverlayHold:
		// keep the previous overlay
	default:
		s.overlays = nil
	}
}

// Overlays returns the overlay currently drawn over passthrough frames.
func (s *Scheduler) Overlays() []engine.Overlay {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]engine.Overlay(nil), s.overlays...)
}

// Mark requests a manual attendance mark for the currently recognised
// candidate. It blocks until the loop applies it.
func (s *Scheduler) Mark(ctx context.Context) (engine.Decision, error) {
	s.mu.RLock()
	running, done := s.running, s.done
	s.mu.RUnlock()
	if !running {
		return engine.Decision{}, ErrNotRunning
	}
	req := markRequest{reply: make(chan markReply, 1)}
	select {
	case s.marks <- req:
	case <-done:
		return engine.Decision{}, ErrNotRunning
	case <-ctx.Done():
		return engine.Decision{}, ctx.Err()
	}
	select {
	case rep := <-req.reply:
		return rep.decision, rep.err
	case <-ctx.Done():
		return engine.Decision{}, ctx.Err()
	}
}

func (s *Scheduler) drainMarks(ctx context.Context) {
	for {
		select {
		case req := <-s.marks:
			decision, err := s.mark(ctx)
			req.reply <- markReply{decision: decision, err: err}
		default:
			return
		}
	}
}

func (s *Scheduler) mark(ctx context.Context) (engine.Decision, error) {
	decision, err := s.engine.Manual(ctx)
	if err != nil {
		s.logger.Info("manual mark ignored",
			logging.String(logging.FieldEventType, "manual_mark_ignored"),
			logging.String("reason", err.Error()),
		)
		return decision, err
	}
	s.mu.RLock()
	captured := s.status.Captured
	s.mu.RUnlock()
	s.publish(captured, decision)
	return decision, nil
}

func (s *Scheduler) logStatus() {
	st := s.Status().Engine
	switch st.Phase {
	case engine.PhaseLocked:
		s.logger.Info("lock status",
			logging.String(logging.FieldIdentity, st.Lock.Identity),
			logging.Int("remaining_seconds", int(st.Remaining.Seconds())),
		)
	case engine.PhaseValidating:
		s.logger.Info("validation status",
			logging.String(logging.FieldIdentity, st.Validation.Label),
			logging.Int("count", st.Validation.Count),
			logging.Int("required", st.Validation.Required),
		)
	default:
		s.logger.Info("waiting for detection")
	}
}

func (s *Scheduler) pace(ctx context.Context, start time.Time) {
	if s.settings.TargetPeriod <= 0 {
		return
	}
	if elapsed := s.now().Sub(start); elapsed < s.settings.TargetPeriod {
		s.sleep(ctx, s.settings.TargetPeriod-elapsed)
	}
}

func (s *Scheduler) setLastError(err error) {
	s.mu.Lock()
	s.status.LastError = err.Error()
	s.mu.Unlock()
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
