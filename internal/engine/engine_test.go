package engine_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"rollcall/internal/config"
	"rollcall/internal/engine"
	"rollcall/internal/ledger"
	"rollcall/internal/logging"
	"rollcall/internal/recognition"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fakeWriter struct {
	calls []ledger.Source
	ids   []string
	err   error
}

func (w *fakeWriter) Record(_ context.Context, identity string, confidence float64, now time.Time, source ledger.Source) (ledger.Result, error) {
	w.calls = append(w.calls, source)
	w.ids = append(w.ids, identity)
	if w.err != nil {
		return ledger.Result{}, w.err
	}
	return ledger.Result{Outcome: ledger.OutcomeRecorded, Record: ledger.NewRecord(identity, confidence, now, source)}, nil
}

func known(label string, conf float64) recognition.Candidate {
	return recognition.Candidate{Label: label, Confidence: conf, Box: image.Rect(10, 10, 60, 60)}
}

func unknown() recognition.Candidate {
	return recognition.Candidate{Label: recognition.Unknown, Box: image.Rect(100, 10, 150, 60)}
}

func newEngine(t *testing.T, w engine.LedgerWriter, events *engine.EventBuffer) (*engine.Engine, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local)}
	e := engine.New(engine.Settings{RequiredCount: 15, LockDuration: 120 * time.Second}, w,
		engine.WithClock(clock), engine.WithObserver(events))
	return e, clock
}

func TestFifteenFramesConfirmAndLock(t *testing.T) {
	w := &fakeWriter{}
	events := &engine.EventBuffer{}
	e, clock := newEngine(t, w, events)
	ctx := context.Background()

	for i := 1; i < 15; i++ {
		d := e.Process(ctx, []recognition.Candidate{known("ALICE", 0.8)})
		if d.Outcome != engine.OutcomeValidating {
			t.Fatalf("frame %d: expected validating, got %s", i, d.Outcome)
		}
		if d.Transition.Count != i {
			t.Fatalf("frame %d: expected count %d, got %d", i, i, d.Transition.Count)
		}
		clock.Advance(100 * time.Millisecond)
	}
	if len(w.calls) != 0 {
		t.Fatalf("expected no record before the 15th frame, got %d", len(w.calls))
	}

	d := e.Process(ctx, []recognition.Candidate{known("ALICE", 0.82)})
	if d.Outcome != engine.OutcomeConfirmed {
		t.Fatalf("expected confirmed, got %s", d.Outcome)
	}
	if d.Result == nil || !d.Result.Recorded() {
		t.Fatalf("expected recorded result, got %+v", d.Result)
	}
	if d.Result.Record.Confidence != "0.82" {
		t.Fatalf("expected confirming frame confidence, got %q", d.Result.Record.Confidence)
	}
	if !d.Lock.Active() || d.Lock.Identity != "ALICE" {
		t.Fatalf("expected ALICE lock, got %+v", d.Lock)
	}
	if got := d.Lock.ExpiresAt.Sub(d.Lock.LockedAt); got != 120*time.Second {
		t.Fatalf("expected 120s lock, got %s", got)
	}
	if len(w.calls) != 1 || w.calls[0] != ledger.SourceAuto {
		t.Fatalf("expected one auto record, got %v", w.calls)
	}
	if events.Count(engine.EventValidationStarted) != 1 || events.Count(engine.EventConfirmed) != 1 {
		t.Fatalf("unexpected events: %+v", events.Events)
	}
	if events.Count(engine.EventRecorded) != 1 || events.Count(engine.EventLocked) != 1 {
		t.Fatalf("expected recorded and locked events: %+v", events.Events)
	}
	st := e.Status()
	if st.Phase != engine.PhaseLocked || !st.Validation.Idle() {
		t.Fatalf("expected locked phase with idle validation, got %+v", st)
	}
}

func TestInterruptionResetsRun(t *testing.T) {
	w := &fakeWriter{}
	events := &engine.EventBuffer{}
	e, _ := newEngine(t, w, events)
	ctx := context.Background()

	for i := 0; i < 14; i++ {
		e.Process(ctx, []recognition.Candidate{known("ALICE", 0.8)})
	}
	d := e.Process(ctx, nil)
	if d.Outcome != engine.OutcomeReset || d.Transition.Previous != "ALICE" || d.Transition.PreviousCount != 14 {
		t.Fatalf("expected reset of ALICE at 14, got %+v", d)
	}
	for i := 0; i < 14; i++ {
		e.Process(ctx, []recognition.Candidate{known("ALICE", 0.8)})
	}
	if len(w.calls) != 0 {
		t.Fatalf("expected no record after interruption, got %d", len(w.calls))
	}
	if got := e.Status().Validation.Count; got != 14 {
		t.Fatalf("expected count 14, got %d", got)
	}
	if events.Count(engine.EventValidationReset) != 1 {
		t.Fatalf("expected one reset event, got %d", events.Count(engine.EventValidationReset))
	}
}

func TestUnknownBreaksRunAndLabelChangeRestarts(t *testing.T) {
	e, _ := newEngine(t, &fakeWriter{}, &engine.EventBuffer{})
	ctx := context.Background()

	e.Process(ctx, []recognition.Candidate{known("ALICE", 0.8)})
	e.Process(ctx, []recognition.Candidate{known("ALICE", 0.8)})
	d := e.Process(ctx, []recognition.Candidate{unknown()})
	if d.Outcome != engine.OutcomeReset {
		t.Fatalf("expected reset on unknown, got %s", d.Outcome)
	}

	e.Process(ctx, []recognition.Candidate{known("ALICE", 0.8)})
	d = e.Process(ctx, []recognition.Candidate{known("BOB", 0.9)})
	if d.Outcome != engine.OutcomeValidating || d.Transition.Count != 1 || d.Transition.Previous != "ALICE" {
		t.Fatalf("expected BOB to restart at 1, got %+v", d.Transition)
	}
}

func TestOnlyFirstCandidateCounts(t *testing.T) {
	w := &fakeWriter{}
	e, _ := newEngine(t, w, &engine.EventBuffer{})
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		e.Process(ctx, []recognition.Candidate{unknown(), known("ALICE", 0.9)})
	}
	if len(w.calls) != 0 {
		t.Fatalf("expected no record when leading face is unknown, got %d", len(w.calls))
	}
	if !e.Status().Validation.Idle() {
		t.Fatalf("expected idle validation")
	}
}

func TestLockExclusivityAndExpiry(t *testing.T) {
	w := &fakeWriter{}
	events := &engine.EventBuffer{}
	e, clock := newEngine(t, w, events)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		e.Process(ctx, []recognition.Candidate{known("ALICE", 0.8)})
	}
	moved := recognition.Candidate{Label: "ALICE", Confidence: 0.8, Box: image.Rect(200, 200, 260, 260)}
	for i := 0; i < 30; i++ {
		clock.Advance(time.Second)
		d := e.Process(ctx, []recognition.Candidate{known("BOB", 0.9), moved})
		if d.Outcome != engine.OutcomeLocked {
			t.Fatalf("expected locked outcome, got %s", d.Outcome)
		}
	}
	st := e.Status()
	if st.Lock.Box != moved.Box {
		t.Fatalf("expected lock to follow ALICE, got %v", st.Lock.Box)
	}
	if !st.Validation.Idle() {
		t.Fatalf("expected frozen idle validation, got %+v", st.Validation)
	}
	if len(w.calls) != 1 {
		t.Fatalf("expected only the original record, got %d", len(w.calls))
	}

	clock.Advance(90 * time.Second)
	d := e.Process(ctx, []recognition.Candidate{known("BOB", 0.9)})
	if !d.Unlocked {
		t.Fatalf("expected lock to expire at 120s")
	}
	if d.Outcome != engine.OutcomeValidating || d.Transition.Label != "BOB" || d.Transition.Count != 1 {
		t.Fatalf("expected BOB validation to start on expiry frame, got %+v", d)
	}
	if events.Count(engine.EventUnlocked) != 1 {
		t.Fatalf("expected unlocked event")
	}
}

func TestLockKeepsPositionWhenIdentityAbsent(t *testing.T) {
	e, clock := newEngine(t, &fakeWriter{}, &engine.EventBuffer{})
	ctx := context.Background()
	for i := 0; i < 15; i++ {
		e.Process(ctx, []recognition.Candidate{known("ALICE", 0.8)})
	}
	before := e.Status().Lock
	clock.Advance(time.Second)
	e.Process(ctx, nil)
	after := e.Status().Lock
	if after.Box != before.Box || !after.ExpiresAt.Equal(before.ExpiresAt) {
		t.Fatalf("expected unchanged lock, got %+v", after)
	}
}

func TestStorageFailureStillLocks(t *testing.T) {
	boom := errors.New("disk full")
	w := &fakeWriter{err: boom}
	events := &engine.EventBuffer{}
	e, _ := newEngine(t, w, events)
	ctx := context.Background()

	var d engine.Decision
	for i := 0; i < 15; i++ {
		d = e.Process(ctx, []recognition.Candidate{known("ALICE", 0.8)})
	}
	if !errors.Is(d.Err, boom) {
		t.Fatalf("expected storage error, got %v", d.Err)
	}
	if !d.Lock.Active() {
		t.Fatalf("expected lock despite storage failure")
	}
	if events.Count(engine.EventStorageFailed) != 1 {
		t.Fatalf("expected storage failure event")
	}
}

func TestManualMark(t *testing.T) {
	w := &fakeWriter{}
	e, clock := newEngine(t, w, &engine.EventBuffer{})
	ctx := context.Background()

	if _, err := e.Manual(ctx); !errors.Is(err, engine.ErrNoRecognizedCandidate) {
		t.Fatalf("expected ErrNoRecognizedCandidate, got %v", err)
	}

	e.Process(ctx, []recognition.Candidate{unknown(), known("BOB", 0.7)})
	d, err := e.Manual(ctx)
	if err != nil {
		t.Fatalf("Manual: %v", err)
	}
	if d.Outcome != engine.OutcomeManual || d.Lock.Identity != "BOB" {
		t.Fatalf("expected manual lock on BOB, got %+v", d)
	}
	if len(w.calls) != 1 || w.calls[0] != ledger.SourceManual {
		t.Fatalf("expected one manual record, got %v", w.calls)
	}

	clock.Advance(10 * time.Second)
	e.Process(ctx, []recognition.Candidate{known("BOB", 0.7)})
	d, err = e.Manual(ctx)
	if err != nil {
		t.Fatalf("Manual while locked: %v", err)
	}
	if want := clock.Now().Add(120 * time.Second); !d.Lock.ExpiresAt.Equal(want) {
		t.Fatalf("expected fresh expiry %s, got %s", want, d.Lock.ExpiresAt)
	}
}

func TestDedupSuppressesSecondConfirmation(t *testing.T) {
	store := ledger.NewJSONStore(filepath.Join(t.TempDir(), "attendance.json"))
	l := ledger.New(store, ledger.Settings{DedupWindow: 30 * time.Second, Lookback: 10}, nil)
	clock := &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local)}
	e := engine.New(engine.Settings{RequiredCount: 2, LockDuration: 5 * time.Second}, l, engine.WithClock(clock))
	ctx := context.Background()

	e.Process(ctx, []recognition.Candidate{known("ALICE", 0.8)})
	d := e.Process(ctx, []recognition.Candidate{known("ALICE", 0.8)})
	if d.Result == nil || !d.Result.Recorded() {
		t.Fatalf("expected first confirmation recorded, got %+v", d)
	}

	clock.Advance(10 * time.Second)
	e.Process(ctx, []recognition.Candidate{known("ALICE", 0.8)})
	d = e.Process(ctx, []recognition.Candidate{known("ALICE", 0.8)})
	if d.Outcome != engine.OutcomeConfirmed || d.Result == nil || d.Result.Recorded() {
		t.Fatalf("expected suppressed confirmation, got %+v", d)
	}
	if !d.Lock.Active() {
		t.Fatalf("expected lock after suppressed confirmation")
	}
	records, err := store.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 persisted record, got %d", len(records))
	}
}

func TestLockExpiryAllowsOneNewRecord(t *testing.T) {
	store := ledger.NewJSONStore(filepath.Join(t.TempDir(), "attendance.json"))
	l := ledger.New(store, ledger.Settings{DedupWindow: 30 * time.Second, Lookback: 10}, nil)
	events := &engine.EventBuffer{}
	e, clock := newEngine(t, l, events)
	ctx := context.Background()
	feed := func(n int) {
		for i := 0; i < n; i++ {
			e.Process(ctx, []recognition.Candidate{known("ALICE", 0.9)})
			clock.Advance(100 * time.Millisecond)
		}
	}

	feed(15)
	feed(10)
	if events.Count(engine.EventConfirmed) != 1 {
		t.Fatalf("expected one confirmation during the lock, got %d", events.Count(engine.EventConfirmed))
	}
	clock.Advance(120 * time.Second)
	feed(15)

	if got := events.Count(engine.EventConfirmed); got != 2 {
		t.Fatalf("expected 2 confirmations, got %d", got)
	}
	if got := events.Count(engine.EventUnlocked); got != 1 {
		t.Fatalf("expected 1 unlock, got %d", got)
	}
	recs, err := store.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 persisted records, got %d", len(recs))
	}
	if recs[0].Agent != "ALICE" || recs[1].Agent != "ALICE" {
		t.Fatalf("unexpected agents %q %q", recs[0].Agent, recs[1].Agent)
	}
	if diff := recs[1].Timestamp - recs[0].Timestamp; diff < 120 {
		t.Fatalf("expected records at least 120s apart, got %.1fs", diff)
	}
}

func TestOverlays(t *testing.T) {
	e, _ := newEngine(t, &fakeWriter{}, &engine.EventBuffer{})
	ctx := context.Background()
	e.Process(ctx, []recognition.Candidate{known("ALICE", 0.8), unknown()})
	items := e.Status().Overlays()
	if len(items) != 2 {
		t.Fatalf("expected 2 overlays, got %d", len(items))
	}
	if items[0].Text != "ALICE 0.80 1/15" || items[1].Text != recognition.Unknown {
		t.Fatalf("unexpected overlay text: %q %q", items[0].Text, items[1].Text)
	}
}

func TestStatusSummary(t *testing.T) {
	e, clock := newEngine(t, &fakeWriter{}, &engine.EventBuffer{})
	ctx := context.Background()

	if got := e.Status().Summary(); got != "waiting for detection" {
		t.Fatalf("unexpected idle summary %q", got)
	}
	e.Process(ctx, []recognition.Candidate{known("ALICE", 0.8)})
	if got := e.Status().Summary(); got != "validating ALICE 1/15" {
		t.Fatalf("unexpected validating summary %q", got)
	}
	for i := 0; i < 14; i++ {
		e.Process(ctx, []recognition.Candidate{known("ALICE", 0.8)})
	}
	clock.Advance(20 * time.Second)
	if got := e.Status().Summary(); got != "ALICE locked, 100s remaining" {
		t.Fatalf("unexpected locked summary %q", got)
	}
}

func TestLogObserverWritesRunLog(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Level = "error"
	logPath := logging.RunLogPath(t.TempDir(), "sess-1")
	logger, closer, err := logging.NewRunLogger(&cfg, "sess-1", logPath)
	if err != nil {
		t.Fatalf("NewRunLogger: %v", err)
	}
	clock := &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local)}
	e := engine.New(engine.Settings{RequiredCount: 3, LockDuration: time.Minute}, &fakeWriter{},
		engine.WithClock(clock), engine.WithObserver(engine.NewLogObserver(logger)))
	for i := 0; i < 3; i++ {
		e.Process(context.Background(), []recognition.Candidate{known("ALICE", 0.876)})
		clock.Advance(100 * time.Millisecond)
	}
	if err := closer.Close(); err != nil {
		t.Fatalf("close run log: %v", err)
	}

	f, err := os.Open(logPath)
	if err != nil {
		t.Fatalf("open run log: %v", err)
	}
	defer f.Close()
	var kinds []string
	var recorded map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("decode %q: %v", scanner.Text(), err)
		}
		if entry[logging.FieldComponent] != "engine" || entry[logging.FieldSessionID] != "sess-1" {
			t.Fatalf("missing component or session on %v", entry)
		}
		kind, _ := entry[logging.FieldEventType].(string)
		kinds = append(kinds, kind)
		if kind == string(engine.EventRecorded) {
			recorded = entry
		}
	}
	want := []string{
		string(engine.EventValidationStarted),
		string(engine.EventValidationProgress),
		string(engine.EventConfirmed),
		string(engine.EventRecorded),
		string(engine.EventLocked),
	}
	if len(kinds) != len(want) {
		t.Fatalf("event types = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("event types = %v, want %v", kinds, want)
		}
	}
	if recorded[logging.FieldIdentity] != "ALICE" || recorded[logging.FieldSource] != string(ledger.SourceAuto) {
		t.Fatalf("unexpected recorded entry %v", recorded)
	}
	if recorded["confidence"] != 0.88 {
		t.Fatalf("confidence = %v, want 0.88", recorded["confidence"])
	}
}
