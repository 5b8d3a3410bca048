package testsupport

import (
	"testing"

	"rollcall/internal/config"
	"rollcall/internal/daemon"
	"rollcall/internal/engine"
	"rollcall/internal/logging"
	"rollcall/internal/recognition"
	"rollcall/internal/replay"
	"rollcall/internal/scheduler"
)

// NewReplayDaemon wires a daemon that replays the trace at tracePath through
// the real classifier, engine, scheduler and ledger. When loop is set the
// trace repeats until the daemon is stopped.
func NewReplayDaemon(t testing.TB, cfg *config.Config, tracePath string, loop bool) *daemon.Daemon {
	t.Helper()

	trace, err := replay.Open(tracePath)
	if err != nil {
		t.Fatalf("replay.Open: %v", err)
	}
	trace.Loop(loop)

	logger := logging.NewNop()
	led := MustOpenLedger(t, cfg)
	eng := engine.New(engine.Settings{
		RequiredCount: cfg.Engine.RequiredCount,
		LockDuration:  cfg.LockDuration(),
	}, led, engine.WithObserver(engine.NewLogObserver(logger)))
	sched, err := scheduler.New(scheduler.Settings{
		FrameSkip:          cfg.Scheduler.FrameSkip,
		TargetPeriod:       cfg.TargetPeriod(),
		MaxCaptureFailures: cfg.Scheduler.MaxCaptureFailures,
		OverlayHold:        cfg.OverlayHold(),
	}, trace, trace, recognition.NewClassifier(cfg.Engine.MatchThreshold), eng, scheduler.WithLogger(logger))
	if err != nil {
		t.Fatalf("scheduler.New: %v", err)
	}

	d, err := daemon.New(cfg, sched, led, daemon.GalleryInfo{
		Strategy: cfg.Gallery.Strategy,
		Metric:   cfg.Gallery.Metric,
	}, logger, "")
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Stop()
	})
	return d
}
