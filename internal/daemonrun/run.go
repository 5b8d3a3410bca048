package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"rollcall/internal/config"
	"rollcall/internal/daemon"
	"rollcall/internal/engine"
	"rollcall/internal/httpapi"
	"rollcall/internal/ipc"
	"rollcall/internal/ledger"
	"rollcall/internal/logging"
	"rollcall/internal/preflight"
	"rollcall/internal/scheduler"
)

// Options configures the capture process.
type Options struct {
	// ReplayPath replays a recorded face-signal trace instead of opening a camera.
	ReplayPath string
	// Loop repeats the replay trace until interrupted.
	Loop bool
	// NoDisplay disables the preview window.
	NoDisplay bool
	// NoAPI disables the HTTP API regardless of api_bind.
	NoAPI bool
}

// Run starts the attendance loop and blocks until it ends or is interrupted.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sessionID := uuid.NewString()
	logPath := logging.RunLogPath(cfg.Paths.LogDir, sessionID)
	logger, closer, err := logging.NewRunLogger(cfg, sessionID, logPath)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer closer.Close()
	ctx := logging.WithSessionID(signalCtx, sessionID)

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update rollcall.log link: %v\n", err)
	}
	logging.PruneRunLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, logPath)

	live := strings.TrimSpace(opts.ReplayPath) == ""
	if failed := preflight.Failed(preflight.RunAll(cfg, live)); len(failed) > 0 {
		for _, r := range failed {
			logger.Error("preflight check failed",
				logging.String(logging.FieldEventType, "preflight_failed"),
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
				logging.String(logging.FieldErrorHint, "run rollcall doctor for the full report"),
			)
		}
		return fmt.Errorf("preflight failed: %s", failed[0].Name)
	}

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := ledger.OpenStore(cfg.Ledger.Backend, cfg.Ledger.Path)
	if err != nil {
		logger.Error("open ledger store", logging.Error(err))
		return err
	}
	led := ledger.New(store, ledger.Settings{
		DedupWindow: cfg.DedupWindow(),
		Lookback:    cfg.Engine.DedupLookback,
	}, logger)

	eng := engine.New(engine.Settings{
		RequiredCount: cfg.Engine.RequiredCount,
		LockDuration:  cfg.LockDuration(),
	}, led, engine.WithObserver(engine.NewLogObserver(logger)))

	runCtx, cancelRun := context.WithCancelCause(ctx)
	defer cancelRun(nil)

	var pipe *pipeline
	if live {
		pipe, err = openCamera(runCtx, cfg, opts, logger, func(device string) {
			cancelRun(fmt.Errorf("%w: %s removed", scheduler.ErrCaptureFailed, device))
		})
	} else {
		pipe, err = openReplay(cfg, opts, logger)
	}
	if err != nil {
		_ = led.Close()
		return err
	}
	defer pipe.Close()

	sched, err := scheduler.New(scheduler.Settings{
		FrameSkip:          cfg.Scheduler.FrameSkip,
		TargetPeriod:       cfg.TargetPeriod(),
		MaxCaptureFailures: cfg.Scheduler.MaxCaptureFailures,
		HeartbeatFrames:    cfg.Scheduler.HeartbeatFrames,
		OverlayHold:        cfg.OverlayHold(),
	}, pipe.source, pipe.detector, pipe.classifier(cfg), eng, pipe.schedulerOptions(logger, led)...)
	if err != nil {
		_ = led.Close()
		return fmt.Errorf("create scheduler: %w", err)
	}
	pipe.bindStatus(sched)

	d, err := daemon.New(cfg, sched, led, pipe.gallery, logger, logPath)
	if err != nil {
		_ = led.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(runCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "stop the other rollcall run or remove a stale lock file"),
		)
		return err
	}

	ipcServer, err := ipc.NewServer(ctx, cfg.Paths.SocketPath, d, logger)
	if err != nil {
		logging.WarnWithContext(logger, "IPC server unavailable", "ipc_start_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "rollcall status and rollcall mark will not reach this run"),
			logging.String(logging.FieldErrorHint, "check socket_path permissions"),
		)
	} else {
		defer ipcServer.Close()
		ipcServer.Serve()
	}

	if !opts.NoAPI {
		if api := httpapi.New(cfg.Paths.APIBind, cfg.Paths.APIToken, d, logger); api != nil {
			if err := api.Start(ctx); err != nil {
				logging.WarnWithContext(logger, "HTTP API unavailable", "api_start_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "HTTP status and mark endpoints are offline"),
					logging.String(logging.FieldErrorHint, "check api_bind is free"),
				)
			} else {
				defer api.Stop()
			}
		}
	}

	if pipe.monitor != nil {
		if err := pipe.monitor.Start(runCtx); err != nil {
			logging.WarnWithContext(logger, "camera hotplug monitor unavailable", "devmon_start_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "camera removal is detected only by failed reads"),
			)
		} else {
			defer pipe.monitor.Stop()
		}
	}

	started := time.Now()
	select {
	case <-runCtx.Done():
	case <-d.Done():
	}
	d.Stop()

	runErr := d.Err()
	if cause := context.Cause(runCtx); runErr == nil && errors.Is(cause, scheduler.ErrCaptureFailed) {
		runErr = cause
	}
	status := d.Status(context.Background())
	logger.Info("session summary",
		logging.String(logging.FieldEventType, "session_summary"),
		logging.Int("records_written", led.Written()),
		logging.Int64("frames_captured", status.Scheduler.Captured),
		logging.Int("storage_failures", status.Scheduler.StorageFailures),
		logging.Duration("uptime", time.Since(started).Round(time.Second)),
	)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	logger.Info("rollcall shutting down")
	return nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "rollcall.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
