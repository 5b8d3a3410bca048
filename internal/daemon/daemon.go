package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"rollcall/internal/config"
	"rollcall/internal/engine"
	"rollcall/internal/ledger"
	"rollcall/internal/logging"
	"rollcall/internal/recognition"
	"rollcall/internal/scheduler"
)

// ErrAlreadyRunning is returned when another process holds the lock.
var ErrAlreadyRunning = errors.New("another rollcall instance is already running")

// GalleryInfo describes the loaded reference gallery.
type GalleryInfo struct {
	Strategy   string                 `json:"strategy"`
	Metric     string                 `json:"metric"`
	Identities []string               `json:"identities"`
	Report     recognition.LoadReport `json:"report"`
}

// Daemon runs the capture loop and serves queries about it.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	scheduler *scheduler.Scheduler
	ledger    *ledger.Ledger
	gallery   GalleryInfo
	logPath   string

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	runErr  error
	started time.Time
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool             `json:"running"`
	PID           int              `json:"pid"`
	StartedAt     time.Time        `json:"started_at"`
	LockFilePath  string           `json:"lock_file_path"`
	LedgerBackend string           `json:"ledger_backend"`
	LedgerPath    string           `json:"ledger_path"`
	LogPath       string           `json:"log_path"`
	Gallery       GalleryInfo      `json:"gallery"`
	Scheduler     scheduler.Status `json:"scheduler"`
	LastError     string           `json:"last_error,omitempty"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, sched *scheduler.Scheduler, led *ledger.Ledger, gallery GalleryInfo, logger *slog.Logger, logPath string) (*Daemon, error) {
	if cfg == nil || sched == nil || led == nil {
		return nil, errors.New("daemon requires config, scheduler, and ledger")
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		scheduler: sched,
		ledger:    led,
		gallery:   gallery,
		logPath:   logPath,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}, nil
}

// Start acquires the lock and launches the capture loop.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	d.mu.Lock()
	d.cancel = cancel
	d.done = done
	d.runErr = nil
	d.started = time.Now()
	d.mu.Unlock()
	d.running.Store(true)

	go func() {
		defer close(done)
		err := d.scheduler.Run(runCtx)
		d.mu.Lock()
		d.runErr = err
		d.mu.Unlock()
		d.running.Store(false)
		if err != nil {
			d.logger.Error("capture loop ended with error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "capture_loop_failed"),
			)
		}
	}()

	d.logger.Info("rollcall daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
	)
	return nil
}

// Done is closed when the capture loop ends. It is nil before Start.
func (d *Daemon) Done() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.done
}

// Err returns the capture loop's terminal error, if any.
func (d *Daemon) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.runErr
}

// Stop cancels the capture loop, waits for it, and releases the lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	cancel, done := d.cancel, d.done
	d.cancel = nil
	d.mu.Unlock()
	if cancel == nil {
		return
	}

	cancel()
	<-done
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("rollcall daemon stopped",
		logging.String(logging.FieldEventType, "daemon_stopped"),
		logging.Int("records_written", d.ledger.Written()),
	)
}

// Close stops the loop and closes the ledger.
func (d *Daemon) Close() error {
	d.Stop()
	return d.ledger.Close()
}

// LogPath returns the path to the run log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Gallery returns the loaded gallery description.
func (d *Daemon) Gallery() GalleryInfo {
	info := d.gallery
	info.Identities = append([]string(nil), d.gallery.Identities...)
	return info
}

// Status returns the current daemon status.
func (d *Daemon) Status(context.Context) Status {
	d.mu.Lock()
	started, runErr := d.started, d.runErr
	d.mu.Unlock()

	status := Status{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		StartedAt:     started,
		LockFilePath:  d.lockPath,
		LedgerBackend: d.cfg.Ledger.Backend,
		LedgerPath:    d.cfg.Ledger.Path,
		LogPath:       d.logPath,
		Gallery:       d.Gallery(),
		Scheduler:     d.scheduler.Status(),
	}
	status.Scheduler.Engine.Remaining = status.Scheduler.Engine.Lock.Remaining(time.Now())
	if runErr != nil {
		status.LastError = runErr.Error()
	} else if status.Scheduler.LastError != "" {
		status.LastError = status.Scheduler.LastError
	}
	return status
}

// Mark records manual attendance for the currently recognised face.
func (d *Daemon) Mark(ctx context.Context) (engine.Decision, error) {
	if !d.running.Load() {
		return engine.Decision{}, scheduler.ErrNotRunning
	}
	return d.scheduler.Mark(ctx)
}

// Records lists ledger records.
func (d *Daemon) Records(ctx context.Context, filter ledger.Filter) ([]ledger.Record, error) {
	return d.ledger.List(ctx, filter)
}

// Stats summarises today's attendance.
func (d *Daemon) Stats(ctx context.Context) (ledger.Stats, error) {
	return d.ledger.Stats(ctx, time.Now())
}
