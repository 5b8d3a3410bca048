package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"rollcall/internal/config"
	"rollcall/internal/daemon"
	"rollcall/internal/devmon"
	"rollcall/internal/ledger"
	"rollcall/internal/logging"
	"rollcall/internal/recognition"
	"rollcall/internal/replay"
	"rollcall/internal/scheduler"
	"rollcall/internal/vision"
)

// pipeline bundles the capture-side collaborators of one run.
type pipeline struct {
	source   scheduler.Source
	detector scheduler.Detector
	window   *vision.Window
	model    *vision.Model
	monitor  *devmon.Monitor
	gallery  daemon.GalleryInfo

	status func() string
}

func (p *pipeline) classifier(cfg *config.Config) *recognition.Classifier {
	return recognition.NewClassifier(cfg.Engine.MatchThreshold)
}

func (p *pipeline) schedulerOptions(logger *slog.Logger, led *ledger.Ledger) []scheduler.Option {
	opts := []scheduler.Option{
		scheduler.WithLogger(logger),
		scheduler.WithActionHandler(scheduler.ActionStats, func(ctx context.Context) {
			logStats(ctx, led, logger)
		}),
		scheduler.WithActionHandler(scheduler.ActionGallery, func(context.Context) {
			logGallery(p.gallery, logger)
		}),
	}
	if p.window != nil {
		opts = append(opts, scheduler.WithDisplay(p.window))
	}
	return opts
}

func logStats(ctx context.Context, led *ledger.Ledger, logger *slog.Logger) {
	stats, err := led.Stats(ctx, time.Now())
	if err != nil {
		logging.WarnWithContext(logger, "attendance stats unavailable", "stats_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "stats not shown"),
		)
		return
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "attendance_stats"),
		logging.String("date", stats.Date),
		logging.Int("today", stats.Today),
		logging.Int("total", stats.Total),
	}
	for _, c := range stats.PerAgent {
		attrs = append(attrs, logging.Int("agent."+c.Identity, c.Count))
	}
	logger.Info("attendance stats", logging.Args(attrs...)...)
}

func logGallery(info daemon.GalleryInfo, logger *slog.Logger) {
	logger.Info("gallery identities",
		logging.String(logging.FieldEventType, "gallery_list"),
		logging.Int("loaded", info.Report.Loaded),
		logging.Int("declared", info.Report.Declared),
		logging.String("identities", strings.Join(info.Identities, ", ")),
	)
}

// bindStatus feeds the window header from the scheduler's snapshot.
func (p *pipeline) bindStatus(sched *scheduler.Scheduler) {
	p.status = func() string {
		return sched.Status().Engine.Summary()
	}
}

func (p *pipeline) headerLine() string {
	if p.status == nil {
		return ""
	}
	return p.status()
}

// Close releases the window, source and model.
func (p *pipeline) Close() {
	if p.window != nil {
		_ = p.window.Close()
	}
	if p.source != nil {
		_ = p.source.Close()
	}
	if p.model != nil {
		_ = p.model.Close()
	}
}

func galleryInfo(cfg *config.Config, gallery *recognition.Gallery, report recognition.LoadReport) daemon.GalleryInfo {
	info := daemon.GalleryInfo{
		Strategy: cfg.Gallery.Strategy,
		Metric:   cfg.Gallery.Metric,
		Report:   report,
	}
	if gallery != nil {
		info.Identities = gallery.IDs()
	}
	return info
}

func openReplay(cfg *config.Config, opts Options, logger *slog.Logger) (*pipeline, error) {
	trace, err := replay.Open(opts.ReplayPath)
	if err != nil {
		return nil, fmt.Errorf("open replay trace: %w", err)
	}
	trace.Loop(opts.Loop)
	logger.Info("replaying face trace",
		logging.String(logging.FieldEventType, "replay_opened"),
		logging.String("path", opts.ReplayPath),
		logging.Int("frames", trace.Len()),
		logging.Bool("loop", opts.Loop),
	)
	return &pipeline{
		source:   trace,
		detector: trace,
		gallery:  galleryInfo(cfg, nil, recognition.LoadReport{}),
	}, nil
}

func openCamera(ctx context.Context, cfg *config.Config, opts Options, logger *slog.Logger, onRemoved func(string)) (*pipeline, error) {
	model, err := vision.LoadModel(cfg.Camera.CascadePath, cfg.Camera.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("load vision models: %w", err)
	}
	p := &pipeline{model: model}

	gallery, report := loadGallery(ctx, cfg, model, logger)
	p.gallery = galleryInfo(cfg, gallery, report)

	cam, err := vision.OpenCamera(ctx, vision.CameraSettings{
		Devices: cfg.Camera.Devices,
		Width:   cfg.Camera.Width,
		Height:  cfg.Camera.Height,
		FPS:     cfg.Camera.FPS,
		Mirror:  cfg.Camera.Mirror,
	}, logger)
	if err != nil {
		p.Close()
		return nil, err
	}
	p.source = cam
	p.detector = vision.NewDetector(model, gallery, image.Pt(cfg.Camera.ProcessWidth, cfg.Camera.ProcessHeight))
	p.monitor = devmon.New(devmon.DevicePath(cam.Device()), logger, onRemoved)

	if cfg.Camera.Display && !opts.NoDisplay {
		p.window = vision.NewWindow(cfg.Camera.WindowTitle, p.headerLine)
	}
	return p, nil
}

// loadGallery builds the reference gallery. A missing or unreadable manifest
// degrades to an empty gallery so every face is reported unknown.
func loadGallery(ctx context.Context, cfg *config.Config, model *vision.Model, logger *slog.Logger) (*recognition.Gallery, recognition.LoadReport) {
	strategy, err := recognition.ParseStrategy(cfg.Gallery.Strategy)
	if err != nil {
		strategy = recognition.StrategySingle
	}
	metric, err := recognition.ParseMetric(cfg.Gallery.Metric)
	if err != nil {
		metric = recognition.MetricEuclidean
	}

	manifest, err := recognition.LoadManifest(cfg.Gallery.Manifest)
	if err != nil {
		hint := "run rollcall gallery list to inspect the manifest"
		if errors.Is(err, fs.ErrNotExist) {
			hint = "create the manifest or set gallery.manifest"
		}
		logging.WarnWithContext(logger, "gallery manifest unavailable", "gallery_manifest_missing",
			logging.Error(err),
			logging.String(logging.FieldImpact, "no faces will be recognised"),
			logging.String(logging.FieldErrorHint, hint),
		)
		return recognition.NewGallery(metric), recognition.LoadReport{}
	}
	embedder := vision.NewEmbedder(model, cfg.Gallery.Augmentations)
	return recognition.BuildGallery(ctx, manifest, strategy, metric, embedder, logger)
}
