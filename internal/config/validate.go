package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateScheduler(); err != nil {
		return err
	}
	if err := c.validateGallery(); err != nil {
		return err
	}
	if err := c.validateCamera(); err != nil {
		return err
	}
	if err := c.validateLedger(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateEngine() error {
	if err := ensurePositiveMap(map[string]int{
		"engine.required_count":        c.Engine.RequiredCount,
		"engine.lock_duration_seconds": c.Engine.LockDurationSeconds,
		"engine.dedup_lookback":        c.Engine.DedupLookback,
	}); err != nil {
		return err
	}
	if c.Engine.DedupWindowSeconds < 0 {
		return errors.New("engine.dedup_window_seconds must be >= 0")
	}
	if c.Engine.MatchThreshold <= 0 || c.Engine.MatchThreshold >= 1 {
		return errors.New("engine.match_threshold must be between 0 and 1 (exclusive)")
	}
	return nil
}

func (c *Config) validateScheduler() error {
	if err := ensurePositiveMap(map[string]int{
		"scheduler.frame_skip":           c.Scheduler.FrameSkip,
		"scheduler.max_capture_failures": c.Scheduler.MaxCaptureFailures,
	}); err != nil {
		return err
	}
	if c.Scheduler.TargetPeriodMS < 0 {
		return errors.New("scheduler.target_period_ms must be >= 0")
	}
	if c.Scheduler.HeartbeatFrames < 0 {
		return errors.New("scheduler.heartbeat_frames must be >= 0")
	}
	if c.Scheduler.OverlayHoldMS < 0 {
		return errors.New("scheduler.overlay_hold_ms must be >= 0")
	}
	return nil
}

func (c *Config) validateGallery() error {
	switch c.Gallery.Strategy {
	case "single", "averaged":
	default:
		return fmt.Errorf("gallery.strategy must be single or averaged, got %q", c.Gallery.Strategy)
	}
	switch c.Gallery.Metric {
	case "euclidean", "cosine":
	default:
		return fmt.Errorf("gallery.metric must be euclidean or cosine, got %q", c.Gallery.Metric)
	}
	if c.Gallery.Strategy == "averaged" && c.Gallery.Augmentations <= 0 {
		return errors.New("gallery.augmentations must be positive when gallery.strategy is averaged")
	}
	return nil
}

func (c *Config) validateCamera() error {
	for _, device := range c.Camera.Devices {
		if device < 0 {
			return fmt.Errorf("camera.devices entries must be >= 0, got %d", device)
		}
	}
	return ensurePositiveMap(map[string]int{
		"camera.width":          c.Camera.Width,
		"camera.height":         c.Camera.Height,
		"camera.fps":            c.Camera.FPS,
		"camera.process_width":  c.Camera.ProcessWidth,
		"camera.process_height": c.Camera.ProcessHeight,
	})
}

func (c *Config) validateLedger() error {
	switch c.Ledger.Backend {
	case "json", "sqlite":
		return nil
	default:
		return fmt.Errorf("ledger.backend must be json or sqlite, got %q", c.Ledger.Backend)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
