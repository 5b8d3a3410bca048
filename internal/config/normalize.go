package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	envLedgerPath      = "ROLLCALL_LEDGER_PATH"
	envGalleryManifest = "ROLLCALL_GALLERY_MANIFEST"
	envAPIBind         = "ROLLCALL_API_BIND"
	envAPIToken        = "ROLLCALL_API_TOKEN"
)

func (c *Config) normalize() error {
	c.applyEnv()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeGallery(); err != nil {
		return err
	}
	if err := c.normalizeCamera(); err != nil {
		return err
	}
	if err := c.normalizeLedger(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) applyEnv() {
	if value, ok := os.LookupEnv(envLedgerPath); ok && strings.TrimSpace(value) != "" {
		c.Ledger.Path = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv(envGalleryManifest); ok && strings.TrimSpace(value) != "" {
		c.Gallery.Manifest = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv(envAPIBind); ok {
		c.Paths.APIBind = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv(envAPIToken); ok {
		c.Paths.APIToken = strings.TrimSpace(value)
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SocketPath) == "" {
		c.Paths.SocketPath = filepath.Join(c.Paths.DataDir, defaultSocketName)
	}
	if c.Paths.SocketPath, err = expandPath(c.Paths.SocketPath); err != nil {
		return fmt.Errorf("paths.socket_path: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeGallery() error {
	var err error
	if c.Gallery.Manifest, err = expandPath(strings.TrimSpace(c.Gallery.Manifest)); err != nil {
		return fmt.Errorf("gallery.manifest: %w", err)
	}
	c.Gallery.Strategy = strings.ToLower(strings.TrimSpace(c.Gallery.Strategy))
	if c.Gallery.Strategy == "" {
		c.Gallery.Strategy = defaultGalleryStrategy
	}
	c.Gallery.Metric = strings.ToLower(strings.TrimSpace(c.Gallery.Metric))
	if c.Gallery.Metric == "" {
		c.Gallery.Metric = defaultGalleryMetric
	}
	return nil
}

func (c *Config) normalizeCamera() error {
	var err error
	if c.Camera.CascadePath, err = expandPath(strings.TrimSpace(c.Camera.CascadePath)); err != nil {
		return fmt.Errorf("camera.cascade_path: %w", err)
	}
	if c.Camera.ModelPath, err = expandPath(strings.TrimSpace(c.Camera.ModelPath)); err != nil {
		return fmt.Errorf("camera.model_path: %w", err)
	}
	if strings.TrimSpace(c.Camera.WindowTitle) == "" {
		c.Camera.WindowTitle = defaultWindowTitle
	}
	if len(c.Camera.Devices) == 0 {
		c.Camera.Devices = []int{0}
	}
	return nil
}

func (c *Config) normalizeLedger() error {
	c.Ledger.Backend = strings.ToLower(strings.TrimSpace(c.Ledger.Backend))
	if c.Ledger.Backend == "" {
		c.Ledger.Backend = defaultLedgerBackend
	}
	if strings.TrimSpace(c.Ledger.Path) == "" {
		name := defaultLedgerFile
		if c.Ledger.Backend == "sqlite" {
			name = defaultLedgerDB
		}
		c.Ledger.Path = filepath.Join(c.Paths.DataDir, name)
	}
	var err error
	if c.Ledger.Path, err = expandPath(c.Ledger.Path); err != nil {
		return fmt.Errorf("ledger.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
