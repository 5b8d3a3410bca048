package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory, socket and bind address configuration.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	LogDir     string `toml:"log_dir"`
	SocketPath string `toml:"socket_path"`
	APIBind    string `toml:"api_bind"`
	APIToken   string `toml:"api_token"`
}

// Engine contains the attendance decision thresholds.
type Engine struct {
	RequiredCount       int     `toml:"required_count"`
	LockDurationSeconds int     `toml:"lock_duration_seconds"`
	DedupWindowSeconds  int     `toml:"dedup_window_seconds"`
	DedupLookback       int     `toml:"dedup_lookback"`
	MatchThreshold      float64 `toml:"match_threshold"`
}

// Scheduler contains frame loop timing.
type Scheduler struct {
	FrameSkip          int `toml:"frame_skip"`
	TargetPeriodMS     int `toml:"target_period_ms"`
	MaxCaptureFailures int `toml:"max_capture_failures"`
	HeartbeatFrames    int `toml:"heartbeat_frames"`
	OverlayHoldMS      int `toml:"overlay_hold_ms"`
}

// Gallery contains reference gallery construction settings.
type Gallery struct {
	Manifest      string `toml:"manifest"`
	Strategy      string `toml:"strategy"`
	Metric        string `toml:"metric"`
	Augmentations int    `toml:"augmentations"`
}

// Camera contains capture device and model settings.
type Camera struct {
	Devices       []int  `toml:"devices"`
	Width         int    `toml:"width"`
	Height        int    `toml:"height"`
	FPS           int    `toml:"fps"`
	ProcessWidth  int    `toml:"process_width"`
	ProcessHeight int    `toml:"process_height"`
	Mirror        bool   `toml:"mirror"`
	CascadePath   string `toml:"cascade_path"`
	ModelPath     string `toml:"model_path"`
	WindowTitle   string `toml:"window_title"`
	Display       bool   `toml:"display"`
}

// Ledger contains attendance storage settings.
type Ledger struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for rollcall.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories, IPC socket, HTTP bind address
//   - Engine: debounce, lock and dedup thresholds
//   - Scheduler: frame skip, pacing and capture failure tolerance
//   - Gallery: reference manifest and embedding strategy
//   - Camera: capture device probing and detector models
//   - Ledger: attendance storage backend
//   - Logging: log format, level, and retention
type Config struct {
	Paths     Paths     `toml:"paths"`
	Engine    Engine    `toml:"engine"`
	Scheduler Scheduler `toml:"scheduler"`
	Gallery   Gallery   `toml:"gallery"`
	Camera    Camera    `toml:"camera"`
	Ledger    Ledger    `toml:"ledger"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/rollcall/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("rollcall.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.LogDir}
	if c.Ledger.Path != "" {
		dirs = append(dirs, filepath.Dir(c.Ledger.Path))
	}
	if c.Paths.SocketPath != "" {
		dirs = append(dirs, filepath.Dir(c.Paths.SocketPath))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath is the single-instance lock file guarding the ledger writer.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "rollcall.lock")
}

// PIDPath is where the running process records its PID.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.DataDir, "rollcall.pid")
}

// LockDuration returns the identity lock duration.
func (c *Config) LockDuration() time.Duration {
	return time.Duration(c.Engine.LockDurationSeconds) * time.Second
}

// DedupWindow returns the automatic record dedup window.
func (c *Config) DedupWindow() time.Duration {
	return time.Duration(c.Engine.DedupWindowSeconds) * time.Second
}

// TargetPeriod returns the scheduler pacing period.
func (c *Config) TargetPeriod() time.Duration {
	return time.Duration(c.Scheduler.TargetPeriodMS) * time.Millisecond
}

// OverlayHold returns how long an overlay survives frames without faces.
func (c *Config) OverlayHold() time.Duration {
	return time.Duration(c.Scheduler.OverlayHoldMS) * time.Millisecond
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	var b strings.Builder
	encoder := toml.NewEncoder(&b)
	encoder.SetIndentTables(true)
	if err := encoder.Encode(c); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return []byte(b.String()), nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
