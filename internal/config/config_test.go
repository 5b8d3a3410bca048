package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"rollcall/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "rollcall")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.SocketPath != filepath.Join(wantData, "rollcall.sock") {
		t.Fatalf("unexpected socket path: %q", cfg.Paths.SocketPath)
	}
	if cfg.Ledger.Path != filepath.Join(wantData, "attendance.json") {
		t.Fatalf("unexpected ledger path: %q", cfg.Ledger.Path)
	}
	if cfg.Engine.RequiredCount != 15 || cfg.LockDuration() != 120*time.Second || cfg.DedupWindow() != 30*time.Second {
		t.Fatalf("unexpected engine defaults: %+v", cfg.Engine)
	}
	if cfg.Engine.DedupLookback != 10 || cfg.Engine.MatchThreshold != 0.6 {
		t.Fatalf("unexpected engine defaults: %+v", cfg.Engine)
	}
	if cfg.Scheduler.FrameSkip != 3 || cfg.TargetPeriod() != 100*time.Millisecond {
		t.Fatalf("unexpected scheduler defaults: %+v", cfg.Scheduler)
	}
	if cfg.OverlayHold() != 2*time.Second {
		t.Fatalf("unexpected overlay hold: %v", cfg.OverlayHold())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "rollcall.toml")

	type payload struct {
		Engine struct {
			RequiredCount int `toml:"required_count"`
		} `toml:"engine"`
		Ledger struct {
			Backend string `toml:"backend"`
		} `toml:"ledger"`
		Paths struct {
			DataDir string `toml:"data_dir"`
		} `toml:"paths"`
	}
	custom := payload{}
	custom.Engine.RequiredCount = 5
	custom.Ledger.Backend = "SQLite"
	custom.Paths.DataDir = filepath.Join(tempDir, "data")
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Engine.RequiredCount != 5 {
		t.Fatalf("expected required count 5, got %d", cfg.Engine.RequiredCount)
	}
	if cfg.Ledger.Backend != "sqlite" {
		t.Fatalf("expected normalized sqlite backend, got %q", cfg.Ledger.Backend)
	}
	if cfg.Ledger.Path != filepath.Join(tempDir, "data", "attendance.db") {
		t.Fatalf("unexpected ledger path: %q", cfg.Ledger.Path)
	}
	if cfg.Engine.LockDurationSeconds != 120 {
		t.Fatalf("expected default lock duration to survive partial file, got %d", cfg.Engine.LockDurationSeconds)
	}
}

func TestEnvOverrides(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	ledgerPath := filepath.Join(tempDir, "custom", "ledger.json")
	manifest := filepath.Join(tempDir, "people.yaml")
	t.Setenv("ROLLCALL_LEDGER_PATH", ledgerPath)
	t.Setenv("ROLLCALL_GALLERY_MANIFEST", manifest)
	t.Setenv("ROLLCALL_API_BIND", "")

	cfg, _, _, err := config.Load(filepath.Join(tempDir, "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Ledger.Path != ledgerPath {
		t.Errorf("expected ledger path from env, got %q", cfg.Ledger.Path)
	}
	if cfg.Gallery.Manifest != manifest {
		t.Errorf("expected manifest from env, got %q", cfg.Gallery.Manifest)
	}
	if cfg.Paths.APIBind != "" {
		t.Errorf("expected empty api bind to disable HTTP, got %q", cfg.Paths.APIBind)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "required_count = 15") {
		t.Fatalf("sample config missing engine defaults: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	def := config.Default()
	if cfg.Engine != def.Engine {
		t.Fatalf("sample engine section %+v differs from defaults %+v", cfg.Engine, def.Engine)
	}
	if cfg.Scheduler != def.Scheduler {
		t.Fatalf("sample scheduler section %+v differs from defaults %+v", cfg.Scheduler, def.Scheduler)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	cfg := config.Default()
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal encoded: %v", err)
	}
	if decoded.Engine != cfg.Engine {
		t.Fatalf("engine mismatch after encode: %+v", decoded.Engine)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	mutations := map[string]func(*config.Config){
		"zero required count":   func(c *config.Config) { c.Engine.RequiredCount = 0 },
		"threshold above one":   func(c *config.Config) { c.Engine.MatchThreshold = 1.2 },
		"negative dedup window": func(c *config.Config) { c.Engine.DedupWindowSeconds = -1 },
		"zero frame skip":       func(c *config.Config) { c.Scheduler.FrameSkip = 0 },
		"unknown strategy":      func(c *config.Config) { c.Gallery.Strategy = "median" },
		"unknown metric":        func(c *config.Config) { c.Gallery.Metric = "l1" },
		"negative device":       func(c *config.Config) { c.Camera.Devices = []int{-1} },
		"unknown backend":       func(c *config.Config) { c.Ledger.Backend = "csv" },
		"unknown log format":    func(c *config.Config) { c.Logging.Format = "xml" },
		"averaged without augmentations": func(c *config.Config) {
			c.Gallery.Strategy = "averaged"
			c.Gallery.Augmentations = 0
		},
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}
