package testsupport

import (
	"path/filepath"
	"testing"

	"rollcall/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The display is disabled and the API binds an ephemeral port.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.SocketPath = filepath.Join(base, "data", "rollcall.sock")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Gallery.Manifest = filepath.Join(base, "gallery.yaml")
	cfgVal.Camera.Display = false
	cfgVal.Ledger.Path = filepath.Join(base, "data", "attendance.json")
	cfgVal.Scheduler.TargetPeriodMS = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithSQLiteLedger switches the ledger to the SQLite backend.
func WithSQLiteLedger() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ledger.Backend = "sqlite"
		b.cfg.Ledger.Path = filepath.Join(b.baseDir, "data", "attendance.db")
	}
}

// WithRequiredCount overrides the validation run length.
func WithRequiredCount(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Engine.RequiredCount = n
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
