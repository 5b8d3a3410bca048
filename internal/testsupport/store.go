package testsupport

import (
	"testing"

	"rollcall/internal/config"
	"rollcall/internal/ledger"
	"rollcall/internal/logging"
)

// MustOpenLedger opens the configured ledger for tests and registers cleanup.
func MustOpenLedger(t testing.TB, cfg *config.Config) *ledger.Ledger {
	t.Helper()

	store, err := ledger.OpenStore(cfg.Ledger.Backend, cfg.Ledger.Path)
	if err != nil {
		t.Fatalf("ledger.OpenStore: %v", err)
	}
	led := ledger.New(store, ledger.Settings{
		DedupWindow: cfg.DedupWindow(),
		Lookback:    cfg.Engine.DedupLookback,
	}, logging.NewNop())
	t.Cleanup(func() {
		_ = led.Close()
	})
	return led
}
