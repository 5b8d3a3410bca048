package preflight

import (
	"rollcall/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// Failed returns the required checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			failed = append(failed, r)
		}
	}
	return failed
}

// RunAll executes the preflight checks for the given config. Camera and model
// checks only run when live is set.
func RunAll(cfg *config.Config, live bool) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckLedger(cfg.Ledger.Backend, cfg.Ledger.Path),
	}
	if !live {
		return results
	}

	results = append(results,
		CheckManifest(cfg.Gallery.Manifest),
		CheckReadableFile("Face cascade", cfg.Camera.CascadePath),
		CheckReadableFile("Embedding model", cfg.Camera.ModelPath),
		ProbeCameras(cfg.Camera.Devices).Result(),
	)
	return results
}
