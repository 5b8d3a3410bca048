package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RunLogPattern matches per-run log files. The rollcall.log pointer does not
// match it.
const RunLogPattern = "rollcall-*.log"

// PruneRunLogs removes run logs in logDir last written more than
// retentionDays ago, sparing the paths in keep (normally the current run's
// log). It returns how many files were removed. retentionDays <= 0 disables
// pruning.
func PruneRunLogs(logger *slog.Logger, logDir string, retentionDays int, keep ...string) int {
	if retentionDays <= 0 || strings.TrimSpace(logDir) == "" {
		return 0
	}
	return pruneRunLogsBefore(logger, logDir, time.Now().AddDate(0, 0, -retentionDays), keep)
}

func pruneRunLogsBefore(logger *slog.Logger, logDir string, cutoff time.Time, keep []string) int {
	matches, err := filepath.Glob(filepath.Join(logDir, RunLogPattern))
	if err != nil || len(matches) == 0 {
		return 0
	}
	spared := make(map[string]bool, len(keep))
	for _, path := range keep {
		if path = strings.TrimSpace(path); path != "" {
			spared[canonicalPath(path)] = true
		}
	}

	removed := 0
	for _, path := range matches {
		if spared[canonicalPath(path)] {
			continue
		}
		info, err := os.Lstat(path)
		if err != nil || !info.Mode().IsRegular() || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "run log not pruned", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check ownership of paths.log_dir"),
				String(FieldImpact, "old run log stays on disk"),
			)
			continue
		}
		removed++
	}
	if removed > 0 && logger != nil {
		logger.Info("old run logs pruned",
			String(FieldEventType, "log_pruned"),
			Int("removed", removed),
			String("log_dir", logDir),
		)
	}
	return removed
}

func canonicalPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
