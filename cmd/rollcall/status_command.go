package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"rollcall/internal/daemon"
	"rollcall/internal/engine"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show capture loop, lock and validation status",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			client, err := ctx.dialClient()
			if err != nil {
				if jsonOut {
					return writeJSON(cmd, daemon.Status{})
				}
				fmt.Fprintln(out, renderStatusLine("Rollcall", statusError, "Not running", colorize))
				return nil
			}
			defer client.Close()

			resp, err := client.Status()
			if err != nil {
				return fmt.Errorf("query status: %w", err)
			}
			if jsonOut {
				return writeJSON(cmd, resp.Status)
			}
			for _, line := range statusLines(resp.Status, colorize) {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output status as JSON")
	return cmd
}

func statusLines(st daemon.Status, colorize bool) []string {
	lines := renderSectionHeader("Rollcall", colorize)
	if st.Running {
		lines = append(lines, renderStatusLine("Capture loop", statusOK, fmt.Sprintf("Running (pid %d)", st.PID), colorize))
	} else {
		lines = append(lines, renderStatusLine("Capture loop", statusWarn, "Stopped", colorize))
	}
	if !st.StartedAt.IsZero() {
		lines = append(lines, renderStatusLine("Started", statusInfo, st.StartedAt.Local().Format(time.DateTime), colorize))
	}
	lines = append(lines,
		renderStatusLine("Ledger", statusInfo, fmt.Sprintf("%s (%s)", st.LedgerPath, st.LedgerBackend), colorize),
	)
	if st.LogPath != "" {
		lines = append(lines, renderStatusLine("Log", statusInfo, st.LogPath, colorize))
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Attendance", colorize)...)
	eng := st.Scheduler.Engine
	kind := statusInfo
	if eng.Phase == engine.PhaseLocked {
		kind = statusOK
	}
	lines = append(lines,
		renderStatusLine("State", kind, eng.Summary(), colorize),
		renderStatusLine("Frames", statusInfo, fmt.Sprintf("%d captured, %d processed", st.Scheduler.Captured, eng.Processed), colorize),
		renderStatusLine("Recorded", statusInfo, fmt.Sprintf("%d this run", st.Scheduler.Recorded), colorize),
	)
	if st.Scheduler.StorageFailures > 0 {
		lines = append(lines, renderStatusLine("Storage", statusWarn, fmt.Sprintf("%d failed writes", st.Scheduler.StorageFailures), colorize))
	}
	if st.LastError != "" {
		lines = append(lines, renderStatusLine("Last error", statusError, st.LastError, colorize))
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Gallery", colorize)...)
	lines = append(lines, galleryStatusLine(st.Gallery, colorize))
	return lines
}

func galleryStatusLine(g daemon.GalleryInfo, colorize bool) string {
	loaded := len(g.Identities)
	detail := fmt.Sprintf("%d identities (%s, %s)", loaded, g.Strategy, g.Metric)
	switch {
	case g.Report.Degraded():
		missing := make([]string, 0, len(g.Report.Missing))
		for _, m := range g.Report.Missing {
			missing = append(missing, m.ID)
		}
		detail = fmt.Sprintf("%d/%d loaded, missing %s", g.Report.Loaded, g.Report.Declared, strings.Join(missing, ", "))
		return renderStatusLine("Identities", statusWarn, detail, colorize)
	case loaded == 0:
		return renderStatusLine("Identities", statusInfo, detail, colorize)
	default:
		return renderStatusLine("Identities", statusOK, detail, colorize)
	}
}
