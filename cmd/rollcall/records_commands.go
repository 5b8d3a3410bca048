package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"rollcall/internal/ipc"
	"rollcall/internal/ledger"
	"rollcall/internal/logging"
)

func newRecordsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Inspect the attendance ledger",
	}
	cmd.AddCommand(newRecordsListCommand(ctx))
	cmd.AddCommand(newRecordsStatsCommand(ctx))
	return cmd
}

func newRecordsListCommand(ctx *commandContext) *cobra.Command {
	var identity, date string
	var limit int
	var today, jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List attendance records, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if today {
				date = time.Now().Format(time.DateOnly)
			}
			filter := ledger.Filter{Identity: identity, Date: date, Limit: limit}
			records, err := ctx.loadRecords(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if jsonOut {
				if records == nil {
					records = []ledger.Record{}
				}
				return writeJSON(cmd, records)
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No attendance records")
				return nil
			}
			fmt.Fprintln(out, renderRecordsTable(records))
			return nil
		},
	}
	cmd.Flags().StringVar(&identity, "identity", "", "Only records for this identity")
	cmd.Flags().StringVar(&date, "date", "", "Only records for this date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&today, "today", false, "Only today's records")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Show at most this many of the newest matches (0 for all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output records as JSON")
	return cmd
}

func newRecordsStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarise today's attendance",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := ctx.loadStats(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, stats)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Attendance "+stats.Date, colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderStatusLine("Today", statusInfo, fmt.Sprintf("%d (%d manual)", stats.Today, stats.ManualToday), colorize))
			fmt.Fprintln(out, renderStatusLine("All time", statusInfo, strconv.Itoa(stats.Total), colorize))
			if len(stats.PerAgent) > 0 {
				rows := make([][]string, 0, len(stats.PerAgent))
				for _, c := range stats.PerAgent {
					rows = append(rows, []string{c.Identity, strconv.Itoa(c.Count)})
				}
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderTable([]string{"Identity", "Today"}, rows, []columnAlignment{alignLeft, alignRight}))
			}
			if len(stats.LastToday) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Latest today:")
				fmt.Fprintln(out, renderRecordsTable(stats.LastToday))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output stats as JSON")
	return cmd
}

func renderRecordsTable(records []ledger.Record) string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{rec.Date, rec.Time, rec.Agent, rec.Confidence, string(rec.EffectiveSource())})
	}
	return renderTable(
		[]string{"Date", "Time", "Identity", "Confidence", "Source"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

// loadRecords asks the running process, falling back to reading the ledger
// directly when nothing is listening.
func (c *commandContext) loadRecords(ctx context.Context, filter ledger.Filter) ([]ledger.Record, error) {
	if client, err := c.dialClient(); err == nil {
		defer client.Close()
		resp, err := client.Records(ipc.RecordsRequest{
			Identity: filter.Identity,
			Date:     strings.TrimSpace(filter.Date),
			Limit:    filter.Limit,
		})
		if err != nil {
			return nil, fmt.Errorf("list records: %w", err)
		}
		return resp.Records, nil
	}
	led, err := c.openLedger()
	if err != nil {
		return nil, err
	}
	defer led.Close()
	return led.List(contextOrBackground(ctx), filter)
}

func (c *commandContext) loadStats(ctx context.Context) (ledger.Stats, error) {
	if client, err := c.dialClient(); err == nil {
		defer client.Close()
		resp, err := client.Stats()
		if err != nil {
			return ledger.Stats{}, fmt.Errorf("attendance stats: %w", err)
		}
		return resp.Stats, nil
	}
	led, err := c.openLedger()
	if err != nil {
		return ledger.Stats{}, err
	}
	defer led.Close()
	return led.Stats(contextOrBackground(ctx), time.Now())
}

func (c *commandContext) openLedger() (*ledger.Ledger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := ledger.OpenStore(cfg.Ledger.Backend, cfg.Ledger.Path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return ledger.New(store, ledger.Settings{
		DedupWindow: cfg.DedupWindow(),
		Lookback:    cfg.Engine.DedupLookback,
	}, logging.NewNop()), nil
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
