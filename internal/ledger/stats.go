package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// IdentityCount is a per-identity tally.
type IdentityCount struct {
	Identity string `json:"identity"`
	Count    int    `json:"count"`
}

// Stats summarises the ledger for one day.
type Stats struct {
	Date        string          `json:"date"`
	Total       int             `json:"total"`
	Today       int             `json:"today"`
	ManualToday int             `json:"manual_today"`
	PerAgent    []IdentityCount `json:"per_agent"`
	LastToday   []Record        `json:"last_today"`
}

const statsRecentLimit = 5

// Stats counts records overall and for the local day containing now.
func (l *Ledger) Stats(ctx context.Context, now time.Time) (Stats, error) {
	records, err := l.store.All(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("load records: %w", err)
	}
	return Summarize(records, now), nil
}

// Summarize computes Stats over an in-memory record set.
func Summarize(records []Record, now time.Time) Stats {
	day := now.Local().Format(dateLayout)
	stats := Stats{Date: day, Total: len(records)}
	counts := make(map[string]int)
	var today []Record
	for _, rec := range records {
		if rec.Date != day {
			continue
		}
		today = append(today, rec)
		counts[rec.Agent]++
		if rec.Manual() {
			stats.ManualToday++
		}
	}
	stats.Today = len(today)
	for identity, count := range counts {
		stats.PerAgent = append(stats.PerAgent, IdentityCount{Identity: identity, Count: count})
	}
	sort.Slice(stats.PerAgent, func(i, j int) bool {
		if stats.PerAgent[i].Count != stats.PerAgent[j].Count {
			return stats.PerAgent[i].Count > stats.PerAgent[j].Count
		}
		return stats.PerAgent[i].Identity < stats.PerAgent[j].Identity
	})
	stats.LastToday = tail(today, statsRecentLimit)
	return stats
}
