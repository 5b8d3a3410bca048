package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"rollcall/internal/logging"
)

// ErrEmptyIdentity rejects records without an agent.
var ErrEmptyIdentity = errors.New("identity cannot be empty")

const (
	DefaultDedupWindow = 30 * time.Second
	DefaultLookback    = 10
)

// timestampSlack absorbs the error of a float epoch timestamp read back at
// microsecond precision, so a gap of exactly the window is not suppressed.
const timestampSlack = time.Microsecond

// Outcome tags the result of Record.
type Outcome int

const (
	OutcomeRecorded Outcome = iota + 1
	OutcomeSuppressed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRecorded:
		return "recorded"
	case OutcomeSuppressed:
		return "suppressed"
	default:
		return "unknown"
	}
}

// Result describes what Record did.
type Result struct {
	Outcome Outcome
	// Record is the written record, or the record that would have been
	// written when suppressed.
	Record Record
	// Prior is the earlier automatic record that caused suppression.
	Prior *Record
}

// Recorded reports whether a record was persisted.
func (r Result) Recorded() bool { return r.Outcome == OutcomeRecorded }

// Settings tunes deduplication.
type Settings struct {
	DedupWindow time.Duration
	Lookback    int
}

// Ledger applies the dedup rule in front of a Store.
type Ledger struct {
	store    Store
	window   time.Duration
	lookback int
	logger   *slog.Logger

	mu      sync.Mutex
	written int
}

// New wraps a store. A zero lookback uses DefaultLookback; a negative window
// is treated as zero.
func New(store Store, settings Settings, logger *slog.Logger) *Ledger {
	if settings.Lookback <= 0 {
		settings.Lookback = DefaultLookback
	}
	if settings.DedupWindow < 0 {
		settings.DedupWindow = 0
	}
	return &Ledger{
		store:    store,
		window:   settings.DedupWindow,
		lookback: settings.Lookback,
		logger:   logging.NewComponentLogger(logger, "ledger"),
	}
}

// Record appends an attendance record unless an automatic record for the same
// identity exists within the dedup window among the most recent records.
// Manual records bypass the check. Nothing is written when reading history
// fails.
func (l *Ledger) Record(ctx context.Context, identity string, confidence float64, now time.Time, source Source) (Result, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return Result{}, ErrEmptyIdentity
	}
	if source == "" {
		source = SourceAuto
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rec := NewRecord(identity, confidence, now, source)
	if source == SourceAuto {
		recent, err := l.store.Recent(ctx, l.lookback)
		if err != nil {
			return Result{}, fmt.Errorf("read recent records: %w", err)
		}
		if prior, ok := l.duplicateOf(recent, identity, now); ok {
			l.logger.Debug("attendance suppressed",
				logging.String(logging.FieldEventType, "attendance_suppressed"),
				logging.String(logging.FieldIdentity, identity),
				logging.String("prior_time", prior.Time),
			)
			return Result{Outcome: OutcomeSuppressed, Record: rec, Prior: &prior}, nil
		}
	}

	if err := l.store.Append(ctx, rec); err != nil {
		return Result{}, fmt.Errorf("append record: %w", err)
	}
	l.written++
	l.logger.Debug("attendance appended",
		logging.String(logging.FieldEventType, "attendance_appended"),
		logging.String(logging.FieldIdentity, identity),
		logging.String(logging.FieldSource, string(source)),
		logging.String("confidence", rec.Confidence),
	)
	return Result{Outcome: OutcomeRecorded, Record: rec}, nil
}

// duplicateOf finds the newest automatic record for identity and reports
// whether it falls inside the window.
func (l *Ledger) duplicateOf(recent []Record, identity string, now time.Time) (Record, bool) {
	for i := len(recent) - 1; i >= 0; i-- {
		prior := recent[i]
		if prior.Agent != identity || prior.Manual() {
			continue
		}
		elapsed := now.Sub(prior.OccurredAt())
		return prior, elapsed < l.window-timestampSlack
	}
	return Record{}, false
}

// Written returns how many records this ledger appended since creation.
func (l *Ledger) Written() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.written
}

// Filter narrows List results.
type Filter struct {
	Identity string
	Date     string
	Limit    int
}

// List returns records matching the filter, oldest first. Limit keeps the
// newest matches.
func (l *Ledger) List(ctx context.Context, filter Filter) ([]Record, error) {
	records, err := l.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	identity := strings.TrimSpace(filter.Identity)
	date := strings.TrimSpace(filter.Date)
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		if identity != "" && !strings.EqualFold(rec.Agent, identity) {
			continue
		}
		if date != "" && rec.Date != date {
			continue
		}
		out = append(out, rec)
	}
	return tail(out, filter.Limit), nil
}

// Close closes the underlying store.
func (l *Ledger) Close() error {
	return l.store.Close()
}
