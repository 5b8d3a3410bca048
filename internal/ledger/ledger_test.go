package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

var base = time.Date(2025, 3, 14, 9, 30, 0, 0, time.Local)

func newJSONLedger(t *testing.T) (*Ledger, *JSONStore) {
	t.Helper()
	store := NewJSONStore(filepath.Join(t.TempDir(), "attendance.json"))
	return New(store, Settings{DedupWindow: 30 * time.Second, Lookback: 10}, nil), store
}

func TestRecordDedupWindow(t *testing.T) {
	ctx := context.Background()
	l, store := newJSONLedger(t)

	first, err := l.Record(ctx, "ALICE", 0.9, base, SourceAuto)
	if err != nil || !first.Recorded() {
		t.Fatalf("first record = %+v, %v", first, err)
	}
	second, err := l.Record(ctx, "ALICE", 0.95, base.Add(29*time.Second), SourceAuto)
	if err != nil {
		t.Fatalf("second record: %v", err)
	}
	if second.Outcome != OutcomeSuppressed || second.Prior == nil {
		t.Fatalf("expected suppression with prior, got %+v", second)
	}
	third, err := l.Record(ctx, "ALICE", 0.95, base.Add(30*time.Second), SourceAuto)
	if err != nil || !third.Recorded() {
		t.Fatalf("record at exactly the window = %+v, %v", third, err)
	}

	all, err := store.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 persisted records, got %d", len(all))
	}
	if l.Written() != 2 {
		t.Fatalf("Written = %d, want 2", l.Written())
	}
}

func TestRecordDedupBoundary(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 123456789, time.Local)
	tests := []struct {
		name string
		gap  time.Duration
		want Outcome
	}{
		{"well inside", 10 * time.Second, OutcomeSuppressed},
		{"sub-millisecond short", 30*time.Second - 400*time.Microsecond, OutcomeSuppressed},
		{"microseconds short", 30*time.Second - 5*time.Microsecond, OutcomeSuppressed},
		{"exactly the window", 30 * time.Second, OutcomeRecorded},
		{"just past", 30*time.Second + time.Microsecond, OutcomeRecorded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			l, _ := newJSONLedger(t)
			if _, err := l.Record(ctx, "ALICE", 0.9, start, SourceAuto); err != nil {
				t.Fatalf("first record: %v", err)
			}
			res, err := l.Record(ctx, "ALICE", 0.9, start.Add(tt.gap), SourceAuto)
			if err != nil {
				t.Fatalf("second record: %v", err)
			}
			if res.Outcome != tt.want {
				t.Fatalf("gap %v: outcome %s, want %s", tt.gap, res.Outcome, tt.want)
			}
		})
	}
}

func TestRecordManualBypassesDedup(t *testing.T) {
	ctx := context.Background()
	l, store := newJSONLedger(t)

	for i := 0; i < 3; i++ {
		res, err := l.Record(ctx, "BOB", 0.7, base.Add(time.Duration(i)*time.Second), SourceManual)
		if err != nil || !res.Recorded() {
			t.Fatalf("manual record %d = %+v, %v", i, res, err)
		}
	}
	// manual records do not block an automatic one
	res, err := l.Record(ctx, "BOB", 0.8, base.Add(5*time.Second), SourceAuto)
	if err != nil || !res.Recorded() {
		t.Fatalf("automatic after manual = %+v, %v", res, err)
	}
	all, _ := store.All(ctx)
	if len(all) != 4 {
		t.Fatalf("expected 4 records, got %d", len(all))
	}
	if !all[0].Manual() || all[3].Manual() {
		t.Fatalf("unexpected sources %+v", all)
	}
}

func TestRecordDedupIsPerIdentity(t *testing.T) {
	ctx := context.Background()
	l, _ := newJSONLedger(t)
	if _, err := l.Record(ctx, "ALICE", 0.9, base, SourceAuto); err != nil {
		t.Fatal(err)
	}
	res, err := l.Record(ctx, "BOB", 0.9, base.Add(time.Second), SourceAuto)
	if err != nil || !res.Recorded() {
		t.Fatalf("different identity should record, got %+v, %v", res, err)
	}
}

func TestRecordLookbackIsBounded(t *testing.T) {
	ctx := context.Background()
	store := NewJSONStore(filepath.Join(t.TempDir(), "attendance.json"))
	l := New(store, Settings{DedupWindow: time.Hour, Lookback: 3}, nil)

	if _, err := l.Record(ctx, "ALICE", 0.9, base, SourceAuto); err != nil {
		t.Fatal(err)
	}
	for i, name := range []string{"B", "C", "D"} {
		if _, err := l.Record(ctx, name, 0.9, base.Add(time.Duration(i+1)*time.Second), SourceAuto); err != nil {
			t.Fatal(err)
		}
	}
	// ALICE's record is now outside the last 3 records.
	res, err := l.Record(ctx, "ALICE", 0.9, base.Add(10*time.Second), SourceAuto)
	if err != nil || !res.Recorded() {
		t.Fatalf("record outside lookback should persist, got %+v, %v", res, err)
	}
}

func TestRecordRejectsEmptyIdentity(t *testing.T) {
	l, _ := newJSONLedger(t)
	if _, err := l.Record(context.Background(), "  ", 0.9, base, SourceAuto); !errors.Is(err, ErrEmptyIdentity) {
		t.Fatalf("expected ErrEmptyIdentity, got %v", err)
	}
}

type failingStore struct {
	recentErr error
	appendErr error
	appended  int
}

func (f *failingStore) Recent(context.Context, int) ([]Record, error) { return nil, f.recentErr }
func (f *failingStore) All(context.Context) ([]Record, error)         { return nil, f.recentErr }
func (f *failingStore) Append(context.Context, Record) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended++
	return nil
}
func (f *failingStore) Close() error { return nil }

func TestRecordStorageFailures(t *testing.T) {
	ctx := context.Background()
	readErr := errors.New("disk unreadable")
	store := &failingStore{recentErr: readErr}
	l := New(store, Settings{}, nil)
	if _, err := l.Record(ctx, "ALICE", 0.9, base, SourceAuto); !errors.Is(err, readErr) {
		t.Fatalf("expected read error, got %v", err)
	}
	if store.appended != 0 {
		t.Fatal("nothing should be appended when history cannot be read")
	}

	writeErr := errors.New("disk full")
	store = &failingStore{appendErr: writeErr}
	l = New(store, Settings{}, nil)
	if _, err := l.Record(ctx, "ALICE", 0.9, base, SourceManual); !errors.Is(err, writeErr) {
		t.Fatalf("expected write error, got %v", err)
	}
}

func TestNewRecordFormatting(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 500_000_000, time.Local)
	rec := NewRecord("ALICE", 0.876, at, SourceAuto)
	if rec.Date != "2025-01-02" || rec.Time != "03:04:05" {
		t.Fatalf("unexpected date/time %q %q", rec.Date, rec.Time)
	}
	if rec.Confidence != "0.88" {
		t.Fatalf("confidence = %q, want 0.88", rec.Confidence)
	}
	if got := rec.OccurredAt(); !got.Equal(at) {
		t.Fatalf("OccurredAt = %v, want %v", got, at)
	}
	if (Record{}).EffectiveSource() != SourceAuto {
		t.Fatal("records without a source are automatic")
	}
}

func TestListAndStats(t *testing.T) {
	ctx := context.Background()
	l, _ := newJSONLedger(t)
	yesterday := base.AddDate(0, 0, -1)
	entries := []struct {
		id  string
		at  time.Time
		src Source
	}{
		{"ALICE", yesterday, SourceAuto},
		{"ALICE", base, SourceAuto},
		{"BOB", base.Add(time.Minute), SourceManual},
		{"ALICE", base.Add(time.Hour), SourceAuto},
	}
	for _, e := range entries {
		if _, err := l.Record(ctx, e.id, 0.9, e.at, e.src); err != nil {
			t.Fatal(err)
		}
	}

	today, err := l.List(ctx, Filter{Date: base.Format("2006-01-02")})
	if err != nil || len(today) != 3 {
		t.Fatalf("List today = %d, %v", len(today), err)
	}
	alice, _ := l.List(ctx, Filter{Identity: "alice", Limit: 2})
	if len(alice) != 2 || alice[1].Timestamp <= alice[0].Timestamp {
		t.Fatalf("List alice limit 2 = %+v", alice)
	}

	stats, err := l.Stats(ctx, base)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 4 || stats.Today != 3 || stats.ManualToday != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if len(stats.PerAgent) != 2 || stats.PerAgent[0].Identity != "ALICE" || stats.PerAgent[0].Count != 2 {
		t.Fatalf("per agent = %+v", stats.PerAgent)
	}
	if len(stats.LastToday) != 3 {
		t.Fatalf("last today = %+v", stats.LastToday)
	}
}
