package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "attendance.db")
	store, err := OpenSQLiteStore(path)
	if err != nil {
		t.Fatalf("OpenSQLiteStore: %v", err)
	}
	for i, name := range []string{"A", "B", "C"} {
		src := SourceAuto
		if name == "B" {
			src = SourceManual
		}
		if err := store.Append(ctx, NewRecord(name, 0.9, base.Add(time.Duration(i)*time.Second), src)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	recent, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 || recent[0].Agent != "B" || recent[1].Agent != "C" {
		t.Fatalf("Recent(2) = %+v", recent)
	}
	if !recent[0].Manual() {
		t.Fatalf("source not preserved: %+v", recent[0])
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Reopening must not re-apply migrations or lose rows.
	reopened, err := OpenSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	all, err := reopened.All(ctx)
	if err != nil || len(all) != 3 {
		t.Fatalf("All = %d, %v", len(all), err)
	}
}

func TestLedgerOverSQLiteDedup(t *testing.T) {
	ctx := context.Background()
	store, err := OpenStore("sqlite", filepath.Join(t.TempDir(), "attendance.db"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	l := New(store, Settings{DedupWindow: 30 * time.Second, Lookback: 10}, nil)
	defer l.Close()

	if res, err := l.Record(ctx, "ALICE", 0.9, base, SourceAuto); err != nil || !res.Recorded() {
		t.Fatalf("first = %+v, %v", res, err)
	}
	if res, err := l.Record(ctx, "ALICE", 0.9, base.Add(10*time.Second), SourceAuto); err != nil || res.Recorded() {
		t.Fatalf("second = %+v, %v", res, err)
	}
	if res, err := l.Record(ctx, "ALICE", 0.9, base.Add(31*time.Second), SourceAuto); err != nil || !res.Recorded() {
		t.Fatalf("third = %+v, %v", res, err)
	}
}

func TestOpenStoreRejectsUnknownBackend(t *testing.T) {
	if _, err := OpenStore("csv", "x"); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
