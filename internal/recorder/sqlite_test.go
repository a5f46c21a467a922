package recorder

import (
	"path/filepath"
	"testing"
)

func openTestRecorder(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestSQLiteRecorder_RoundTrip(t *testing.T) {
	r := openTestRecorder(t)

	if err := r.RecordDiscovery(&DiscoveryEvent{Market: "KRW-BTC", BaselineVolume: 120.5, SpikeRatio: 4.2}); err != nil {
		t.Fatalf("record discovery: %v", err)
	}
	if err := r.RecordEviction(&EvictionEvent{Market: "KRW-BTC", Reason: "volume_decay", HeldSec: 312, PnLRate: -0.012}); err != nil {
		t.Fatalf("record eviction: %v", err)
	}
	if err := r.RecordSignal(&SignalEvent{Market: "KRW-BTC", Action: "BUY", Reason: "entry", Fraction: 0.1, Price: 100}); err != nil {
		t.Fatalf("record signal: %v", err)
	}
	if err := r.RecordOrder(&OrderEvent{OrderID: "o-1", Market: "KRW-BTC", Side: "BUY", Amount: 10000, DryRun: true}); err != nil {
		t.Fatalf("record order: %v", err)
	}
	if err := r.RecordSummary(&SummaryEvent{Cycles: 100, Buys: 3, Sells: 2, Evictions: 1, Discoveries: 2, WorkingSet: 1}); err != nil {
		t.Fatalf("record summary: %v", err)
	}

	for _, table := range []string{"discoveries", "evictions", "signals", "orders", "summaries"} {
		var count int
		if err := r.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("%s rows = %d, want 1", table, count)
		}
	}

	var market string
	var dry int
	if err := r.db.QueryRow("SELECT market, dry_run FROM orders").Scan(&market, &dry); err != nil {
		t.Fatal(err)
	}
	if market != "KRW-BTC" || dry != 1 {
		t.Errorf("order row = (%s, %d)", market, dry)
	}
}

func TestSQLiteRecorder_MigrationIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	r1, err := NewSQLiteRecorder(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := r1.RecordDiscovery(&DiscoveryEvent{Market: "KRW-BTC"}); err != nil {
		t.Fatal(err)
	}
	r1.Close()

	// Re-opening the same file must not disturb existing rows.
	r2, err := NewSQLiteRecorder(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r2.Close()

	var count int
	if err := r2.db.QueryRow("SELECT COUNT(*) FROM discoveries").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("rows after reopen = %d, want 1", count)
	}
}
