package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists trading history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboards can read while the bot writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS discoveries (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp       INTEGER NOT NULL,
			market          TEXT NOT NULL,
			baseline_volume REAL,
			spike_ratio     REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_discoveries_ts ON discoveries(timestamp)`,

		`CREATE TABLE IF NOT EXISTS evictions (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			market    TEXT NOT NULL,
			reason    TEXT,
			held_sec  REAL,
			pnl_rate  REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_evictions_ts ON evictions(timestamp)`,

		`CREATE TABLE IF NOT EXISTS signals (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			market    TEXT NOT NULL,
			action    TEXT NOT NULL,
			reason    TEXT,
			fraction  REAL,
			pnl_rate  REAL,
			price     REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_ts ON signals(timestamp)`,

		`CREATE TABLE IF NOT EXISTS orders (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			order_id  TEXT,
			market    TEXT NOT NULL,
			side      TEXT NOT NULL,
			amount    REAL,
			dry_run   INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_ts ON orders(timestamp)`,

		`CREATE TABLE IF NOT EXISTS summaries (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			cycles      INTEGER,
			buys        INTEGER,
			sells       INTEGER,
			evictions   INTEGER,
			discoveries INTEGER,
			working_set INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_summaries_ts ON summaries(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordDiscovery(evt *DiscoveryEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO discoveries
		(timestamp, market, baseline_volume, spike_ratio) VALUES (?,?,?,?)`,
		time.Now().Unix(), evt.Market, evt.BaselineVolume, evt.SpikeRatio,
	)
	return err
}

func (r *SQLiteRecorder) RecordEviction(evt *EvictionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO evictions
		(timestamp, market, reason, held_sec, pnl_rate) VALUES (?,?,?,?,?)`,
		time.Now().Unix(), evt.Market, evt.Reason, evt.HeldSec, evt.PnLRate,
	)
	return err
}

func (r *SQLiteRecorder) RecordSignal(evt *SignalEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO signals
		(timestamp, market, action, reason, fraction, pnl_rate, price)
		VALUES (?,?,?,?,?,?,?)`,
		time.Now().Unix(), evt.Market, evt.Action, evt.Reason,
		evt.Fraction, evt.PnLRate, evt.Price,
	)
	return err
}

func (r *SQLiteRecorder) RecordOrder(evt *OrderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	dry := 0
	if evt.DryRun {
		dry = 1
	}
	_, err := r.db.Exec(`INSERT INTO orders
		(timestamp, order_id, market, side, amount, dry_run) VALUES (?,?,?,?,?,?)`,
		time.Now().Unix(), evt.OrderID, evt.Market, evt.Side, evt.Amount, dry,
	)
	return err
}

func (r *SQLiteRecorder) RecordSummary(evt *SummaryEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO summaries
		(timestamp, cycles, buys, sells, evictions, discoveries, working_set)
		VALUES (?,?,?,?,?,?,?)`,
		time.Now().Unix(), evt.Cycles, evt.Buys, evt.Sells,
		evt.Evictions, evt.Discoveries, evt.WorkingSet,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
