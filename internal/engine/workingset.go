package engine

import (
	"sort"
	"time"

	"SpikeHunter/internal/model"
)

// WorkingSet is the bounded collection of markets under active monitoring,
// keyed by market symbol. It is owned exclusively by the engine goroutine;
// no locking is needed as long as that single-owner invariant holds.
type WorkingSet struct {
	max     int
	records map[string]*model.DiscoveryRecord
}

func NewWorkingSet(max int) *WorkingSet {
	return &WorkingSet{max: max, records: make(map[string]*model.DiscoveryRecord)}
}

// Admit inserts a discovery record. Returns false when the set is full or
// already tracks the market.
func (w *WorkingSet) Admit(rec *model.DiscoveryRecord) bool {
	if rec == nil || len(w.records) >= w.max {
		return false
	}
	if _, exists := w.records[rec.Market]; exists {
		return false
	}
	w.records[rec.Market] = rec
	return true
}

// Evict removes a market. Evicted markets become eligible for re-discovery
// immediately.
func (w *WorkingSet) Evict(market string) {
	delete(w.records, market)
}

// Get returns the record for a market, or nil.
func (w *WorkingSet) Get(market string) *model.DiscoveryRecord {
	return w.records[market]
}

// Markets returns the tracked symbols in sorted order so each cycle walks
// the set deterministically.
func (w *WorkingSet) Markets() []string {
	out := make([]string, 0, len(w.records))
	for m := range w.records {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

func (w *WorkingSet) Len() int   { return len(w.records) }
func (w *WorkingSet) Full() bool { return len(w.records) >= w.max }

// CooldownMap tracks the last BUY timestamp per market to enforce a minimum
// inter-trade delay. Entries are never deleted; stale entries only suppress
// buys until the delay elapses. Same single-owner rule as WorkingSet.
type CooldownMap struct {
	last map[string]time.Time
}

func NewCooldownMap() *CooldownMap {
	return &CooldownMap{last: make(map[string]time.Time)}
}

// Stamp records an action timestamp for the market.
func (c *CooldownMap) Stamp(market string, at time.Time) {
	c.last[market] = at
}

// Elapsed reports whether at least delay has passed since the market's last
// stamped action. Markets never stamped are always eligible.
func (c *CooldownMap) Elapsed(market string, now time.Time, delay time.Duration) bool {
	at, ok := c.last[market]
	if !ok {
		return true
	}
	return now.Sub(at) >= delay
}
