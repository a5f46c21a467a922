package model

import "time"

// Action is the outcome of the decision engine for one market in one cycle.
type Action string

const (
	ActionBuy    Action = "BUY"
	ActionSell   Action = "SELL"
	ActionHold   Action = "HOLD"
	ActionRemove Action = "REMOVE" // evict from the working set, liquidating any position
)

// Decision is the final output of the decision engine for one market.
type Decision struct {
	Market   string
	Action   Action
	Fraction float64 // of quote balance (BUY) or held position (SELL/REMOVE), 0..1
	Reason   string
	PnLRate  float64
}

// DiscoveryRecord is created when the screener admits a market into the
// working set. It is read-only after creation and destroyed on eviction.
type DiscoveryRecord struct {
	Market         string
	DiscoveredAt   time.Time
	BaselineVolume float64 // reference volume level for later decay detection
	SpikeRatio     float64 // spike ratio at discovery time
	Pinned         bool    // configured fixed-list market, exempt from decay eviction
}
