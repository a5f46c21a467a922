package recorder

// DiscoveryEvent records a market admitted into the working set.
type DiscoveryEvent struct {
	Market         string
	BaselineVolume float64
	SpikeRatio     float64
}

// EvictionEvent records a market leaving the working set.
type EvictionEvent struct {
	Market  string
	Reason  string
	HeldSec float64
	PnLRate float64
}

// SignalEvent records one decision-engine outcome.
type SignalEvent struct {
	Market   string
	Action   string
	Reason   string
	Fraction float64
	PnLRate  float64
	Price    float64
}

// OrderEvent records a placed (or simulated) order.
type OrderEvent struct {
	OrderID string
	Market  string
	Side    string
	Amount  float64
	DryRun  bool
}

// SummaryEvent records the daily activity roll-up.
type SummaryEvent struct {
	Cycles      int64
	Buys        int64
	Sells       int64
	Evictions   int64
	Discoveries int64
	WorkingSet  int
}

// Recorder persists trading history for later analysis.
type Recorder interface {
	RecordDiscovery(evt *DiscoveryEvent) error
	RecordEviction(evt *EvictionEvent) error
	RecordSignal(evt *SignalEvent) error
	RecordOrder(evt *OrderEvent) error
	RecordSummary(evt *SummaryEvent) error
	Close() error
}
