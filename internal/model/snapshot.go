package model

import "time"

// Position is a held amount of one asset with its average acquisition cost.
type Position struct {
	Quantity float64
	AvgCost  float64
}

// Held reports whether the position is actually held.
func (p Position) Held() bool { return p.Quantity > 0 }

// Snapshot is the per-cycle view of balances and prices. It is taken once at
// cycle start and treated as read-only for the rest of the cycle, so every
// decision within a cycle sees a consistent balance/price pair.
type Snapshot struct {
	Balances map[string]Position // asset -> position
	Prices   map[string]float64  // market -> last price
	TakenAt  time.Time
}

// QuoteBalance returns the free quantity of the given quote asset.
func (s *Snapshot) QuoteBalance(asset string) float64 {
	if s == nil {
		return 0
	}
	return s.Balances[asset].Quantity
}

// PositionFor returns the position of the market's base asset.
func (s *Snapshot) PositionFor(market string) Position {
	if s == nil {
		return Position{}
	}
	_, base := SplitMarket(market)
	return s.Balances[base]
}

// PriceFor returns the snapshot price for a market, or 0 when unknown.
func (s *Snapshot) PriceFor(market string) float64 {
	if s == nil {
		return 0
	}
	return s.Prices[market]
}
