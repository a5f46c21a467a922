// Package ranker orders candidate markets from a venue-wide 24h snapshot.
// Pure and stateless; inputs are never mutated.
package ranker

import (
	"sort"

	"SpikeHunter/internal/model"
)

// Mode selects the ranking criterion.
type Mode string

const (
	ByChangeRate  Mode = "change" // descending 24h signed change rate
	ByTradedValue Mode = "volume" // descending 24h traded value
)

// Rank filters out excluded markets, orders the rest by the given mode, and
// truncates to the top k symbols. Ties keep the input order.
func Rank(stats []model.MarketStats, mode Mode, exclude map[string]struct{}, k int) []string {
	kept := make([]model.MarketStats, 0, len(stats))
	for _, s := range stats {
		if _, skip := exclude[s.Market]; skip {
			continue
		}
		kept = append(kept, s)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if mode == ByTradedValue {
			return kept[i].TradedValue24 > kept[j].TradedValue24
		}
		return kept[i].ChangeRate24 > kept[j].ChangeRate24
	})

	if k > 0 && len(kept) > k {
		kept = kept[:k]
	}
	out := make([]string, len(kept))
	for i, s := range kept {
		out[i] = s.Market
	}
	return out
}
