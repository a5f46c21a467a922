// Package indicator provides pure functions over OHLCV series. Every
// function is total: on insufficient data it returns its documented neutral
// value (0, false, or 1.0 for ratios) instead of failing.
package indicator

import (
	"math"

	"SpikeHunter/internal/model"
)

// flatEps is the relative price range below which a regression window is
// treated as flat. Near-zero-variance fits otherwise report spurious angles.
const flatEps = 0.001

// VolumeSpikeRatio divides the mean volume of the most recent recentN
// candles by the mean volume of the priorN candles immediately before that
// window. When excludeForming is set the partially-formed last candle is
// dropped before windowing. Returns 0 on insufficient data or a zero prior
// mean.
func VolumeSpikeRatio(s model.Series, recentN, priorN int, excludeForming bool) float64 {
	if excludeForming {
		if len(s) == 0 {
			return 0
		}
		s = s[:len(s)-1]
	}
	if recentN <= 0 || priorN <= 0 || len(s) < recentN+priorN {
		return 0
	}
	recent := s[len(s)-recentN:]
	prior := s[len(s)-recentN-priorN : len(s)-recentN]

	priorMean := mean(volumes(prior))
	if priorMean == 0 {
		return 0
	}
	return mean(volumes(recent)) / priorMean
}

// TrendSlopeAngle fits least-squares lines through the lows and the highs of
// the last n candles against index 0..n-1, averages the two slopes, and
// returns atan of the average in degrees. A window whose lows and highs both
// move less than flatEps relative to their first value returns exactly 0.
func TrendSlopeAngle(s model.Series, n int) float64 {
	if n < 2 || len(s) < n {
		return 0
	}
	t := s.Tail(n)
	lows := t.Lows()
	highs := t.Highs()

	if relRange(lows) < flatEps && relRange(highs) < flatEps {
		return 0
	}

	avg := (olsSlope(lows) + olsSlope(highs)) / 2
	return math.Atan(avg) * 180 / math.Pi
}

// BullishRatio returns the fraction of the last n candles that closed above
// their open. Returns 0 on insufficient data.
func BullishRatio(s model.Series, n int) float64 {
	if n <= 0 || len(s) < n {
		return 0
	}
	count := 0
	for _, c := range s.Tail(n) {
		if c.Close > c.Open {
			count++
		}
	}
	return float64(count) / float64(n)
}

// NeutralCandleRatio returns the fraction of the last n candles whose body,
// relative to the open, stays within band. Candles with a zero open are
// excluded from both numerator and denominator. Returns 0 on insufficient
// data or when every candle is excluded.
func NeutralCandleRatio(s model.Series, n int, band float64) float64 {
	if n <= 0 || len(s) < n {
		return 0
	}
	neutral, counted := 0, 0
	for _, c := range s.Tail(n) {
		if c.Open == 0 {
			continue
		}
		counted++
		if math.Abs(c.Close-c.Open)/c.Open <= band {
			neutral++
		}
	}
	if counted == 0 {
		return 0
	}
	return float64(neutral) / float64(counted)
}

// TradeStrength returns the ratio of buy-initiated to sell-initiated volume
// over the most recent count ticks. Returns +Inf when sell volume is 0 with
// positive buy volume, and the neutral 1.0 when both sides are 0 or the tick
// list is empty.
func TradeStrength(trades []model.Trade, count int) float64 {
	if count > 0 && len(trades) > count {
		trades = trades[len(trades)-count:]
	}
	var buy, sell float64
	for _, t := range trades {
		switch t.Side {
		case model.TradeBid:
			buy += t.Volume
		case model.TradeAsk:
			sell += t.Volume
		}
	}
	if sell == 0 {
		if buy > 0 {
			return math.Inf(1)
		}
		return 1.0
	}
	return buy / sell
}

// PositionPnLRate returns (price - avg_cost) / avg_cost for the market's
// base asset using only snapshot state, or 0 when the asset is not held or
// not priced.
func PositionPnLRate(market string, snap *model.Snapshot) float64 {
	pos := snap.PositionFor(market)
	if !pos.Held() || pos.AvgCost == 0 {
		return 0
	}
	price := snap.PriceFor(market)
	if price == 0 {
		return 0
	}
	return (price - pos.AvgCost) / pos.AvgCost
}

// olsSlope returns the ordinary-least-squares slope of ys against 0..n-1.
func olsSlope(ys []float64) float64 {
	n := float64(len(ys))
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

// relRange returns (max - min) / |first|, or +Inf when the first value is 0
// but the window still moves.
func relRange(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	lo, hi := vs[0], vs[0]
	for _, v := range vs[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if vs[0] == 0 {
		if hi == lo {
			return 0
		}
		return math.Inf(1)
	}
	return (hi - lo) / math.Abs(vs[0])
}

func volumes(s model.Series) []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Volume
	}
	return out
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}
