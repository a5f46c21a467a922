package model

import (
	"strings"
	"time"
)

// Candle represents a single OHLCV bucket.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	Value  float64 // traded value in the quote currency, when the venue reports it
}

// Series is an ordered sequence of candles, oldest first.
type Series []Candle

// Tail returns the most recent n candles, or the whole series if shorter.
func (s Series) Tail(n int) Series {
	if n <= 0 {
		return nil
	}
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// Lows extracts the low prices in order.
func (s Series) Lows() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Low
	}
	return out
}

// Highs extracts the high prices in order.
func (s Series) Highs() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.High
	}
	return out
}

// MeanVolume returns the average volume over the most recent n candles.
// Returns 0 when the series is empty or n <= 0.
func (s Series) MeanVolume(n int) float64 {
	t := s.Tail(n)
	if len(t) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range t {
		sum += c.Volume
	}
	return sum / float64(len(t))
}

// SplitMarket decomposes a market symbol like "KRW-BTC" into its quote and
// base assets. Both results are empty when the symbol is malformed.
func SplitMarket(market string) (quote, base string) {
	parts := strings.SplitN(strings.TrimSpace(market), "-", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", ""
	}
	return parts[0], parts[1]
}

// MarketStats is one row of the venue-wide 24h ticker snapshot used for
// candidate ranking.
type MarketStats struct {
	Market        string
	Price         float64
	TradedValue24 float64 // accumulated traded value over the last 24h
	ChangeRate24  float64 // signed 24h change rate, e.g. 0.05 = +5%
}

// TradeSide marks which side initiated an executed trade tick.
type TradeSide string

const (
	TradeBid TradeSide = "BID" // buy-initiated
	TradeAsk TradeSide = "ASK" // sell-initiated
)

// Trade is a single executed trade tick.
type Trade struct {
	Price  float64
	Volume float64
	Side   TradeSide
}
