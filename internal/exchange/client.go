package exchange

import (
	"context"
	"time"

	"SpikeHunter/internal/model"
)

// OrderSide is the side of a trade.
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// Receipt is a normalized view of a placed market order.
type Receipt struct {
	ID        string
	Market    string
	Side      OrderSide
	Amount    float64 // quote amount for buys, base quantity for sells
	DryRun    bool
	CreatedAt time.Time
}

// OpenOrder is an unfilled order still on the book.
type OpenOrder struct {
	ID     string
	Market string
	Side   OrderSide
}

// Balance is one account entry as reported by the venue.
type Balance struct {
	Currency string
	Quantity float64
	AvgCost  float64
}

// Client is the capability surface the engine consumes. Any venue
// integration implements it; a deterministic mock lives in this package for
// tests and offline runs.
type Client interface {
	Name() string

	// GetCandles returns up to count candles at the given resolution,
	// ordered oldest first. The last candle may still be forming.
	GetCandles(ctx context.Context, market, resolution string, count int) (model.Series, error)

	// GetCurrentPrice returns the last traded price, or an error when the
	// market is unknown or the venue is unreachable.
	GetCurrentPrice(ctx context.Context, market string) (float64, error)

	// GetBalances returns every non-zero account balance.
	GetBalances(ctx context.Context) ([]Balance, error)

	// GetMarketStats returns the venue-wide 24h ticker snapshot for all
	// markets quoted in the given asset.
	GetMarketStats(ctx context.Context, quote string) ([]model.MarketStats, error)

	// GetRecentTrades returns the most recent executed ticks, oldest first.
	GetRecentTrades(ctx context.Context, market string, count int) ([]model.Trade, error)

	// PlaceMarketOrder submits a market order. For buys, amount is spent
	// quote currency; for sells, amount is the base quantity.
	PlaceMarketOrder(ctx context.Context, market string, side OrderSide, amount float64) (*Receipt, error)

	// ListOpenOrders returns all unfilled orders on the account.
	ListOpenOrders(ctx context.Context) ([]OpenOrder, error)

	// CancelOrder cancels one open order by ID.
	CancelOrder(ctx context.Context, id string) (*Receipt, error)
}
