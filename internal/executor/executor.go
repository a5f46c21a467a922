// Package executor translates fractional sizing decisions into absolute
// market orders. In dry-run mode orders are logged and answered with a
// synthetic receipt; in live mode they are delegated to the exchange client
// unchanged.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"SpikeHunter/internal/exchange"
	"SpikeHunter/internal/model"
)

// Order amount precision. Quote amounts (KRW) are submitted as whole units,
// base quantities at the venue's eight decimal places.
const (
	quotePrecision = 0
	basePrecision  = 8
)

// Executor sizes and places orders on behalf of the decision engine.
type Executor struct {
	client      exchange.Client
	dryRun      bool
	minNotional float64
	quoteAsset  string
}

func New(client exchange.Client, dryRun bool, minNotional float64, quoteAsset string) *Executor {
	return &Executor{
		client:      client,
		dryRun:      dryRun,
		minNotional: minNotional,
		quoteAsset:  quoteAsset,
	}
}

// DryRun reports whether the executor simulates orders.
func (x *Executor) DryRun() bool { return x.dryRun }

// ResolveSize clamps fraction into [0, 1] and resolves it against the
// available amount.
func ResolveSize(fraction, available float64) float64 {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	return fraction * available
}

// Buy spends a fraction of the snapshot quote balance on a market buy. A
// resolved amount below the minimum order notional is skipped entirely: the
// skip is logged and (nil, nil) is returned so the signal still counts as
// attempted.
func (x *Executor) Buy(ctx context.Context, market string, fraction float64, snap *model.Snapshot) (*exchange.Receipt, error) {
	available := snap.QuoteBalance(x.quoteAsset)
	amount, _ := decimal.NewFromFloat(ResolveSize(fraction, available)).Truncate(quotePrecision).Float64()

	if amount < x.minNotional {
		log.Info().
			Str("market", market).
			Float64("amount", amount).
			Float64("floor", x.minNotional).
			Msg("buy skipped: below minimum order notional")
		return nil, nil
	}
	return x.place(ctx, market, exchange.SideBuy, amount)
}

// Sell liquidates a fraction of the held base position with a market sell.
// Selling against a zero or negative holding is a no-op.
func (x *Executor) Sell(ctx context.Context, market string, fraction float64, snap *model.Snapshot) (*exchange.Receipt, error) {
	pos := snap.PositionFor(market)
	if !pos.Held() {
		return nil, nil
	}
	qty, _ := decimal.NewFromFloat(ResolveSize(fraction, pos.Quantity)).Truncate(basePrecision).Float64()
	if qty <= 0 {
		return nil, nil
	}
	return x.place(ctx, market, exchange.SideSell, qty)
}

// Liquidate sells the full held position of the market.
func (x *Executor) Liquidate(ctx context.Context, market string, snap *model.Snapshot) (*exchange.Receipt, error) {
	return x.Sell(ctx, market, 1.0, snap)
}

func (x *Executor) place(ctx context.Context, market string, side exchange.OrderSide, amount float64) (*exchange.Receipt, error) {
	if x.dryRun {
		log.Info().
			Str("market", market).
			Str("side", string(side)).
			Float64("amount", amount).
			Msg("dry-run: order simulated")
		return &exchange.Receipt{
			ID:        uuid.New().String(),
			Market:    market,
			Side:      side,
			Amount:    amount,
			DryRun:    true,
			CreatedAt: time.Now(),
		}, nil
	}

	receipt, err := x.client.PlaceMarketOrder(ctx, market, side, amount)
	if err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}
	log.Info().
		Str("market", market).
		Str("side", string(side)).
		Float64("amount", amount).
		Str("order_id", receipt.ID).
		Msg("order placed")
	return receipt, nil
}

// Flatten is the shutdown safety net: cancel every open order, then market-
// sell every non-quote holding whose notional clears the minimum floor. It
// is best-effort; failures are logged and the next holding is attempted.
func (x *Executor) Flatten(ctx context.Context) {
	if x.dryRun {
		log.Info().Msg("dry-run: flatten skipped")
		return
	}

	orders, err := x.client.ListOpenOrders(ctx)
	if err != nil {
		log.Error().Err(err).Msg("flatten: list open orders failed")
	}
	for _, o := range orders {
		if _, err := x.client.CancelOrder(ctx, o.ID); err != nil {
			log.Error().Err(err).Str("order_id", o.ID).Msg("flatten: cancel failed")
		}
	}

	balances, err := x.client.GetBalances(ctx)
	if err != nil {
		log.Error().Err(err).Msg("flatten: balance fetch failed")
		return
	}
	for _, b := range balances {
		if b.Currency == x.quoteAsset || b.Quantity <= 0 {
			continue
		}
		market := x.quoteAsset + "-" + b.Currency
		price, err := x.client.GetCurrentPrice(ctx, market)
		if err != nil {
			log.Error().Err(err).Str("market", market).Msg("flatten: price fetch failed")
			continue
		}
		if price*b.Quantity < x.minNotional {
			continue
		}
		qty, _ := decimal.NewFromFloat(b.Quantity).Truncate(basePrecision).Float64()
		if _, err := x.client.PlaceMarketOrder(ctx, market, exchange.SideSell, qty); err != nil {
			log.Error().Err(err).Str("market", market).Msg("flatten: liquidation failed")
			continue
		}
		log.Info().Str("market", market).Float64("qty", qty).Msg("flatten: position liquidated")
	}
}
