// Package engine owns the working set and drives the per-cycle pass:
// snapshot, discovery, decay checks, then trading decisions. Everything runs
// on a single goroutine; WorkingSet and CooldownMap have no other owner.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"SpikeHunter/internal/config"
	"SpikeHunter/internal/exchange"
	"SpikeHunter/internal/executor"
	"SpikeHunter/internal/metrics"
	"SpikeHunter/internal/model"
	"SpikeHunter/internal/notifier"
	"SpikeHunter/internal/ranker"
	"SpikeHunter/internal/recorder"
	"SpikeHunter/internal/screener"
)

// Counters accumulates process-lifetime activity totals for status reports
// and the daily summary.
type Counters struct {
	Cycles      int64
	Buys        int64
	Sells       int64
	Evictions   int64
	Discoveries int64
}

// Engine is the orchestration loop.
type Engine struct {
	cfg       *config.Config
	client    exchange.Client
	exec      *executor.Executor
	screener  *screener.Screener
	lifecycle *Lifecycle
	decider   *Decider
	set       *WorkingSet
	cooldowns *CooldownMap
	rec       recorder.Recorder
	notify    *notifier.TelegramNotifier

	lastScan time.Time
	counters Counters
	now      func() time.Time

	// Published copy of markets + counters for the scheduler and chat
	// commands, which run on other goroutines.
	statusMu      sync.Mutex
	statusMarkets []string
	statusCount   Counters
}

func New(cfg *config.Config, client exchange.Client, exec *executor.Executor, rec recorder.Recorder, tn *notifier.TelegramNotifier) *Engine {
	// In fixed-list mode every configured market is tracked, even past the
	// discovery bound.
	max := cfg.Discovery.MaxWorkingSet
	if n := len(cfg.Trading.Markets); n > max {
		max = n
	}
	set := NewWorkingSet(max)
	cooldowns := NewCooldownMap()

	e := &Engine{
		cfg:       cfg,
		client:    client,
		exec:      exec,
		screener:  screener.New(client, cfg.Discovery, cfg.Trading.Resolution, cfg.Trading.CandleCount),
		lifecycle: NewLifecycle(client, cfg.Discovery, cfg.Trading.Resolution),
		decider:   NewDecider(cfg.Strategy, cooldowns),
		set:       set,
		cooldowns: cooldowns,
		rec:       rec,
		notify:    tn,
		now:       time.Now,
	}

	// Fixed-list mode: pin the configured markets and never discover.
	for _, m := range cfg.Trading.Markets {
		set.Admit(&model.DiscoveryRecord{
			Market:       m,
			DiscoveredAt: e.now(),
			Pinned:       true,
		})
	}
	return e
}

// Run drives cycles at the configured interval until the context is
// cancelled, then executes the shutdown safety net.
func (e *Engine) Run(ctx context.Context) error {
	// A panic escaping a cycle must not leave open orders and holdings
	// behind: run the safety net, then let the process die.
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("cycle panicked")
			e.shutdown()
			panic(r)
		}
	}()

	interval := time.Duration(e.cfg.Trading.LoopIntervalSec) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().
		Dur("interval", interval).
		Bool("dry_run", e.exec.DryRun()).
		Bool("fixed_list", e.cfg.FixedList()).
		Msg("engine started")

	for {
		select {
		case <-ctx.Done():
			e.shutdown()
			return ctx.Err()
		case <-ticker.C:
			e.Cycle(ctx)
		}
	}
}

// Cycle is one strictly sequential pass: refresh the snapshot, (periodically)
// run the screener, run decay checks, then evaluate trading decisions. Decay
// evictions run before decisions, so a market evicted for decay is never
// also traded in the same cycle.
func (e *Engine) Cycle(ctx context.Context) {
	now := e.now()

	snap, err := e.takeSnapshot(ctx)
	if err != nil {
		log.Error().Err(err).Msg("cycle skipped: snapshot failed")
		return
	}

	if e.discoveryDue(now) {
		e.discover(ctx, now)
	}

	for _, market := range e.set.Markets() {
		if ctx.Err() != nil {
			return
		}
		rec := e.set.Get(market)
		if evict, reason := e.lifecycle.ShouldEvict(ctx, rec, now); evict {
			e.evict(ctx, rec, reason, snap, now)
		}
	}

	for _, market := range e.set.Markets() {
		if ctx.Err() != nil {
			return
		}
		e.decideOne(ctx, market, snap, now)
	}

	e.counters.Cycles++
	metrics.IncCycle()
	metrics.SetWorkingSetSize(e.set.Len())

	e.statusMu.Lock()
	e.statusMarkets = e.set.Markets()
	e.statusCount = e.counters
	e.statusMu.Unlock()
}

// takeSnapshot reads balances and active-market prices exactly once; every
// computation in the cycle uses this view so balance/price pairs stay
// consistent.
func (e *Engine) takeSnapshot(ctx context.Context) (*model.Snapshot, error) {
	snap := &model.Snapshot{
		Balances: make(map[string]model.Position),
		Prices:   make(map[string]float64),
		TakenAt:  e.now(),
	}

	balances, err := e.client.GetBalances(ctx)
	if err != nil {
		if e.cfg.Trading.DryRun {
			// No credentials needed to watch markets in dry-run mode.
			log.Debug().Err(err).Msg("balance fetch unavailable, using empty balances")
		} else {
			return nil, fmt.Errorf("fetch balances: %w", err)
		}
	}
	for _, b := range balances {
		snap.Balances[b.Currency] = model.Position{Quantity: b.Quantity, AvgCost: b.AvgCost}
	}

	for _, market := range e.set.Markets() {
		price, err := e.client.GetCurrentPrice(ctx, market)
		if err != nil {
			log.Warn().Err(err).Str("market", market).Msg("price fetch failed")
			continue
		}
		snap.Prices[market] = price
	}
	return snap, nil
}

func (e *Engine) discoveryDue(now time.Time) bool {
	if e.cfg.FixedList() || e.set.Full() {
		return false
	}
	interval := time.Duration(e.cfg.Discovery.IntervalSec) * time.Second
	return e.lastScan.IsZero() || now.Sub(e.lastScan) >= interval
}

func (e *Engine) discover(ctx context.Context, now time.Time) {
	e.lastScan = now

	stats, err := e.client.GetMarketStats(ctx, e.cfg.Trading.QuoteAsset)
	if err != nil {
		log.Warn().Err(err).Msg("discovery skipped: market stats fetch failed")
		return
	}

	exclude := make(map[string]struct{})
	for _, m := range e.cfg.Discovery.Blacklist {
		exclude[m] = struct{}{}
	}
	for _, m := range e.set.Markets() {
		exclude[m] = struct{}{}
	}

	candidates := ranker.Rank(stats, ranker.Mode(e.cfg.Discovery.RankBy), exclude, e.cfg.Discovery.TopK)
	rec := e.screener.Scan(ctx, candidates)
	if rec == nil {
		log.Debug().Int("candidates", len(candidates)).Msg("discovery: no candidate qualified")
		return
	}
	if !e.set.Admit(rec) {
		return
	}

	e.counters.Discoveries++
	metrics.IncDiscovery()
	log.Info().
		Str("market", rec.Market).
		Float64("spike", rec.SpikeRatio).
		Float64("baseline_volume", rec.BaselineVolume).
		Msg("market admitted to working set")
	e.notify.TrySend(notifier.FormatDiscovery(rec))
	if err := e.rec.RecordDiscovery(&recorder.DiscoveryEvent{
		Market:         rec.Market,
		BaselineVolume: rec.BaselineVolume,
		SpikeRatio:     rec.SpikeRatio,
	}); err != nil {
		log.Error().Err(err).Msg("record discovery failed")
	}
}

// evict removes a market from the working set and liquidates any held
// position in full.
func (e *Engine) evict(ctx context.Context, rec *model.DiscoveryRecord, reason string, snap *model.Snapshot, now time.Time) {
	pnl := 0.0
	if snap.PositionFor(rec.Market).Held() {
		pos := snap.PositionFor(rec.Market)
		if price := snap.PriceFor(rec.Market); price > 0 && pos.AvgCost > 0 {
			pnl = (price - pos.AvgCost) / pos.AvgCost
		}
		if _, err := e.exec.Liquidate(ctx, rec.Market, snap); err != nil {
			log.Error().Err(err).Str("market", rec.Market).Msg("eviction liquidation failed")
		}
	}

	e.set.Evict(rec.Market)
	e.counters.Evictions++
	metrics.IncEviction(reason)
	metrics.DropPnLRate(rec.Market)

	log.Info().
		Str("market", rec.Market).
		Str("reason", reason).
		Float64("pnl_rate", pnl).
		Msg("market evicted")
	e.notify.TrySend(notifier.FormatEviction(rec.Market, reason, pnl))
	if err := e.rec.RecordEviction(&recorder.EvictionEvent{
		Market:  rec.Market,
		Reason:  reason,
		HeldSec: now.Sub(rec.DiscoveredAt).Seconds(),
		PnLRate: pnl,
	}); err != nil {
		log.Error().Err(err).Msg("record eviction failed")
	}
}

// decideOne evaluates and executes the decision for a single market. Any
// failure is logged and treated as HOLD; it never aborts the rest of the
// working set.
func (e *Engine) decideOne(ctx context.Context, market string, snap *model.Snapshot, now time.Time) {
	series, err := e.client.GetCandles(ctx, market, e.cfg.Trading.Resolution, e.cfg.Trading.CandleCount)
	if err != nil {
		log.Warn().Err(err).Str("market", market).Msg("candle fetch failed, holding")
		metrics.IncDecision(string(model.ActionHold))
		return
	}
	trades, err := e.client.GetRecentTrades(ctx, market, e.cfg.Strategy.StrengthTicks)
	if err != nil {
		log.Warn().Err(err).Str("market", market).Msg("trade ticks fetch failed, holding")
		metrics.IncDecision(string(model.ActionHold))
		return
	}

	dec := e.decider.Decide(market, series, trades, snap, now)
	metrics.IncDecision(string(dec.Action))
	metrics.SetPnLRate(market, dec.PnLRate)

	if dec.Action == model.ActionHold {
		return
	}

	price := snap.PriceFor(market)
	log.Info().
		Str("market", market).
		Str("signal", string(dec.Action)).
		Str("reason", dec.Reason).
		Float64("pnl_rate", dec.PnLRate).
		Msg("signal")
	if err := e.rec.RecordSignal(&recorder.SignalEvent{
		Market:   market,
		Action:   string(dec.Action),
		Reason:   dec.Reason,
		Fraction: dec.Fraction,
		PnLRate:  dec.PnLRate,
		Price:    price,
	}); err != nil {
		log.Error().Err(err).Msg("record signal failed")
	}
	e.notify.TrySend(notifier.FormatSignal(dec, price))

	switch dec.Action {
	case model.ActionBuy:
		receipt, err := e.exec.Buy(ctx, market, dec.Fraction, snap)
		if err != nil {
			// Rejected buys leave cooldown state untouched.
			log.Error().Err(err).Str("market", market).Msg("buy failed")
			return
		}
		if receipt == nil {
			metrics.IncOrderSkipped("below_min_notional")
			return
		}
		e.cooldowns.Stamp(market, now)
		e.counters.Buys++
		e.recordOrder(receipt)

	case model.ActionSell:
		receipt, err := e.exec.Sell(ctx, market, dec.Fraction, snap)
		if err != nil {
			log.Error().Err(err).Str("market", market).Msg("sell failed")
			return
		}
		if receipt == nil {
			return
		}
		e.counters.Sells++
		e.recordOrder(receipt)

	case model.ActionRemove:
		rec := e.set.Get(market)
		if _, err := e.exec.Liquidate(ctx, market, snap); err != nil {
			// Rejected liquidation: keep the market so the stop-loss
			// re-fires next cycle instead of abandoning the position.
			log.Error().Err(err).Str("market", market).Msg("stop-loss liquidation failed, keeping market")
			return
		}
		e.counters.Sells++
		e.set.Evict(market)
		e.counters.Evictions++
		metrics.IncEviction("stop_loss")
		metrics.DropPnLRate(market)
		heldSec := 0.0
		if rec != nil {
			heldSec = now.Sub(rec.DiscoveredAt).Seconds()
		}
		if err := e.rec.RecordEviction(&recorder.EvictionEvent{
			Market:  market,
			Reason:  dec.Reason,
			HeldSec: heldSec,
			PnLRate: dec.PnLRate,
		}); err != nil {
			log.Error().Err(err).Msg("record eviction failed")
		}
	}
}

func (e *Engine) recordOrder(receipt *exchange.Receipt) {
	mode := "live"
	if receipt.DryRun {
		mode = "dry_run"
	}
	metrics.IncOrder(mode, string(receipt.Side))
	if err := e.rec.RecordOrder(&recorder.OrderEvent{
		OrderID: receipt.ID,
		Market:  receipt.Market,
		Side:    string(receipt.Side),
		Amount:  receipt.Amount,
		DryRun:  receipt.DryRun,
	}); err != nil {
		log.Error().Err(err).Msg("record order failed")
	}
}

// shutdown runs the best-effort safety net: cancel open orders, then
// liquidate all non-quote holdings.
func (e *Engine) shutdown() {
	log.Info().Msg("engine stopping, running safety net")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	e.exec.Flatten(ctx)
	e.notify.TrySend("🛑 SpikeHunter stopped; open orders cancelled, holdings flattened")
}

// Status returns the most recently published active markets and lifetime
// counters. Safe to call from other goroutines.
func (e *Engine) Status() ([]string, Counters) {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	return e.statusMarkets, e.statusCount
}

// StatusText renders the status report shared by the scheduler and the
// /status chat command.
func (e *Engine) StatusText() string {
	markets, c := e.Status()
	return notifier.FormatStatus(markets, c.Cycles, c.Buys, c.Sells, c.Evictions, e.exec.DryRun())
}
