package engine

import (
	"testing"
	"time"

	"SpikeHunter/internal/config"
	"SpikeHunter/internal/model"
)

func testStrategy() config.Strategy {
	return config.Strategy{
		SpikeRecentN:     3,
		SpikePriorN:      50,
		SpikeThreshold:   3.0,
		BullishWindow:    10,
		BullishMin:       0.5,
		ShortSlopeWindow: 5,
		LongSlopeWindow:  100,
		LongSlopeMinDeg:  0.2,
		StrengthTicks:    200,
		StrengthMin:      1.0,
		ExitStrengthMax:  1.0,
		ExitSlope3Deg:    -0.7,
		ExitSlope10Deg:   -0.5,
		ExitSlope30Deg:   -0.3,
		StopLossRate:     -0.03,
		BuyFraction:      0.1,
		SellFraction:     0.5,
		CooldownSec:      5,
	}
}

// entrySeries satisfies every entry condition: rising prices, all-bullish
// candles, and a volume spike on the trailing completed candles.
func entrySeries() model.Series {
	s := make(model.Series, 100)
	now := time.Now()
	for i := range s {
		p := 100 + 0.2*float64(i)
		s[i] = model.Candle{
			Time:   now.Add(time.Duration(i-100) * time.Second),
			Open:   p,
			High:   p + 0.3,
			Low:    p - 0.3,
			Close:  p + 0.1,
			Volume: 100,
		}
	}
	for i := 95; i < 100; i++ {
		s[i].Volume = 500
	}
	return s
}

// fallingSeries declines steadily with flat volume.
func fallingSeries() model.Series {
	s := make(model.Series, 100)
	now := time.Now()
	for i := range s {
		p := 140 - 0.2*float64(i)
		s[i] = model.Candle{
			Time:   now.Add(time.Duration(i-100) * time.Second),
			Open:   p,
			High:   p + 0.3,
			Low:    p - 0.3,
			Close:  p - 0.1,
			Volume: 100,
		}
	}
	return s
}

func buyHeavyTrades(n int) []model.Trade {
	out := make([]model.Trade, n)
	for i := range out {
		side := model.TradeBid
		if i%4 == 0 {
			side = model.TradeAsk
		}
		out[i] = model.Trade{Price: 100, Volume: 1, Side: side}
	}
	return out
}

func sellHeavyTrades(n int) []model.Trade {
	out := make([]model.Trade, n)
	for i := range out {
		side := model.TradeAsk
		if i%4 == 0 {
			side = model.TradeBid
		}
		out[i] = model.Trade{Price: 100, Volume: 1, Side: side}
	}
	return out
}

func snapshotWith(market string, qty, avgCost, price float64) *model.Snapshot {
	_, base := model.SplitMarket(market)
	return &model.Snapshot{
		Balances: map[string]model.Position{
			base: {Quantity: qty, AvgCost: avgCost},
		},
		Prices:  map[string]float64{market: price},
		TakenAt: time.Now(),
	}
}

func TestDecide_Entry(t *testing.T) {
	d := NewDecider(testStrategy(), NewCooldownMap())
	snap := &model.Snapshot{TakenAt: time.Now()}

	dec := d.Decide("KRW-AAA", entrySeries(), buyHeavyTrades(200), snap, time.Now())
	if dec.Action != model.ActionBuy {
		t.Fatalf("expected BUY, got %s (%s)", dec.Action, dec.Reason)
	}
	if dec.Fraction != 0.1 {
		t.Errorf("BUY fraction = %v, want 0.1", dec.Fraction)
	}
	if dec.Reason != "entry" {
		t.Errorf("reason = %q", dec.Reason)
	}
}

func TestDecide_StopLossOutranksEntry(t *testing.T) {
	d := NewDecider(testStrategy(), NewCooldownMap())
	// pnl = (96.9 - 100) / 100 = -0.031, below the -0.03 stop even though
	// the series satisfies every entry condition.
	snap := snapshotWith("KRW-AAA", 2.0, 100, 96.9)

	dec := d.Decide("KRW-AAA", entrySeries(), buyHeavyTrades(200), snap, time.Now())
	if dec.Action != model.ActionRemove {
		t.Fatalf("expected REMOVE, got %s (%s)", dec.Action, dec.Reason)
	}
	if dec.Fraction != 1.0 {
		t.Errorf("stop-loss must liquidate in full, got fraction %v", dec.Fraction)
	}
	if dec.Reason != "stop-loss" {
		t.Errorf("reason = %q", dec.Reason)
	}
	if dec.PnLRate > -0.03 {
		t.Errorf("pnl rate = %v, want <= -0.03", dec.PnLRate)
	}
}

func TestDecide_StopLossRequiresHeldPosition(t *testing.T) {
	d := NewDecider(testStrategy(), NewCooldownMap())
	// Price collapses but nothing is held: never a stop-loss.
	snap := snapshotWith("KRW-AAA", 0, 100, 50)

	dec := d.Decide("KRW-AAA", fallingSeries(), buyHeavyTrades(200), snap, time.Now())
	if dec.Action == model.ActionRemove {
		t.Fatal("stop-loss fired without a held position")
	}
}

func TestDecide_CooldownSuppressesEntry(t *testing.T) {
	cd := NewCooldownMap()
	d := NewDecider(testStrategy(), cd)
	snap := &model.Snapshot{TakenAt: time.Now()}
	now := time.Now()

	cd.Stamp("KRW-AAA", now.Add(-2*time.Second))
	dec := d.Decide("KRW-AAA", entrySeries(), buyHeavyTrades(200), snap, now)
	if dec.Action != model.ActionHold {
		t.Fatalf("entry inside cooldown should HOLD, got %s", dec.Action)
	}

	dec = d.Decide("KRW-AAA", entrySeries(), buyHeavyTrades(200), snap, now.Add(4*time.Second))
	if dec.Action != model.ActionBuy {
		t.Fatalf("entry after cooldown should BUY, got %s", dec.Action)
	}
}

func TestDecide_WeakStrengthBlocksEntry(t *testing.T) {
	d := NewDecider(testStrategy(), NewCooldownMap())
	snap := &model.Snapshot{TakenAt: time.Now()}

	dec := d.Decide("KRW-AAA", entrySeries(), sellHeavyTrades(200), snap, time.Now())
	if dec.Action == model.ActionBuy {
		t.Fatal("sell-heavy tape must not trigger an entry")
	}
}

func TestDecide_ExitOnTrendReversal(t *testing.T) {
	d := NewDecider(testStrategy(), NewCooldownMap())
	// Held in profit, so the stop-loss path stays out of the way.
	snap := snapshotWith("KRW-AAA", 2.0, 100, 121)

	dec := d.Decide("KRW-AAA", fallingSeries(), sellHeavyTrades(200), snap, time.Now())
	if dec.Action != model.ActionSell {
		t.Fatalf("expected SELL, got %s (%s)", dec.Action, dec.Reason)
	}
	if dec.Fraction != 0.5 {
		t.Errorf("SELL fraction = %v, want 0.5", dec.Fraction)
	}
	if dec.Reason != "trend-reversal" {
		t.Errorf("reason = %q", dec.Reason)
	}
}

func TestDecide_ExitRequiresHeldPosition(t *testing.T) {
	d := NewDecider(testStrategy(), NewCooldownMap())
	snap := &model.Snapshot{TakenAt: time.Now()}

	dec := d.Decide("KRW-AAA", fallingSeries(), sellHeavyTrades(200), snap, time.Now())
	if dec.Action != model.ActionHold {
		t.Fatalf("reversal without a position should HOLD, got %s", dec.Action)
	}
}

func TestDecide_ExitBlockedByStrongBuyPressure(t *testing.T) {
	d := NewDecider(testStrategy(), NewCooldownMap())
	snap := snapshotWith("KRW-AAA", 2.0, 100, 121)

	dec := d.Decide("KRW-AAA", fallingSeries(), buyHeavyTrades(200), snap, time.Now())
	if dec.Action == model.ActionSell {
		t.Fatal("strong buy pressure should override a reversing slope")
	}
}

func TestDecide_QuietMarketHolds(t *testing.T) {
	d := NewDecider(testStrategy(), NewCooldownMap())
	snap := snapshotWith("KRW-AAA", 2.0, 100, 102)

	s := entrySeries()
	for i := range s {
		s[i].Volume = 100 // no spike
	}
	dec := d.Decide("KRW-AAA", s, buyHeavyTrades(200), snap, time.Now())
	if dec.Action != model.ActionHold {
		t.Fatalf("expected HOLD, got %s (%s)", dec.Action, dec.Reason)
	}
	if dec.PnLRate == 0 {
		t.Error("HOLD decision should still carry the pnl rate")
	}
}
