package engine

import (
	"time"

	"SpikeHunter/internal/config"
	"SpikeHunter/internal/indicator"
	"SpikeHunter/internal/model"
)

// Decider fuses the indicator set into a trading action for one market. It
// reads but never writes the cooldown map; the engine stamps cooldowns only
// after a BUY order actually goes out.
type Decider struct {
	cfg       config.Strategy
	cooldowns *CooldownMap
}

func NewDecider(cfg config.Strategy, cooldowns *CooldownMap) *Decider {
	return &Decider{cfg: cfg, cooldowns: cooldowns}
}

// Decide applies the decision rules in strict priority order; the first
// matching rule wins:
//
//  1. stop-loss: held position at or below the stop rate → REMOVE, full sell
//  2. entry: volume spike + bullish window + rising short and long trend +
//     buy-side strength, gated by the per-market cooldown → BUY
//  3. exit: held position, a short-horizon slope turning steeply negative
//     and weakening buy pressure → SELL
//  4. otherwise HOLD
//
// All inputs come from the cycle snapshot; nothing is re-fetched here.
func (d *Decider) Decide(market string, series model.Series, trades []model.Trade, snap *model.Snapshot, now time.Time) model.Decision {
	pnl := indicator.PositionPnLRate(market, snap)
	held := snap.PositionFor(market).Held()

	if held && pnl <= d.cfg.StopLossRate {
		return model.Decision{
			Market:   market,
			Action:   model.ActionRemove,
			Fraction: 1.0,
			Reason:   "stop-loss",
			PnLRate:  pnl,
		}
	}

	spike := indicator.VolumeSpikeRatio(series, d.cfg.SpikeRecentN, d.cfg.SpikePriorN, true)
	bullish := indicator.BullishRatio(series, d.cfg.BullishWindow)
	shortSlope := indicator.TrendSlopeAngle(series, d.cfg.ShortSlopeWindow)
	longSlope := indicator.TrendSlopeAngle(series, d.cfg.LongSlopeWindow)
	strength := indicator.TradeStrength(trades, d.cfg.StrengthTicks)

	if spike > d.cfg.SpikeThreshold &&
		bullish >= d.cfg.BullishMin &&
		shortSlope > 0 &&
		longSlope > d.cfg.LongSlopeMinDeg &&
		strength > d.cfg.StrengthMin &&
		d.cooldowns.Elapsed(market, now, time.Duration(d.cfg.CooldownSec)*time.Second) {
		return model.Decision{
			Market:   market,
			Action:   model.ActionBuy,
			Fraction: d.cfg.BuyFraction,
			Reason:   "entry",
			PnLRate:  pnl,
		}
	}

	if held {
		slope3 := indicator.TrendSlopeAngle(series, 3)
		slope10 := indicator.TrendSlopeAngle(series, 10)
		slope30 := indicator.TrendSlopeAngle(series, 30)
		reversing := slope3 <= d.cfg.ExitSlope3Deg ||
			slope10 <= d.cfg.ExitSlope10Deg ||
			slope30 <= d.cfg.ExitSlope30Deg
		if reversing && strength < d.cfg.ExitStrengthMax {
			return model.Decision{
				Market:   market,
				Action:   model.ActionSell,
				Fraction: d.cfg.SellFraction,
				Reason:   "trend-reversal",
				PnLRate:  pnl,
			}
		}
	}

	return model.Decision{Market: market, Action: model.ActionHold, PnLRate: pnl}
}
