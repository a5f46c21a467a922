// Package screener admits at most one new market per scan into the working
// set, based on short-horizon volume and trend anomalies.
package screener

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"SpikeHunter/internal/config"
	"SpikeHunter/internal/exchange"
	"SpikeHunter/internal/indicator"
	"SpikeHunter/internal/model"
)

// minSeriesLen is the smallest fine-grained series a candidate is judged on.
const minSeriesLen = 60

// Screener evaluates ranked candidates against the admission rule.
type Screener struct {
	client     exchange.Client
	cfg        config.Discovery
	resolution string
	count      int
	now        func() time.Time
}

func New(client exchange.Client, cfg config.Discovery, resolution string, candleCount int) *Screener {
	return &Screener{
		client:     client,
		cfg:        cfg,
		resolution: resolution,
		count:      candleCount,
		now:        time.Now,
	}
}

// Scan walks the candidates in ranked order, computes the admission
// indicators for each, and returns a discovery record for the qualifying
// candidate with the highest volume-spike ratio. Ties keep the first
// candidate in ranked order. Returns nil when nothing qualifies.
//
// Per-candidate fetch failures are isolated: the candidate is skipped and
// the scan continues.
func (s *Screener) Scan(ctx context.Context, candidates []string) *model.DiscoveryRecord {
	var best *model.DiscoveryRecord

	for _, market := range candidates {
		if ctx.Err() != nil {
			return best
		}
		series, err := s.client.GetCandles(ctx, market, s.resolution, s.count)
		if err != nil {
			log.Warn().Err(err).Str("market", market).Msg("screener: candle fetch failed, skipping candidate")
			continue
		}
		if len(series) < minSeriesLen {
			continue
		}

		spike := indicator.VolumeSpikeRatio(series, s.cfg.SpikeRecentN, s.cfg.SpikePriorN, true)
		slope := indicator.TrendSlopeAngle(series, s.cfg.SlopeWindow)
		neutral := indicator.NeutralCandleRatio(series, s.cfg.SlopeWindow, s.cfg.NeutralBand)

		if spike < s.cfg.SpikeMin || slope < s.cfg.SlopeMinDeg || neutral >= s.cfg.NeutralMax {
			continue
		}
		log.Debug().
			Str("market", market).
			Float64("spike", spike).
			Float64("slope_deg", slope).
			Float64("neutral", neutral).
			Msg("screener: candidate qualifies")

		if best == nil || spike > best.SpikeRatio {
			// Baseline over completed candles only, matching the spike
			// window; the forming candle would skew the decay reference.
			completed := series[:len(series)-1]
			best = &model.DiscoveryRecord{
				Market:         market,
				DiscoveredAt:   s.now(),
				BaselineVolume: completed.MeanVolume(s.cfg.BaselineWindow),
				SpikeRatio:     spike,
			}
		}
	}
	return best
}
