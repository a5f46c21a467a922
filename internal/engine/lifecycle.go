package engine

import (
	"context"
	"time"

	"SpikeHunter/internal/config"
	"SpikeHunter/internal/exchange"
	"SpikeHunter/internal/model"
)

// Eviction reasons reported by the lifecycle check.
const (
	EvictDataLoss = "data_loss"
	EvictDecay    = "volume_decay"
)

// Lifecycle decides whether an active market has decayed and should be
// evicted from the working set.
type Lifecycle struct {
	client     exchange.Client
	cfg        config.Discovery
	resolution string
}

func NewLifecycle(client exchange.Client, cfg config.Discovery, resolution string) *Lifecycle {
	return &Lifecycle{client: client, cfg: cfg, resolution: resolution}
}

// ShouldEvict evaluates the decay path for one discovery record. Pinned
// (fixed-list) markets are never evicted. The check only fires once the
// minimum holding duration has elapsed; after that, a missing series evicts
// immediately (fail-safe on data loss), otherwise the trailing mean volume
// is compared to the discovery baseline.
func (l *Lifecycle) ShouldEvict(ctx context.Context, rec *model.DiscoveryRecord, now time.Time) (bool, string) {
	if rec.Pinned {
		return false, ""
	}
	if now.Sub(rec.DiscoveredAt) < time.Duration(l.cfg.MinHoldSec)*time.Second {
		return false, ""
	}

	series, err := l.client.GetCandles(ctx, rec.Market, l.resolution, l.cfg.DecayWindow)
	if err != nil || len(series) == 0 {
		return true, EvictDataLoss
	}

	if rec.BaselineVolume <= 0 {
		return false, ""
	}
	ratio := series.MeanVolume(l.cfg.DecayWindow) / rec.BaselineVolume
	if ratio < l.cfg.DecayRatio {
		return true, EvictDecay
	}
	return false, ""
}
