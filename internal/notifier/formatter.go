package notifier

import (
	"fmt"
	"strings"

	"SpikeHunter/internal/model"
)

// FormatDiscovery renders an admission notification.
func FormatDiscovery(rec *model.DiscoveryRecord) string {
	return fmt.Sprintf("🔍 <b>%s</b> admitted\nspike ratio: %.2fx\nbaseline volume: %.4f",
		rec.Market, rec.SpikeRatio, rec.BaselineVolume)
}

// FormatEviction renders an eviction notification.
func FormatEviction(market, reason string, pnlRate float64) string {
	return fmt.Sprintf("🚪 <b>%s</b> evicted (%s)\nPnL: %+.2f%%", market, reason, pnlRate*100)
}

// FormatSignal renders a trade signal notification. HOLD signals are not
// notified; callers filter them out.
func FormatSignal(dec model.Decision, price float64) string {
	icon := "📈"
	if dec.Action == model.ActionSell || dec.Action == model.ActionRemove {
		icon = "📉"
	}
	return fmt.Sprintf("%s <b>%s</b> %s (%s)\nprice: %.2f | size: %.0f%% | PnL: %+.2f%%",
		icon, dec.Market, dec.Action, dec.Reason, price, dec.Fraction*100, dec.PnLRate*100)
}

// FormatStatus renders the periodic status report.
func FormatStatus(markets []string, cycles, buys, sells, evictions int64, dryRun bool) string {
	mode := "LIVE"
	if dryRun {
		mode = "DRY-RUN"
	}
	active := "none"
	if len(markets) > 0 {
		active = strings.Join(markets, ", ")
	}
	return fmt.Sprintf("📊 <b>SpikeHunter status</b> [%s]\nactive: %s\ncycles: %d | buys: %d | sells: %d | evictions: %d",
		mode, active, cycles, buys, sells, evictions)
}
