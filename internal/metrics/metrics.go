// Package metrics exposes Prometheus counters and gauges updated by the
// trading loop, served at /metrics when an address is configured.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bot_cycles_total",
		Help: "Completed trading cycles",
	})

	decisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_decisions_total",
		Help: "Decisions taken, by signal",
	}, []string{"signal"})

	orders = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_orders_total",
		Help: "Orders placed, by mode and side",
	}, []string{"mode", "side"})

	ordersSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_orders_skipped_total",
		Help: "Orders skipped before placement, by reason",
	}, []string{"reason"})

	evictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_evictions_total",
		Help: "Working-set evictions, by reason",
	}, []string{"reason"})

	discoveries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bot_discoveries_total",
		Help: "Markets admitted into the working set",
	})

	workingSet = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bot_working_set_size",
		Help: "Markets currently monitored",
	})

	pnlRate = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bot_position_pnl_rate",
		Help: "Unrealized PnL rate per market",
	}, []string{"market"})
)

func IncCycle()                     { cycles.Inc() }
func IncDecision(signal string)     { decisions.WithLabelValues(signal).Inc() }
func IncOrder(mode, side string)    { orders.WithLabelValues(mode, side).Inc() }
func IncOrderSkipped(reason string) { ordersSkipped.WithLabelValues(reason).Inc() }
func IncEviction(reason string)     { evictions.WithLabelValues(reason).Inc() }
func IncDiscovery()                 { discoveries.Inc() }
func SetWorkingSetSize(n int)       { workingSet.Set(float64(n)) }
func SetPnLRate(market string, r float64) {
	pnlRate.WithLabelValues(market).Set(r)
}
func DropPnLRate(market string) { pnlRate.DeleteLabelValues(market) }
