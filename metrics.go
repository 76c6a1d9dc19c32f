// FILE: metrics.go
// Package main – Prometheus metrics for observability.
//
// Exposes the metrics the assistant updates during operation:
//   • bot_orders_total{mode,side}  – orders placed (mode: paper|live)
//   • bot_decisions_total{outcome} – tick outcomes (buy|sell|hold|cooldown|disabled)
//   • bot_tick_errors_total        – ticks that failed and were swallowed
//   • bot_band_pct                 – current volatility band percent (gauge)
//   • bot_ledger_base / bot_ledger_quote – simulated balances (gauges)
//
// Registered in init() and served by the HTTP handler started in main.go at
// /metrics (Prometheus text exposition format).

package main

import "github.com/prometheus/client_golang/prometheus"

var (
	mtxOrders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_orders_total",
			Help: "Orders placed",
		},
		[]string{"mode", "side"},
	)

	mtxDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_decisions_total",
			Help: "Strategy tick outcomes",
		},
		[]string{"outcome"},
	)

	mtxTickErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_tick_errors_total",
			Help: "Strategy ticks that failed",
		},
	)

	mtxBandPct = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_band_pct",
			Help: "Current volatility band percent",
		},
	)

	mtxLedgerBase = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_ledger_base",
			Help: "Simulated base-asset balance",
		},
	)

	mtxLedgerQuote = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_ledger_quote",
			Help: "Simulated quote-asset balance",
		},
	)
)

func init() {
	prometheus.MustRegister(mtxOrders, mtxDecisions, mtxTickErrors)
	prometheus.MustRegister(mtxBandPct, mtxLedgerBase, mtxLedgerQuote)
}

// Helper setters used across files.
func IncOrder(mode, side string) { mtxOrders.WithLabelValues(mode, side).Inc() }
func IncDecision(outcome string) { mtxDecisions.WithLabelValues(outcome).Inc() }
func IncTickError()              { mtxTickErrors.Inc() }
func SetBandMetric(pct float64)  { mtxBandPct.Set(pct) }

func SetLedgerMetrics(base, quote float64) {
	mtxLedgerBase.Set(base)
	mtxLedgerQuote.Set(quote)
}
