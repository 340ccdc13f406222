// Package metrics exposes the controller's Prometheus metrics:
//   - bot_cycles_total                  – decision cycles executed
//   - bot_cycles_skipped_total{reason}  – ticks skipped (market_closed)
//   - bot_signals_total{symbol}         – breakout buy signals generated
//   - bot_orders_total{side}            – market orders submitted
//   - bot_exits_total{reason}           – exits by reason (stop_loss|take_profit)
//   - bot_gateway_errors_total{op}      – gateway failures by operation
//   - bot_portfolio_value_usd           – last observed portfolio value (gauge)
//
// Registered in init() and served at /metrics in the Prometheus text format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Cycles = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_cycles_total",
			Help: "Decision cycles executed",
		},
	)

	CyclesSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_cycles_skipped_total",
			Help: "Ticks skipped without a decision cycle",
		},
		[]string{"reason"},
	)

	Signals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_signals_total",
			Help: "Breakout buy signals generated",
		},
		[]string{"symbol"},
	)

	Orders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_orders_total",
			Help: "Market orders submitted",
		},
		[]string{"side"},
	)

	Exits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_exits_total",
			Help: "Position exits by reason",
		},
		[]string{"reason"},
	)

	GatewayErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_gateway_errors_total",
			Help: "Gateway failures by operation",
		},
		[]string{"op"},
	)

	PortfolioValue = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_portfolio_value_usd",
			Help: "Last observed portfolio value in USD",
		},
	)
)

func init() {
	prometheus.MustRegister(
		Cycles,
		CyclesSkipped,
		Signals,
		Orders,
		Exits,
		GatewayErrors,
		PortfolioValue,
	)
}

// Handler returns the Prometheus exposition handler for the /metrics route.
func Handler() http.Handler {
	return promhttp.Handler()
}
