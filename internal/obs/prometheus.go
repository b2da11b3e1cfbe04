package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/domain"
)

// Prometheus collectors for live runs. Backtests stick to the in-process
// Metrics counters; these series feed the /metrics endpoint.
var (
	promBars = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "engine_bars_total",
			Help: "Bars processed by the live runner",
		},
	)

	promSignals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_signals_total",
			Help: "Signals emitted by the strategy",
		},
		[]string{"kind"},
	)

	promOrders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_orders_total",
			Help: "Orders placed at the broker",
		},
		[]string{"side"},
	)

	promFills = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_fills_total",
			Help: "Executions applied to the position book",
		},
		[]string{"side"},
	)

	promEquity = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "engine_equity",
			Help: "Account equity after the latest mark",
		},
	)

	promOpenPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "engine_open_positions",
			Help: "Open position count",
		},
	)
)

func init() {
	prometheus.MustRegister(promBars, promSignals, promOrders, promFills, promEquity, promOpenPositions)
}

// PublishBar records one processed live bar.
func PublishBar() {
	promBars.Inc()
}

// PublishSignal records an emitted signal.
func PublishSignal(kind domain.SignalKind) {
	promSignals.WithLabelValues(kind.String()).Inc()
}

// PublishOrder records a placed order.
func PublishOrder(side domain.Side) {
	promOrders.WithLabelValues(side.String()).Inc()
}

// PublishFill records an applied execution.
func PublishFill(side domain.Side) {
	promFills.WithLabelValues(side.String()).Inc()
}

// PublishAccount updates the equity and position gauges.
func PublishAccount(equity decimal.Decimal, openPositions int) {
	promEquity.Set(equity.InexactFloat64())
	promOpenPositions.Set(float64(openPositions))
}
