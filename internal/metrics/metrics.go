// Package metrics exposes Prometheus counters and gauges for the
// trading pipeline. Everything is registered at init; the /metrics
// endpoint is mounted by the web server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trader_ticks_total", Help: "Market ticks ingested from the live feed"},
		[]string{"symbol"},
	)
	TicksDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trader_ticks_dropped_total", Help: "Ticks dropped before the first indicator snapshot"},
		[]string{"symbol"},
	)
	CandlesMerged = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trader_candles_merged_total", Help: "Merged candles completed by the aggregator"},
		[]string{"symbol"},
	)
	SignalsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trader_signals_total", Help: "Trade signals emitted, by kind"},
		[]string{"symbol", "kind"},
	)
	OrdersPlaced = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trader_orders_placed_total", Help: "Orders accepted by the brokerage"},
		[]string{"symbol", "side", "type"},
	)
	OrdersFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trader_orders_failed_total", Help: "Order placements rejected or errored"},
		[]string{"symbol", "side"},
	)
	OrderQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "trader_order_queue_depth", Help: "Orders waiting in the gateway queue"},
	)
	FeedReconnects = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "trader_feed_reconnects_total", Help: "WebSocket feed reconnection attempts"},
	)
	MarketState = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "trader_market_state", Help: "Market session state (0=closed, 1=open)"},
	)
	InstrumentsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "trader_instruments_active", Help: "Instrument workers currently running"},
	)
)

func init() {
	prometheus.MustRegister(
		TicksTotal,
		TicksDropped,
		CandlesMerged,
		SignalsEmitted,
		OrdersPlaced,
		OrdersFailed,
		OrderQueueDepth,
		FeedReconnects,
		MarketState,
		InstrumentsActive,
	)
}
