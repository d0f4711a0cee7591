// Package metrics exposes the venue's prometheus instrumentation. The
// kernel stays metrics-free; the engine facade feeds the collector and the
// server binary mounts the HTTP endpoint.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vidar/internal/fixed"
)

// Collector holds the venue metrics, registered on a private registry.
type Collector struct {
	registry *prometheus.Registry

	OrdersTotal   *prometheus.CounterVec
	CancelsTotal  prometheus.Counter
	TradesTotal   prometheus.Counter
	TradeVolume   prometheus.Counter
	MatchLatency  prometheus.Histogram
	RestingOrders *prometheus.GaugeVec
	BookDepth     *prometheus.GaugeVec
	Spread        prometheus.Gauge
}

// NewCollector builds and registers the venue metrics.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),

		OrdersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vidar_orders_total",
			Help: "Order commands accepted, by side",
		}, []string{"side"}),
		CancelsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vidar_cancels_total",
			Help: "Cancel commands that removed a resting order",
		}),
		TradesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vidar_trades_total",
			Help: "Trades executed",
		}),
		TradeVolume: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vidar_trade_volume",
			Help: "Executed quantity, unscaled from fixed-point",
		}),
		MatchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "vidar_match_latency_seconds",
			Help:    "Latency of a single match operation",
			Buckets: prometheus.ExponentialBuckets(1e-6, 2, 16),
		}),
		RestingOrders: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vidar_resting_orders",
			Help: "Resting orders on the book, by side",
		}, []string{"side"}),
		BookDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vidar_book_depth_levels",
			Help: "Price levels on the book, by side",
		}, []string{"side"}),
		Spread: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vidar_spread",
			Help: "Best ask minus best bid, unscaled from fixed-point",
		}),
	}

	c.registry.MustRegister(
		c.OrdersTotal,
		c.CancelsTotal,
		c.TradesTotal,
		c.TradeVolume,
		c.MatchLatency,
		c.RestingOrders,
		c.BookDepth,
		c.Spread,
	)
	return c
}

// ObserveMatch records one applied order command.
func (c *Collector) ObserveMatch(side string, trades int, executed uint64, elapsed time.Duration) {
	c.OrdersTotal.WithLabelValues(side).Inc()
	c.TradesTotal.Add(float64(trades))
	c.TradeVolume.Add(Unscale(executed))
	c.MatchLatency.Observe(elapsed.Seconds())
}

// SetBookState refreshes the book gauges.
func (c *Collector) SetBookState(bidOrders, askOrders uint64, bidLevels, askLevels int, spread uint64, haveSpread bool) {
	c.RestingOrders.WithLabelValues("buy").Set(float64(bidOrders))
	c.RestingOrders.WithLabelValues("sell").Set(float64(askOrders))
	c.BookDepth.WithLabelValues("buy").Set(float64(bidLevels))
	c.BookDepth.WithLabelValues("sell").Set(float64(askLevels))
	if haveSpread {
		c.Spread.Set(Unscale(spread))
	} else {
		c.Spread.Set(0)
	}
}

// Unscale converts a fixed-point value to a float for gauge export. Metrics
// are observational only; the engine never consumes this.
func Unscale(v uint64) float64 {
	return float64(v) / float64(fixed.Scale)
}

// Handler returns the scrape handler for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve blocks serving /metrics on addr.
func (c *Collector) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	return http.ListenAndServe(addr, mux)
}
