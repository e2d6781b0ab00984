// Package telemetry collects the kernel-level Prometheus metrics every
// venue adapter emits through the shared REST/WS transport, plus a
// zerolog logger configured the way the rest of this module logs.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RESTRequestsTotal counts outbound REST calls per venue, method and
	// outcome.
	RESTRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xconnect_rest_requests_total",
			Help: "Total number of REST requests issued by venue adapters",
		},
		[]string{"venue", "method", "status"},
	)

	// RESTRequestDuration tracks REST round-trip latency per venue.
	RESTRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "xconnect_rest_request_duration_seconds",
			Help:    "REST request duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		},
		[]string{"venue", "method"},
	)

	// RESTRetriesTotal counts retry attempts made by the kernel's retry
	// policy, per venue.
	RESTRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xconnect_rest_retries_total",
			Help: "Total number of REST request retries",
		},
		[]string{"venue"},
	)

	// WSConnectionsTotal counts WS connect attempts per venue and outcome.
	WSConnectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xconnect_ws_connections_total",
			Help: "Total number of WebSocket connection attempts",
		},
		[]string{"venue", "status"},
	)

	// WSActiveConnections tracks currently-open WS sessions per venue.
	WSActiveConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "xconnect_ws_active_connections",
			Help: "Number of currently active WebSocket connections",
		},
		[]string{"venue"},
	)

	// WSReconnectsTotal counts reconnect attempts triggered by the
	// reconnecting session wrapper.
	WSReconnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xconnect_ws_reconnects_total",
			Help: "Total number of WebSocket reconnect attempts",
		},
		[]string{"venue"},
	)

	// WSMessagesTotal counts decoded WS messages delivered to subscribers.
	WSMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xconnect_ws_messages_total",
			Help: "Total number of WebSocket messages decoded and delivered",
		},
		[]string{"venue", "event_type"},
	)

	// MarketDataLag tracks the delay between an event's venue timestamp
	// and local receipt time.
	MarketDataLag = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "xconnect_market_data_lag_seconds",
			Help: "Lag between exchange event time and local receipt time",
		},
		[]string{"venue", "symbol"},
	)
)

// RecordMarketDataLagMS records the lag, in milliseconds, between an
// event's venue timestamp and now. Values outside [0, 60s) are dropped as
// clock-skew noise rather than skewing the gauge.
func RecordMarketDataLagMS(venue, symbol string, eventTimeMS, nowMS int64) {
	lag := float64(nowMS-eventTimeMS) / 1000.0
	if lag >= 0 && lag < 60 {
		MarketDataLag.WithLabelValues(venue, symbol).Set(lag)
	}
}
