// Package metrics exposes Prometheus instrumentation for the live
// tracking core: session and viewer population, broadcast throughput,
// and dead-connection evictions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "live_active_sessions",
			Help: "Number of currently active live tracking sessions",
		},
	)

	ConnectedViewers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "live_connected_viewers",
			Help: "Number of currently connected viewer websocket connections",
		},
	)

	LocationUpdatesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "live_location_updates_total",
			Help: "Total number of location updates pushed by owners",
		},
	)

	BroadcastDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "live_broadcast_deliveries_total",
			Help: "Total number of events enqueued to viewer connections",
		},
		[]string{"event"},
	)

	EvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "live_connection_evictions_total",
			Help: "Total number of viewer connections evicted after delivery failure",
		},
	)
)
