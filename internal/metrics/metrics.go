package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bearboo_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bearboo_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Realtime store
	StoreConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bearboo_store_connections",
			Help: "Open realtime store websocket connections",
		},
	)

	StoreWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bearboo_store_writes_total",
			Help: "Realtime store writes",
		},
		[]string{"op", "collection"},
	)

	StoreSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bearboo_store_subscriptions",
			Help: "Active snapshot subscriptions",
		},
	)

	DisconnectCleanups = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bearboo_store_disconnect_cleanups_total",
			Help: "On-disconnect writes executed",
		},
	)

	PresenceSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bearboo_presence_swept_total",
			Help: "Stale presence records reset by the sweeper",
		},
	)

	RateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bearboo_store_rate_limit_hits_total",
			Help: "Writes rejected by the per-connection limiter",
		},
	)

	// Relay
	RelayClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bearboo_relay_clients",
			Help: "Connected broadcast relay clients",
		},
	)

	RelayBroadcasts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bearboo_relay_broadcasts_total",
			Help: "Frames forwarded by the broadcast relay",
		},
	)

	// Auth
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bearboo_auth_attempts_total",
			Help: "Login and registration attempts",
		},
		[]string{"op", "outcome"},
	)
)
