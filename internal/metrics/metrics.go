package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Push channel
	PushFramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "popchat_push_frames_total",
			Help: "Inbound push frames by type",
		},
		[]string{"kind"}, // TYPING_START, TYPING_STOP, MESSAGE, READ, invalid
	)

	PushReconnectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "popchat_push_reconnects_total",
			Help: "Push connection drops followed by a reconnect attempt",
		},
	)

	PushSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "popchat_push_subscriptions",
			Help: "Active room topic subscriptions",
		},
	)

	// Chat
	MessagesSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "popchat_messages_sent_total",
			Help: "Messages published to the send destination",
		},
		[]string{"type"},
	)

	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "popchat_uploads_total",
			Help: "Image upload attempts by result",
		},
		[]string{"result"}, // ok, failed
	)

	// Backend REST
	BackendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "popchat_backend_requests_total",
			Help: "Backend REST requests",
		},
		[]string{"method", "status"},
	)

	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "popchat_backend_request_duration_seconds",
			Help:    "Backend REST request duration",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method"},
	)

	// Daemon API
	RPCTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "popchat_rpc_total",
			Help: "Daemon gRPC calls by method and code",
		},
		[]string{"method", "code"},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
