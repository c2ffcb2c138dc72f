package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Registry = prometheus.NewRegistry()

	MessagesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pingpong",
			Name:      "messages_received_total",
			Help:      "Messages handled by the liveness monitor, by decoded kind.",
		},
		[]string{"kind"},
	)

	PongsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pingpong",
			Name:      "pongs_sent_total",
			Help:      "Acknowledgements sent in reply to pings.",
		},
	)

	SendErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pingpong",
			Name:      "send_errors_total",
			Help:      "Failed writes on the transport.",
		},
	)

	Timeouts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pingpong",
			Name:      "timeouts_total",
			Help:      "Connections closed because no message arrived in time.",
		},
	)

	LifecycleEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pingpong",
			Name:      "lifecycle_events_total",
			Help:      "Connection lifecycle events (open, close, error).",
		},
		[]string{"event"},
	)

	ReadTimeout = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pingpong",
			Name:      "read_timeout_seconds",
			Help:      "Currently configured liveness window; 0 when unset.",
		},
	)
)

func init() {
	Registry.MustRegister(MessagesReceived, PongsSent, SendErrors, Timeouts, LifecycleEvents, ReadTimeout)
}

// MetricsHandler exposes /metrics. Mount it with mux.Handle("/metrics", telemetry.MetricsHandler()).
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
