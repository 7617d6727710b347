package authkit

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics implements MetricsRecorder on a Prometheus registry.
type PrometheusMetrics struct {
	events *prometheus.CounterVec
}

// NewPrometheusMetrics registers the auth event counter with the registry.
func NewPrometheusMetrics(registerer prometheus.Registerer) *PrometheusMetrics {
	recorder := &PrometheusMetrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ghauth_events_total",
			Help: "Auth events by kind (sign-in outcomes, sign-outs).",
		}, []string{"event"}),
	}
	registerer.MustRegister(recorder.events)
	return recorder
}

// Increment increases the counter for the given event.
func (recorder *PrometheusMetrics) Increment(event string) {
	recorder.events.WithLabelValues(event).Inc()
}
