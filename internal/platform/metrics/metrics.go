package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the portal's Prometheus collectors.
type Metrics struct {
	Verifications   *prometheus.CounterVec
	SessionChecks   *prometheus.CounterVec
	SessionEvents   *prometheus.CounterVec
	LoginAttempts   *prometheus.CounterVec
	EndpointLatency *prometheus.HistogramVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Verifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "certportal_verifications_total",
			Help: "Verification form submissions, labeled by outcome",
		}, []string{"outcome"}),
		SessionChecks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "certportal_session_checks_total",
			Help: "Session guard checks, labeled by result",
		}, []string{"result"}),
		SessionEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "certportal_session_events_total",
			Help: "Session-change events delivered to local subscribers, labeled by kind",
		}, []string{"kind"}),
		LoginAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "certportal_login_attempts_total",
			Help: "Admin login attempts, labeled by result",
		}, []string{"result"}),
		EndpointLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "certportal_endpoint_latency_seconds",
			Help:    "Latency of endpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// NewNop returns collectors registered on a throwaway registry.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
