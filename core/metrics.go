package core

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AuthMetrics holds the Prometheus collectors for the auth flow and hash pool.
// A nil *AuthMetrics is valid and records nothing.
type AuthMetrics struct {
	attempts *prometheus.CounterVec
	hashTime *prometheus.HistogramVec
}

// NewAuthMetrics registers the collectors on reg.
func NewAuthMetrics(reg prometheus.Registerer) *AuthMetrics {
	m := &AuthMetrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "todo",
			Subsystem: "auth",
			Name:      "attempts_total",
			Help:      "Authentication operations by kind and outcome.",
		}, []string{"op", "result"}),
		hashTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "todo",
			Subsystem: "hashpool",
			Name:      "job_duration_seconds",
			Help:      "Time spent deriving password credentials.",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"kind"}),
	}
	reg.MustRegister(m.attempts, m.hashTime)
	return m
}

func (m *AuthMetrics) record(op, result string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(op, result).Inc()
}

func (m *AuthMetrics) observeHash(kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.hashTime.WithLabelValues(kind).Observe(d.Seconds())
}
