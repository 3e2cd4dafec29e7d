package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts facade outcomes per operation.
type Metrics struct {
	attempts *prometheus.CounterVec
}

// NewMetrics registers facade metrics on reg. A nil Metrics is valid and
// records nothing, which keeps tests free of registry plumbing.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		attempts: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "carelink",
				Subsystem: "auth",
				Name:      "attempts_total",
				Help:      "Authentication facade operations by operation and outcome.",
			},
			[]string{"operation", "outcome"},
		),
	}
}

func (m *Metrics) observe(operation, outcome string) {
	if m == nil || m.attempts == nil {
		return
	}
	m.attempts.WithLabelValues(operation, outcome).Inc()
}
