package llm

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records LLM request attempts. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	attempts *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewMetrics creates LLM metrics and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semreport",
			Subsystem: "llm",
			Name:      "request_attempts_total",
			Help:      "LLM HTTP attempts by provider and outcome.",
		}, []string{"provider", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "semreport",
			Subsystem: "llm",
			Name:      "request_duration_seconds",
			Help:      "Latency of single LLM HTTP attempts.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"provider"}),
	}
	if reg != nil {
		reg.MustRegister(m.attempts, m.latency)
	}
	return m
}

// observe records one attempt against provider.
func (m *Metrics) observe(provider string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(provider, outcomeOf(err)).Inc()
	m.latency.WithLabelValues(provider).Observe(elapsed.Seconds())
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case IsTransient(err):
		return "transient"
	case IsFatal(err):
		return "fatal"
	default:
		return "error"
	}
}
