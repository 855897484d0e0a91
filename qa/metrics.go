package qa

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records QA pass outcomes. A nil *Metrics records nothing.
type Metrics struct {
	runs      *prometheus.CounterVec
	duration  prometheus.Histogram
	defaulted *prometheus.CounterVec
}

// NewMetrics creates QA metrics and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semreport",
			Subsystem: "qa",
			Name:      "runs_total",
			Help:      "QA passes by outcome (passed, failed, or the service error kind).",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "semreport",
			Subsystem: "qa",
			Name:      "run_duration_seconds",
			Help:      "Wall time of QA passes including retries.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 240},
		}),
		defaulted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semreport",
			Subsystem: "qa",
			Name:      "defaulted_checks_total",
			Help:      "Checks omitted by the reasoning service and assumed to pass.",
		}, []string{"check"}),
	}
	if reg != nil {
		reg.MustRegister(m.runs, m.duration, m.defaulted)
	}
	return m
}

func (m *Metrics) record(result *CheckResult, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.duration.Observe(elapsed.Seconds())

	var se *ServiceError
	if errors.As(err, &se) {
		m.runs.WithLabelValues(string(se.Kind)).Inc()
		return
	}
	if err != nil {
		m.runs.WithLabelValues("error").Inc()
		return
	}
	if result.Passed {
		m.runs.WithLabelValues("passed").Inc()
	} else {
		m.runs.WithLabelValues("failed").Inc()
	}
	for _, name := range result.DefaultedChecks {
		m.defaulted.WithLabelValues(name).Inc()
	}
}
