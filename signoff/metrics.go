package signoff

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts sign-offs. A nil *Metrics records nothing.
type Metrics struct {
	signoffs *prometheus.CounterVec
	gated    prometheus.Counter
}

// NewMetrics creates sign-off metrics and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		signoffs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semreport",
			Subsystem: "signoff",
			Name:      "blocks_total",
			Help:      "Sign-off blocks recorded, by status and QA outcome.",
		}, []string{"status", "passed"}),
		gated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "semreport",
			Subsystem: "signoff",
			Name:      "gate_rejections_total",
			Help:      "Final sign-offs refused because QA failed.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.signoffs, m.gated)
	}
	return m
}

func (m *Metrics) recorded(b *Block) {
	if m == nil {
		return
	}
	m.signoffs.WithLabelValues(string(b.Status), strconv.FormatBool(b.Passed)).Inc()
}

func (m *Metrics) rejected() {
	if m == nil {
		return
	}
	m.gated.Inc()
}
