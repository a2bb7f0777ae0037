package resume

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts submission outcomes. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	submissions *prometheus.CounterVec
	duration    prometheus.Histogram
}

// NewMetrics registers the resume collectors with reg, falling back to the
// default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portfolio",
			Subsystem: "resume",
			Name:      "submissions_total",
			Help:      "Resume requests by outcome",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "portfolio",
			Subsystem: "resume",
			Name:      "submit_duration_seconds",
			Help:      "Latency of the resume backend call",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissions, m.duration)
	return m
}

func (m *Metrics) observe(failed bool, seconds float64) {
	if m == nil {
		return
	}
	outcome := "success"
	if failed {
		outcome = "failure"
	}
	m.submissions.WithLabelValues(outcome).Inc()
	m.duration.Observe(seconds)
}

func (m *Metrics) rejected(reason string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(reason).Inc()
}
