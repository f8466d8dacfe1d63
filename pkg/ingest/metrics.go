package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports Report counters. A nil *Metrics records nothing.
type Metrics struct {
	notifications *prometheus.CounterVec
	changes       *prometheus.CounterVec
}

// NewMetrics registers the ingest counters with registerer.
func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chainreact",
			Subsystem: "ingest",
			Name:      "notifications_total",
			Help:      "Push notifications handled, by provider and result.",
		}, []string{"provider", "result"}),
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chainreact",
			Subsystem: "ingest",
			Name:      "changes_total",
			Help:      "Changes and matches seen by the pipeline, by report category.",
		}, []string{"category"}),
	}

	for _, collector := range []prometheus.Collector{m.notifications, m.changes} {
		if err := registerer.Register(collector); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Observe adds one notification's report to the counters.
func (m *Metrics) Observe(provider string, report *Report, err error) {
	if m == nil || report == nil {
		return
	}

	result := "processed"

	switch {
	case err != nil:
		result = "error"
	case report.Handshake:
		result = "handshake"
	case report.Stale > 0:
		result = "stale"
	}

	m.notifications.WithLabelValues(provider, result).Inc()

	for category, count := range report.counts() {
		if count > 0 {
			m.changes.WithLabelValues(category).Add(float64(count))
		}
	}
}
