package search

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts controller activity.
type Metrics struct {
	Queries *prometheus.CounterVec
	Stale   prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg when it
// is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sportdesk",
			Subsystem: "search",
			Name:      "queries_total",
			Help:      "Search queries issued, by trigger.",
		}, []string{"trigger"}),
		Stale: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sportdesk",
			Subsystem: "search",
			Name:      "stale_responses_total",
			Help:      "Responses discarded because a newer query had been issued.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Queries, m.Stale)
	}
	return m
}

func (m *Metrics) query(trigger string) {
	if m == nil {
		return
	}
	m.Queries.WithLabelValues(trigger).Inc()
}

func (m *Metrics) stale() {
	if m == nil {
		return
	}
	m.Stale.Inc()
}
