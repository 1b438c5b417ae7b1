// Package metrics exposes Prometheus collectors for API traffic and history writes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the vidsum collectors
type Metrics struct {
	apiRequests *prometheus.CounterVec
	historyOps  *prometheus.CounterVec
	summaries   *prometheus.CounterVec
}

// MustNew registers the collectors with reg. A nil reg uses the default
// registerer. Registration errors panic.
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		apiRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vidsum",
				Name:      "api_requests_total",
				Help:      "Backend API requests by endpoint and outcome.",
			},
			[]string{"endpoint", "outcome"},
		),
		historyOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vidsum",
				Name:      "history_writes_total",
				Help:      "Persisted history mutations by operation.",
			},
			[]string{"op"},
		),
		summaries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vidsum",
				Name:      "summaries_generated_total",
				Help:      "Summaries generated by format.",
			},
			[]string{"format"},
		),
	}
	reg.MustRegister(m.apiRequests, m.historyOps, m.summaries)
	return m
}

// APIRequest counts one backend call. outcome is "ok", "api_error" or "transport_error".
func (m *Metrics) APIRequest(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(endpoint, outcome).Inc()
}

// HistoryWrite counts one persisted history mutation
func (m *Metrics) HistoryWrite(op string) {
	if m == nil {
		return
	}
	m.historyOps.WithLabelValues(op).Inc()
}

// SummaryGenerated counts one generated summary
func (m *Metrics) SummaryGenerated(format string) {
	if m == nil {
		return
	}
	m.summaries.WithLabelValues(format).Inc()
}
