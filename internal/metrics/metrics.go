package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service counters. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	remindersFired *prometheus.CounterVec
	aiRequests     *prometheus.CounterVec
	streamDeltas   prometheus.Counter
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	return MustNew(reg, reg)
}

// MustNew registers the collectors on reg and panics on conflicts, like the
// promauto helpers. g serves /metrics and may be nil when not exposed.
func MustNew(reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	m := &Metrics{
		gatherer: g,
		remindersFired: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kmares",
				Name:      "reminders_fired_total",
				Help:      "Study reminders delivered, by delivery outcome.",
			},
			[]string{"status"},
		),
		aiRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kmares",
				Name:      "ai_requests_total",
				Help:      "Assistant proxy requests by request type and HTTP status.",
			},
			[]string{"type", "status"},
		),
		streamDeltas: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "kmares",
				Name:      "stream_deltas_total",
				Help:      "Text deltas observed in relayed chat streams.",
			},
		),
	}
	reg.MustRegister(m.remindersFired, m.aiRequests, m.streamDeltas)
	return m
}

func (m *Metrics) ReminderFired(err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.remindersFired.WithLabelValues(status).Inc()
}

func (m *Metrics) AIRequest(reqType, status string) {
	if m == nil {
		return
	}
	if reqType == "" {
		reqType = "unknown"
	}
	m.aiRequests.WithLabelValues(reqType, status).Inc()
}

func (m *Metrics) StreamDeltas(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.streamDeltas.Add(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
