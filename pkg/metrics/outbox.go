package metrics

import "github.com/prometheus/client_golang/prometheus"

// OutboxMetrics tracks the publisher's delivery outcomes.
type OutboxMetrics struct {
	delivered *prometheus.CounterVec
	batches   prometheus.Counter
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	delivered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_events_total",
		Help:      "Outbox rows handled by the publisher, by event type and outcome.",
	}, []string{"event_type", "outcome"})
	batches := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_batches_total",
		Help:      "Non-empty publisher batches processed.",
	})
	reg.MustRegister(delivered, batches)
	return &OutboxMetrics{delivered: delivered, batches: batches}
}

// IncEvent counts one row outcome: "published", "retry" or "dead_lettered".
func (m *OutboxMetrics) IncEvent(eventType, outcome string) {
	if m == nil || m.delivered == nil {
		return
	}
	m.delivered.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

func (m *OutboxMetrics) IncBatch() {
	if m == nil || m.batches == nil {
		return
	}
	m.batches.Inc()
}
