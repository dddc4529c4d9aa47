package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "paintsip"

// BookingMetrics tracks checkout attempts and webhook-driven booking transitions.
type BookingMetrics struct {
	checkouts   *prometheus.CounterVec
	transitions *prometheus.CounterVec
	webhooks    *prometheus.CounterVec
}

// NewBookingMetrics registers the booking metrics on the provided registerer.
func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	if reg == nil {
		return &BookingMetrics{}
	}
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkout_attempts_total",
		Help:      "Checkout session requests by outcome.",
	}, []string{"outcome"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "booking_transitions_total",
		Help:      "Booking status transitions applied from provider notifications.",
	}, []string{"status", "applied"})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stripe_webhook_events_total",
		Help:      "Verified Stripe webhook events by endpoint and type.",
	}, []string{"endpoint", "type", "outcome"})
	reg.MustRegister(checkouts, transitions, webhooks)
	return &BookingMetrics{
		checkouts:   checkouts,
		transitions: transitions,
		webhooks:    webhooks,
	}
}

// IncCheckout counts one checkout attempt, e.g. "created", "rejected", "failed".
func (m *BookingMetrics) IncCheckout(outcome string) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncTransition counts a lifecycle notification; applied is false for no-ops.
func (m *BookingMetrics) IncTransition(status string, applied bool) {
	if m == nil || m.transitions == nil {
		return
	}
	label := "false"
	if applied {
		label = "true"
	}
	m.transitions.WithLabelValues(normalizeLabel(status), label).Inc()
}

// IncWebhook counts one webhook delivery after signature verification.
func (m *BookingMetrics) IncWebhook(endpoint, eventType, outcome string) {
	if m == nil || m.webhooks == nil {
		return
	}
	m.webhooks.WithLabelValues(normalizeLabel(endpoint), normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}
