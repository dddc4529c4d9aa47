package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestOutboxMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.IncEvent("booking_paid", "published")
	m.IncEvent("booking_paid", "published")
	m.IncEvent("", "dead_lettered")
	m.IncBatch()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "paintsip_outbox_events_total", "outcome", "published"); err != nil {
		t.Fatalf("fetch published: %v", err)
	} else if got != 2 {
		t.Fatalf("expected 2 published, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "paintsip_outbox_events_total", "event_type", "unknown"); err != nil {
		t.Fatalf("fetch unknown type: %v", err)
	} else if got != 1 {
		t.Fatalf("expected 1 dead letter, got %f", got)
	}
}

func TestNilOutboxMetricsAreSafe(t *testing.T) {
	var m *OutboxMetrics
	m.IncEvent("booking_paid", "published")
	m.IncBatch()
	NewOutboxMetrics(nil).IncBatch()
}
