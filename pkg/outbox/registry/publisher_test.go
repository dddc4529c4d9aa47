package registry

import (
	"encoding/json"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/easelhouse/paintsip-backend/pkg/config"
	"github.com/easelhouse/paintsip-backend/pkg/db/models"
	"github.com/easelhouse/paintsip-backend/pkg/enums"
	"github.com/easelhouse/paintsip-backend/pkg/outbox"
	"github.com/easelhouse/paintsip-backend/pkg/outbox/payloads"
)

func TestEventRegistryResolveBookingPaid(t *testing.T) {
	reg := newTestEventRegistry(t)

	bookingID := uuid.New()
	payloadBytes := mustMarshal(t, payloads.BookingEvent{
		BookingID:       bookingID,
		EventID:         uuid.New(),
		Status:          enums.BookingStatusPaid,
		Quantity:        2,
		AmountPaidCents: 9000,
	})

	event := models.OutboxEvent{
		EventType:     enums.EventBookingPaid,
		AggregateType: enums.AggregateBooking,
		AggregateID:   bookingID,
		Payload:       mustEnvelope(t, payloadBytes),
	}

	resolved, err := reg.Resolve(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Descriptor.Topic != "bookings-topic" {
		t.Fatalf("unexpected topic %q", resolved.Descriptor.Topic)
	}
	payload, ok := resolved.Payload.(*payloads.BookingEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", resolved.Payload)
	}
	if payload.BookingID != bookingID || payload.AmountPaidCents != 9000 {
		t.Fatalf("payload mismatch %+v", payload)
	}
	if resolved.Envelope.EventID == "" {
		t.Fatalf("envelope missing event id")
	}
}

func TestEventRegistryRoutesAccountEvents(t *testing.T) {
	reg := newTestEventRegistry(t)

	userID := uuid.New()
	event := models.OutboxEvent{
		EventType:     enums.EventHostAccountStatusChanged,
		AggregateType: enums.AggregateHostAccount,
		AggregateID:   userID,
		Payload: mustEnvelope(t, mustMarshal(t, payloads.HostAccountStatusChangedEvent{
			UserID: userID,
			Status: enums.OnboardingStatusComplete,
		})),
	}

	resolved, err := reg.Resolve(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Descriptor.Topic != "accounts-topic" {
		t.Fatalf("unexpected topic %q", resolved.Descriptor.Topic)
	}
}

func TestEventRegistryRejectsBadRows(t *testing.T) {
	reg := newTestEventRegistry(t)

	cases := map[string]models.OutboxEvent{
		"unknown type": {
			EventType:     enums.OutboxEventType("order_created"),
			AggregateType: enums.AggregateBooking,
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, []byte(`{}`)),
		},
		"aggregate mismatch": {
			EventType:     enums.EventBookingPaid,
			AggregateType: enums.AggregateHostAccount,
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, []byte(`{}`)),
		},
		"missing aggregate id": {
			EventType:     enums.EventBookingPaid,
			AggregateType: enums.AggregateBooking,
			AggregateID:   uuid.Nil,
			Payload:       mustEnvelope(t, []byte(`{}`)),
		},
		"null payload": {
			EventType:     enums.EventBookingCanceled,
			AggregateType: enums.AggregateBooking,
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, []byte("null")),
		},
		"broken envelope": {
			EventType:     enums.EventBookingCanceled,
			AggregateType: enums.AggregateBooking,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{"data":`),
		},
	}

	for name, event := range cases {
		_, err := reg.Resolve(event)
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
		var nonRetry NonRetryableError
		if !errors.As(err, &nonRetry) {
			t.Fatalf("%s: expected non-retryable error, got %T", name, err)
		}
	}
}

func TestEventRegistryTopics(t *testing.T) {
	reg := newTestEventRegistry(t)
	topics := reg.Topics()
	sort.Strings(topics)
	if len(topics) != 2 || topics[0] != "accounts-topic" || topics[1] != "bookings-topic" {
		t.Fatalf("unexpected topics %v", topics)
	}
}

func TestNewEventRegistryRequiresTopics(t *testing.T) {
	if _, err := NewEventRegistry(config.PubSubConfig{AccountsTopic: "a"}); err == nil {
		t.Fatal("expected missing bookings topic to fail")
	}
}

func newTestEventRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{
		BookingsTopic: "bookings-topic",
		AccountsTopic: "accounts-topic",
	})
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return reg
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return data
}

func mustEnvelope(t *testing.T, payload []byte) json.RawMessage {
	t.Helper()
	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       payload,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return data
}
