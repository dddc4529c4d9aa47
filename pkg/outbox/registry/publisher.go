package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/easelhouse/paintsip-backend/pkg/config"
	"github.com/easelhouse/paintsip-backend/pkg/db/models"
	"github.com/easelhouse/paintsip-backend/pkg/enums"
	"github.com/easelhouse/paintsip-backend/pkg/outbox"
	"github.com/easelhouse/paintsip-backend/pkg/outbox/payloads"
)

// EventDescriptor says where an event type is published and how its data decodes.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

// ResolvedEvent is an outbox row that passed validation, with its typed payload.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError marks a row that will never publish; the dispatcher
// dead-letters it instead of backing off.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func terminal(format string, args ...any) error {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}

// route groups the event types one aggregate emits onto one topic.
type route struct {
	aggregate enums.OutboxAggregateType
	topic     string
	payload   func() any
	events    []enums.OutboxEventType
}

// NewEventRegistry routes booking lifecycle events to the bookings topic and
// host account changes to the accounts topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	routes := []route{
		{
			aggregate: enums.AggregateBooking,
			topic:     strings.TrimSpace(cfg.BookingsTopic),
			payload:   func() any { return &payloads.BookingEvent{} },
			events: []enums.OutboxEventType{
				enums.EventBookingCreated,
				enums.EventBookingPaid,
				enums.EventBookingCanceled,
				enums.EventBookingRefunded,
			},
		},
		{
			aggregate: enums.AggregateHostAccount,
			topic:     strings.TrimSpace(cfg.AccountsTopic),
			payload:   func() any { return &payloads.HostAccountStatusChangedEvent{} },
			events:    []enums.OutboxEventType{enums.EventHostAccountStatusChanged},
		},
	}

	reg := &EventRegistry{entries: map[enums.OutboxEventType]EventDescriptor{}}
	for _, rt := range routes {
		if rt.topic == "" {
			return nil, fmt.Errorf("%s topic is required", rt.aggregate)
		}
		for _, eventType := range rt.events {
			reg.entries[eventType] = EventDescriptor{
				EventType:      eventType,
				AggregateType:  rt.aggregate,
				Topic:          rt.topic,
				PayloadFactory: rt.payload,
			}
		}
	}
	return reg, nil
}

// Topics lists the distinct destination topics, sorted.
func (r *EventRegistry) Topics() []string {
	seen := map[string]bool{}
	out := []string{}
	for _, desc := range r.entries {
		if !seen[desc.Topic] {
			seen[desc.Topic] = true
			out = append(out, desc.Topic)
		}
	}
	sort.Strings(out)
	return out
}

// Resolve checks the row against its descriptor and decodes the envelope
// data. Every failure here is terminal.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return nil, terminal("unsupported event type %s", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return nil, terminal("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, terminal("missing aggregate_id")
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, terminal("decode envelope: %w", err)
	}
	data := bytes.TrimSpace(envelope.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, terminal("payload missing for %s", event.EventType)
	}
	payload := desc.PayloadFactory()
	if err := json.Unmarshal(data, payload); err != nil {
		return nil, terminal("decode %s payload: %w", event.EventType, err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
