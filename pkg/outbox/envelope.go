package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const envelopeVersion = 1

// ActorRef names who caused an event. Guest, webhook and cron events have
// no user id.
type ActorRef struct {
	UserID *uuid.UUID `json:"userId,omitempty"`
	Source string     `json:"source"`
}

const (
	ActorSourceHost    = "host"
	ActorSourceGuest   = "guest"
	ActorSourceWebhook = "stripe_webhook"
	ActorSourceCron    = "cron"
)

func SystemActor(source string) *ActorRef {
	return &ActorRef{Source: source}
}

// PayloadEnvelope is the JSON stored in outbox_events.payload and published
// verbatim as the Pub/Sub message body. Consumers switch on Version.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// newEnvelope marshals data under a fresh event id.
func newEnvelope(data any, occurredAt time.Time, actor *ActorRef) (PayloadEnvelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return PayloadEnvelope{}, fmt.Errorf("encode event data: %w", err)
	}
	return PayloadEnvelope{
		Version:    envelopeVersion,
		EventID:    uuid.NewString(),
		OccurredAt: occurredAt,
		Actor:      actor,
		Data:       raw,
	}, nil
}
