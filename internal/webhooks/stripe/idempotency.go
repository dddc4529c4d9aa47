package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultEventTTL covers Stripe's three day redelivery window.
const DefaultEventTTL = 72 * time.Hour

var errEventIDRequired = errors.New("event id is required")

type eventStore interface {
	SetNX(context.Context, string, any, time.Duration) (bool, error)
	Del(context.Context, ...string) error
	WebhookEventKey(source, eventID string) string
}

// IdempotencyGuard remembers delivered event ids per webhook source so a
// redelivery is acknowledged without being applied twice.
type IdempotencyGuard struct {
	store  eventStore
	ttl    time.Duration
	source string
	now    func() time.Time
}

// NewIdempotencyGuard uses DefaultEventTTL when ttl is zero.
func NewIdempotencyGuard(store eventStore, ttl time.Duration, source string) (*IdempotencyGuard, error) {
	source = strings.TrimSpace(source)
	switch {
	case store == nil:
		return nil, errors.New("event store is required")
	case ttl < 0:
		return nil, errors.New("event ttl must not be negative")
	case source == "":
		return nil, errors.New("webhook source is required")
	}
	if ttl == 0 {
		ttl = DefaultEventTTL
	}
	return &IdempotencyGuard{store: store, ttl: ttl, source: source, now: time.Now}, nil
}

func (g *IdempotencyGuard) key(eventID string) (string, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return "", errEventIDRequired
	}
	return g.store.WebhookEventKey(g.source, eventID), nil
}

// CheckAndMark claims eventID and returns true when an earlier delivery
// already holds the claim. The stored value is the receipt time.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	key, err := g.key(eventID)
	if err != nil {
		return false, err
	}
	claimed, err := g.store.SetNX(ctx, key, g.now().UTC().Format(time.RFC3339), g.ttl)
	if err != nil {
		return false, fmt.Errorf("claim %s event %s: %w", g.source, eventID, err)
	}
	return !claimed, nil
}

// Delete drops the claim after a failed delivery so Stripe's retry is applied.
func (g *IdempotencyGuard) Delete(ctx context.Context, eventID string) error {
	key, err := g.key(eventID)
	if err != nil {
		return err
	}
	if err := g.store.Del(ctx, key); err != nil {
		return fmt.Errorf("release %s event %s: %w", g.source, eventID, err)
	}
	return nil
}
