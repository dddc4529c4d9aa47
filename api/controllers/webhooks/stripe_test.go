package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	stripewebhook "github.com/easelhouse/paintsip-backend/internal/webhooks/stripe"
)

const testSecret = "whsec_test"

func newHandler(t *testing.T, svc StripeWebhookService, metrics *recordingMetrics) http.HandlerFunc {
	t.Helper()
	guard, err := stripewebhook.NewIdempotencyGuard(newInMemoryStore(), time.Minute, "stripe-webhook")
	if err != nil {
		t.Fatalf("guard setup: %v", err)
	}
	params := StripeWebhookParams{
		Endpoint: EndpointPlatform,
		Service:  svc,
		Secret:   func() string { return testSecret },
		Guard:    guard,
	}
	if metrics != nil {
		params.Metrics = metrics
	}
	return StripeWebhook(params)
}

func post(handler http.Handler, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestStripeWebhook_SuccessAndIdempotent(t *testing.T) {
	payload, header := buildSignedEvent(t, stripe.EventTypeCheckoutSessionCompleted)
	service := &fakeStripeWebhookService{}
	metrics := &recordingMetrics{}
	handler := newHandler(t, service, metrics)

	rec := post(handler, payload, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var body struct {
		Data struct {
			Received bool `json:"received"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || !body.Data.Received {
		t.Fatalf("expected received true, got %s", rec.Body.String())
	}

	rec2 := post(handler, payload, header)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200 on duplicate, got %d (%s)", rec2.Code, rec2.Body.String())
	}
	if service.calls != 1 {
		t.Fatalf("expected duplicate not processed, call count %d", service.calls)
	}
	want := []string{
		"platform|checkout.session.completed|processed",
		"platform|checkout.session.completed|duplicate",
	}
	if fmt.Sprint(metrics.events) != fmt.Sprint(want) {
		t.Fatalf("unexpected metrics %v", metrics.events)
	}
}

func TestStripeWebhook_UnrecognizedTypeAcknowledged(t *testing.T) {
	payload, header := buildSignedEvent(t, stripe.EventTypeCustomerCreated)
	rec := post(newHandler(t, &fakeStripeWebhookService{}, nil), payload, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestStripeWebhook_SignatureFailures(t *testing.T) {
	payload, _ := buildSignedEvent(t, stripe.EventTypeCheckoutSessionCompleted)
	service := &fakeStripeWebhookService{}
	handler := newHandler(t, service, nil)

	cases := map[string]string{
		"missing":      "",
		"invalid":      "t=1,v1=invalid",
		"wrong secret": buildStripeSignatureHeader(payload, "whsec_other", time.Now().Unix()),
	}
	for name, sig := range cases {
		rec := post(handler, payload, sig)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", name, rec.Code)
		}
	}
	if service.calls != 0 {
		t.Fatalf("service should not be invoked on signature failure")
	}
}

func TestStripeWebhook_FailureReleasesEventForRetry(t *testing.T) {
	payload, header := buildSignedEvent(t, stripe.EventTypeChargeRefunded)
	service := &fakeStripeWebhookService{failures: 1}
	handler := newHandler(t, service, nil)

	if rec := post(handler, payload, header); rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 on handler failure, got %d", rec.Code)
	}
	if rec := post(handler, payload, header); rec.Code != http.StatusOK {
		t.Fatalf("expected retry to succeed, got %d", rec.Code)
	}
	if service.calls != 2 {
		t.Fatalf("expected retry to reach the service, calls %d", service.calls)
	}
}

func TestStripeWebhook_MissingSecret(t *testing.T) {
	guard, _ := stripewebhook.NewIdempotencyGuard(newInMemoryStore(), time.Minute, "stripe-webhook")
	handler := StripeWebhook(StripeWebhookParams{
		Endpoint: EndpointConnect,
		Service:  &fakeStripeWebhookService{},
		Secret:   func() string { return "" },
		Guard:    guard,
	})
	payload, header := buildSignedEvent(t, stripe.EventTypeAccountUpdated)
	if rec := post(handler, payload, header); rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 without secret, got %d", rec.Code)
	}
}

func buildSignedEvent(t *testing.T, eventType stripe.EventType) ([]byte, string) {
	t.Helper()
	session := &stripe.CheckoutSession{
		ID:            "cs_test_" + uuid.NewString(),
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		Metadata:      map[string]string{"booking_id": uuid.NewString()},
	}
	raw, err := json.Marshal(session)
	if err != nil {
		t.Fatalf("marshal session: %v", err)
	}
	event := &stripe.Event{
		ID:         "evt_" + uuid.NewString(),
		Type:       eventType,
		Object:     "event",
		APIVersion: stripe.APIVersion,
		Data:       &stripe.EventData{Raw: raw},
	}
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return payload, buildStripeSignatureHeader(payload, testSecret, time.Now().Unix())
}

func buildStripeSignatureHeader(payload []byte, secret string, ts int64) string {
	signedPayload := fmt.Sprintf("%d.%s", ts, payload)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signedPayload))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

type fakeStripeWebhookService struct {
	calls    int
	failures int
}

func (f *fakeStripeWebhookService) HandleEvent(ctx context.Context, event *stripe.Event) error {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return errors.New("database unavailable")
	}
	return nil
}

type recordingMetrics struct {
	events []string
}

func (m *recordingMetrics) IncWebhook(endpoint, eventType, outcome string) {
	if m == nil {
		return
	}
	m.events = append(m.events, endpoint+"|"+eventType+"|"+outcome)
}

type inMemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newInMemoryStore() *inMemoryStore {
	return &inMemoryStore{data: make(map[string]string)}
}

func (s *inMemoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[key]; exists {
		return false, nil
	}
	s.data[key] = fmt.Sprintf("%v", value)
	return true, nil
}

func (s *inMemoryStore) WebhookEventKey(source, eventID string) string {
	return fmt.Sprintf("ps:webhook:%s:%s", source, eventID)
}

func (s *inMemoryStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}
