package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/easelhouse/paintsip-backend/pkg/config"
	"github.com/easelhouse/paintsip-backend/pkg/db"
	"github.com/easelhouse/paintsip-backend/pkg/db/dbtest"
	"github.com/easelhouse/paintsip-backend/pkg/db/models"
	"github.com/easelhouse/paintsip-backend/pkg/enums"
	"github.com/easelhouse/paintsip-backend/pkg/logger"
	"github.com/easelhouse/paintsip-backend/pkg/outbox"
	"github.com/easelhouse/paintsip-backend/pkg/outbox/payloads"
	"github.com/easelhouse/paintsip-backend/pkg/outbox/registry"
)

var testTopics = config.PubSubConfig{BookingsTopic: "bookings-topic", AccountsTopic: "accounts-topic"}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard})
}

func newTestDispatcher(t *testing.T, repo outboxRepository, topic Topic, reg resolver, dlq dlqRepository, cfg config.OutboxConfig) *Dispatcher {
	t.Helper()
	if reg == nil {
		r, err := registry.NewEventRegistry(testTopics)
		if err != nil {
			t.Fatalf("registry: %v", err)
		}
		reg = r
	}
	d, err := New(Params{
		Config:     cfg,
		Logger:     testLogger(),
		DB:         passthroughTx{},
		Repository: repo,
		DLQ:        dlq,
		Registry:   reg,
		Topics: func(string) Topic {
			if topic == nil {
				return nil
			}
			return topic
		},
	})
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	return d
}

func bookingRow(t *testing.T, attempts int) models.OutboxEvent {
	t.Helper()
	data, err := json.Marshal(payloads.BookingEvent{BookingID: uuid.New(), EventID: uuid.New(), Status: enums.BookingStatusPaid, Quantity: 2})
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	payload, err := json.Marshal(outbox.PayloadEnvelope{Version: 1, EventID: uuid.NewString(), OccurredAt: time.Now(), Data: data})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventBookingPaid,
		AggregateType: enums.AggregateBooking,
		AggregateID:   uuid.New(),
		Payload:       payload,
		AttemptCount:  attempts,
	}
}

func TestProcessBatchContinuesAfterFailure(t *testing.T) {
	repo := &fakeRepo{events: []models.OutboxEvent{bookingRow(t, 0), bookingRow(t, 0)}}
	topic := &fakeTopic{errs: []error{errors.New("transient"), nil}}
	d := newTestDispatcher(t, repo, topic, nil, &fakeDLQRepo{}, config.OutboxConfig{MaxAttempts: 5})

	processed, err := d.ProcessBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if !processed {
		t.Fatal("expected batch to report processed")
	}
	if len(repo.failed) != 1 || repo.failed[0] != repo.events[0].ID {
		t.Fatalf("unexpected failed rows %v", repo.failed)
	}
	if len(repo.published) != 1 || repo.published[0] != repo.events[1].ID {
		t.Fatalf("unexpected published rows %v", repo.published)
	}
	msg := topic.sent[1]
	if msg.Attributes["event_type"] != string(enums.EventBookingPaid) || msg.Attributes["aggregate_type"] != "booking" {
		t.Fatalf("unexpected attributes %v", msg.Attributes)
	}
	if !bytes.Equal(msg.Data, repo.events[1].Payload) {
		t.Fatal("message data should be the stored envelope")
	}
}

func TestProcessBatchDeadLettersUnknownTypes(t *testing.T) {
	row := bookingRow(t, 0)
	row.EventType = "order_created"
	repo := &fakeRepo{events: []models.OutboxEvent{row}}
	dlq := &fakeDLQRepo{}
	d := newTestDispatcher(t, repo, &fakeTopic{}, nil, dlq, config.OutboxConfig{})

	if _, err := d.ProcessBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if len(dlq.entries) != 1 {
		t.Fatalf("expected dlq entry, got %d", len(dlq.entries))
	}
	entry := dlq.entries[0]
	if entry.EventID != row.ID || entry.ErrorReason != enums.OutboxDLQReasonUnresolvable {
		t.Fatalf("unexpected dlq entry %+v", entry)
	}
	if !bytes.Equal(entry.Payload, row.Payload) {
		t.Fatal("dlq payload mismatch")
	}
	if repo.terminal[0] != row.ID {
		t.Fatal("expected row pinned as terminal")
	}
}

func TestProcessBatchDeadLettersAtMaxAttempts(t *testing.T) {
	row := bookingRow(t, 1)
	repo := &fakeRepo{events: []models.OutboxEvent{row}}
	dlq := &fakeDLQRepo{}
	topic := &fakeTopic{errs: []error{errors.New("transient")}}
	d := newTestDispatcher(t, repo, topic, nil, dlq, config.OutboxConfig{MaxAttempts: 2})

	if _, err := d.ProcessBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if len(dlq.entries) != 1 || dlq.entries[0].ErrorReason != enums.OutboxDLQReasonMaxAttempts {
		t.Fatalf("expected max attempts dlq entry, got %+v", dlq.entries)
	}
	if len(repo.failed) != 0 {
		t.Fatal("terminal rows are not marked failed")
	}
}

func TestProcessBatchMissingTopicIsTerminal(t *testing.T) {
	repo := &fakeRepo{events: []models.OutboxEvent{bookingRow(t, 0)}}
	dlq := &fakeDLQRepo{}
	d := newTestDispatcher(t, repo, nil, nil, dlq, config.OutboxConfig{})

	if _, err := d.ProcessBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if len(dlq.entries) != 1 || dlq.entries[0].ErrorReason != enums.OutboxDLQReasonNoTopic {
		t.Fatalf("expected no_topic dlq entry, got %+v", dlq.entries)
	}
}

func TestProcessBatchEmpty(t *testing.T) {
	d := newTestDispatcher(t, &fakeRepo{}, &fakeTopic{}, nil, &fakeDLQRepo{}, config.OutboxConfig{})
	processed, err := d.ProcessBatch(context.Background())
	if err != nil || processed {
		t.Fatalf("expected idle batch, got %v %v", processed, err)
	}
}

func TestProcessBatchAgainstDatabase(t *testing.T) {
	conn := dbtest.Open(t)
	client := db.NewFromConn(conn)
	emitter := outbox.NewService(outbox.NewRepository(conn), nil)
	ctx := context.Background()

	bookingID := uuid.New()
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookingCreated,
			AggregateType: enums.AggregateBooking,
			AggregateID:   bookingID,
			Data:          payloads.BookingEvent{BookingID: bookingID, Status: enums.BookingStatusPending, Quantity: 1},
		})
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	reg, err := registry.NewEventRegistry(testTopics)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	topic := &fakeTopic{}
	d, err := New(Params{
		Logger:     testLogger(),
		DB:         client,
		Repository: outbox.NewRepository(conn),
		DLQ:        outbox.NewDLQRepository(conn),
		Registry:   reg,
		Topics: func(name string) Topic {
			if name != "bookings-topic" {
				t.Fatalf("unexpected topic %s", name)
			}
			return topic
		},
	})
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	if processed, err := d.ProcessBatch(ctx); err != nil || !processed {
		t.Fatalf("first batch: %v %v", processed, err)
	}
	if processed, err := d.ProcessBatch(ctx); err != nil || processed {
		t.Fatalf("published rows must not be fetched again: %v %v", processed, err)
	}
	if len(topic.sent) != 1 || topic.sent[0].Attributes["aggregate_id"] != bookingID.String() {
		t.Fatalf("unexpected messages %+v", topic.sent)
	}
}

func TestNextBackoff(t *testing.T) {
	base := 500 * time.Millisecond
	if got := nextBackoff(0, base, maxBackoff); got != time.Second {
		t.Fatalf("expected 1s, got %s", got)
	}
	if got := nextBackoff(8*time.Second, base, maxBackoff); got != maxBackoff {
		t.Fatalf("expected cap, got %s", got)
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := New(Params{Logger: testLogger()}); err == nil {
		t.Fatal("expected error")
	}
}

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(*gorm.DB) error) error {
	return fn(nil)
}

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
}

func (f *fakeRepo) FetchUnpublishedForPublish(*gorm.DB, int, int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, _ int) error {
	f.terminal = append(f.terminal, id)
	return nil
}

type fakeDLQRepo struct {
	entries []models.OutboxDLQ
}

func (f *fakeDLQRepo) InsertTx(_ *gorm.DB, entry models.OutboxDLQ) error {
	f.entries = append(f.entries, entry)
	return nil
}

type fakeTopic struct {
	errs []error
	sent []*gcppubsub.Message
}

func (f *fakeTopic) Publish(_ context.Context, msg *gcppubsub.Message) (string, error) {
	f.sent = append(f.sent, msg)
	if len(f.errs) == 0 {
		return "msg-id", nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return "msg-id", err
}
