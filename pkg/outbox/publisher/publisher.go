// Package publisher drains outbox_events to Pub/Sub. Rows are claimed with
// SKIP LOCKED inside a transaction, published one by one, and marked
// published, failed, or dead-lettered in that same transaction.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/easelhouse/paintsip-backend/pkg/config"
	"github.com/easelhouse/paintsip-backend/pkg/db/models"
	"github.com/easelhouse/paintsip-backend/pkg/enums"
	"github.com/easelhouse/paintsip-backend/pkg/logger"
	"github.com/easelhouse/paintsip-backend/pkg/metrics"
	"github.com/easelhouse/paintsip-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollInterval   = 500 * time.Millisecond
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, cause error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, cause error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type resolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// Topic publishes one message and returns its server id.
type Topic interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) (string, error)
}

// TopicFactory returns the Topic for a name, or nil when none is configured.
type TopicFactory func(name string) Topic

// Pinger reports whether a dependency is reachable.
type Pinger func(ctx context.Context) error

type Params struct {
	Config     config.OutboxConfig
	Logger     *logger.Logger
	DB         txRunner
	Repository outboxRepository
	DLQ        dlqRepository
	Registry   resolver
	Topics     TopicFactory
	Metrics    *metrics.OutboxMetrics
	Readiness  map[string]Pinger
}

// Dispatcher runs the publish loop.
type Dispatcher struct {
	logg         *logger.Logger
	db           txRunner
	repo         outboxRepository
	dlq          dlqRepository
	registry     resolver
	topics       TopicFactory
	metrics      *metrics.OutboxMetrics
	readiness    map[string]Pinger
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
	now          func() time.Time
	jitter       func(time.Duration) time.Duration
}

func New(params Params) (*Dispatcher, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.DLQ == nil:
		return nil, errors.New("dlq repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	case params.Topics == nil:
		return nil, errors.New("topic factory is required")
	}

	batch := params.Config.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	poll := time.Duration(params.Config.PollIntervalMS) * time.Millisecond
	if poll <= 0 {
		poll = defaultPollInterval
	}
	maxAttempts := params.Config.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Dispatcher{
		logg:         params.Logger,
		db:           params.DB,
		repo:         params.Repository,
		dlq:          params.DLQ,
		registry:     params.Registry,
		topics:       params.Topics,
		metrics:      params.Metrics,
		readiness:    params.Readiness,
		batchSize:    batch,
		maxAttempts:  maxAttempts,
		pollInterval: poll,
		now:          time.Now,
		jitter: func(d time.Duration) time.Duration {
			if d <= 0 {
				return 0
			}
			return d + time.Duration(rng.Int63n(int64(jitterWindow)))
		},
	}, nil
}

// Run polls until ctx is canceled. Empty batches wait one poll interval;
// failed batches back off exponentially up to maxBackoff.
func (d *Dispatcher) Run(ctx context.Context) error {
	for name, ping := range d.readiness {
		if err := ping(ctx); err != nil {
			d.logg.Error(d.logg.WithField(ctx, "dependency", name), "outbox dependency ping failed", err)
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}

	backoff := d.pollInterval
	for {
		if err := ctx.Err(); err != nil {
			d.logg.Info(ctx, "outbox publisher context canceled")
			return err
		}

		processed, err := d.ProcessBatch(ctx)
		if err != nil {
			d.logg.Error(ctx, "outbox publisher batch error", err)
			backoff = nextBackoff(backoff, d.pollInterval, maxBackoff)
			if err := sleep(ctx, d.jitter(backoff)); err != nil {
				return err
			}
			continue
		}
		backoff = d.pollInterval
		if processed {
			continue
		}
		if err := sleep(ctx, d.jitter(d.pollInterval)); err != nil {
			return err
		}
	}
}

// ProcessBatch claims and delivers one batch. It reports whether any rows
// were claimed.
func (d *Dispatcher) ProcessBatch(ctx context.Context) (bool, error) {
	processed := false
	err := d.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := d.repo.FetchUnpublishedForPublish(tx, d.batchSize, d.maxAttempts)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		processed = true
		d.metrics.IncBatch()
		for _, row := range rows {
			if err := d.deliver(ctx, tx, row); err != nil {
				return err
			}
		}
		return nil
	})
	return processed, err
}

// deliver publishes one row and records the outcome. Only bookkeeping
// failures are returned; publish failures are recorded on the row.
func (d *Dispatcher) deliver(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) error {
	resolved, err := d.registry.Resolve(row)
	if err != nil {
		return d.deadLetter(ctx, tx, row, enums.OutboxDLQReasonUnresolvable, err, d.rowFields(row, nil))
	}

	fields := d.rowFields(row, resolved)
	topic := d.topics(resolved.Descriptor.Topic)
	if topic == nil {
		return d.deadLetter(ctx, tx, row, enums.OutboxDLQReasonNoTopic,
			fmt.Errorf("publisher not configured for topic %s", resolved.Descriptor.Topic), fields)
	}
	pubErr := d.publish(ctx, topic, row, resolved)
	if pubErr == nil {
		if err := d.repo.MarkPublishedTx(tx, row.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", row.ID, err)
		}
		d.metrics.IncEvent(string(row.EventType), "published")
		d.logg.Info(d.logg.WithFields(ctx, fields), "outbox event published")
		return nil
	}

	var nonRetry registry.NonRetryableError
	if errors.As(pubErr, &nonRetry) {
		return d.deadLetter(ctx, tx, row, enums.OutboxDLQReasonNonRetryable, pubErr, fields)
	}

	attempt := row.AttemptCount + 1
	fields["attempt_count"] = attempt
	if attempt >= d.maxAttempts {
		return d.deadLetter(ctx, tx, row, enums.OutboxDLQReasonMaxAttempts,
			fmt.Errorf("max publish attempts reached: %w", pubErr), fields)
	}

	logCtx := d.logg.WithField(d.logg.WithFields(ctx, fields), "error", pubErr.Error())
	d.logg.Warn(logCtx, "outbox publish failed")
	if err := d.repo.MarkFailedTx(tx, row.ID, pubErr); err != nil {
		return fmt.Errorf("mark failure %s: %w", row.ID, err)
	}
	d.metrics.IncEvent(string(row.EventType), "retry")
	return nil
}

func (d *Dispatcher) deadLetter(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, fields map[string]any) error {
	fields["error_reason"] = reason
	logCtx := d.logg.WithField(d.logg.WithFields(ctx, fields), "error", cause.Error())
	d.logg.Warn(logCtx, "outbox event will not be retried")

	msg := cause.Error()
	entry := models.OutboxDLQ{
		EventID:       row.ID,
		EventType:     row.EventType,
		AggregateType: row.AggregateType,
		AggregateID:   row.AggregateID,
		Payload:       row.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  row.AttemptCount,
		FailedAt:      d.now().UTC(),
	}
	if err := d.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", row.ID, err)
	}
	if err := d.repo.MarkTerminalTx(tx, row.ID, cause, d.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", row.ID, err)
	}
	d.metrics.IncEvent(string(row.EventType), "dead_lettered")
	return nil
}

func (d *Dispatcher) publish(ctx context.Context, topic Topic, row models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	msg := &gcppubsub.Message{
		Data: row.Payload,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(row.EventType),
			"aggregate_type": string(row.AggregateType),
			"aggregate_id":   row.AggregateID.String(),
			"created_at":     row.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	_, err := topic.Publish(publishCtx, msg)
	return err
}

func (d *Dispatcher) rowFields(row models.OutboxEvent, resolved *registry.ResolvedEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      row.ID.String(),
		"event_type":     row.EventType,
		"aggregate_type": row.AggregateType,
		"aggregate_id":   row.AggregateID.String(),
		"attempt_count":  row.AttemptCount,
	}
	if resolved != nil {
		fields["topic"] = resolved.Descriptor.Topic
		if resolved.Envelope.EventID != "" {
			fields["event_id"] = resolved.Envelope.EventID
			fields["occurred_at"] = resolved.Envelope.OccurredAt.Format(time.RFC3339Nano)
		}
	}
	if row.LastError != nil {
		fields["last_error"] = *row.LastError
	}
	return fields
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, limit time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	if next := current * 2; next < limit {
		return next
	}
	return limit
}

// GCPTopics adapts a Pub/Sub client lookup to a TopicFactory. The client
// owns the publisher handles and stops them on Close.
func GCPTopics(lookup func(name string) *gcppubsub.Publisher) TopicFactory {
	return func(name string) Topic {
		if p := lookup(name); p != nil {
			return gcpTopic{p}
		}
		return nil
	}
}

type gcpTopic struct {
	p *gcppubsub.Publisher
}

func (t gcpTopic) Publish(ctx context.Context, msg *gcppubsub.Message) (string, error) {
	return t.p.Publish(ctx, msg).Get(ctx)
}
