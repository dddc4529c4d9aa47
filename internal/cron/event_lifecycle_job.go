package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/easelhouse/paintsip-backend/pkg/logger"
)

type EventLifecycleJobParams struct {
	Logger *logger.Logger
	Events eventEnder
}

// NewEventLifecycleJob builds the job that closes out published events once
// they are over.
func NewEventLifecycleJob(params EventLifecycleJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("events repository required")
	}
	return &eventLifecycleJob{logg: params.Logger, events: params.Events, now: time.Now}, nil
}

type eventLifecycleJob struct {
	logg   *logger.Logger
	events eventEnder
	now    func() time.Time
}

func (j *eventLifecycleJob) Name() string { return "event-lifecycle" }

func (j *eventLifecycleJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	ended, err := j.events.EndElapsed(ctx, now)
	if err != nil {
		return fmt.Errorf("end elapsed events: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"now":          now,
		"events_ended": ended,
	}), "event lifecycle sweep complete")
	return nil
}
