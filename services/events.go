package services

import (
	"context"
	"errors"
	"time"

	"karyasiddhi-ai/models"
)

const (
	TrainingChannel     = "karyasiddhi:training"
	AnomalyScoreChannel = "karyasiddhi:anomaly-scores"
)

type EventType string

const (
	EventTrainingCompleted EventType = "training.completed"
	EventTrainingFailed    EventType = "training.failed"
	EventAnomalyScored     EventType = "anomaly.scored"
)

type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

func TrainingEvent(run models.TrainingRun) Event {
	t := EventTrainingCompleted
	if run.Status == models.TrainingFailed {
		t = EventTrainingFailed
	}
	return Event{Type: t, OccurredAt: run.FinishedAt, Data: run}
}

type Publisher interface {
	Publish(ctx context.Context, channel string, message any) error
}

// MultiPublisher delivers each message to every sink. It keeps going past
// failures and returns them joined.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, channel string, message any) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, channel, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
