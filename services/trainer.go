package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"karyasiddhi-ai/models"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	trainingRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "karyasiddhi_training_runs_total",
		Help: "Total number of training runs by outcome.",
	}, []string{"status"})
	trainingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "karyasiddhi_training_duration_seconds",
		Help:    "Duration of a full training run.",
		Buckets: []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0},
	})
)

// Routine is one generator's training step.
type Routine interface {
	Train(ctx context.Context) (TrainReport, error)
}

// Trainer runs the training routines in order and records each run. Runs
// never overlap.
type Trainer struct {
	routines  []Routine
	store     TrainingRunStore
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time

	mu sync.Mutex
}

func NewTrainer(store TrainingRunStore, publisher Publisher, logger *zap.Logger, routines ...Routine) *Trainer {
	if store == nil {
		store = NopRunStore{}
	}
	if publisher == nil {
		publisher = MultiPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trainer{
		routines:  routines,
		store:     store,
		publisher: publisher,
		logger:    logger.Named("trainer"),
		now:       time.Now,
	}
}

// Train returns the recorded run. The error is non-nil only when a
// routine failed. Recording and publishing problems are logged.
func (t *Trainer) Train(ctx context.Context) (models.TrainingRun, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	run := models.TrainingRun{
		ID:        uuid.NewString(),
		Status:    models.TrainingSuccess,
		StartedAt: t.now().UTC(),
	}
	logger := t.logger.With(zap.String("run_id", run.ID))

	var artifacts []string
	var trainErr error
	for _, r := range t.routines {
		report, err := r.Train(ctx)
		if err != nil {
			trainErr = fmt.Errorf("train models: %w", err)
			break
		}
		artifacts = append(artifacts, report.Artifacts...)
	}

	run.FinishedAt = t.now().UTC()
	run.DurationMS = run.FinishedAt.Sub(run.StartedAt).Milliseconds()
	run.Artifacts = strings.Join(artifacts, ",")
	if trainErr != nil {
		run.Status = models.TrainingFailed
		run.Error = trainErr.Error()
	}

	trainingRuns.WithLabelValues(string(run.Status)).Inc()
	trainingDuration.Observe(run.FinishedAt.Sub(run.StartedAt).Seconds())

	// Bookkeeping should survive a cancelled request.
	bg := context.WithoutCancel(ctx)
	if err := t.store.Record(bg, &run); err != nil {
		logger.Error("record training run failed", zap.Error(err))
	}
	if err := t.publisher.Publish(bg, TrainingChannel, TrainingEvent(run)); err != nil {
		logger.Warn("publish training event failed", zap.Error(err))
	}

	if trainErr != nil {
		logger.Error("training run failed", zap.Error(trainErr))
		return run, trainErr
	}
	logger.Info("training run completed",
		zap.Int64("duration_ms", run.DurationMS), zap.Strings("artifacts", artifacts))
	return run, nil
}
