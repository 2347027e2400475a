package services

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"karyasiddhi-ai/ml"
	"karyasiddhi-ai/models"

	"go.uber.org/zap"
)

const (
	anomalyModelArtifact  = "anomaly_model"
	anomalyScalerArtifact = "anomaly_scaler"

	anomalySamples   = 1000
	anomalyFeatures  = 8
	anomalyFraction  = 0.1
	anomalyAmplitude = 3.0
	forestEstimators = 100
	forestMaxSamples = 256
	forestRandomSeed = 42
)

type anomalyTemplate struct {
	kind          models.AnomalyType
	severity      models.Severity
	description   string
	affectedGoals []string
	confidence    float64
}

var anomalyTemplates = []anomalyTemplate{
	{
		kind:          models.AnomalyPerformanceDrop,
		severity:      models.SeverityHigh,
		description:   "Significant decrease in productivity detected over the last 3 days (18% drop)",
		affectedGoals: []string{"1", "3"},
		confidence:    91.2,
	},
	{
		kind:          models.AnomalyUnusualActivity,
		severity:      models.SeverityMedium,
		description:   "Unusual pattern: No KPI updates for 5 consecutive days",
		affectedGoals: []string{"2"},
		confidence:    85.7,
	},
	{
		kind:          models.AnomalyMissedDeadline,
		severity:      models.SeverityCritical,
		description:   "Critical milestone missed for high-priority goal",
		affectedGoals: []string{"4"},
		confidence:    95.3,
	},
	{
		kind:          models.AnomalyLowEngagement,
		severity:      models.SeverityLow,
		description:   "Reduced team collaboration metrics detected",
		affectedGoals: []string{"5"},
		confidence:    78.4,
	},
}

// AnomalyGenerator serves anomaly reports and owns the isolation forest
// used to score telemetry feature vectors.
type AnomalyGenerator struct {
	opts   Options
	logger *zap.Logger

	rngMu sync.Mutex
	rng   *rand.Rand

	mu     sync.RWMutex
	forest *ml.IsolationForest
	scaler *ml.StandardScaler
	state  LoadState
}

func NewAnomalyGenerator(opts Options) *AnomalyGenerator {
	opts = opts.withDefaults()
	g := &AnomalyGenerator{
		opts:   opts,
		logger: opts.Logger.Named("anomaly"),
		rng:    opts.newRand(),
		forest: ml.NewIsolationForest(forestEstimators, forestMaxSamples, forestRandomSeed),
		scaler: &ml.StandardScaler{},
	}

	forest, scaler := &ml.IsolationForest{}, &ml.StandardScaler{}
	g.state = loadArtifacts(opts.ModelPath, map[string]any{
		anomalyModelArtifact:  forest,
		anomalyScalerArtifact: scaler,
	})
	if g.state.Status == ModelLoaded {
		g.forest, g.scaler = forest, scaler
	} else if g.state.Err != nil {
		g.logger.Warn("anomaly artifacts unreadable, starting from a fresh forest",
			zap.String("model_path", opts.ModelPath), zap.Error(g.state.Err))
	}
	return g
}

func (g *AnomalyGenerator) LoadState() LoadState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// DetectAnomalies returns the current anomaly reports. A non-empty
// severity keeps only exact matches.
func (g *AnomalyGenerator) DetectAnomalies(ctx context.Context, filter Filter, severity string) ([]models.AnomalyRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.logger.Debug("detect anomalies", append(filter.fields(), zap.String("severity", severity))...)
	if severity != "" && !models.Severity(severity).Valid() {
		g.logger.Debug("unknown severity filter, nothing will match", zap.String("severity", severity))
	}

	now := g.opts.Now()
	records := make([]models.AnomalyRecord, 0, len(anomalyTemplates))
	for i, t := range anomalyTemplates {
		if severity != "" && string(t.severity) != severity {
			continue
		}
		records = append(records, models.AnomalyRecord{
			ID:            i + 1,
			Type:          t.kind,
			Severity:      t.severity,
			Description:   t.description,
			DetectedAt:    now,
			AffectedGoals: append([]string(nil), t.affectedGoals...),
			Confidence:    t.confidence,
		})
	}
	return records, nil
}

// AnomalyScore scales one feature vector and maps the forest's sample
// score onto 0-100.
func (g *AnomalyGenerator) AnomalyScore(features []float64) (models.AnomalyScore, error) {
	g.mu.RLock()
	forest, scaler := g.forest, g.scaler
	g.mu.RUnlock()

	if !forest.Fitted() || !scaler.Fitted() {
		return models.AnomalyScore{}, fmt.Errorf("anomaly model: %w", ErrModelNotTrained)
	}
	scaled, err := scaler.Transform(features)
	if err != nil {
		return models.AnomalyScore{}, fmt.Errorf("scale features: %w", err)
	}
	raw, err := forest.ScoreSample(scaled)
	if err != nil {
		return models.AnomalyScore{}, fmt.Errorf("score sample: %w", err)
	}
	return models.AnomalyScore{Score: ml.ScoreToPercent(raw), RawScore: raw}, nil
}

// Train fits a fresh forest on synthetic data whose first tenth is
// stretched threefold, persists it and swaps it in.
func (g *AnomalyGenerator) Train(ctx context.Context) (TrainReport, error) {
	if err := ctx.Err(); err != nil {
		return TrainReport{}, err
	}

	g.rngMu.Lock()
	X := ml.UniformMatrix(g.rng, anomalySamples, anomalyFeatures)
	g.rngMu.Unlock()

	injected := int(anomalySamples * anomalyFraction)
	for _, row := range X[:injected] {
		for j := range row {
			row[j] *= anomalyAmplitude
		}
	}

	scaler := &ml.StandardScaler{}
	scaled, err := scaler.FitTransform(X)
	if err != nil {
		return TrainReport{}, fmt.Errorf("fit anomaly scaler: %w", err)
	}
	forest := ml.NewIsolationForest(forestEstimators, forestMaxSamples, forestRandomSeed)
	if err := forest.Fit(scaled); err != nil {
		return TrainReport{}, fmt.Errorf("fit isolation forest: %w", err)
	}

	var injectedMean, normalMean float64
	for i, row := range scaled {
		s, err := forest.ScoreSample(row)
		if err != nil {
			return TrainReport{}, fmt.Errorf("evaluate isolation forest: %w", err)
		}
		if i < injected {
			injectedMean += s
		} else {
			normalMean += s
		}
	}
	injectedMean /= float64(injected)
	normalMean /= float64(anomalySamples - injected)

	artifacts := []string{anomalyModelArtifact, anomalyScalerArtifact}
	if err := ml.Save(g.opts.ModelPath, anomalyModelArtifact, forest); err != nil {
		return TrainReport{}, fmt.Errorf("persist %s: %w", anomalyModelArtifact, err)
	}
	if err := ml.Save(g.opts.ModelPath, anomalyScalerArtifact, scaler); err != nil {
		return TrainReport{}, fmt.Errorf("persist %s: %w", anomalyScalerArtifact, err)
	}

	g.mu.Lock()
	g.forest, g.scaler = forest, scaler
	g.state = LoadState{Status: ModelLoaded}
	g.mu.Unlock()

	g.logger.Info("anomaly model trained",
		zap.Int("samples", anomalySamples),
		zap.Int("injected", injected),
		zap.Float64("injected_mean_score", injectedMean),
		zap.Float64("normal_mean_score", normalMean))

	return TrainReport{
		Artifacts: artifacts,
		Metrics: map[string]float64{
			"injected_mean_score": injectedMean,
			"normal_mean_score":   normalMean,
		},
	}, nil
}
