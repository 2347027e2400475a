package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"karyasiddhi-ai/config"
	"karyasiddhi-ai/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// TelemetryPayload is one performance feature vector published by an
// upstream collector.
type TelemetryPayload struct {
	UserID       string    `json:"user_id"`
	DepartmentID string    `json:"department_id"`
	Features     []float64 `json:"features"`
}

var errEmptyFeatures = errors.New("telemetry payload has no features")

var (
	telemetryReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "karyasiddhi_telemetry_messages_received_total",
		Help: "Total number of MQTT telemetry messages received.",
	})
	telemetryScored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "karyasiddhi_telemetry_messages_scored_total",
		Help: "Total number of telemetry messages scored for anomalies.",
	})
	telemetryFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "karyasiddhi_telemetry_messages_failed_total",
		Help: "Total number of telemetry messages rejected or failed to score.",
	})
	anomalyScores = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "karyasiddhi_anomaly_scores",
		Help:    "Distribution of 0-100 anomaly scores.",
		Buckets: prometheus.LinearBuckets(0, 10, 11),
	})
)

type Scorer interface {
	AnomalyScore(features []float64) (models.AnomalyScore, error)
}

// ObserveAnomalyScore records a served score in the score histogram.
func ObserveAnomalyScore(s models.AnomalyScore) {
	anomalyScores.Observe(s.Score)
}

// TelemetryScorer subscribes to MQTT telemetry, scores each vector and
// publishes the result on AnomalyScoreChannel.
type TelemetryScorer struct {
	cfg       config.MQTTConfig
	scorer    Scorer
	publisher Publisher
	logger    *zap.Logger
	client    mqtt.Client

	connectTimeout time.Duration
	retryInterval  time.Duration
}

func NewTelemetryScorer(cfg config.MQTTConfig, scorer Scorer, publisher Publisher, logger *zap.Logger) *TelemetryScorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TelemetryScorer{
		cfg:       cfg,
		scorer:    scorer,
		publisher: publisher,
		logger:    logger.Named("telemetry"),

		connectTimeout: 10 * time.Second,
		retryInterval:  2 * time.Second,
	}
}

// Start connects to the broker and subscribes. Messages are handled until
// Stop is called or ctx ends. On error the client is already disconnected
// and no retries continue in the background.
func (t *TelemetryScorer) Start(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(t.cfg.URL)
	opts.SetClientID("karyasiddhi-ai-" + time.Now().Format("20060102150405"))
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(t.retryInterval)
	opts.SetDefaultPublishHandler(func(client mqtt.Client, message mqtt.Message) {
		if _, err := t.ProcessMessage(ctx, message.Payload()); err != nil {
			t.logger.Warn("telemetry message dropped",
				zap.String("topic", message.Topic()), zap.Error(err))
		}
	})
	opts.OnConnect = func(client mqtt.Client) {
		token := client.Subscribe(t.cfg.Topic, 0, nil)
		token.Wait()
		if token.Error() != nil {
			t.logger.Error("mqtt subscribe failed", zap.String("topic", t.cfg.Topic), zap.Error(token.Error()))
			return
		}
		t.logger.Info("subscribed to telemetry", zap.String("topic", t.cfg.Topic))
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		t.logger.Warn("mqtt connection lost", zap.Error(err))
	}

	t.client = mqtt.NewClient(opts)
	token := t.client.Connect()
	if !token.WaitTimeout(t.connectTimeout) {
		t.abort()
		return fmt.Errorf("mqtt connect to %s timed out", t.cfg.URL)
	}
	if err := token.Error(); err != nil {
		t.abort()
		return fmt.Errorf("mqtt connect to %s: %w", t.cfg.URL, err)
	}

	go func() {
		<-ctx.Done()
		t.Stop()
	}()
	return nil
}

// abort stops the connect retry loop of a client that never came up.
func (t *TelemetryScorer) abort() {
	t.client.Disconnect(250)
	t.client = nil
}

func (t *TelemetryScorer) Stop() {
	if t.client != nil && t.client.IsConnected() {
		t.client.Disconnect(250)
	}
}

// ProcessMessage decodes, scores and publishes one telemetry payload.
func (t *TelemetryScorer) ProcessMessage(ctx context.Context, payloadRaw []byte) (models.AnomalyScore, error) {
	telemetryReceived.Inc()

	var payload TelemetryPayload
	if err := json.Unmarshal(payloadRaw, &payload); err != nil {
		telemetryFailed.Inc()
		return models.AnomalyScore{}, fmt.Errorf("invalid payload: %w", err)
	}
	if len(payload.Features) == 0 {
		telemetryFailed.Inc()
		return models.AnomalyScore{}, errEmptyFeatures
	}

	score, err := t.scorer.AnomalyScore(payload.Features)
	if err != nil {
		telemetryFailed.Inc()
		return models.AnomalyScore{}, err
	}
	score.UserID = payload.UserID
	score.DepartmentID = payload.DepartmentID
	telemetryScored.Inc()
	ObserveAnomalyScore(score)

	event := Event{Type: EventAnomalyScored, OccurredAt: time.Now().UTC(), Data: score}
	if err := t.publisher.Publish(ctx, AnomalyScoreChannel, event); err != nil {
		t.logger.Warn("publish anomaly score failed", zap.Error(err))
	}
	return score, nil
}
