package handlers

import (
	"karyasiddhi-ai/config"
	"karyasiddhi-ai/middleware"
	"karyasiddhi-ai/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type PredictionGenerator interface {
	PredictionService
	ModelStatus
}

type AnomalyGenerator interface {
	AnomalyService
	ModelStatus
}

type InsightGenerator interface {
	InsightService
	ModelStatus
}

// Deps carries everything the router wires. Cache, Auth and Runs may be nil.
type Deps struct {
	Predictions PredictionGenerator
	Anomalies   AnomalyGenerator
	Insights    InsightGenerator
	Trainer     TrainingService
	Runs        services.TrainingRunStore
	Cache       *services.CacheService
	Auth        *services.AuthService
	CORS        config.CORSConfig
	Logger      *zap.Logger
}

func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(Recovery())
	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.SetupCORS(d.CORS))

	health := NewHealthHandler(d.Predictions, d.Anomalies, d.Insights)
	analytics := NewAnalyticsHandler(d.Predictions, d.Anomalies, d.Insights)
	training := NewTrainingHandler(d.Trainer, d.Anomalies, d.Runs)

	r.GET("/", health.Root)
	r.GET("/health", health.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/predictions", analytics.GetPredictions)
	r.GET("/anomalies", analytics.GetAnomalies)
	r.GET("/insights", analytics.GetInsights)
	r.GET("/productivity-score", analytics.GetProductivityScore)

	train := []gin.HandlerFunc{training.TrainModels}
	if d.Auth != nil {
		train = append([]gin.HandlerFunc{middleware.RequireRole(d.Auth, services.RoleAdmin)}, train...)
	}
	r.POST("/train-models", train...)
	r.POST("/anomaly-score", training.ScoreAnomaly)
	r.GET("/training-runs", training.GetTrainingRuns)
	r.GET("/ws/training", TrainingEventsSocket(d.Cache, d.Auth, d.Logger))

	return r
}
