package handlers

import (
	"context"
	"net/http"

	"karyasiddhi-ai/models"
	"karyasiddhi-ai/services"

	"github.com/gin-gonic/gin"
)

type PredictionService interface {
	PredictGoalCompletion(ctx context.Context, filter services.Filter, limit int) ([]models.PredictionRecord, error)
	ProductivityScore(ctx context.Context, filter services.Filter) (models.ProductivityScore, error)
}

type AnomalyService interface {
	DetectAnomalies(ctx context.Context, filter services.Filter, severity string) ([]models.AnomalyRecord, error)
	AnomalyScore(features []float64) (models.AnomalyScore, error)
}

type InsightService interface {
	GenerateInsights(ctx context.Context, filter services.Filter, limit int) ([]models.InsightRecord, error)
}

type scopeQuery struct {
	UserID       string `form:"user_id"`
	DepartmentID string `form:"department_id"`
}

func (q scopeQuery) filter() services.Filter {
	return services.Filter{UserID: q.UserID, DepartmentID: q.DepartmentID}
}

type predictionsQuery struct {
	scopeQuery
	Limit int `form:"limit,default=10" binding:"min=1,max=100"`
}

type anomaliesQuery struct {
	scopeQuery
	Severity string `form:"severity"`
}

type insightsQuery struct {
	scopeQuery
	Limit int `form:"limit,default=5" binding:"min=1,max=20"`
}

type AnalyticsHandler struct {
	predictions PredictionService
	anomalies   AnomalyService
	insights    InsightService
}

func NewAnalyticsHandler(predictions PredictionService, anomalies AnomalyService, insights InsightService) *AnalyticsHandler {
	return &AnalyticsHandler{predictions: predictions, anomalies: anomalies, insights: insights}
}

func (h *AnalyticsHandler) GetPredictions(c *gin.Context) {
	var q predictionsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		validationError(c, err)
		return
	}

	records, err := h.predictions.PredictGoalCompletion(c.Request.Context(), q.filter(), q.Limit)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(records))
}

func (h *AnalyticsHandler) GetAnomalies(c *gin.Context) {
	var q anomaliesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		validationError(c, err)
		return
	}

	records, err := h.anomalies.DetectAnomalies(c.Request.Context(), q.filter(), q.Severity)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(records))
}

func (h *AnalyticsHandler) GetInsights(c *gin.Context) {
	var q insightsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		validationError(c, err)
		return
	}

	records, err := h.insights.GenerateInsights(c.Request.Context(), q.filter(), q.Limit)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(records))
}

func (h *AnalyticsHandler) GetProductivityScore(c *gin.Context) {
	var q scopeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		validationError(c, err)
		return
	}

	score, err := h.predictions.ProductivityScore(c.Request.Context(), q.filter())
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, score)
}

// nonNil makes empty results encode as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
