package handlers

import (
	"context"
	"net/http"
	"time"

	"karyasiddhi-ai/models"
	"karyasiddhi-ai/services"

	"github.com/gin-gonic/gin"
)

type TrainingService interface {
	Train(ctx context.Context) (models.TrainingRun, error)
}

type TrainingHandler struct {
	trainer   TrainingService
	anomalies AnomalyService
	runs      services.TrainingRunStore
}

func NewTrainingHandler(trainer TrainingService, anomalies AnomalyService, runs services.TrainingRunStore) *TrainingHandler {
	if runs == nil {
		runs = services.NopRunStore{}
	}
	return &TrainingHandler{trainer: trainer, anomalies: anomalies, runs: runs}
}

func (h *TrainingHandler) TrainModels(c *gin.Context) {
	run, err := h.trainer.Train(c.Request.Context())
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Models retrained successfully",
		"run_id":  run.ID,
	})
}

type anomalyScoreRequest struct {
	Features []float64 `json:"features" binding:"required,min=1"`
}

func (h *TrainingHandler) ScoreAnomaly(c *gin.Context) {
	var req anomalyScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err)
		return
	}

	score, err := h.anomalies.AnomalyScore(req.Features)
	if err != nil {
		scoreError(c, err)
		return
	}
	services.ObserveAnomalyScore(score)
	c.JSON(http.StatusOK, score)
}

func (h *TrainingHandler) GetTrainingRuns(c *gin.Context) {
	p, err := BindPagination(c)
	if err != nil {
		validationError(c, err)
		return
	}

	runs, err := h.runs.Recent(c.Request.Context(), p.Limit+1, p.Before)
	if err != nil {
		internalError(c, err)
		return
	}

	hasMore := len(runs) > p.Limit
	if hasMore {
		runs = runs[:p.Limit]
	}

	var nextCursor string
	if hasMore && len(runs) > 0 {
		nextCursor = runs[len(runs)-1].StartedAt.Format(time.RFC3339Nano)
	}

	c.JSON(http.StatusOK, CursorResponse{Data: nonNil(runs), NextCursor: nextCursor, HasMore: hasMore})
}
