package handlers

import (
	"net/http"

	"karyasiddhi-ai/services"

	"github.com/gin-gonic/gin"
)

const (
	serviceName    = "KaryaSiddhi AI Service"
	serviceVersion = "1.0.0"
)

type ModelStatus interface {
	LoadState() services.LoadState
}

type HealthHandler struct {
	prediction ModelStatus
	anomaly    ModelStatus
	insight    ModelStatus
}

func NewHealthHandler(prediction, anomaly, insight ModelStatus) *HealthHandler {
	return &HealthHandler{prediction: prediction, anomaly: anomaly, insight: insight}
}

func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": serviceName,
		"version": serviceVersion,
		"status":  "operational",
	})
}

// Health reports every model slot as loaded since each generator serves
// without trained artifacts. Where the estimators came from is reported
// separately under artifacts.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"models": gin.H{
			"prediction":         "loaded",
			"anomaly_detection":  "loaded",
			"insight_generation": "loaded",
		},
		"artifacts": gin.H{
			"prediction":         h.prediction.LoadState().Status,
			"anomaly_detection":  h.anomaly.LoadState().Status,
			"insight_generation": h.insight.LoadState().Status,
		},
	})
}
