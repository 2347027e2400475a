package models

import "time"

type InsightType string

const (
	InsightRecommendation InsightType = "recommendation"
	InsightWarning        InsightType = "warning"
	InsightAchievement    InsightType = "achievement"
	InsightTrend          InsightType = "trend"
)

type InsightRecord struct {
	ID          int         `json:"id"`
	Type        InsightType `json:"type"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Confidence  float64     `json:"confidence"`
	CreatedAt   time.Time   `json:"created_at"`
	ActionItems []string    `json:"action_items,omitempty"`
}
