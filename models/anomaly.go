package models

import "time"

type AnomalyType string

const (
	AnomalyPerformanceDrop AnomalyType = "performance_drop"
	AnomalyUnusualActivity AnomalyType = "unusual_activity"
	AnomalyMissedDeadline  AnomalyType = "missed_deadline"
	AnomalyLowEngagement   AnomalyType = "low_engagement"
)

// Severity shares its values with RiskLevel but is filtered on
// independently.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

type AnomalyRecord struct {
	ID            int         `json:"id"`
	Type          AnomalyType `json:"type"`
	Severity      Severity    `json:"severity"`
	Description   string      `json:"description"`
	DetectedAt    time.Time   `json:"detected_at"`
	AffectedGoals []string    `json:"affected_goals"`
	Confidence    float64     `json:"confidence"`
}

// AnomalyScore is the 0-100 rendering of an isolation forest sample score.
type AnomalyScore struct {
	Score        float64 `json:"score"`
	RawScore     float64 `json:"raw_score"`
	UserID       string  `json:"user_id,omitempty"`
	DepartmentID string  `json:"department_id,omitempty"`
}
