package models

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// RiskLevels lists the levels in ascending order. Classifier labels index
// into it.
var RiskLevels = []RiskLevel{RiskLow, RiskMedium, RiskHigh, RiskCritical}

// PredictionRecord is a goal-completion forecast. Dates are YYYY-MM-DD.
type PredictionRecord struct {
	ID                  int       `json:"id"`
	GoalID              string    `json:"goal_id"`
	GoalTitle           string    `json:"goal_title"`
	PredictedCompletion string    `json:"predicted_completion"`
	OriginalDeadline    string    `json:"original_deadline"`
	Confidence          float64   `json:"confidence"`
	RiskLevel           RiskLevel `json:"risk_level"`
	Factors             []string  `json:"factors"`
}

type ProductivityScore struct {
	Score           float64            `json:"score"`
	Trend           float64            `json:"trend"`
	Factors         map[string]float64 `json:"factors"`
	Recommendations []string           `json:"recommendations"`
}
