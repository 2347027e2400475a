package models

import "time"

type TrainingStatus string

const (
	TrainingSuccess TrainingStatus = "success"
	TrainingFailed  TrainingStatus = "failed"
)

type TrainingRun struct {
	ID         string         `gorm:"column:id;primaryKey" json:"id"`
	Status     TrainingStatus `gorm:"column:status" json:"status"`
	StartedAt  time.Time      `gorm:"column:started_at;index" json:"started_at"`
	FinishedAt time.Time      `gorm:"column:finished_at" json:"finished_at"`
	DurationMS int64          `gorm:"column:duration_ms" json:"duration_ms"`
	Error      string         `gorm:"column:error" json:"error,omitempty"`
	Artifacts  string         `gorm:"column:artifacts" json:"artifacts"`
}

func (TrainingRun) TableName() string { return "training_runs" }
