package services

import (
	"context"
	"fmt"
	"time"

	"karyasiddhi-ai/models"

	"gorm.io/gorm"
)

type TrainingRunStore interface {
	Record(ctx context.Context, run *models.TrainingRun) error
	// Recent returns up to limit runs, newest first, started strictly
	// before the cursor when one is given.
	Recent(ctx context.Context, limit int, before *time.Time) ([]models.TrainingRun, error)
}

// GormRunStore keeps training runs in the training_runs table.
type GormRunStore struct {
	db *gorm.DB
}

func NewGormRunStore(db *gorm.DB) *GormRunStore {
	return &GormRunStore{db: db}
}

func (s *GormRunStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&models.TrainingRun{})
}

func (s *GormRunStore) Record(ctx context.Context, run *models.TrainingRun) error {
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("insert training run %s: %w", run.ID, err)
	}
	return nil
}

func (s *GormRunStore) Recent(ctx context.Context, limit int, before *time.Time) ([]models.TrainingRun, error) {
	query := s.db.WithContext(ctx).
		Model(&models.TrainingRun{}).
		Order("started_at DESC").
		Limit(limit)
	if before != nil {
		query = query.Where("started_at < ?", *before)
	}

	var runs []models.TrainingRun
	if err := query.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("query training runs: %w", err)
	}
	return runs, nil
}

// NopRunStore is used when no database is configured.
type NopRunStore struct{}

func (NopRunStore) Record(context.Context, *models.TrainingRun) error { return nil }

func (NopRunStore) Recent(context.Context, int, *time.Time) ([]models.TrainingRun, error) {
	return []models.TrainingRun{}, nil
}
