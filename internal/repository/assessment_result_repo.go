package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/placement-prep-api/internal/models"
)

// AssessmentResultRepository stores finished coding assessments.
type AssessmentResultRepository interface {
	Create(ctx context.Context, result *models.AssessmentResult) error
	ListByUser(ctx context.Context, userID uint, limit int) ([]models.AssessmentResult, error)
}

// NewAssessmentResultRepository constructs an assessment result repository.
func NewAssessmentResultRepository(db *gorm.DB) AssessmentResultRepository {
	return &assessmentResultRepository{db: db}
}

type assessmentResultRepository struct {
	db *gorm.DB
}

func (r *assessmentResultRepository) Create(ctx context.Context, result *models.AssessmentResult) error {
	return r.db.WithContext(ctx).Create(result).Error
}

func (r *assessmentResultRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]models.AssessmentResult, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var results []models.AssessmentResult
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("finished_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&results).Error
	return results, err
}
