package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/placement-prep-api/internal/models"
)

// ResumeAnalysisRepository stores ATS scoring results.
type ResumeAnalysisRepository interface {
	Create(ctx context.Context, analysis *models.ResumeAnalysis) error
	Latest(ctx context.Context, userID uint) (models.ResumeAnalysis, error)
}

// NewResumeAnalysisRepository constructs a resume analysis repository.
func NewResumeAnalysisRepository(db *gorm.DB) ResumeAnalysisRepository {
	return &resumeAnalysisRepository{db: db}
}

type resumeAnalysisRepository struct {
	db *gorm.DB
}

func (r *resumeAnalysisRepository) Create(ctx context.Context, analysis *models.ResumeAnalysis) error {
	return r.db.WithContext(ctx).Create(analysis).Error
}

func (r *resumeAnalysisRepository) Latest(ctx context.Context, userID uint) (models.ResumeAnalysis, error) {
	var analysis models.ResumeAnalysis
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		First(&analysis).Error
	if err != nil {
		return models.ResumeAnalysis{}, err
	}
	return analysis, nil
}
