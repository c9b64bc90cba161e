package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/placement-prep-api/internal/models"
)

// ProfileRepository persists user profiles and practice counters.
type ProfileRepository interface {
	GetOrCreate(ctx context.Context, userID uint, email string) (models.UserProfile, error)
	Update(ctx context.Context, profile *models.UserProfile) error
	IncrementStats(ctx context.Context, userID uint, delta models.ProfileStatsDelta) error
}

// NewProfileRepository constructs a profile repository.
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

type profileRepository struct {
	db *gorm.DB
}

func (r *profileRepository) GetOrCreate(ctx context.Context, userID uint, email string) (models.UserProfile, error) {
	profile := models.UserProfile{UserID: userID, Email: email}
	err := r.db.WithContext(ctx).
		Where(models.UserProfile{UserID: userID}).
		Attrs(models.UserProfile{Email: email}).
		FirstOrCreate(&profile).Error
	if err != nil {
		return models.UserProfile{}, err
	}
	return profile, nil
}

func (r *profileRepository) Update(ctx context.Context, profile *models.UserProfile) error {
	return r.db.WithContext(ctx).
		Model(&models.UserProfile{UserID: profile.UserID}).
		Select("first_name", "last_name", "bio", "profile_image_id").
		Updates(profile).Error
}

// IncrementStats applies the counter delta atomically, creating the profile row when absent.
func (r *profileRepository) IncrementStats(ctx context.Context, userID uint, delta models.ProfileStatsDelta) error {
	if delta.IsZero() {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := models.UserProfile{UserID: userID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}

		return tx.Model(&models.UserProfile{}).
			Where("user_id = ?", userID).
			Updates(map[string]interface{}{
				"coding_score":              gorm.Expr("coding_score + ?", delta.CodingScore),
				"assessments_completed":     gorm.Expr("assessments_completed + ?", delta.AssessmentsCompleted),
				"interviews_completed":      gorm.Expr("interviews_completed + ?", delta.InterviewsCompleted),
				"resume_analysis_count":     gorm.Expr("resume_analysis_count + ?", delta.ResumeAnalysisCount),
				"total_questions_attempted": gorm.Expr("total_questions_attempted + ?", delta.TotalQuestionsAttempted),
			}).Error
	})
}
