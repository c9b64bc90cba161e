package repository

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/placement-prep-api/internal/models"
)

// InterviewRepository persists interview sessions and their transcripts.
type InterviewRepository interface {
	Create(ctx context.Context, session *models.InterviewSession) error
	GetBySessionID(ctx context.Context, userID uint, sessionID string) (models.InterviewSession, error)
	AppendTurn(ctx context.Context, sessionRef uint, speaker, text string) (models.InterviewTurn, error)
	UpdateStatus(ctx context.Context, sessionRef uint, status string) error
	Complete(ctx context.Context, sessionRef uint, assessment map[string]interface{}, endedAt time.Time) error
}

// NewInterviewRepository constructs an interview repository.
func NewInterviewRepository(db *gorm.DB) InterviewRepository {
	return &interviewRepository{db: db}
}

type interviewRepository struct {
	db *gorm.DB
}

func (r *interviewRepository) Create(ctx context.Context, session *models.InterviewSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *interviewRepository) GetBySessionID(ctx context.Context, userID uint, sessionID string) (models.InterviewSession, error) {
	var session models.InterviewSession
	err := r.db.WithContext(ctx).
		Preload("Turns", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		First(&session).Error
	if err != nil {
		return models.InterviewSession{}, err
	}
	return session, nil
}

// AppendTurn assigns the next sequence number inside a transaction so concurrent turns stay ordered.
func (r *interviewRepository) AppendTurn(ctx context.Context, sessionRef uint, speaker, text string) (models.InterviewTurn, error) {
	turn := models.InterviewTurn{SessionRef: sessionRef, Speaker: speaker, Text: text}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last int
		if err := tx.Model(&models.InterviewTurn{}).
			Where("session_ref = ?", sessionRef).
			Select("COALESCE(MAX(sequence), 0)").
			Scan(&last).Error; err != nil {
			return err
		}
		turn.Sequence = last + 1
		return tx.Create(&turn).Error
	})
	if err != nil {
		return models.InterviewTurn{}, err
	}

	return turn, nil
}

func (r *interviewRepository) UpdateStatus(ctx context.Context, sessionRef uint, status string) error {
	return r.db.WithContext(ctx).
		Model(&models.InterviewSession{}).
		Where("id = ?", sessionRef).
		Update("status", status).Error
}

func (r *interviewRepository) Complete(ctx context.Context, sessionRef uint, assessment map[string]interface{}, endedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.InterviewSession{ID: sessionRef}).
		Updates(map[string]interface{}{
			"status":     models.InterviewStatusEnded,
			"assessment": datatypes.JSONMap(assessment),
			"ended_at":   endedAt,
		}).Error
}
