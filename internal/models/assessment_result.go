package models

import "time"

// AssessmentResult is the durable history row written when an assessment finishes.
type AssessmentResult struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	UserID             uint      `gorm:"index;not null" json:"user_id"`
	Difficulty         string    `gorm:"size:16;not null" json:"difficulty"`
	Score              int       `gorm:"not null" json:"score"`
	QuestionsAttempted int       `gorm:"not null" json:"questions_attempted"`
	TotalQuestions     int       `gorm:"not null" json:"total_questions"`
	Percentage         float64   `gorm:"not null" json:"percentage"`
	Rating             string    `gorm:"size:32" json:"rating"`
	StartedAt          time.Time `json:"started_at"`
	FinishedAt         time.Time `json:"finished_at"`
	CreatedAt          time.Time `json:"created_at"`
}
