package models

import "time"

// UserProfile holds identity details and practice statistics for a user.
type UserProfile struct {
	UserID                  uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	FirstName               string    `gorm:"size:128" json:"first_name"`
	LastName                string    `gorm:"size:128" json:"last_name"`
	Email                   string    `gorm:"size:255" json:"email"`
	Bio                     string    `gorm:"type:text" json:"bio"`
	ProfileImageID          string    `gorm:"size:64" json:"profile_image_id"`
	CodingScore             int       `gorm:"default:0" json:"coding_score"`
	AssessmentsCompleted    int       `gorm:"default:0" json:"assessments_completed"`
	InterviewsCompleted     int       `gorm:"default:0" json:"interviews_completed"`
	ResumeAnalysisCount     int       `gorm:"default:0" json:"resume_analysis_count"`
	TotalQuestionsAttempted int       `gorm:"default:0" json:"total_questions_attempted"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// ProfileStatsDelta describes counter increments applied after a completed activity.
type ProfileStatsDelta struct {
	CodingScore             int
	AssessmentsCompleted    int
	InterviewsCompleted     int
	ResumeAnalysisCount     int
	TotalQuestionsAttempted int
}

// IsZero reports whether the delta changes nothing.
func (d ProfileStatsDelta) IsZero() bool {
	return d == ProfileStatsDelta{}
}
