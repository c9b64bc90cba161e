package dto

import "time"

// UpdateProfileRequest edits the user's identity details.
type UpdateProfileRequest struct {
	FirstName      string `json:"first_name" validate:"omitempty,max=128"`
	LastName       string `json:"last_name" validate:"omitempty,max=128"`
	Bio            string `json:"bio" validate:"omitempty,max=2000"`
	ProfileImageID string `json:"profile_image_id" validate:"omitempty,len=24,hexadecimal"`
}

// ProfileStats aggregates practice counters.
type ProfileStats struct {
	CodingScore             int `json:"coding_score"`
	AssessmentsCompleted    int `json:"assessments_completed"`
	InterviewsCompleted     int `json:"interviews_completed"`
	ResumeAnalysisCount     int `json:"resume_analysis_count"`
	TotalQuestionsAttempted int `json:"total_questions_attempted"`
}

// AssessmentHistoryItem summarises a finished assessment.
type AssessmentHistoryItem struct {
	Difficulty         string    `json:"difficulty"`
	Score              int       `json:"score"`
	Percentage         float64   `json:"percentage"`
	Rating             string    `json:"rating"`
	QuestionsAttempted int       `json:"questions_attempted"`
	TotalQuestions     int       `json:"total_questions"`
	FinishedAt         time.Time `json:"finished_at"`
}

// ProfileResponse is the profile screen payload.
type ProfileResponse struct {
	UserID         uint                    `json:"user_id"`
	FirstName      string                  `json:"first_name"`
	LastName       string                  `json:"last_name"`
	Email          string                  `json:"email"`
	Bio            string                  `json:"bio"`
	ProfileImageID string                  `json:"profile_image_id,omitempty"`
	Stats          ProfileStats            `json:"stats"`
	RecentResults  []AssessmentHistoryItem `json:"recent_results"`
}
