package models

import (
	"time"

	"gorm.io/datatypes"
)

// Interview session statuses.
const (
	InterviewStatusActive = "active"
	InterviewStatusEnding = "ending"
	InterviewStatusEnded  = "ended"
)

// Transcript speakers.
const (
	SpeakerUser      = "user"
	SpeakerAssistant = "assistant"
)

// InterviewSession tracks a mock interview conducted by the interview service.
type InterviewSession struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	SessionID     string            `gorm:"size:128;uniqueIndex;not null" json:"session_id"`
	UserID        uint              `gorm:"index;not null" json:"user_id"`
	CandidateName string            `gorm:"size:255;not null" json:"candidate_name"`
	VoiceMode     bool              `gorm:"default:true" json:"voice_mode"`
	Status        string            `gorm:"size:16;not null" json:"status"`
	Fallback      bool              `gorm:"default:false" json:"fallback"`
	ResumeName    string            `gorm:"size:255" json:"resume_name"`
	Assessment    datatypes.JSONMap `json:"assessment"`
	EndedAt       *time.Time        `json:"ended_at"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	Turns         []InterviewTurn   `gorm:"foreignKey:SessionRef;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"turns"`
}

// IsTerminal reports whether no more turns are accepted.
func (s InterviewSession) IsTerminal() bool {
	return s.Status == InterviewStatusEnding || s.Status == InterviewStatusEnded
}

// InterviewTurn is one transcript line.
type InterviewTurn struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SessionRef uint      `gorm:"index;not null" json:"-"`
	Speaker    string    `gorm:"size:16;not null" json:"speaker"`
	Text       string    `gorm:"type:text" json:"text"`
	Sequence   int       `gorm:"not null" json:"sequence"`
	CreatedAt  time.Time `json:"created_at"`
}
