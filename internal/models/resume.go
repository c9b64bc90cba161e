package models

import (
	"time"

	"gorm.io/datatypes"
)

// Resume analysis sources.
const (
	ResumeSourceRemote   = "remote"
	ResumeSourceMock     = "mock"
	ResumeSourceFallback = "fallback"
)

// ResumeAnalysis stores an ATS scoring result.
type ResumeAnalysis struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	UserID          uint           `gorm:"index;not null" json:"user_id"`
	FileName        string         `gorm:"size:255" json:"file_name"`
	MatchScore      string         `gorm:"size:16" json:"match_score"`
	MissingKeywords datatypes.JSON `json:"missing_keywords"`
	ImprovementTips datatypes.JSON `json:"improvement_tips"`
	Source          string         `gorm:"size:16;not null" json:"source"`
	ArchiveURL      string         `gorm:"size:512" json:"archive_url"`
	CreatedAt       time.Time      `json:"created_at"`
}
