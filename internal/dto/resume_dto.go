package dto

import "time"

// AnalyzeResumeRequest carries the non-file form fields of a resume analysis.
type AnalyzeResumeRequest struct {
	JobDescription string `form:"job_description" validate:"required,max=20000"`
	UseMock        bool   `form:"use_mock"`
}

// ResumeAnalysisResponse is the ATS scoring view.
type ResumeAnalysisResponse struct {
	ID              uint      `json:"id,omitempty"`
	FileName        string    `json:"file_name"`
	MatchScore      string    `json:"match_score"`
	MissingKeywords []string  `json:"missing_keywords"`
	ImprovementTips []string  `json:"improvement_tips"`
	Source          string    `json:"source"`
	ArchiveURL      string    `json:"archive_url,omitempty"`
	AnalyzedAt      time.Time `json:"analyzed_at"`
}
