package models

import (
	"strings"
	"time"
)

// Assessment lifecycle statuses.
const (
	AssessmentStatusNotStarted = "not_started"
	AssessmentStatusInProgress = "in_progress"
	AssessmentStatusFinished   = "finished"
)

// Supported editor languages.
const (
	LanguageJava   = "java"
	LanguageCPP    = "cpp"
	LanguagePython = "python"
)

// Difficulty labels used by the question generator.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// PointsPerPassedExample is awarded for every passing example once a question is settled.
const PointsPerPassedExample = 5

// SupportedLanguages lists the languages a draft can be written in.
var SupportedLanguages = []string{LanguageJava, LanguageCPP, LanguagePython}

// IsSupportedLanguage reports whether the language has an editor template.
func IsSupportedLanguage(language string) bool {
	for _, candidate := range SupportedLanguages {
		if candidate == language {
			return true
		}
	}
	return false
}

// AssessmentConfig is the difficulty and question count chosen before an assessment starts.
type AssessmentConfig struct {
	Level string `json:"level"`
	Count int    `json:"count"`
}

// Difficulty returns the lowercase difficulty label for the configured level.
func (c AssessmentConfig) Difficulty() string {
	return strings.ToLower(strings.TrimSpace(c.Level))
}

// AssessmentProgress tracks score and question counters.
type AssessmentProgress struct {
	Score              int  `json:"score"`
	QuestionsAttempted int  `json:"questions_attempted"`
	TotalQuestions     int  `json:"total_questions"`
	MaxScore           int  `json:"max_score"`
	Complete           bool `json:"complete"`
}

// QuestionExample is a worked example attached to a question.
type QuestionExample struct {
	Input       string `json:"input"`
	Output      string `json:"output"`
	Explanation string `json:"explanation,omitempty"`
}

// Question is a generated coding problem.
type Question struct {
	ID                string            `json:"id"`
	Title             string            `json:"title"`
	Difficulty        string            `json:"difficulty"`
	Description       string            `json:"description"`
	Examples          []QuestionExample `json:"examples"`
	Constraints       []string          `json:"constraints"`
	FunctionSignature map[string]string `json:"function_signature"`
}

// ExampleTestResult is the outcome of running the draft against one example.
type ExampleTestResult struct {
	Passed         bool   `json:"passed"`
	ActualOutput   string `json:"actual_output,omitempty"`
	ExpectedOutput string `json:"expected_output,omitempty"`
	Explanation    string `json:"explanation,omitempty"`
	Error          string `json:"error,omitempty"`
}

// SubmissionOutcome is the last grading verdict for the current question.
type SubmissionOutcome struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
	Fallback bool   `json:"fallback"`
	Policy   string `json:"policy,omitempty"`
}

// AssessmentState is the single persisted record describing a user's coding assessment.
type AssessmentState struct {
	Status           string                    `json:"status"`
	Config           AssessmentConfig          `json:"config"`
	Difficulty       string                    `json:"difficulty,omitempty"`
	Progress         AssessmentProgress        `json:"progress"`
	Question         *Question                 `json:"question,omitempty"`
	QuestionFallback bool                      `json:"question_fallback"`
	Drafts           map[string]string         `json:"drafts"`
	Language         string                    `json:"language"`
	Results          map[int]ExampleTestResult `json:"results"`
	Accepted         bool                      `json:"accepted"`
	LastSubmission   *SubmissionOutcome        `json:"last_submission,omitempty"`
	DraftRevision    int                       `json:"draft_revision"`
	QuestionScored   bool                      `json:"question_scored"`
	StartedAt        time.Time                 `json:"started_at"`
	UpdatedAt        time.Time                 `json:"updated_at"`
}

// NewAssessmentState returns a fresh, not yet started assessment for the given configuration.
func NewAssessmentState(cfg AssessmentConfig, now time.Time) AssessmentState {
	return AssessmentState{
		Status:     AssessmentStatusNotStarted,
		Config:     cfg,
		Difficulty: cfg.Difficulty(),
		Progress: AssessmentProgress{
			TotalQuestions: cfg.Count,
		},
		Drafts:    map[string]string{},
		Language:  LanguageJava,
		Results:   map[int]ExampleTestResult{},
		StartedAt: now,
		UpdatedAt: now,
	}
}

// AllTestsRun reports whether every example of the current question has a stored result.
func (s AssessmentState) AllTestsRun() bool {
	if s.Question == nil {
		return false
	}
	for index := range s.Question.Examples {
		if _, ok := s.Results[index]; !ok {
			return false
		}
	}
	return true
}

// PassedCount returns how many stored results passed.
func (s AssessmentState) PassedCount() int {
	passed := 0
	for _, result := range s.Results {
		if result.Passed {
			passed++
		}
	}
	return passed
}

// ExampleCount returns the number of examples on the current question.
func (s AssessmentState) ExampleCount() int {
	if s.Question == nil {
		return 0
	}
	return len(s.Question.Examples)
}

// ClearResults drops every stored example result.
func (s *AssessmentState) ClearResults() {
	s.Results = map[int]ExampleTestResult{}
}
