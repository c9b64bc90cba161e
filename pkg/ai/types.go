package ai

import "context"

// ExampleCase is one worked example of the graded question.
type ExampleCase struct {
	Input          string
	ExpectedOutput string
	LocalPassed    bool
	LocalOutput    string
}

// GradingInput contains the artefacts needed to grade a coding solution.
type GradingInput struct {
	QuestionTitle string
	Description   string
	Language      string
	Code          string
	Examples      []ExampleCase
}

// GradingResult is the structured verdict returned by the AI grader.
type GradingResult struct {
	Success     bool                   `json:"success"`
	PassedTests int                    `json:"passed_tests"`
	TotalTests  int                    `json:"total_tests"`
	Feedback    string                 `json:"feedback"`
	Raw         map[string]interface{} `json:"raw,omitempty"`
}

// Grader describes an AI model capable of grading a coding solution.
type Grader interface {
	Grade(ctx context.Context, input GradingInput) (GradingResult, error)
}
