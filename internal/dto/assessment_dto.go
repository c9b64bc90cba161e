package dto

import (
	"fmt"

	"github.com/noah-isme/placement-prep-api/internal/models"
)

// Submit button states shown next to the editor.
const (
	SubmitStateNone          = "none"
	SubmitStateRunAllTests   = "run_all_tests_first"
	SubmitStateWrongAnswer   = "wrong_answer"
	SubmitStateCorrectAnswer = "correct_answer"
	SubmitStateNextQuestion  = "next_question"
	SubmitStateSubmitAll     = "submit_all"
)

// AssessmentOption is one selectable difficulty and question count.
type AssessmentOption struct {
	Level string `json:"level"`
	Count int    `json:"count"`
	Label string `json:"label"`
}

// StartAssessmentRequest selects the assessment configuration.
type StartAssessmentRequest struct {
	Level string `json:"level" validate:"required"`
	Count int    `json:"count" validate:"required,gt=0"`
}

// FetchQuestionRequest optionally names a difficulty for the first question.
type FetchQuestionRequest struct {
	Difficulty string `json:"difficulty" validate:"omitempty,max=16"`
}

// SetLanguageRequest switches the active editor language.
type SetLanguageRequest struct {
	Language string `json:"language" validate:"required"`
}

// UpdateCodeRequest replaces the draft for a language.
type UpdateCodeRequest struct {
	Language string `json:"language" validate:"required"`
	Source   string `json:"source" validate:"max=65536"`
}

// SubmitButtonView tells the client which submit affordance to render.
type SubmitButtonView struct {
	State   string `json:"state"`
	Label   string `json:"label"`
	Passed  int    `json:"passed"`
	Total   int    `json:"total"`
	Enabled bool   `json:"enabled"`
}

// AssessmentStateResponse is the client view of a coding assessment.
type AssessmentStateResponse struct {
	Status           string                      `json:"status"`
	Config           models.AssessmentConfig     `json:"config"`
	Difficulty       string                      `json:"difficulty"`
	Progress         models.AssessmentProgress   `json:"progress"`
	Question         *models.Question            `json:"question,omitempty"`
	Fallback         bool                        `json:"fallback"`
	Language         string                      `json:"language"`
	Code             string                      `json:"code"`
	Drafts           map[string]string           `json:"drafts"`
	Results          []*models.ExampleTestResult `json:"results"`
	AllTestsRun      bool                        `json:"all_tests_run"`
	Accepted         bool                        `json:"accepted"`
	LastSubmission   *models.SubmissionOutcome   `json:"last_submission,omitempty"`
	SubmitButton     SubmitButtonView            `json:"submit_button"`
	CanEndAssessment bool                        `json:"can_end_assessment"`
}

// RunExampleResponse reports the outcome of running one example.
type RunExampleResponse struct {
	Index       int                      `json:"index"`
	Result      models.ExampleTestResult `json:"result"`
	Stored      bool                     `json:"stored"`
	AllTestsRun bool                     `json:"all_tests_run"`
	State       AssessmentStateResponse  `json:"state"`
}

// SubmitSolutionResponse reports the grading verdict.
type SubmitSolutionResponse struct {
	Outcome       models.SubmissionOutcome `json:"outcome"`
	Accepted      bool                     `json:"accepted"`
	PointsAwarded int                      `json:"points_awarded"`
	State         AssessmentStateResponse  `json:"state"`
}

// AssessmentResultsResponse is the results screen summary.
type AssessmentResultsResponse struct {
	Status             string  `json:"status"`
	Difficulty         string  `json:"difficulty"`
	Score              int     `json:"score"`
	MaxScore           int     `json:"max_score"`
	Percentage         float64 `json:"percentage"`
	Rating             string  `json:"rating"`
	QuestionsAttempted int     `json:"questions_attempted"`
	TotalQuestions     int     `json:"total_questions"`
}

// NewAssessmentStateResponse converts the persisted state into its client view.
func NewAssessmentStateResponse(state models.AssessmentState) AssessmentStateResponse {
	response := AssessmentStateResponse{
		Status:           state.Status,
		Config:           state.Config,
		Difficulty:       state.Difficulty,
		Progress:         state.Progress,
		Question:         state.Question,
		Fallback:         state.QuestionFallback,
		Language:         state.Language,
		Code:             state.Drafts[state.Language],
		Drafts:           state.Drafts,
		AllTestsRun:      state.AllTestsRun(),
		Accepted:         state.Accepted,
		LastSubmission:   state.LastSubmission,
		SubmitButton:     NewSubmitButtonView(state),
		CanEndAssessment: state.Status != models.AssessmentStatusFinished && !state.Progress.Complete,
	}

	if response.Drafts == nil {
		response.Drafts = map[string]string{}
	}

	examples := state.ExampleCount()
	response.Results = make([]*models.ExampleTestResult, examples)
	for index := 0; index < examples; index++ {
		if result, ok := state.Results[index]; ok {
			stored := result
			response.Results[index] = &stored
		}
	}

	return response
}

// NewSubmitButtonView derives the submit affordance from the current results.
func NewSubmitButtonView(state models.AssessmentState) SubmitButtonView {
	if state.Question == nil || state.Status == models.AssessmentStatusFinished {
		return SubmitButtonView{State: SubmitStateNone}
	}

	if state.Accepted {
		if state.Progress.QuestionsAttempted >= state.Progress.TotalQuestions {
			return SubmitButtonView{State: SubmitStateSubmitAll, Label: "Complete Assessment", Enabled: true}
		}
		return SubmitButtonView{State: SubmitStateNextQuestion, Label: "Next Question", Enabled: true}
	}

	if !state.AllTestsRun() {
		return SubmitButtonView{State: SubmitStateRunAllTests, Label: "Run All Tests First"}
	}

	passed := state.PassedCount()
	total := len(state.Results)
	if passed < total {
		return SubmitButtonView{
			State:   SubmitStateWrongAnswer,
			Label:   fmt.Sprintf("Wrong Answer - Submit Your Code (%d/%d passed)", passed, total),
			Passed:  passed,
			Total:   total,
			Enabled: true,
		}
	}

	return SubmitButtonView{
		State:   SubmitStateCorrectAnswer,
		Label:   "Correct Answer - Submit Solution",
		Passed:  passed,
		Total:   total,
		Enabled: true,
	}
}
