package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/placement-prep-api/internal/config"
	"github.com/noah-isme/placement-prep-api/internal/dto"
	"github.com/noah-isme/placement-prep-api/internal/models"
	"github.com/noah-isme/placement-prep-api/internal/observability"
	"github.com/noah-isme/placement-prep-api/internal/repository"
	"github.com/noah-isme/placement-prep-api/pkg/ai"
	"github.com/noah-isme/placement-prep-api/pkg/judge"
)

const (
	runExampleFailedMessage = "Failed to run test case. Please try again."
	submitFailedMessage     = "Failed to submit solution. Please try again."
)

var (
	// ErrInvalidAssessmentConfig indicates a level/count pair outside the offered options.
	ErrInvalidAssessmentConfig = errors.New("invalid assessment configuration")
	// ErrInvalidDifficulty indicates an unknown difficulty label.
	ErrInvalidDifficulty = errors.New("invalid difficulty")
	// ErrUnsupportedLanguage indicates the requested language is not allowed.
	ErrUnsupportedLanguage = errors.New("unsupported language")
	// ErrAssessmentNotFound indicates the user has no stored assessment.
	ErrAssessmentNotFound = errors.New("assessment not found")
	// ErrAssessmentFinished indicates the assessment no longer accepts changes.
	ErrAssessmentFinished = errors.New("assessment already finished")
	// ErrAssessmentComplete indicates every configured question was already dealt.
	ErrAssessmentComplete = errors.New("all questions have been attempted")
	// ErrNoActiveQuestion indicates no question is loaded.
	ErrNoActiveQuestion = errors.New("no active question")
	// ErrExampleNotFound indicates the example index is out of range.
	ErrExampleNotFound = errors.New("example not found")
	// ErrTestsNotRun indicates a submission before every example was run.
	ErrTestsNotRun = errors.New("run all tests first")
	// ErrAlreadyAccepted indicates the current question was already accepted.
	ErrAlreadyAccepted = errors.New("solution already accepted")
	// ErrSubmitAllUnavailable indicates the final question is not accepted yet.
	ErrSubmitAllUnavailable = errors.New("assessment cannot be submitted yet")
)

var (
	assessmentLevels = []string{"Easy", "Medium", "Hard"}
	assessmentCounts = []int{3, 6}
)

// QuestionJudge is the subset of the judge client used by the assessment flow.
type QuestionJudge interface {
	GetQuestion(ctx context.Context, difficulty string) (judge.Question, error)
	RunTestCase(ctx context.Context, req judge.RunRequest) (judge.RunResult, error)
	SubmitSolution(ctx context.Context, req judge.SubmitRequest) (judge.SubmitResult, error)
}

// AssessmentService drives the difficulty selector and the coding session.
type AssessmentService interface {
	Options() []dto.AssessmentOption
	Start(ctx context.Context, userID uint, req dto.StartAssessmentRequest) (dto.AssessmentStateResponse, error)
	Get(ctx context.Context, userID uint) (dto.AssessmentStateResponse, error)
	FetchQuestion(ctx context.Context, userID uint, req dto.FetchQuestionRequest) (dto.AssessmentStateResponse, error)
	SetLanguage(ctx context.Context, userID uint, req dto.SetLanguageRequest) (dto.AssessmentStateResponse, error)
	UpdateCode(ctx context.Context, userID uint, req dto.UpdateCodeRequest) (dto.AssessmentStateResponse, error)
	RunExample(ctx context.Context, userID uint, index int) (dto.RunExampleResponse, error)
	Submit(ctx context.Context, userID uint) (dto.SubmitSolutionResponse, error)
	End(ctx context.Context, userID uint) (dto.AssessmentResultsResponse, error)
	SubmitAll(ctx context.Context, userID uint) (dto.AssessmentResultsResponse, error)
	Results(ctx context.Context, userID uint) (dto.AssessmentResultsResponse, error)
	Reset(ctx context.Context, userID uint) error
}

// AssessmentServiceConfig tunes grading behaviour.
type AssessmentServiceConfig struct {
	GradingFallback string
	Clock           func() time.Time
}

type assessmentService struct {
	store     SessionStore
	judge     QuestionJudge
	grader    ai.Grader
	results   repository.AssessmentResultRepository
	profiles  repository.ProfileRepository
	events    EventPublisher
	validator *validator.Validate
	logger    zerolog.Logger
	config    AssessmentServiceConfig
}

// NewAssessmentService constructs the coding assessment service. grader may be nil unless the
// evaluator grading fallback is configured.
func NewAssessmentService(store SessionStore, questionJudge QuestionJudge, grader ai.Grader, results repository.AssessmentResultRepository, profiles repository.ProfileRepository, events EventPublisher, validate *validator.Validate, logger zerolog.Logger, cfg AssessmentServiceConfig) AssessmentService {
	if cfg.GradingFallback == "" {
		cfg.GradingFallback = config.GradingFallbackFailOpen
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if events == nil {
		events = NewNoopEventPublisher()
	}

	return &assessmentService{
		store:     store,
		judge:     questionJudge,
		grader:    grader,
		results:   results,
		profiles:  profiles,
		events:    events,
		validator: validate,
		logger:    logger.With().Str("component", "assessment_service").Logger(),
		config:    cfg,
	}
}

func (s *assessmentService) now() time.Time {
	return s.config.Clock().UTC()
}

func (s *assessmentService) Options() []dto.AssessmentOption {
	options := make([]dto.AssessmentOption, 0, len(assessmentLevels)*len(assessmentCounts))
	for _, level := range assessmentLevels {
		for _, count := range assessmentCounts {
			options = append(options, dto.AssessmentOption{
				Level: level,
				Count: count,
				Label: fmt.Sprintf("%s - %d Questions", level, count),
			})
		}
	}
	return options
}

func (s *assessmentService) Start(ctx context.Context, userID uint, req dto.StartAssessmentRequest) (dto.AssessmentStateResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AssessmentStateResponse{}, err
	}

	cfg, ok := normalizeAssessmentConfig(req.Level, req.Count)
	if !ok {
		return dto.AssessmentStateResponse{}, ErrInvalidAssessmentConfig
	}

	state := models.NewAssessmentState(cfg, s.now())
	if err := s.saveState(ctx, userID, state); err != nil {
		return dto.AssessmentStateResponse{}, err
	}

	if err := s.store.Remove(ctx, userID, SessionKeyInterviewSessionID, SessionKeyInterviewAssessment); err != nil {
		s.logger.Warn().Err(err).Uint("user_id", userID).Msg("failed to clear interview remnants")
	}

	observability.Assessments().WithLabelValues("started").Inc()
	s.logger.Info().Uint("user_id", userID).Str("level", cfg.Level).Int("count", cfg.Count).Msg("assessment started")

	return dto.NewAssessmentStateResponse(state), nil
}

func (s *assessmentService) Get(ctx context.Context, userID uint) (dto.AssessmentStateResponse, error) {
	state, _, err := s.loadState(ctx, userID)
	if err != nil {
		return dto.AssessmentStateResponse{}, err
	}
	return dto.NewAssessmentStateResponse(state), nil
}

func (s *assessmentService) FetchQuestion(ctx context.Context, userID uint, req dto.FetchQuestionRequest) (dto.AssessmentStateResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AssessmentStateResponse{}, err
	}

	current, _, err := s.loadState(ctx, userID)
	if err != nil {
		return dto.AssessmentStateResponse{}, err
	}
	if err := ensureQuestionAvailable(current); err != nil {
		return dto.AssessmentStateResponse{}, err
	}

	difficulty, err := resolveDifficulty(current.Difficulty, req.Difficulty)
	if err != nil {
		return dto.AssessmentStateResponse{}, err
	}

	question, fallback := s.generateQuestion(ctx, userID, difficulty)

	state, err := s.mutate(ctx, userID, func(state *models.AssessmentState) error {
		if err := ensureQuestionAvailable(*state); err != nil {
			return err
		}
		if state.Difficulty == "" {
			state.Difficulty = difficulty
		}

		settlePoints(state)

		state.Progress.QuestionsAttempted++
		if state.Progress.QuestionsAttempted > state.Progress.TotalQuestions {
			state.Progress.QuestionsAttempted = state.Progress.TotalQuestions
		}
		state.Progress.Complete = state.Progress.QuestionsAttempted >= state.Progress.TotalQuestions
		state.Progress.MaxScore += len(question.Examples) * models.PointsPerPassedExample

		q := question
		state.Status = models.AssessmentStatusInProgress
		state.Question = &q
		state.QuestionFallback = fallback
		state.Drafts = buildDrafts(question.FunctionSignature)
		if !models.IsSupportedLanguage(state.Language) {
			state.Language = models.LanguageJava
		}
		state.ClearResults()
		state.Accepted = false
		state.LastSubmission = nil
		state.QuestionScored = false
		state.DraftRevision++
		return nil
	})
	if err != nil {
		return dto.AssessmentStateResponse{}, err
	}

	return dto.NewAssessmentStateResponse(state), nil
}

// generateQuestion asks the judge for a question, retrying once when the label does not match.
func (s *assessmentService) generateQuestion(ctx context.Context, userID uint, difficulty string) (models.Question, bool) {
	log := s.logger.With().Uint("user_id", userID).Str("difficulty", difficulty).Logger()

	generated, err := s.judge.GetQuestion(ctx, difficulty)
	if err != nil {
		log.Warn().Err(err).Msg("question generation failed, serving fallback question")
		observability.Fallbacks().WithLabelValues("assessment", "get_question").Inc()
		return fallbackQuestion(difficulty, s.now()), true
	}

	if !strings.EqualFold(strings.TrimSpace(generated.Difficulty), difficulty) {
		log.Warn().Str("received", generated.Difficulty).Msg("question difficulty mismatch, retrying once")
		retried, retryErr := s.judge.GetQuestion(ctx, difficulty)
		switch {
		case retryErr != nil:
			log.Warn().Err(retryErr).Msg("question retry failed, keeping first question")
		case !strings.EqualFold(strings.TrimSpace(retried.Difficulty), difficulty):
			log.Warn().Str("received", retried.Difficulty).Msg("question difficulty still mismatched, accepting")
			generated = retried
		default:
			generated = retried
		}
	}

	return convertQuestion(generated, difficulty), false
}

func (s *assessmentService) SetLanguage(ctx context.Context, userID uint, req dto.SetLanguageRequest) (dto.AssessmentStateResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AssessmentStateResponse{}, err
	}

	language := strings.ToLower(strings.TrimSpace(req.Language))
	if !models.IsSupportedLanguage(language) {
		return dto.AssessmentStateResponse{}, ErrUnsupportedLanguage
	}

	state, err := s.mutate(ctx, userID, func(state *models.AssessmentState) error {
		if state.Status == models.AssessmentStatusFinished {
			return ErrAssessmentFinished
		}
		state.Language = language
		state.ClearResults()
		state.DraftRevision++
		return nil
	})
	if err != nil {
		return dto.AssessmentStateResponse{}, err
	}

	return dto.NewAssessmentStateResponse(state), nil
}

func (s *assessmentService) UpdateCode(ctx context.Context, userID uint, req dto.UpdateCodeRequest) (dto.AssessmentStateResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AssessmentStateResponse{}, err
	}

	language := strings.ToLower(strings.TrimSpace(req.Language))
	if !models.IsSupportedLanguage(language) {
		return dto.AssessmentStateResponse{}, ErrUnsupportedLanguage
	}

	state, err := s.mutate(ctx, userID, func(state *models.AssessmentState) error {
		if state.Status == models.AssessmentStatusFinished {
			return ErrAssessmentFinished
		}
		if state.Drafts == nil {
			state.Drafts = map[string]string{}
		}
		state.Drafts[language] = req.Source
		state.ClearResults()
		state.DraftRevision++
		return nil
	})
	if err != nil {
		return dto.AssessmentStateResponse{}, err
	}

	return dto.NewAssessmentStateResponse(state), nil
}

func (s *assessmentService) RunExample(ctx context.Context, userID uint, index int) (dto.RunExampleResponse, error) {
	snapshot, _, err := s.loadState(ctx, userID)
	if err != nil {
		return dto.RunExampleResponse{}, err
	}
	if snapshot.Status == models.AssessmentStatusFinished {
		return dto.RunExampleResponse{}, ErrAssessmentFinished
	}
	if snapshot.Question == nil {
		return dto.RunExampleResponse{}, ErrNoActiveQuestion
	}
	if index < 0 || index >= len(snapshot.Question.Examples) {
		return dto.RunExampleResponse{}, ErrExampleNotFound
	}

	example := snapshot.Question.Examples[index]
	result := s.runExample(ctx, userID, snapshot, example)

	stored := false
	state, err := s.mutate(ctx, userID, func(state *models.AssessmentState) error {
		if state.Question == nil || state.Question.ID != snapshot.Question.ID ||
			state.DraftRevision != snapshot.DraftRevision || state.Language != snapshot.Language {
			return nil
		}
		if state.Results == nil {
			state.ClearResults()
		}
		state.Results[index] = result
		stored = true
		return nil
	})
	if err != nil {
		return dto.RunExampleResponse{}, err
	}

	if !stored {
		s.logger.Debug().Uint("user_id", userID).Int("index", index).Msg("discarded stale example result")
	}

	return dto.RunExampleResponse{
		Index:       index,
		Result:      result,
		Stored:      stored,
		AllTestsRun: state.AllTestsRun(),
		State:       dto.NewAssessmentStateResponse(state),
	}, nil
}

func (s *assessmentService) runExample(ctx context.Context, userID uint, snapshot models.AssessmentState, example models.QuestionExample) models.ExampleTestResult {
	verdict, err := s.judge.RunTestCase(ctx, judge.RunRequest{
		Language: snapshot.Language,
		Code:     snapshot.Drafts[snapshot.Language],
		TestCase: judge.TestCase{
			Input:       example.Input,
			Output:      example.Output,
			Explanation: example.Explanation,
		},
	})
	if err != nil {
		s.logger.Warn().Err(err).Uint("user_id", userID).Msg("example run failed")
		observability.Fallbacks().WithLabelValues("assessment", "run_test_case").Inc()
		return models.ExampleTestResult{
			Passed:         false,
			ExpectedOutput: example.Output,
			Error:          runExampleFailedMessage,
		}
	}

	result := models.ExampleTestResult{
		Passed:         verdict.Passed,
		ActualOutput:   verdict.ActualOutput.String(),
		ExpectedOutput: verdict.ExpectedOutput.String(),
		Explanation:    verdict.Explanation,
		Error:          verdict.Error,
	}
	if result.ExpectedOutput == "" {
		result.ExpectedOutput = example.Output
	}
	if result.Explanation == "" {
		result.Explanation = example.Explanation
	}
	return result
}

func (s *assessmentService) Submit(ctx context.Context, userID uint) (dto.SubmitSolutionResponse, error) {
	snapshot, _, err := s.loadState(ctx, userID)
	if err != nil {
		return dto.SubmitSolutionResponse{}, err
	}
	switch {
	case snapshot.Status == models.AssessmentStatusFinished:
		return dto.SubmitSolutionResponse{}, ErrAssessmentFinished
	case snapshot.Question == nil:
		return dto.SubmitSolutionResponse{}, ErrNoActiveQuestion
	case snapshot.Accepted:
		return dto.SubmitSolutionResponse{}, ErrAlreadyAccepted
	case !snapshot.AllTestsRun():
		return dto.SubmitSolutionResponse{}, ErrTestsNotRun
	}

	outcome := s.grade(ctx, userID, snapshot)

	points := 0
	state, err := s.mutate(ctx, userID, func(state *models.AssessmentState) error {
		if state.Question == nil || state.Question.ID != snapshot.Question.ID {
			return ErrNoActiveQuestion
		}
		state.LastSubmission = &outcome
		state.Accepted = outcome.Success
		if state.Accepted {
			points = settlePoints(state)
		}
		return nil
	})
	if err != nil {
		return dto.SubmitSolutionResponse{}, err
	}

	event := "rejected"
	if outcome.Success {
		event = "accepted"
	}
	observability.Assessments().WithLabelValues(event).Inc()

	return dto.SubmitSolutionResponse{
		Outcome:       outcome,
		Accepted:      state.Accepted,
		PointsAwarded: points,
		State:         dto.NewAssessmentStateResponse(state),
	}, nil
}

// grade asks the judge for a verdict and applies the configured policy when it is unreachable.
func (s *assessmentService) grade(ctx context.Context, userID uint, state models.AssessmentState) models.SubmissionOutcome {
	question := state.Question
	code := state.Drafts[state.Language]

	examples := make([]judge.TestCase, 0, len(question.Examples))
	for _, example := range question.Examples {
		examples = append(examples, judge.TestCase{Input: example.Input, Output: example.Output, Explanation: example.Explanation})
	}

	verdict, err := s.judge.SubmitSolution(ctx, judge.SubmitRequest{
		QuestionDescription: question.Description,
		Examples:            examples,
		Language:            state.Language,
		Code:                code,
	})
	if err == nil {
		return models.SubmissionOutcome{
			Success: verdict.Success,
			Message: verdict.Feedback,
			Error:   verdict.Error,
		}
	}

	policy := s.config.GradingFallback
	log := s.logger.Warn().Err(err).Uint("user_id", userID).Str("policy", policy)
	log.Msg("solution submission failed, applying grading fallback")
	observability.Fallbacks().WithLabelValues("assessment", "submit_solution").Inc()

	switch policy {
	case config.GradingFallbackFailClosed:
		return failClosedOutcome()
	case config.GradingFallbackEvaluator:
		if s.grader == nil {
			return failClosedOutcome()
		}
		graded, gradeErr := s.grader.Grade(ctx, buildGradingInput(state))
		if gradeErr != nil {
			s.logger.Warn().Err(gradeErr).Uint("user_id", userID).Msg("evaluator grading failed")
			return failClosedOutcome()
		}
		return models.SubmissionOutcome{
			Success:  graded.Success,
			Message:  graded.Feedback,
			Fallback: true,
			Policy:   config.GradingFallbackEvaluator,
		}
	default:
		return models.SubmissionOutcome{
			Success:  true,
			Message:  fmt.Sprintf("Solution recorded offline (%d/%d examples passed)", state.PassedCount(), state.ExampleCount()),
			Fallback: true,
			Policy:   config.GradingFallbackFailOpen,
		}
	}
}

func failClosedOutcome() models.SubmissionOutcome {
	return models.SubmissionOutcome{
		Success:  false,
		Error:    submitFailedMessage,
		Fallback: true,
		Policy:   config.GradingFallbackFailClosed,
	}
}

func buildGradingInput(state models.AssessmentState) ai.GradingInput {
	input := ai.GradingInput{
		QuestionTitle: state.Question.Title,
		Description:   state.Question.Description,
		Language:      state.Language,
		Code:          state.Drafts[state.Language],
	}
	for index, example := range state.Question.Examples {
		result := state.Results[index]
		input.Examples = append(input.Examples, ai.ExampleCase{
			Input:          example.Input,
			ExpectedOutput: example.Output,
			LocalPassed:    result.Passed,
			LocalOutput:    result.ActualOutput,
		})
	}
	return input
}

func (s *assessmentService) End(ctx context.Context, userID uint) (dto.AssessmentResultsResponse, error) {
	return s.finish(ctx, userID, false)
}

func (s *assessmentService) SubmitAll(ctx context.Context, userID uint) (dto.AssessmentResultsResponse, error) {
	return s.finish(ctx, userID, true)
}

func (s *assessmentService) finish(ctx context.Context, userID uint, requireAccepted bool) (dto.AssessmentResultsResponse, error) {
	if _, exists, err := s.loadState(ctx, userID); err != nil {
		return dto.AssessmentResultsResponse{}, err
	} else if !exists {
		return dto.AssessmentResultsResponse{}, ErrAssessmentNotFound
	}

	transitioned := false
	state, err := s.mutate(ctx, userID, func(state *models.AssessmentState) error {
		transitioned = false
		if state.Status == models.AssessmentStatusFinished {
			return nil
		}
		if requireAccepted && (!state.Accepted || state.Progress.QuestionsAttempted < state.Progress.TotalQuestions) {
			return ErrSubmitAllUnavailable
		}

		settlePoints(state)
		state.Progress.QuestionsAttempted = state.Progress.TotalQuestions
		state.Progress.Complete = true
		state.Status = models.AssessmentStatusFinished
		transitioned = true
		return nil
	})
	if err != nil {
		return dto.AssessmentResultsResponse{}, err
	}

	results := buildResults(state)
	if transitioned {
		s.recordCompletion(ctx, userID, state, results)
	}

	return results, nil
}

func (s *assessmentService) recordCompletion(ctx context.Context, userID uint, state models.AssessmentState, results dto.AssessmentResultsResponse) {
	log := s.logger.With().Uint("user_id", userID).Logger()

	if s.results != nil {
		record := &models.AssessmentResult{
			UserID:             userID,
			Difficulty:         state.Difficulty,
			Score:              results.Score,
			QuestionsAttempted: results.QuestionsAttempted,
			TotalQuestions:     results.TotalQuestions,
			Percentage:         results.Percentage,
			Rating:             results.Rating,
			StartedAt:          state.StartedAt,
			FinishedAt:         state.UpdatedAt,
		}
		if err := s.results.Create(ctx, record); err != nil {
			log.Error().Err(err).Msg("failed to persist assessment result")
		}
	}

	if s.profiles != nil {
		delta := models.ProfileStatsDelta{
			CodingScore:             results.Score,
			AssessmentsCompleted:    1,
			TotalQuestionsAttempted: results.QuestionsAttempted,
		}
		if err := s.profiles.IncrementStats(ctx, userID, delta); err != nil {
			log.Error().Err(err).Msg("failed to update profile statistics")
		}
	}

	if err := s.events.Publish(ctx, EventAssessmentCompleted, userID, results); err != nil {
		log.Warn().Err(err).Msg("failed to publish assessment completion")
	}

	observability.Assessments().WithLabelValues("finished").Inc()
	log.Info().Int("score", results.Score).Str("rating", results.Rating).Msg("assessment finished")
}

func (s *assessmentService) Results(ctx context.Context, userID uint) (dto.AssessmentResultsResponse, error) {
	state, exists, err := s.loadState(ctx, userID)
	if err != nil {
		return dto.AssessmentResultsResponse{}, err
	}
	if !exists {
		return dto.AssessmentResultsResponse{}, ErrAssessmentNotFound
	}
	return buildResults(state), nil
}

func (s *assessmentService) Reset(ctx context.Context, userID uint) error {
	return s.store.Remove(ctx, userID, SessionKeyCodingAssessment)
}

// loadState returns the stored assessment, or a default Easy/3 assessment when none is usable.
func (s *assessmentService) loadState(ctx context.Context, userID uint) (models.AssessmentState, bool, error) {
	raw, exists, err := s.store.Get(ctx, userID, SessionKeyCodingAssessment)
	if err != nil {
		return models.AssessmentState{}, false, err
	}
	return s.decodeState(userID, raw, exists), exists, nil
}

func (s *assessmentService) decodeState(userID uint, raw string, exists bool) models.AssessmentState {
	if !exists || raw == "" {
		return s.defaultState()
	}

	var state models.AssessmentState
	if err := json.Unmarshal([]byte(raw), &state); err != nil || state.Progress.TotalQuestions <= 0 {
		s.logger.Warn().Err(err).Uint("user_id", userID).Msg("stored assessment unreadable, using defaults")
		return s.defaultState()
	}
	if state.Results == nil {
		state.ClearResults()
	}
	if state.Drafts == nil {
		state.Drafts = map[string]string{}
	}
	return state
}

// defaultState leaves the difficulty unpinned so the first fetch may choose it.
func (s *assessmentService) defaultState() models.AssessmentState {
	state := models.NewAssessmentState(models.AssessmentConfig{Level: "Easy", Count: 3}, s.now())
	state.Difficulty = ""
	return state
}

func (s *assessmentService) saveState(ctx context.Context, userID uint, state models.AssessmentState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, userID, SessionKeyCodingAssessment, string(payload))
}

// mutate applies fn to the stored assessment atomically and returns the stored result.
func (s *assessmentService) mutate(ctx context.Context, userID uint, fn func(state *models.AssessmentState) error) (models.AssessmentState, error) {
	var updated models.AssessmentState
	_, err := s.store.Update(ctx, userID, SessionKeyCodingAssessment, func(current string, exists bool) (string, error) {
		state := s.decodeState(userID, current, exists)
		if err := fn(&state); err != nil {
			return "", err
		}
		state.UpdatedAt = s.now()

		payload, err := json.Marshal(state)
		if err != nil {
			return "", err
		}
		updated = state
		return string(payload), nil
	})
	if err != nil {
		return models.AssessmentState{}, err
	}
	return updated, nil
}

func ensureQuestionAvailable(state models.AssessmentState) error {
	if state.Status == models.AssessmentStatusFinished {
		return ErrAssessmentComplete
	}
	if state.Progress.QuestionsAttempted >= state.Progress.TotalQuestions {
		return ErrAssessmentComplete
	}
	return nil
}

// settlePoints awards points for the current question once and returns the amount added.
func settlePoints(state *models.AssessmentState) int {
	if state.Question == nil || state.QuestionScored {
		return 0
	}
	points := state.PassedCount() * models.PointsPerPassedExample
	state.Progress.Score += points
	state.QuestionScored = true
	return points
}

func resolveDifficulty(pinned, requested string) (string, error) {
	if pinned != "" {
		return pinned, nil
	}

	requested = strings.ToLower(strings.TrimSpace(requested))
	switch requested {
	case "":
		return models.DifficultyEasy, nil
	case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
		return requested, nil
	default:
		return "", ErrInvalidDifficulty
	}
}

func normalizeAssessmentConfig(level string, count int) (models.AssessmentConfig, bool) {
	level = strings.TrimSpace(level)
	for _, candidate := range assessmentLevels {
		if !strings.EqualFold(candidate, level) {
			continue
		}
		for _, allowed := range assessmentCounts {
			if allowed == count {
				return models.AssessmentConfig{Level: candidate, Count: count}, true
			}
		}
	}
	return models.AssessmentConfig{}, false
}

func convertQuestion(generated judge.Question, difficulty string) models.Question {
	question := models.Question{
		ID:                generated.ID.String(),
		Title:             generated.Title,
		Difficulty:        generated.Difficulty,
		Description:       generated.Description,
		Constraints:       generated.Constraints,
		FunctionSignature: generated.FunctionSignature,
		Examples:          make([]models.QuestionExample, 0, len(generated.Examples)),
	}
	if question.Difficulty == "" {
		question.Difficulty = difficulty
	}
	for _, example := range generated.Examples {
		question.Examples = append(question.Examples, models.QuestionExample{
			Input:       example.Input.String(),
			Output:      example.Output.String(),
			Explanation: example.Explanation,
		})
	}
	return question
}

func buildResults(state models.AssessmentState) dto.AssessmentResultsResponse {
	percentage := 0.0
	if state.Progress.MaxScore > 0 {
		percentage = float64(state.Progress.Score) / float64(state.Progress.MaxScore) * 100
		percentage = math.Round(percentage*100) / 100
	}

	return dto.AssessmentResultsResponse{
		Status:             state.Status,
		Difficulty:         state.Difficulty,
		Score:              state.Progress.Score,
		MaxScore:           state.Progress.MaxScore,
		Percentage:         percentage,
		Rating:             ratingFor(percentage),
		QuestionsAttempted: state.Progress.QuestionsAttempted,
		TotalQuestions:     state.Progress.TotalQuestions,
	}
}

func ratingFor(percentage float64) string {
	switch {
	case percentage >= 80:
		return "Excellent"
	case percentage >= 60:
		return "Good"
	default:
		return "Needs Improvement"
	}
}
