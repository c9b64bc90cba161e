package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/placement-prep-api/internal/config"
	"github.com/noah-isme/placement-prep-api/internal/dto"
	"github.com/noah-isme/placement-prep-api/internal/models"
	"github.com/noah-isme/placement-prep-api/pkg/ai"
	"github.com/noah-isme/placement-prep-api/pkg/judge"
)

var errJudgeDown = errors.New("dial tcp 127.0.0.1:5000: connection refused")

type stubJudge struct {
	mu            sync.Mutex
	labels        []string
	questionErr   error
	questionCalls []string
	runResults    map[string]bool
	runErr        error
	runHook       func()
	submitResult  judge.SubmitResult
	submitErr     error
	submitCalls   int
}

func newStubJudge() *stubJudge {
	return &stubJudge{runResults: map[string]bool{}}
}

func (j *stubJudge) GetQuestion(_ context.Context, difficulty string) (judge.Question, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.questionCalls = append(j.questionCalls, difficulty)
	if j.questionErr != nil {
		return judge.Question{}, j.questionErr
	}

	label := difficulty
	if len(j.labels) > 0 {
		label = j.labels[0]
		j.labels = j.labels[1:]
	}

	return judge.Question{
		ID:          judge.FlexString("q-" + label + "-" + strings.Repeat("x", len(j.questionCalls))),
		Title:       "Two Sum",
		Difficulty:  label,
		Description: "Return indices of the two numbers adding up to target.",
		Examples: []judge.Example{
			{Input: "[2,7,11,15], 9", Output: "[0,1]"},
			{Input: "[3,2,4], 6", Output: "[1,2]"},
		},
		FunctionSignature: map[string]string{
			models.LanguageJava:   "public int[] twoSum(int[] nums, int target) {",
			models.LanguageCPP:    "vector<int> twoSum(vector<int>& nums, int target) {",
			models.LanguagePython: "def twoSum(self, nums, target):",
		},
	}, nil
}

func (j *stubJudge) RunTestCase(_ context.Context, req judge.RunRequest) (judge.RunResult, error) {
	j.mu.Lock()
	hook := j.runHook
	j.runHook = nil
	passed := j.runResults[req.TestCase.Input]
	err := j.runErr
	j.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return judge.RunResult{}, err
	}
	return judge.RunResult{Passed: passed, ActualOutput: judge.FlexString(req.TestCase.Output)}, nil
}

func (j *stubJudge) SubmitSolution(_ context.Context, _ judge.SubmitRequest) (judge.SubmitResult, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.submitCalls++
	if j.submitErr != nil {
		return judge.SubmitResult{}, j.submitErr
	}
	return j.submitResult, nil
}

type stubGrader struct {
	result ai.GradingResult
	err    error
	calls  int
}

func (g *stubGrader) Grade(_ context.Context, input ai.GradingInput) (ai.GradingResult, error) {
	g.calls++
	if g.err != nil {
		return ai.GradingResult{}, g.err
	}
	return g.result, nil
}

type stubAssessmentResultRepo struct {
	created []models.AssessmentResult
}

func (r *stubAssessmentResultRepo) Create(_ context.Context, result *models.AssessmentResult) error {
	r.created = append(r.created, *result)
	return nil
}

func (r *stubAssessmentResultRepo) ListByUser(_ context.Context, userID uint, _ int) ([]models.AssessmentResult, error) {
	var out []models.AssessmentResult
	for _, result := range r.created {
		if result.UserID == userID {
			out = append(out, result)
		}
	}
	return out, nil
}

type stubProfileRepo struct {
	mu       sync.Mutex
	profiles map[uint]models.UserProfile
	deltas   []models.ProfileStatsDelta
}

func newStubProfileRepo() *stubProfileRepo {
	return &stubProfileRepo{profiles: map[uint]models.UserProfile{}}
}

func (r *stubProfileRepo) GetOrCreate(_ context.Context, userID uint, email string) (models.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	profile, ok := r.profiles[userID]
	if !ok {
		profile = models.UserProfile{UserID: userID, Email: email}
		r.profiles[userID] = profile
	}
	return profile, nil
}

func (r *stubProfileRepo) Update(_ context.Context, profile *models.UserProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[profile.UserID] = *profile
	return nil
}

func (r *stubProfileRepo) IncrementStats(_ context.Context, userID uint, delta models.ProfileStatsDelta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deltas = append(r.deltas, delta)
	profile := r.profiles[userID]
	profile.UserID = userID
	profile.CodingScore += delta.CodingScore
	profile.AssessmentsCompleted += delta.AssessmentsCompleted
	profile.InterviewsCompleted += delta.InterviewsCompleted
	profile.ResumeAnalysisCount += delta.ResumeAnalysisCount
	profile.TotalQuestionsAttempted += delta.TotalQuestionsAttempted
	r.profiles[userID] = profile
	return nil
}

type assessmentFixture struct {
	svc      AssessmentService
	store    SessionStore
	judge    *stubJudge
	grader   *stubGrader
	results  *stubAssessmentResultRepo
	profiles *stubProfileRepo
	events   *recordingPublisher
}

func newAssessmentFixture(t *testing.T, policy string) assessmentFixture {
	t.Helper()
	store, _ := newTestSessionStore(t)
	fixture := assessmentFixture{
		store:    store,
		judge:    newStubJudge(),
		grader:   &stubGrader{},
		results:  &stubAssessmentResultRepo{},
		profiles: newStubProfileRepo(),
		events:   &recordingPublisher{},
	}
	clock := func() time.Time { return time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC) }
	fixture.svc = NewAssessmentService(store, fixture.judge, fixture.grader, fixture.results, fixture.profiles, fixture.events, validator.New(), zerolog.Nop(), AssessmentServiceConfig{
		GradingFallback: policy,
		Clock:           clock,
	})
	return fixture
}

// runAll runs both examples with the first passing and the second as configured.
func runAll(t *testing.T, f assessmentFixture, userID uint, secondPasses bool) dto.AssessmentStateResponse {
	t.Helper()
	f.judge.mu.Lock()
	f.judge.runResults["[2,7,11,15], 9"] = true
	f.judge.runResults["[3,2,4], 6"] = secondPasses
	f.judge.mu.Unlock()

	_, err := f.svc.RunExample(context.Background(), userID, 0)
	require.NoError(t, err)
	resp, err := f.svc.RunExample(context.Background(), userID, 1)
	require.NoError(t, err)
	return resp.State
}

func TestAssessmentOptionsListsSixCombinations(t *testing.T) {
	f := newAssessmentFixture(t, "")
	options := f.svc.Options()
	require.Len(t, options, 6)
	require.Equal(t, "Easy", options[0].Level)
	require.Equal(t, 3, options[0].Count)
	require.Equal(t, "Hard", options[5].Level)
	require.Equal(t, 6, options[5].Count)
}

func TestAssessmentStartRejectsUnknownCombination(t *testing.T) {
	f := newAssessmentFixture(t, "")
	_, err := f.svc.Start(context.Background(), 1, dto.StartAssessmentRequest{Level: "Medium", Count: 4})
	require.ErrorIs(t, err, ErrInvalidAssessmentConfig)

	_, err = f.svc.Start(context.Background(), 1, dto.StartAssessmentRequest{Level: "Expert", Count: 3})
	require.ErrorIs(t, err, ErrInvalidAssessmentConfig)
}

func TestAssessmentStartThenFetchCountsFirstQuestion(t *testing.T) {
	f := newAssessmentFixture(t, "")
	ctx := context.Background()
	require.NoError(t, f.store.Set(ctx, 1, SessionKeyInterviewSessionID, "old-session"))

	started, err := f.svc.Start(ctx, 1, dto.StartAssessmentRequest{Level: "medium", Count: 3})
	require.NoError(t, err)
	require.Equal(t, models.AssessmentConfig{Level: "Medium", Count: 3}, started.Config)
	require.Equal(t, models.AssessmentStatusNotStarted, started.Status)

	_, ok, err := f.store.Get(ctx, 1, SessionKeyInterviewSessionID)
	require.NoError(t, err)
	require.False(t, ok)

	state, err := f.svc.FetchQuestion(ctx, 1, dto.FetchQuestionRequest{Difficulty: "hard"})
	require.NoError(t, err)
	require.Equal(t, []string{"medium"}, f.judge.questionCalls)
	require.Equal(t, 1, state.Progress.QuestionsAttempted)
	require.Equal(t, 3, state.Progress.TotalQuestions)
	require.False(t, state.Progress.Complete)
	require.Equal(t, models.AssessmentStatusInProgress, state.Status)
	require.Contains(t, state.Code, "class Solution {")
	require.Len(t, state.Results, 2)
	require.Nil(t, state.Results[0])
}

func TestAssessmentFetchWithoutStartUsesExplicitDifficulty(t *testing.T) {
	f := newAssessmentFixture(t, "")
	ctx := context.Background()

	state, err := f.svc.FetchQuestion(ctx, 2, dto.FetchQuestionRequest{Difficulty: "Hard"})
	require.NoError(t, err)
	require.Equal(t, "hard", state.Difficulty)
	require.Equal(t, 3, state.Progress.TotalQuestions)

	_, err = f.svc.RunExample(ctx, 2, 0)
	require.NoError(t, err)
	_, err = f.svc.FetchQuestion(ctx, 2, dto.FetchQuestionRequest{Difficulty: "easy"})
	require.NoError(t, err)
	require.Equal(t, []string{"hard", "hard"}, f.judge.questionCalls)
}

func TestAssessmentFetchDefaultsToEasy(t *testing.T) {
	f := newAssessmentFixture(t, "")
	state, err := f.svc.FetchQuestion(context.Background(), 3, dto.FetchQuestionRequest{})
	require.NoError(t, err)
	require.Equal(t, models.DifficultyEasy, state.Difficulty)

	_, err = f.svc.FetchQuestion(context.Background(), 4, dto.FetchQuestionRequest{Difficulty: "impossible"})
	require.ErrorIs(t, err, ErrInvalidDifficulty)
}

func TestAssessmentFetchRetriesMismatchedLabelOnce(t *testing.T) {
	f := newAssessmentFixture(t, "")
	f.judge.labels = []string{"Hard", "Easy"}

	state, err := f.svc.FetchQuestion(context.Background(), 1, dto.FetchQuestionRequest{})
	require.NoError(t, err)
	require.Len(t, f.judge.questionCalls, 2)
	require.Equal(t, "Easy", state.Question.Difficulty)
}

func TestAssessmentFetchAcceptsSecondMismatch(t *testing.T) {
	f := newAssessmentFixture(t, "")
	f.judge.labels = []string{"Hard", "Medium"}

	state, err := f.svc.FetchQuestion(context.Background(), 1, dto.FetchQuestionRequest{})
	require.NoError(t, err)
	require.Len(t, f.judge.questionCalls, 2)
	require.Equal(t, "Medium", state.Question.Difficulty)
	require.False(t, state.Fallback)
}

func TestAssessmentFetchServesFallbackQuestionOnOutage(t *testing.T) {
	f := newAssessmentFixture(t, "")
	f.judge.questionErr = errJudgeDown

	state, err := f.svc.FetchQuestion(context.Background(), 1, dto.FetchQuestionRequest{})
	require.NoError(t, err)
	require.True(t, state.Fallback)
	require.True(t, strings.HasPrefix(state.Question.ID, "fallback_"))
	require.Equal(t, "Arrays Problem", state.Question.Title)
	require.Contains(t, state.Drafts[models.LanguagePython], "def max_sub_array(nums):")
}

func TestAssessmentAttemptedNeverExceedsTotal(t *testing.T) {
	f := newAssessmentFixture(t, "")
	ctx := context.Background()
	_, err := f.svc.Start(ctx, 1, dto.StartAssessmentRequest{Level: "Easy", Count: 3})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = f.svc.FetchQuestion(ctx, 1, dto.FetchQuestionRequest{})
		require.NoError(t, err)
	}
	_, err = f.svc.FetchQuestion(ctx, 1, dto.FetchQuestionRequest{})
	require.ErrorIs(t, err, ErrAssessmentComplete)

	state, err := f.svc.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 3, state.Progress.QuestionsAttempted)
	require.True(t, state.Progress.Complete)
	require.Len(t, f.judge.questionCalls, 3)
}

func TestAssessmentAllTestsRunIsOrderIndependent(t *testing.T) {
	f := newAssessmentFixture(t, "")
	ctx := context.Background()
	_, err := f.svc.FetchQuestion(ctx, 1, dto.FetchQuestionRequest{})
	require.NoError(t, err)

	resp, err := f.svc.RunExample(ctx, 1, 1)
	require.NoError(t, err)
	require.True(t, resp.Stored)
	require.False(t, resp.AllTestsRun)
	require.Equal(t, dto.SubmitStateRunAllTests, resp.State.SubmitButton.State)

	resp, err = f.svc.RunExample(ctx, 1, 0)
	require.NoError(t, err)
	require.True(t, resp.AllTestsRun)

	_, err = f.svc.RunExample(ctx, 1, 2)
	require.ErrorIs(t, err, ErrExampleNotFound)
}

func TestAssessmentSubmitRequiresAllTestsWithoutCallingJudge(t *testing.T) {
	f := newAssessmentFixture(t, "")
	ctx := context.Background()
	_, err := f.svc.FetchQuestion(ctx, 1, dto.FetchQuestionRequest{})
	require.NoError(t, err)
	_, err = f.svc.RunExample(ctx, 1, 0)
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, 1)
	require.ErrorIs(t, err, ErrTestsNotRun)
	require.Zero(t, f.judge.submitCalls)
}

func TestAssessmentLanguageSwitchClearsResults(t *testing.T) {
	f := newAssessmentFixture(t, "")
	ctx := context.Background()
	_, err := f.svc.FetchQuestion(ctx, 1, dto.FetchQuestionRequest{})
	require.NoError(t, err)
	state := runAll(t, f, 1, true)
	require.True(t, state.AllTestsRun)

	state, err = f.svc.SetLanguage(ctx, 1, dto.SetLanguageRequest{Language: "Python"})
	require.NoError(t, err)
	require.Equal(t, models.LanguagePython, state.Language)
	require.False(t, state.AllTestsRun)
	require.Nil(t, state.Results[0])
	require.Nil(t, state.Results[1])

	_, err = f.svc.SetLanguage(ctx, 1, dto.SetLanguageRequest{Language: "rust"})
	require.ErrorIs(t, err, ErrUnsupportedLanguage)
}

func TestAssessmentUpdateCodeClearsResults(t *testing.T) {
	f := newAssessmentFixture(t, "")
	ctx := context.Background()
	_, err := f.svc.FetchQuestion(ctx, 1, dto.FetchQuestionRequest{})
	require.NoError(t, err)
	runAll(t, f, 1, true)

	state, err := f.svc.UpdateCode(ctx, 1, dto.UpdateCodeRequest{Language: "java", Source: "class Solution {}"})
	require.NoError(t, err)
	require.Equal(t, "class Solution {}", state.Code)
	require.False(t, state.AllTestsRun)
}

func TestAssessmentRunResultDiscardedWhenDraftChanges(t *testing.T) {
	f := newAssessmentFixture(t, "")
	ctx := context.Background()
	_, err := f.svc.FetchQuestion(ctx, 1, dto.FetchQuestionRequest{})
	require.NoError(t, err)

	f.judge.runHook = func() {
		_, hookErr := f.svc.UpdateCode(ctx, 1, dto.UpdateCodeRequest{Language: "java", Source: "edited"})
		require.NoError(t, hookErr)
	}

	resp, err := f.svc.RunExample(ctx, 1, 0)
	require.NoError(t, err)
	require.False(t, resp.Stored)
	require.Nil(t, resp.State.Results[0])
}

func TestAssessmentRunExampleOutageStoresFailure(t *testing.T) {
	f := newAssessmentFixture(t, "")
	ctx := context.Background()
	_, err := f.svc.FetchQuestion(ctx, 1, dto.FetchQuestionRequest{})
	require.NoError(t, err)
	f.judge.runErr = errJudgeDown

	resp, err := f.svc.RunExample(ctx, 1, 0)
	require.NoError(t, err)
	require.True(t, resp.Stored)
	require.False(t, resp.Result.Passed)
	require.Equal(t, runExampleFailedMessage, resp.Result.Error)
}

func TestAssessmentRejectedSubmissionShowsWrongAnswer(t *testing.T) {
	f := newAssessmentFixture(t, "")
	ctx := context.Background()
	_, err := f.svc.FetchQuestion(ctx, 1, dto.FetchQuestionRequest{})
	require.NoError(t, err)
	state := runAll(t, f, 1, false)
	require.True(t, state.AllTestsRun)

	f.judge.submitResult = judge.SubmitResult{Success: false, Feedback: "Fails on duplicates"}
	resp, err := f.svc.Submit(ctx, 1)
	require.NoError(t, err)
	require.False(t, resp.Accepted)
	require.Zero(t, resp.PointsAwarded)
	require.Equal(t, dto.SubmitStateWrongAnswer, resp.State.SubmitButton.State)
	require.Equal(t, 1, resp.State.SubmitButton.Passed)
	require.Equal(t, 2, resp.State.SubmitButton.Total)
	require.Contains(t, resp.State.SubmitButton.Label, "(1/2 passed)")
	require.Equal(t, 1, f.judge.submitCalls)
}

func TestAssessmentAcceptedSubmissionScoresOnce(t *testing.T) {
	f := newAssessmentFixture(t, "")
	ctx := context.Background()
	_, err := f.svc.Start(ctx, 1, dto.StartAssessmentRequest{Level: "Easy", Count: 3})
	require.NoError(t, err)
	_, err = f.svc.FetchQuestion(ctx, 1, dto.FetchQuestionRequest{})
	require.NoError(t, err)
	runAll(t, f, 1, true)

	f.judge.submitResult = judge.SubmitResult{Success: true}
	resp, err := f.svc.Submit(ctx, 1)
	require.NoError(t, err)
	require.True(t, resp.Accepted)
	require.Equal(t, 10, resp.PointsAwarded)
	require.Equal(t, dto.SubmitStateNextQuestion, resp.State.SubmitButton.State)

	_, err = f.svc.Submit(ctx, 1)
	require.ErrorIs(t, err, ErrAlreadyAccepted)

	state, err := f.svc.FetchQuestion(ctx, 1, dto.FetchQuestionRequest{})
	require.NoError(t, err)
	require.Equal(t, 10, state.Progress.Score)
	require.Equal(t, 20, state.Progress.MaxScore)
}

func TestAssessmentGradingFallbackPolicies(t *testing.T) {
	cases := []struct {
		name        string
		policy      string
		graderErr   error
		graderOK    bool
		wantSuccess bool
		wantPolicy  string
		graderCalls int
	}{
		{name: "fail open", policy: config.GradingFallbackFailOpen, wantSuccess: true, wantPolicy: config.GradingFallbackFailOpen},
		{name: "fail closed", policy: config.GradingFallbackFailClosed, wantPolicy: config.GradingFallbackFailClosed},
		{name: "evaluator", policy: config.GradingFallbackEvaluator, graderOK: true, wantSuccess: true, wantPolicy: config.GradingFallbackEvaluator, graderCalls: 1},
		{name: "evaluator failure", policy: config.GradingFallbackEvaluator, graderErr: errors.New("quota"), wantPolicy: config.GradingFallbackFailClosed, graderCalls: 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newAssessmentFixture(t, tc.policy)
			ctx := context.Background()
			f.grader.result = ai.GradingResult{Success: tc.graderOK, Feedback: "looks right"}
			f.grader.err = tc.graderErr

			_, err := f.svc.FetchQuestion(ctx, 1, dto.FetchQuestionRequest{})
			require.NoError(t, err)
			runAll(t, f, 1, true)
			f.judge.submitErr = errJudgeDown

			resp, err := f.svc.Submit(ctx, 1)
			require.NoError(t, err)
			require.True(t, resp.Outcome.Fallback)
			require.Equal(t, tc.wantSuccess, resp.Outcome.Success)
			require.Equal(t, tc.wantPolicy, resp.Outcome.Policy)
			require.Equal(t, tc.wantSuccess, resp.Accepted)
			require.Equal(t, tc.graderCalls, f.grader.calls)
			if !tc.wantSuccess {
				require.Equal(t, submitFailedMessage, resp.Outcome.Error)
			}
		})
	}
}

func TestAssessmentEndPersistsOnce(t *testing.T) {
	f := newAssessmentFixture(t, "")
	ctx := context.Background()
	_, err := f.svc.Start(ctx, 5, dto.StartAssessmentRequest{Level: "Hard", Count: 6})
	require.NoError(t, err)
	_, err = f.svc.FetchQuestion(ctx, 5, dto.FetchQuestionRequest{})
	require.NoError(t, err)
	runAll(t, f, 5, true)

	results, err := f.svc.End(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, models.AssessmentStatusFinished, results.Status)
	require.Equal(t, 10, results.Score)
	require.Equal(t, 6, results.QuestionsAttempted)
	require.Equal(t, 6, results.TotalQuestions)
	require.Equal(t, float64(100), results.Percentage)
	require.Equal(t, "Excellent", results.Rating)

	_, err = f.svc.End(ctx, 5)
	require.NoError(t, err)
	require.Len(t, f.results.created, 1)
	require.Equal(t, "hard", f.results.created[0].Difficulty)
	require.Len(t, f.events.events, 1)
	require.Equal(t, EventAssessmentCompleted, f.events.events[0].Type)
	require.Equal(t, 10, f.profiles.profiles[5].CodingScore)
	require.Equal(t, 1, f.profiles.profiles[5].AssessmentsCompleted)

	_, err = f.svc.FetchQuestion(ctx, 5, dto.FetchQuestionRequest{})
	require.ErrorIs(t, err, ErrAssessmentComplete)
	_, err = f.svc.SetLanguage(ctx, 5, dto.SetLanguageRequest{Language: "cpp"})
	require.ErrorIs(t, err, ErrAssessmentFinished)
}

func TestAssessmentSubmitAllNeedsAcceptedFinalQuestion(t *testing.T) {
	f := newAssessmentFixture(t, "")
	ctx := context.Background()
	_, err := f.svc.Start(ctx, 1, dto.StartAssessmentRequest{Level: "Easy", Count: 3})
	require.NoError(t, err)
	_, err = f.svc.FetchQuestion(ctx, 1, dto.FetchQuestionRequest{})
	require.NoError(t, err)

	_, err = f.svc.SubmitAll(ctx, 1)
	require.ErrorIs(t, err, ErrSubmitAllUnavailable)

	f.judge.submitResult = judge.SubmitResult{Success: true}
	for i := 0; i < 2; i++ {
		_, err = f.svc.FetchQuestion(ctx, 1, dto.FetchQuestionRequest{})
		require.NoError(t, err)
	}
	runAll(t, f, 1, false)
	resp, err := f.svc.Submit(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, dto.SubmitStateSubmitAll, resp.State.SubmitButton.State)

	results, err := f.svc.SubmitAll(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 5, results.Score)
	require.Equal(t, 30, results.MaxScore)
	require.Equal(t, "Needs Improvement", results.Rating)
}

func TestAssessmentResultsAndReset(t *testing.T) {
	f := newAssessmentFixture(t, "")
	ctx := context.Background()

	_, err := f.svc.Results(ctx, 1)
	require.ErrorIs(t, err, ErrAssessmentNotFound)

	_, err = f.svc.Start(ctx, 1, dto.StartAssessmentRequest{Level: "Easy", Count: 3})
	require.NoError(t, err)
	results, err := f.svc.Results(ctx, 1)
	require.NoError(t, err)
	require.Zero(t, results.Percentage)

	require.NoError(t, f.svc.Reset(ctx, 1))
	_, err = f.svc.Results(ctx, 1)
	require.ErrorIs(t, err, ErrAssessmentNotFound)
}

func TestAssessmentCorruptStateFallsBackToDefaults(t *testing.T) {
	f := newAssessmentFixture(t, "")
	ctx := context.Background()
	require.NoError(t, f.store.Set(ctx, 1, SessionKeyCodingAssessment, "{not json"))

	state, err := f.svc.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, models.AssessmentConfig{Level: "Easy", Count: 3}, state.Config)
	require.Equal(t, models.AssessmentStatusNotStarted, state.Status)
}

func TestRatingThresholds(t *testing.T) {
	require.Equal(t, "Excellent", ratingFor(80))
	require.Equal(t, "Good", ratingFor(60))
	require.Equal(t, "Good", ratingFor(79.99))
	require.Equal(t, "Needs Improvement", ratingFor(59.5))
}
