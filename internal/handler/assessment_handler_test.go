package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/placement-prep-api/internal/dto"
	"github.com/noah-isme/placement-prep-api/internal/handler"
	"github.com/noah-isme/placement-prep-api/internal/models"
	"github.com/noah-isme/placement-prep-api/internal/service"
)

type mockAssessmentService struct {
	userID   uint
	start    dto.StartAssessmentRequest
	fetch    dto.FetchQuestionRequest
	runIndex int
	state    dto.AssessmentStateResponse
	results  dto.AssessmentResultsResponse
	err      error
}

func (m *mockAssessmentService) Options() []dto.AssessmentOption {
	return []dto.AssessmentOption{{Level: "Easy", Count: 3, Label: "Easy - 3 questions"}}
}

func (m *mockAssessmentService) Start(_ context.Context, userID uint, req dto.StartAssessmentRequest) (dto.AssessmentStateResponse, error) {
	m.userID, m.start = userID, req
	return m.state, m.err
}

func (m *mockAssessmentService) Get(_ context.Context, userID uint) (dto.AssessmentStateResponse, error) {
	m.userID = userID
	return m.state, m.err
}

func (m *mockAssessmentService) FetchQuestion(_ context.Context, userID uint, req dto.FetchQuestionRequest) (dto.AssessmentStateResponse, error) {
	m.userID, m.fetch = userID, req
	return m.state, m.err
}

func (m *mockAssessmentService) SetLanguage(_ context.Context, userID uint, _ dto.SetLanguageRequest) (dto.AssessmentStateResponse, error) {
	m.userID = userID
	return m.state, m.err
}

func (m *mockAssessmentService) UpdateCode(_ context.Context, userID uint, _ dto.UpdateCodeRequest) (dto.AssessmentStateResponse, error) {
	m.userID = userID
	return m.state, m.err
}

func (m *mockAssessmentService) RunExample(_ context.Context, userID uint, index int) (dto.RunExampleResponse, error) {
	m.userID, m.runIndex = userID, index
	return dto.RunExampleResponse{Index: index, State: m.state}, m.err
}

func (m *mockAssessmentService) Submit(_ context.Context, userID uint) (dto.SubmitSolutionResponse, error) {
	m.userID = userID
	return dto.SubmitSolutionResponse{State: m.state}, m.err
}

func (m *mockAssessmentService) End(_ context.Context, userID uint) (dto.AssessmentResultsResponse, error) {
	m.userID = userID
	return m.results, m.err
}

func (m *mockAssessmentService) SubmitAll(_ context.Context, userID uint) (dto.AssessmentResultsResponse, error) {
	m.userID = userID
	return m.results, m.err
}

func (m *mockAssessmentService) Results(_ context.Context, userID uint) (dto.AssessmentResultsResponse, error) {
	m.userID = userID
	return m.results, m.err
}

func (m *mockAssessmentService) Reset(_ context.Context, userID uint) error {
	m.userID = userID
	return m.err
}

func newAssessmentApp(svc service.AssessmentService) *fiber.App {
	app, group := newUserApp("/api/v2/assessment", 7)
	handler.NewAssessmentHandler(svc, validator.New(), zerolog.Nop()).Register(group)
	return app
}

func jsonRequest(t *testing.T, method, target string, payload interface{}) *http.Request {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestAssessmentStartCreatesSession(t *testing.T) {
	svc := &mockAssessmentService{state: dto.AssessmentStateResponse{
		Status: models.AssessmentStatusInProgress,
		Config: models.AssessmentConfig{Level: "Medium", Count: 3},
	}}
	app := newAssessmentApp(svc)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v2/assessment/start", dto.StartAssessmentRequest{Level: "Medium", Count: 3}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var body envelope
	decodeResponse(t, resp, &body)
	require.True(t, body.Success)
	require.Equal(t, uint(7), svc.userID)
	require.Equal(t, "Medium", svc.start.Level)
}

func TestAssessmentStartRejectsMissingCount(t *testing.T) {
	svc := &mockAssessmentService{}
	app := newAssessmentApp(svc)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v2/assessment/start", map[string]string{"level": "Easy"}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Zero(t, svc.userID)
}

func TestAssessmentFetchQuestionAcceptsEmptyBody(t *testing.T) {
	svc := &mockAssessmentService{}
	app := newAssessmentApp(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v2/assessment/questions", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Empty(t, svc.fetch.Difficulty)
}

func TestAssessmentRunExampleParsesIndex(t *testing.T) {
	svc := &mockAssessmentService{}
	app := newAssessmentApp(svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v2/assessment/examples/2/run", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, 2, svc.runIndex)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/api/v2/assessment/examples/two/run", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAssessmentErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		method string
		path   string
		status int
	}{
		{"tests not run", service.ErrTestsNotRun, http.MethodPost, "/api/v2/assessment/submit", fiber.StatusConflict},
		{"all attempted", service.ErrAssessmentComplete, http.MethodPost, "/api/v2/assessment/questions", fiber.StatusConflict},
		{"submit all early", service.ErrSubmitAllUnavailable, http.MethodPost, "/api/v2/assessment/submit-all", fiber.StatusConflict},
		{"bad language", service.ErrUnsupportedLanguage, http.MethodPut, "/api/v2/assessment/language", fiber.StatusBadRequest},
		{"bad difficulty", service.ErrInvalidDifficulty, http.MethodPost, "/api/v2/assessment/questions", fiber.StatusBadRequest},
		{"no record", service.ErrAssessmentNotFound, http.MethodGet, "/api/v2/assessment/results", fiber.StatusNotFound},
		{"example range", service.ErrExampleNotFound, http.MethodPost, "/api/v2/assessment/examples/9/run", fiber.StatusNotFound},
		{"unexpected", context.DeadlineExceeded, http.MethodPost, "/api/v2/assessment/end", fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newAssessmentApp(&mockAssessmentService{err: tc.err})
			resp, err := app.Test(jsonRequest(t, tc.method, tc.path, map[string]string{"language": "python"}))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)

			var body envelope
			decodeResponse(t, resp, &body)
			require.False(t, body.Success)
		})
	}
}

func TestAssessmentOptions(t *testing.T) {
	app := newAssessmentApp(&mockAssessmentService{})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v2/assessment/options", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Data []dto.AssessmentOption `json:"data"`
	}
	decodeResponse(t, resp, &body)
	require.Len(t, body.Data, 1)
}
