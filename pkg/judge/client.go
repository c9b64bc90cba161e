package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	judgeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "prep",
		Subsystem: "judge",
		Name:      "request_duration_seconds",
		Help:      "Duration of requests sent to the coding judge service",
	}, []string{"operation"})

	judgeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "prep",
		Subsystem: "judge",
		Name:      "request_failures_total",
		Help:      "Number of failed requests sent to the coding judge service",
	}, []string{"operation"})
)

// StatusError is returned when the judge answers with a non-success HTTP status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("judge returned HTTP %d: %s", e.StatusCode, e.Body)
}

// Example is a worked input/output pair of a question.
type Example struct {
	Input       FlexString `json:"input"`
	Output      FlexString `json:"output"`
	Explanation string     `json:"explanation,omitempty"`
}

// Question is a generated coding problem.
type Question struct {
	ID                FlexString        `json:"id"`
	Title             string            `json:"title"`
	Difficulty        string            `json:"difficulty"`
	Description       string            `json:"description"`
	Examples          []Example         `json:"examples"`
	Constraints       []string          `json:"constraints"`
	FunctionSignature map[string]string `json:"function_signature"`
}

// TestCase is sent to the judge when running or submitting.
type TestCase struct {
	Input       string `json:"input"`
	Output      string `json:"output"`
	Explanation string `json:"explanation,omitempty"`
}

// RunRequest asks the judge to evaluate a draft against one example.
type RunRequest struct {
	Language string   `json:"language"`
	Code     string   `json:"code"`
	TestCase TestCase `json:"test_case"`
}

// RunResult is the verdict for a single example.
type RunResult struct {
	Passed         bool       `json:"passed"`
	ActualOutput   FlexString `json:"actual_output"`
	ExpectedOutput FlexString `json:"expected_output"`
	Explanation    string     `json:"explanation"`
	Error          string     `json:"error"`
}

// SubmitRequest asks the judge to grade a whole solution.
type SubmitRequest struct {
	QuestionDescription string     `json:"question_description"`
	Examples            []TestCase `json:"examples"`
	Language            string     `json:"language"`
	Code                string     `json:"code"`
}

// SubmitResult is the judge's verdict for a solution.
type SubmitResult struct {
	Success     bool   `json:"success"`
	PassedTests int    `json:"passed_tests"`
	TotalTests  int    `json:"total_tests"`
	Feedback    string `json:"feedback"`
	Error       string `json:"error"`
}

// Client talks to the coding judge HTTP service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
	logger     zerolog.Logger
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithLogger attaches a logger for request diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger.With().Str("component", "judge_client").Logger()
	}
}

// NewClient creates a judge client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		tracer: otel.Tracer("github.com/noah-isme/placement-prep-api/pkg/judge"),
		logger: zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// GetQuestion requests a freshly generated question of the given difficulty.
func (c *Client) GetQuestion(ctx context.Context, difficulty string) (Question, error) {
	path := "/get_question?difficulty=" + url.QueryEscape(difficulty)

	var question Question
	if err := c.call(ctx, "get_question", http.MethodGet, path, nil, &question); err != nil {
		return Question{}, err
	}

	return question, nil
}

// RunTestCase evaluates a draft against a single example.
func (c *Client) RunTestCase(ctx context.Context, req RunRequest) (RunResult, error) {
	var result RunResult
	if err := c.call(ctx, "run_test_case", http.MethodPost, "/run_test_case", req, &result); err != nil {
		return RunResult{}, err
	}

	return result, nil
}

// SubmitSolution grades a complete solution.
func (c *Client) SubmitSolution(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	var result SubmitResult
	if err := c.call(ctx, "submit_solution", http.MethodPost, "/submit_solution", req, &result); err != nil {
		return SubmitResult{}, err
	}

	return result, nil
}

func (c *Client) call(parent context.Context, operation, method, path string, payload, target interface{}) error {
	ctx, span := c.tracer.Start(parent, "judge."+operation, trace.WithAttributes(
		attribute.String("http.method", method),
	))
	defer span.End()

	start := time.Now()
	err := c.doJSON(ctx, method, path, payload, target)
	judgeDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		judgeFailures.WithLabelValues(operation).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Debug().Err(err).Str("operation", operation).Msg("judge request failed")
		return err
	}

	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, target interface{}) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(respBody), 256)}
	}

	if err := json.Unmarshal(respBody, target); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit] + "..." + strconv.Itoa(len(value)-limit) + " more bytes"
}
