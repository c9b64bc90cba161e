package atsscorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var scorerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "prep",
	Subsystem: "ats_scorer",
	Name:      "request_duration_seconds",
	Help:      "Duration of resume scoring requests",
}, []string{"outcome"})

// Score is a match score the scorer may send as a number or a string.
type Score string

// UnmarshalJSON implements json.Unmarshaler.
func (s *Score) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*s = Score(text)
		return nil
	}

	var number float64
	if err := json.Unmarshal(data, &number); err != nil {
		return fmt.Errorf("match score must be a string or number: %w", err)
	}
	*s = Score(strconv.FormatFloat(number, 'f', -1, 64))
	return nil
}

// Analysis is the scorer's verdict for a resume against a job description.
type Analysis struct {
	MatchScore      Score    `json:"match_score"`
	MissingKeywords []string `json:"missing_keywords"`
	ImprovementTips []string `json:"improvement_tips"`
}

// Client posts resumes to the ATS scoring service.
type Client struct {
	endpoint   string
	httpClient *http.Client
	tracer     trace.Tracer
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

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient creates a scorer client posting to the full process endpoint URL.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		tracer: otel.Tracer("github.com/noah-isme/placement-prep-api/pkg/atsscorer"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Configured reports whether an endpoint was provided.
func (c *Client) Configured() bool {
	return c != nil && c.endpoint != ""
}

// Process uploads the resume and job description in a single attempt.
func (c *Client) Process(ctx context.Context, fileName string, resume []byte, jobDescription string) (Analysis, error) {
	ctx, span := c.tracer.Start(ctx, "ats_scorer.process")
	defer span.End()

	start := time.Now()
	analysis, err := c.process(ctx, fileName, resume, jobDescription)
	outcome := "success"
	if err != nil {
		outcome = "failure"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	scorerDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	return analysis, err
}

func (c *Client) process(ctx context.Context, fileName string, resume []byte, jobDescription string) (Analysis, error) {
	if !c.Configured() {
		return Analysis{}, fmt.Errorf("ats scorer endpoint not configured")
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("resume", fileName)
	if err != nil {
		return Analysis{}, fmt.Errorf("failed to create resume part: %w", err)
	}
	if _, err := part.Write(resume); err != nil {
		return Analysis{}, fmt.Errorf("failed to write resume part: %w", err)
	}
	if err := writer.WriteField("job_description", jobDescription); err != nil {
		return Analysis{}, fmt.Errorf("failed to write job description: %w", err)
	}
	if err := writer.Close(); err != nil {
		return Analysis{}, fmt.Errorf("failed to finalise form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return Analysis{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Analysis{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Analysis{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return Analysis{}, fmt.Errorf("ats scorer returned HTTP %d", resp.StatusCode)
	}

	var analysis Analysis
	if err := json.Unmarshal(raw, &analysis); err != nil {
		return Analysis{}, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return analysis, nil
}
