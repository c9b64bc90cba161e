package interviewer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
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
	interviewerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "prep",
		Subsystem: "interviewer",
		Name:      "request_duration_seconds",
		Help:      "Duration of requests sent to the interview service",
	}, []string{"operation"})

	interviewerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "prep",
		Subsystem: "interviewer",
		Name:      "request_failures_total",
		Help:      "Number of failed requests sent to the interview service",
	}, []string{"operation"})
)

// StatusError is returned when the interview service answers with a non-success HTTP status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("interview service returned HTTP %d: %s", e.StatusCode, e.Body)
}

// Resume is an optional file attached to a new interview.
type Resume struct {
	FileName string
	Content  []byte
}

// StartRequest opens a new interview.
type StartRequest struct {
	Name      string
	VoiceMode bool
	Resume    *Resume
}

// StartResponse is returned when an interview opens.
type StartResponse struct {
	Success      bool   `json:"success"`
	SessionID    string `json:"session_id"`
	Message      string `json:"message"`
	TextForAudio string `json:"text_for_audio"`
	Error        string `json:"error"`
}

// TurnResponse carries the interviewer's reply to a candidate message.
type TurnResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	AudioURL string `json:"audio_url"`
	Error    string `json:"error"`
}

// EndResponse carries the final assessment.
type EndResponse struct {
	Success    bool                   `json:"success"`
	Assessment map[string]interface{} `json:"assessment"`
	Error      string                 `json:"error"`
}

// Speech is the outcome of a synthesis request.
type Speech struct {
	Audio         []byte
	ContentType   string
	UseBrowserTTS bool
	Text          string
}

// Client talks to the interview dialogue service.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	speechClient *http.Client
	tracer       trace.Tracer
	logger       zerolog.Logger
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets the client used for dialogue calls.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the timeout for dialogue calls.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithSpeechTimeout sets the timeout for audio synthesis.
func WithSpeechTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.speechClient.Timeout = timeout
		}
	}
}

// WithLogger attaches a logger for request diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger.With().Str("component", "interviewer_client").Logger()
	}
}

// NewClient creates an interview service client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	transport := otelhttp.NewTransport(http.DefaultTransport)
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 30 * time.Second, Transport: transport},
		speechClient: &http.Client{Timeout: 30 * time.Second, Transport: transport},
		tracer:       otel.Tracer("github.com/noah-isme/placement-prep-api/pkg/interviewer"),
		logger:       zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Start opens an interview, uploading the resume when present.
func (c *Client) Start(ctx context.Context, req StartRequest) (StartResponse, error) {
	ctx, span := c.startSpan(ctx, "start_interview")
	defer span.End()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("name", req.Name); err != nil {
		return StartResponse{}, c.fail(span, "start_interview", err)
	}
	if err := writer.WriteField("voice_mode", strconv.FormatBool(req.VoiceMode)); err != nil {
		return StartResponse{}, c.fail(span, "start_interview", err)
	}
	if req.Resume != nil {
		part, err := writer.CreateFormFile("resume", req.Resume.FileName)
		if err != nil {
			return StartResponse{}, c.fail(span, "start_interview", err)
		}
		if _, err := part.Write(req.Resume.Content); err != nil {
			return StartResponse{}, c.fail(span, "start_interview", err)
		}
	}
	if err := writer.Close(); err != nil {
		return StartResponse{}, c.fail(span, "start_interview", err)
	}

	start := time.Now()
	raw, _, err := c.do(ctx, c.httpClient, "/start_interview", writer.FormDataContentType(), body)
	interviewerDuration.WithLabelValues("start_interview").Observe(time.Since(start).Seconds())
	if err != nil {
		return StartResponse{}, c.fail(span, "start_interview", err)
	}

	var resp StartResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return StartResponse{}, c.fail(span, "start_interview", fmt.Errorf("failed to unmarshal response: %w", err))
	}
	if !resp.Success || resp.SessionID == "" {
		return StartResponse{}, c.fail(span, "start_interview", fmt.Errorf("interview not started: %s", resp.Error))
	}

	return resp, nil
}

// Respond forwards a candidate message and returns the interviewer's reply.
func (c *Client) Respond(ctx context.Context, sessionID, message string) (TurnResponse, error) {
	var resp TurnResponse
	payload := map[string]string{"session_id": sessionID, "message": message}
	if err := c.postJSON(ctx, "interview_response", "/interview_response", payload, &resp); err != nil {
		return TurnResponse{}, err
	}
	if !resp.Success {
		return TurnResponse{}, fmt.Errorf("interview response failed: %s", resp.Error)
	}

	return resp, nil
}

// End closes the interview and returns the final assessment.
func (c *Client) End(ctx context.Context, sessionID string) (EndResponse, error) {
	var resp EndResponse
	payload := map[string]string{"session_id": sessionID}
	if err := c.postJSON(ctx, "end_interview", "/end_interview", payload, &resp); err != nil {
		return EndResponse{}, err
	}
	if !resp.Success {
		return EndResponse{}, fmt.Errorf("end interview failed: %s", resp.Error)
	}

	return resp, nil
}

// StreamAudio asks the service to synthesize speech for the given text.
func (c *Client) StreamAudio(ctx context.Context, text string) (Speech, error) {
	ctx, span := c.startSpan(ctx, "stream_audio")
	defer span.End()

	encoded, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return Speech{}, c.fail(span, "stream_audio", err)
	}

	path := fmt.Sprintf("/stream_audio?t=%d", time.Now().UnixMilli())
	start := time.Now()
	raw, contentType, err := c.do(ctx, c.speechClient, path, "application/json", bytes.NewReader(encoded))
	interviewerDuration.WithLabelValues("stream_audio").Observe(time.Since(start).Seconds())
	if err != nil {
		return Speech{}, c.fail(span, "stream_audio", err)
	}

	if strings.Contains(contentType, "application/json") {
		var payload struct {
			UseBrowserTTS bool   `json:"use_browser_tts"`
			Text          string `json:"text"`
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			return Speech{UseBrowserTTS: true, Text: text}, nil
		}
		if payload.Text == "" {
			payload.Text = text
		}
		return Speech{UseBrowserTTS: payload.UseBrowserTTS, Text: payload.Text, ContentType: contentType}, nil
	}

	if contentType == "" {
		contentType = "audio/mpeg"
	}

	return Speech{Audio: raw, ContentType: contentType, Text: text}, nil
}

func (c *Client) postJSON(ctx context.Context, operation, path string, payload, target interface{}) error {
	ctx, span := c.startSpan(ctx, operation)
	defer span.End()

	encoded, err := json.Marshal(payload)
	if err != nil {
		return c.fail(span, operation, fmt.Errorf("failed to marshal request: %w", err))
	}

	start := time.Now()
	raw, _, err := c.do(ctx, c.httpClient, path, "application/json", bytes.NewReader(encoded))
	interviewerDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		return c.fail(span, operation, err)
	}

	if err := json.Unmarshal(raw, target); err != nil {
		return c.fail(span, operation, fmt.Errorf("failed to unmarshal response: %w", err))
	}

	return nil
}

func (c *Client) do(ctx context.Context, client *http.Client, path, contentType string, body io.Reader) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, "", &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	return raw, resp.Header.Get("Content-Type"), nil
}

func (c *Client) startSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, "interviewer."+operation, trace.WithAttributes(
		attribute.String("interviewer.operation", operation),
	))
}

func (c *Client) fail(span trace.Span, operation string, err error) error {
	interviewerFailures.WithLabelValues(operation).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.logger.Debug().Err(err).Str("operation", operation).Msg("interview service request failed")
	return err
}
