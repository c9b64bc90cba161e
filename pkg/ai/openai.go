package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "prep",
		Subsystem: "ai",
		Name:      "grading_duration_seconds",
		Help:      "Duration of AI grading requests",
	}, []string{"model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "prep",
		Subsystem: "ai",
		Name:      "grading_failures_total",
		Help:      "Number of AI grading failures",
	}, []string{"model"})
)

// OpenAIConfig defines configuration options for the OpenAI grader.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIGrader implements Grader against the OpenAI chat completion API.
type OpenAIGrader struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIGrader builds a new grader using the provided configuration.
func NewOpenAIGrader(cfg OpenAIConfig) (*OpenAIGrader, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 512
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	return &OpenAIGrader{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/placement-prep-api/pkg/ai/openai"),
		logger: cfg.Logger.With().Str("component", "openai_grader").Logger(),
	}, nil
}

// Grade sends the grading request to OpenAI and parses the verdict.
func (g *OpenAIGrader) Grade(parent context.Context, input GradingInput) (GradingResult, error) {
	ctx, span := g.tracer.Start(parent, "openai.grade", trace.WithAttributes(
		attribute.String("model", g.cfg.Model),
		attribute.String("language", input.Language),
	))
	defer span.End()

	start := time.Now()
	request := openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: graderSystemPrompt(),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildUserPrompt(input),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	resp, err := g.client.CreateChatCompletion(ctx, request)
	aiDuration.WithLabelValues(g.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		return GradingResult{}, g.fail(span, fmt.Errorf("openai grade: %w", err))
	}

	if len(resp.Choices) == 0 {
		return GradingResult{}, g.fail(span, fmt.Errorf("no choices returned from openai"))
	}

	result, err := parseGradingResponse(resp.Choices[0].Message.Content, len(input.Examples))
	if err != nil {
		return GradingResult{}, g.fail(span, err)
	}

	result.Raw = map[string]interface{}{
		"model":             resp.Model,
		"total_tokens":      resp.Usage.TotalTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
	}

	return result, nil
}

func (g *OpenAIGrader) fail(span trace.Span, err error) error {
	aiFailures.WithLabelValues(g.cfg.Model).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	g.logger.Warn().Err(err).Msg("ai grading failed")
	return err
}

func graderSystemPrompt() string {
	return "You are an automated judge for coding interview questions. Respond with a JSON object containing success (boolean), " +
		"passed_tests, total_tests and feedback. Mark success true only when the solution handles every example and obvious edge cases."
}

func buildUserPrompt(input GradingInput) string {
	builder := strings.Builder{}
	builder.WriteString("# Question\n")
	builder.WriteString(input.QuestionTitle)
	builder.WriteString("\n\n## Description\n")
	builder.WriteString(input.Description)
	builder.WriteString("\n\n## Examples\n")
	for i, example := range input.Examples {
		builder.WriteString("Example ")
		builder.WriteString(strconv.Itoa(i + 1))
		builder.WriteString("\nInput: ")
		builder.WriteString(example.Input)
		builder.WriteString("\nExpected Output: ")
		builder.WriteString(example.ExpectedOutput)
		if example.LocalOutput != "" {
			builder.WriteString("\nObserved Output: ")
			builder.WriteString(example.LocalOutput)
		}
		builder.WriteString("\n\n")
	}
	builder.WriteString("## Language\n")
	builder.WriteString(input.Language)
	builder.WriteString("\n\n## Solution\n")
	builder.WriteString(input.Code)
	builder.WriteString("\nReturn JSON.")
	return builder.String()
}

func parseGradingResponse(content string, exampleCount int) (GradingResult, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var result GradingResult
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &result); err != nil {
		return GradingResult{}, fmt.Errorf("parse grading json: %w", err)
	}

	if result.TotalTests <= 0 {
		result.TotalTests = exampleCount
	}
	if result.PassedTests < 0 {
		result.PassedTests = 0
	}
	if result.PassedTests > result.TotalTests {
		result.PassedTests = result.TotalTests
	}

	return result, nil
}
