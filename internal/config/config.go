package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Grading fallback policies applied when the coding judge cannot be reached during submission.
const (
	GradingFallbackFailOpen   = "fail_open"
	GradingFallbackFailClosed = "fail_closed"
	GradingFallbackEvaluator  = "evaluator"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	CORSAllowOrigins       string
	DatabaseURL            string
	RedisURL               string
	MongoURI               string
	MongoDatabase          string
	NATSURL                string
	EventChannelBase       string
	JWTSecret              string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	JudgeBaseURL           string
	InterviewBaseURL       string
	ResumeScorerURL        string
	ExternalTimeout        time.Duration
	SpeechTimeout          time.Duration
	ResumeTimeout          time.Duration
	GradingFallback        string
	OpenAIAPIKey           string
	OpenAIModel            string
	ResumeMockByDefault    bool
	MaxUploadMB            int
	SilenceWindow          time.Duration
	RearmDelay             time.Duration
	EndRedirectDelay       time.Duration
	TurnRateLimit          int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PREP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Placement Prep API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("mongo.database", "placement_prep")
	v.SetDefault("events.channel", "prep")
	v.SetDefault("cloudinary.folder", "placement-prep/resumes")
	v.SetDefault("judge.url", "http://127.0.0.1:5000")
	v.SetDefault("interview.url", "http://localhost:5001")
	v.SetDefault("external.timeout", "15s")
	v.SetDefault("speech.timeout", "30s")
	v.SetDefault("resume.timeout", "10s")
	v.SetDefault("grading.fallback", GradingFallbackFailOpen)
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("resume.mock_default", true)
	v.SetDefault("upload.max_mb", 5)
	v.SetDefault("voice.silence_window", "4s")
	v.SetDefault("voice.rearm_delay", "1500ms")
	v.SetDefault("interview.end_redirect_delay", "2s")
	v.SetDefault("interview.turn_rate_limit", 30)

	durations := map[string]time.Duration{}
	for _, key := range []string{"external.timeout", "speech.timeout", "resume.timeout", "voice.silence_window", "voice.rearm_delay", "interview.end_redirect_delay"} {
		parsed, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", key, err)
		}
		durations[key] = parsed
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		CORSAllowOrigins:       v.GetString("cors.allow_origins"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		MongoURI:               v.GetString("mongo.uri"),
		MongoDatabase:          v.GetString("mongo.database"),
		NATSURL:                v.GetString("nats.url"),
		EventChannelBase:       v.GetString("events.channel"),
		JWTSecret:              v.GetString("jwt.secret"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		JudgeBaseURL:           strings.TrimRight(v.GetString("judge.url"), "/"),
		InterviewBaseURL:       strings.TrimRight(v.GetString("interview.url"), "/"),
		ResumeScorerURL:        v.GetString("resume.scorer_url"),
		ExternalTimeout:        durations["external.timeout"],
		SpeechTimeout:          durations["speech.timeout"],
		ResumeTimeout:          durations["resume.timeout"],
		GradingFallback:        strings.ToLower(strings.TrimSpace(v.GetString("grading.fallback"))),
		OpenAIAPIKey:           v.GetString("openai_api_key"),
		OpenAIModel:            v.GetString("openai.model"),
		ResumeMockByDefault:    v.GetBool("resume.mock_default"),
		MaxUploadMB:            v.GetInt("upload.max_mb"),
		SilenceWindow:          durations["voice.silence_window"],
		RearmDelay:             durations["voice.rearm_delay"],
		EndRedirectDelay:       durations["interview.end_redirect_delay"],
		TurnRateLimit:          v.GetInt("interview.turn_rate_limit"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	switch cfg.GradingFallback {
	case GradingFallbackFailOpen, GradingFallbackFailClosed, GradingFallbackEvaluator:
	default:
		return Config{}, fmt.Errorf("unknown grading fallback policy %q", cfg.GradingFallback)
	}

	if cfg.GradingFallback == GradingFallbackEvaluator && cfg.OpenAIAPIKey == "" {
		return Config{}, fmt.Errorf("grading fallback %q requires an openai api key", GradingFallbackEvaluator)
	}

	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 5
	}

	if cfg.TurnRateLimit <= 0 {
		cfg.TurnRateLimit = 30
	}

	return cfg, nil
}
