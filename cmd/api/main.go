package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"github.com/noah-isme/placement-prep-api/internal/config"
	"github.com/noah-isme/placement-prep-api/internal/database"
	"github.com/noah-isme/placement-prep-api/internal/handler"
	"github.com/noah-isme/placement-prep-api/internal/middleware"
	"github.com/noah-isme/placement-prep-api/internal/repository"
	"github.com/noah-isme/placement-prep-api/internal/router"
	"github.com/noah-isme/placement-prep-api/internal/service"
	"github.com/noah-isme/placement-prep-api/pkg/ai"
	"github.com/noah-isme/placement-prep-api/pkg/atsscorer"
	cloud "github.com/noah-isme/placement-prep-api/pkg/cloudinary"
	"github.com/noah-isme/placement-prep-api/pkg/interviewer"
	"github.com/noah-isme/placement-prep-api/pkg/judge"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelStartup()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(startupCtx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	var (
		mongoClient *mongo.Client
		mongoDB     *mongo.Database
	)
	if cfg.MongoURI != "" {
		mongoClient, mongoDB, err = database.ConnectMongo(startupCtx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			log.Fatalf("failed to connect to mongo: %v", err)
		}
		defer func() {
			_ = mongoClient.Disconnect(context.Background())
		}()
	} else {
		logger.Warn().Msg("mongo uri not configured, profile image routes disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, events go to redis only")
		} else {
			defer natsConn.Close()
		}
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	judgeClient := judge.NewClient(cfg.JudgeBaseURL,
		judge.WithTimeout(cfg.ExternalTimeout),
		judge.WithLogger(logger),
	)
	interviewClient := interviewer.NewClient(cfg.InterviewBaseURL,
		interviewer.WithTimeout(cfg.ExternalTimeout),
		interviewer.WithSpeechTimeout(cfg.SpeechTimeout),
		interviewer.WithLogger(logger),
	)

	var grader ai.Grader
	if cfg.OpenAIAPIKey != "" {
		openaiGrader, err := ai.NewOpenAIGrader(ai.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIModel,
			Logger: logger,
		})
		if err != nil {
			log.Fatalf("failed to create openai grader: %v", err)
		}
		grader = openaiGrader
	}

	var scorer service.ResumeScorer
	if scorerClient := atsscorer.NewClient(cfg.ResumeScorerURL, atsscorer.WithTimeout(cfg.ResumeTimeout)); scorerClient.Configured() {
		scorer = scorerClient
	}

	var archive service.ResumeArchive
	if cfg.CloudinaryCloudName != "" {
		uploader, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
		archive = uploader
	}

	maxUploadBytes := cfg.MaxUploadMB * 1024 * 1024

	profileRepo := repository.NewProfileRepository(db)
	resultRepo := repository.NewAssessmentResultRepository(db)
	interviewRepo := repository.NewInterviewRepository(db)
	analysisRepo := repository.NewResumeAnalysisRepository(db)

	store := service.NewSessionStore(redisClient, "prep", logger)
	events := service.NewEventPublisher(natsConn, redisClient, cfg.EventChannelBase, logger)

	assessmentService := service.NewAssessmentService(store, judgeClient, grader, resultRepo, profileRepo, events, validate, logger, service.AssessmentServiceConfig{
		GradingFallback: cfg.GradingFallback,
	})
	interviewService := service.NewInterviewService(store, interviewClient, interviewRepo, profileRepo, events, validate, logger, service.InterviewServiceConfig{
		MaxResumeBytes:   maxUploadBytes,
		EndRedirectDelay: cfg.EndRedirectDelay,
	})
	voiceService := service.NewVoiceService(interviewService, logger, service.VoiceServiceConfig{
		SilenceWindow: cfg.SilenceWindow,
		RearmDelay:    cfg.RearmDelay,
	})
	resumeService := service.NewResumeService(store, scorer, archive, analysisRepo, profileRepo, events, validate, logger, service.ResumeServiceConfig{
		MaxResumeBytes: maxUploadBytes,
		Timeout:        cfg.ResumeTimeout,
		MockByDefault:  cfg.ResumeMockByDefault,
	})
	profileService := service.NewProfileService(profileRepo, resultRepo, validate, logger)

	deps := router.Dependencies{
		AssessmentHandler: handler.NewAssessmentHandler(assessmentService, validate, logger),
		InterviewHandler:  handler.NewInterviewHandler(interviewService, voiceService, validate, logger),
		ResumeHandler:     handler.NewResumeHandler(resumeService, logger),
		ProfileHandler:    handler.NewProfileHandler(profileService, logger),
		AuthMiddleware:    []fiber.Handler{middleware.JWTProtected(cfg.JWTSecret), middleware.RequireUser()},
		TurnLimiter:       middleware.RateLimit("interview_turns", cfg.TurnRateLimit, time.Minute, middleware.NewRedisLimiterStorage(redisClient, "prep:ratelimit")),
		HealthProbes:      healthProbes(db, redisClient, mongoClient),
	}
	if mongoDB != nil {
		imageService := service.NewProfileImageService(repository.NewProfileImageRepository(mongoDB), validate, logger, maxUploadBytes)
		deps.ProfileImageHandler = handler.NewProfileImageHandler(imageService, logger)
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    maxUploadBytes * 2,
	})

	middleware.Register(app, middleware.Config{
		Logger:           &logger,
		EnableStackTrace: cfg.AppEnv != "production",
		AllowOrigins:     cfg.CORSAllowOrigins,
	})
	router.Register(app, cfg, deps)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, logger)
}

func healthProbes(db *gorm.DB, redisClient *redis.Client, mongoClient *mongo.Client) map[string]handler.HealthProbe {
	probes := map[string]handler.HealthProbe{
		"postgres": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"redis": func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		},
	}
	if mongoClient != nil {
		probes["mongo"] = func(ctx context.Context) error {
			return mongoClient.Ping(ctx, nil)
		}
	}
	return probes
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
