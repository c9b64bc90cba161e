package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/placement-prep-api/internal/config"
	"github.com/noah-isme/placement-prep-api/internal/handler"
	"github.com/noah-isme/placement-prep-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AssessmentHandler   *handler.AssessmentHandler
	InterviewHandler    *handler.InterviewHandler
	ResumeHandler       *handler.ResumeHandler
	ProfileHandler      *handler.ProfileHandler
	ProfileImageHandler *handler.ProfileImageHandler
	AuthMiddleware      []fiber.Handler
	TurnLimiter         fiber.Handler
	HealthProbes        map[string]handler.HealthProbe
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	auth := deps.AuthMiddleware

	if deps.AssessmentHandler != nil {
		deps.AssessmentHandler.Register(app.Group("/api/v2/assessment", auth...))
	}

	if deps.InterviewHandler != nil {
		deps.InterviewHandler.Register(app.Group("/api/v2/interviews", auth...), deps.TurnLimiter)
	}

	if deps.ResumeHandler != nil {
		deps.ResumeHandler.Register(app.Group("/api/v2/resume", auth...))
	}

	if deps.ProfileHandler != nil {
		deps.ProfileHandler.Register(app.Group("/api/v2/profile", auth...))
	}

	// Image routes keep their historical unversioned paths for existing clients.
	if deps.ProfileImageHandler != nil {
		deps.ProfileImageHandler.Register(app.Group("/api"))
	}
}
