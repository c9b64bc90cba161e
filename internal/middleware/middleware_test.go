package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/placement-prep-api/internal/middleware"
)

func TestRegisterSetsCorrelationHeader(t *testing.T) {
	app := fiber.New()
	logger := zerolog.Nop()
	middleware.Register(app, middleware.Config{Logger: &logger})
	app.Get("/api/ping", func(c *fiber.Ctx) error {
		return c.SendString(middleware.GetCorrelationID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("X-Request-ID", "req-123")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "req-123", resp.Header.Get("X-Correlation-ID"))
}

func TestRateLimitRejectsBurst(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(3))
		return c.Next()
	})
	app.Post("/", middleware.RateLimit("turns", 2, time.Minute, nil), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/", nil), -1)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}

func TestRateLimitSharesRedisCounters(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	storage := middleware.NewRedisLimiterStorage(client, "test:ratelimit")

	newReplica := func() *fiber.App {
		app := fiber.New()
		app.Use(func(c *fiber.Ctx) error {
			c.Locals("user_id", uint(9))
			return c.Next()
		})
		app.Post("/", middleware.RateLimit("turns", 1, time.Minute, storage), func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusNoContent)
		})
		return app
	}

	resp, err := newReplica().Test(httptest.NewRequest(http.MethodPost, "/", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, err = newReplica().Test(httptest.NewRequest(http.MethodPost, "/", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)

	require.NotEmpty(t, mr.Keys())
	require.NoError(t, storage.Reset())
	require.Empty(t, mr.Keys())
}

func TestRedisLimiterStorageMissingKey(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	value, err := middleware.NewRedisLimiterStorage(client, "").Get("absent")
	require.NoError(t, err)
	require.Nil(t, value)
}

func TestCorrelationIDFromWebsocketQuery(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.CorrelationID())
	app.Get("/voice", func(c *fiber.Ctx) error {
		return c.SendString(middleware.GetCorrelationID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/voice?correlation_id=voice-42", nil)
	req.Header.Set("Upgrade", "websocket")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, "voice-42", resp.Header.Get("X-Correlation-ID"))

	plain := httptest.NewRequest(http.MethodGet, "/voice?correlation_id=voice-42", nil)
	resp, err = app.Test(plain, -1)
	require.NoError(t, err)
	require.NotEqual(t, "voice-42", resp.Header.Get("X-Correlation-ID"))
}

func TestCorrelationIDRejectsUnsafeHeader(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Correlation-ID", "has space")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	id := resp.Header.Get("X-Correlation-ID")
	require.NotEmpty(t, id)
	require.NotEqual(t, "has space", id)
}
