package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type correlationIDKey struct{}

var correlationKey = correlationIDKey{}

const maxCorrelationIDLength = 128

// CorrelationID middleware ensures every request carries a correlation identifier for tracing across services.
// Browsers cannot set headers on websocket upgrades, so the voice channel may pass it as a query parameter.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		incoming := ""
		for _, candidate := range []string{c.Get("X-Correlation-ID"), c.Get("X-Request-ID"), upgradeCorrelationID(c)} {
			if id := sanitizeCorrelationID(candidate); id != "" {
				incoming = id
				break
			}
		}
		if incoming == "" {
			incoming = uuid.NewString()
		}

		c.Locals("correlation_id", incoming)
		c.Set("X-Correlation-ID", incoming)

		ctx := context.WithValue(c.Context(), correlationKey, incoming)
		c.SetUserContext(ctx)

		return c.Next()
	}
}

func upgradeCorrelationID(c *fiber.Ctx) string {
	if !strings.EqualFold(c.Get(fiber.HeaderUpgrade), "websocket") {
		return ""
	}
	return c.Query("correlation_id")
}

// sanitizeCorrelationID drops ids that are oversized or carry characters unsafe for logs and headers.
func sanitizeCorrelationID(value string) string {
	value = strings.TrimSpace(value)
	if value == "" || len(value) > maxCorrelationIDLength {
		return ""
	}
	for _, r := range value {
		if r < 0x21 || r > 0x7e {
			return ""
		}
	}
	return value
}

// CorrelationIDFromContext extracts the correlation identifier from context, if present.
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if value := ctx.Value(correlationKey); value != nil {
		if id, ok := value.(string); ok {
			return id
		}
	}
	return ""
}

// GetCorrelationID returns the correlation identifier bound to the active request.
func GetCorrelationID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if value := c.Locals("correlation_id"); value != nil {
		if id, ok := value.(string); ok {
			return id
		}
	}
	return CorrelationIDFromContext(c.Context())
}

// ContextWithCorrelation attaches the correlation identifier to the provided context.
func ContextWithCorrelation(ctx context.Context, correlationID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(correlationID) == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey, strings.TrimSpace(correlationID))
}

// CorrelatedLogger returns base enriched with the correlation identifier carried by ctx.
func CorrelatedLogger(base zerolog.Logger, ctx context.Context) zerolog.Logger {
	id := CorrelationIDFromContext(ctx)
	if id == "" {
		return base
	}
	return base.With().Str("correlation_id", id).Logger()
}
