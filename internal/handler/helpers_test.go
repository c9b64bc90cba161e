package handler_test

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, json.Unmarshal(data, target))
}

// newUserApp returns an app whose group authenticates every request as userID.
func newUserApp(prefix string, userID uint) (*fiber.App, fiber.Router) {
	app := fiber.New()
	group := app.Group(prefix, func(c *fiber.Ctx) error {
		c.Locals("user_id", userID)
		c.Locals("user_email", "candidate@example.com")
		return c.Next()
	})
	return app, group
}
