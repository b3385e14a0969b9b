package v1

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sitegen-backend/internal/auth"
	"sitegen-backend/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp() *fiber.App {
	app := fiber.New()
	RegisterRoutes(app.Group("/api/v1"), &Services{Settings: config.Settings{JWTSecret: "test-secret"}})
	return app
}

func statusOf(t *testing.T, app *fiber.App, req *http.Request) int {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestUnknownPathIsNotFound(t *testing.T) {
	app := newTestApp()

	assert.Equal(t, http.StatusNotFound, statusOf(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil)))
	assert.Equal(t, http.StatusNotFound, statusOf(t, app, httptest.NewRequest(http.MethodPost, "/api/v1/conversations/x/archive", nil)))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app := newTestApp()

	assert.Equal(t, http.StatusOK, statusOf(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)))
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/conversations", nil)))
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, app, httptest.NewRequest(http.MethodPost, "/api/v1/deploy", nil)))

	token, err := auth.GenerateToken(auth.Identity{UserID: "user-1"}, "other-secret", time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/agent", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, app, req))
}
