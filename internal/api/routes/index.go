package routes

import (
	v1 "sitegen-backend/internal/api/routes/v1"

	"github.com/gofiber/fiber/v2"
)

func Register(app *fiber.App, svc *v1.Services) {
	// API v1 group
	api := app.Group("/api")
	v1Group := api.Group("/v1")

	v1.RegisterRoutes(v1Group, svc)
}
