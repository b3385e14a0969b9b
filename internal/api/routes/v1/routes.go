package v1

import (
	"sitegen-backend/internal/auth"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Services) {
	registerHealth(r)
	registerAdmin(r, svc)

	// Attached per route so unknown paths still fall through to 404.
	requireAuth := auth.Middleware(svc.Settings.JWTSecret, svc.Users)
	registerAgent(r, svc, requireAuth)
	registerConversations(r, svc, requireAuth)
	registerGenerations(r, svc, requireAuth)
	registerDeploy(r, svc, requireAuth)
	registerStream(r, svc, requireAuth)
}

func registerHealth(r fiber.Router) {
	r.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ok",
		})
	})
}
