package v1

import (
	"sitegen-backend/internal/handlers"

	"github.com/gofiber/fiber/v2"
)

func registerAgent(r fiber.Router, svc *Services, requireAuth fiber.Handler) {
	agentHandler := handlers.NewAgentHandler(svc.Workflow)

	r.Post("/agent", requireAuth, agentHandler.Dispatch)
}
