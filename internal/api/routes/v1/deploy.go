package v1

import (
	"sitegen-backend/internal/handlers"

	"github.com/gofiber/fiber/v2"
)

func registerDeploy(r fiber.Router, svc *Services, requireAuth fiber.Handler) {
	deployHandler := handlers.NewDeployHandler(svc.Orchestrator)

	r.Post("/deploy", requireAuth, deployHandler.Deploy)
	r.Post("/deploy/check-status", requireAuth, deployHandler.CheckStatus)
	r.Post("/deploy/delete", requireAuth, deployHandler.Delete)
	r.Post("/deploy/status", requireAuth, deployHandler.MarkManual)
}
