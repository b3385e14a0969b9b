package v1

import (
	"sitegen-backend/internal/handlers"

	"github.com/gofiber/fiber/v2"
)

func registerGenerations(r fiber.Router, svc *Services, requireAuth fiber.Handler) {
	generationHandler := handlers.NewGenerationHandler(svc.Engine)

	r.Get("/generations", requireAuth, generationHandler.List)
	r.Get("/generations/:id/download", requireAuth, generationHandler.Download)
	r.Post("/generations/update-html", requireAuth, generationHandler.UpdateHTML)
}
