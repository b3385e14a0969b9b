package v1

import (
	"sitegen-backend/internal/handlers"

	"github.com/gofiber/fiber/v2"
)

func registerAdmin(r fiber.Router, svc *Services) {
	adminHandler := handlers.NewAdminHandler(svc.Generations, svc.Settings.AdminSecret)

	admin := r.Group("/admin", adminHandler.RequireAdmin)
	admin.Get("/cleanup", adminHandler.CleanupStats)
	admin.Post("/cleanup", adminHandler.Cleanup)
}
