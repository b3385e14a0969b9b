package handlers

import (
	"crypto/subtle"
	"log"
	"strings"

	"sitegen-backend/internal/repo"

	"github.com/gofiber/fiber/v2"
)

type AdminHandler struct {
	generationRepo repo.GenerationRepoInterface
	secret         string
}

func NewAdminHandler(generationRepo repo.GenerationRepoInterface, secret string) *AdminHandler {
	return &AdminHandler{generationRepo: generationRepo, secret: secret}
}

// RequireAdmin checks the admin bearer secret. Without a configured secret the
// admin routes are closed.
func (h *AdminHandler) RequireAdmin(c *fiber.Ctx) error {
	token := strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	if h.secret == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.secret)) != 1 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "Unauthorized",
		})
	}
	return c.Next()
}

// CleanupStats reports how many generations have an empty response.
func (h *AdminHandler) CleanupStats(c *fiber.Ctx) error {
	empty, total, err := h.generationRepo.CountEmpty(c.UserContext())
	if err != nil {
		log.Printf("[admin] failed to count empty generations: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to get database stats",
		})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":          true,
		"totalGenerations": total,
		"emptyGenerations": empty,
		"validGenerations": total - empty,
	})
}

// Cleanup deletes generations with an empty response.
func (h *AdminHandler) Cleanup(c *fiber.Ctx) error {
	deleted, err := h.generationRepo.DeleteEmpty(c.UserContext())
	if err != nil {
		log.Printf("[admin] cleanup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to cleanup database",
		})
	}
	log.Printf("[admin] removed %d empty generations", deleted)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":      true,
		"deletedCount": deleted,
	})
}
