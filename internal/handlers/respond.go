package handlers

import (
	"log"

	"sitegen-backend/internal/sitegen/apperr"

	"github.com/gofiber/fiber/v2"
)

// respondError renders err as {"success": false, "error": msg} with the status of its kind.
func respondError(c *fiber.Ctx, err error) error {
	status := apperr.HTTPStatus(err)
	if status >= fiber.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   apperr.Message(err),
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"error":   msg,
	})
}
