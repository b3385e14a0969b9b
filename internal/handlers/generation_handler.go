package handlers

import (
	"fmt"

	"sitegen-backend/internal/auth"
	"sitegen-backend/internal/sitegen/engine"

	"github.com/gofiber/fiber/v2"
)

type GenerationHandler struct {
	engine *engine.Engine
}

func NewGenerationHandler(eng *engine.Engine) *GenerationHandler {
	return &GenerationHandler{engine: eng}
}

func (h *GenerationHandler) List(c *fiber.Ctx) error {
	gens, err := h.engine.ListGenerations(c.UserContext(), auth.FromCtx(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"generations": gens,
	})
}

// Download serves the extracted HTML as an attachment.
func (h *GenerationHandler) Download(c *fiber.Ctx) error {
	artifact, err := h.engine.DownloadGeneration(c.UserContext(), auth.FromCtx(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "text/html; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	return c.Status(fiber.StatusOK).SendString(artifact.HTML)
}

func (h *GenerationHandler) UpdateHTML(c *fiber.Ctx) error {
	var dto struct {
		GenerationID string `json:"generationId"`
		HTMLContent  string `json:"htmlContent"`
	}
	if err := c.BodyParser(&dto); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if dto.GenerationID == "" || dto.HTMLContent == "" {
		return badRequest(c, "Missing generationId or htmlContent")
	}

	if err := h.engine.UpdateHTML(c.UserContext(), auth.FromCtx(c), dto.GenerationID, dto.HTMLContent); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
	})
}
