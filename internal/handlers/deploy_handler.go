package handlers

import (
	"sitegen-backend/internal/auth"
	"sitegen-backend/internal/sitegen/deploy"

	"github.com/gofiber/fiber/v2"
)

type DeployHandler struct {
	orchestrator *deploy.Orchestrator
}

func NewDeployHandler(orchestrator *deploy.Orchestrator) *DeployHandler {
	return &DeployHandler{orchestrator: orchestrator}
}

type generationDTO struct {
	GenerationID string `json:"generationId"`
}

func (h *DeployHandler) Deploy(c *fiber.Ctx) error {
	var dto struct {
		GenerationID string `json:"generationId"`
		HTMLContent  string `json:"htmlContent"`
		SiteName     string `json:"siteName"`
	}
	if err := c.BodyParser(&dto); err != nil {
		return badRequest(c, "Invalid request body")
	}

	res, err := h.orchestrator.Deploy(c.UserContext(), auth.FromCtx(c), deploy.DeployRequest{
		GenerationID: dto.GenerationID,
		HTML:         dto.HTMLContent,
		SiteName:     dto.SiteName,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":    res.Succeeded(),
		"deployment": res,
	})
}

func (h *DeployHandler) CheckStatus(c *fiber.Ctx) error {
	var dto generationDTO
	if err := c.BodyParser(&dto); err != nil {
		return badRequest(c, "Invalid request body")
	}

	res, err := h.orchestrator.CheckStatus(c.UserContext(), auth.FromCtx(c), dto.GenerationID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":    true,
		"deployment": res,
	})
}

func (h *DeployHandler) Delete(c *fiber.Ctx) error {
	var dto generationDTO
	if err := c.BodyParser(&dto); err != nil {
		return badRequest(c, "Invalid request body")
	}

	res, err := h.orchestrator.Delete(c.UserContext(), auth.FromCtx(c), dto.GenerationID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"result":  res,
	})
}

// MarkManual records a deploy done by hand, e.g. a drag-and-drop upload.
func (h *DeployHandler) MarkManual(c *fiber.Ctx) error {
	var dto struct {
		GenerationID  string `json:"generationId"`
		DeploymentURL string `json:"deploymentUrl"`
	}
	if err := c.BodyParser(&dto); err != nil {
		return badRequest(c, "Invalid request body")
	}

	res, err := h.orchestrator.MarkManual(c.UserContext(), auth.FromCtx(c), dto.GenerationID, dto.DeploymentURL)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":    true,
		"deployment": res,
	})
}
