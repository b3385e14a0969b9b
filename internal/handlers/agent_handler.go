package handlers

import (
	"sitegen-backend/internal/auth"
	"sitegen-backend/internal/sitegen/workflow"

	"github.com/gofiber/fiber/v2"
)

type AgentHandler struct {
	workflow *workflow.Workflow
}

func NewAgentHandler(wf *workflow.Workflow) *AgentHandler {
	return &AgentHandler{workflow: wf}
}

// Dispatch classifies the message and runs the matching action.
func (h *AgentHandler) Dispatch(c *fiber.Ctx) error {
	var dto struct {
		Message        string `json:"message"`
		ConversationID string `json:"conversationId"`
	}
	if err := c.BodyParser(&dto); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if dto.Message == "" {
		return badRequest(c, "Message cannot be empty")
	}

	reply, err := h.workflow.Dispatch(c.UserContext(), auth.FromCtx(c), dto.Message, dto.ConversationID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"reply":   reply,
	})
}
