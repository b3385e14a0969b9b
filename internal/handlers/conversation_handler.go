package handlers

import (
	"strings"

	"sitegen-backend/internal/auth"
	llmHandlers "sitegen-backend/internal/llm_handlers"
	"sitegen-backend/internal/sitegen/engine"

	"github.com/gofiber/fiber/v2"
)

type ConversationHandler struct {
	engine *engine.Engine
}

func NewConversationHandler(eng *engine.Engine) *ConversationHandler {
	return &ConversationHandler{engine: eng}
}

type chatMessageDTO struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat generates a site from a message history; the last user message is the request.
func (h *ConversationHandler) Chat(c *fiber.Ctx) error {
	var dto struct {
		Messages       []chatMessageDTO `json:"messages"`
		ConversationID string           `json:"conversationId"`
	}
	if err := c.BodyParser(&dto); err != nil {
		return badRequest(c, "Invalid request body")
	}

	req, ok := generateRequestFromMessages(dto.Messages)
	if !ok {
		return badRequest(c, "At least one user message is required")
	}
	req.ConversationID = dto.ConversationID

	out, err := h.engine.Generate(c.UserContext(), auth.FromCtx(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":        true,
		"conversationId": out.Conversation.ID,
		"generationId":   out.Generation.ID,
		"version":        out.Generation.Version,
		"html":           out.HTML,
	})
}

func generateRequestFromMessages(messages []chatMessageDTO) (engine.GenerateRequest, bool) {
	last := -1
	for i, m := range messages {
		if m.Role == string(llmHandlers.RoleUser) && strings.TrimSpace(m.Content) != "" {
			last = i
		}
	}
	if last < 0 {
		return engine.GenerateRequest{}, false
	}

	var history []llmHandlers.Message
	for _, m := range messages[:last] {
		role := llmHandlers.RoleUser
		if m.Role == string(llmHandlers.RoleAssistant) {
			role = llmHandlers.RoleAssistant
		}
		history = append(history, llmHandlers.Message{Role: role, Content: m.Content})
	}
	return engine.GenerateRequest{Message: messages[last].Content, History: history}, true
}

func (h *ConversationHandler) List(c *fiber.Ctx) error {
	summaries, err := h.engine.ListConversations(c.UserContext(), auth.FromCtx(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"conversations": summaries,
	})
}

func (h *ConversationHandler) Get(c *fiber.Ctx) error {
	summary, err := h.engine.GetConversation(c.UserContext(), auth.FromCtx(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"conversation":      summary.Conversation,
		"currentGeneration": summary.CurrentGeneration,
	})
}

func (h *ConversationHandler) History(c *fiber.Ctx) error {
	gens, err := h.engine.History(c.UserContext(), auth.FromCtx(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"generations": gens,
	})
}

func (h *ConversationHandler) Delete(c *fiber.Ctx) error {
	if err := h.engine.DeleteConversation(c.UserContext(), auth.FromCtx(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Conversation deleted",
	})
}
