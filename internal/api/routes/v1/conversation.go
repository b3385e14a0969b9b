package v1

import (
	"sitegen-backend/internal/handlers"

	"github.com/gofiber/fiber/v2"
)

func registerConversations(r fiber.Router, svc *Services, requireAuth fiber.Handler) {
	conversationHandler := handlers.NewConversationHandler(svc.Engine)

	r.Post("/chat", requireAuth, conversationHandler.Chat)
	r.Get("/conversations", requireAuth, conversationHandler.List)
	r.Get("/conversations/:id", requireAuth, conversationHandler.Get)
	r.Get("/conversations/:id/generations", requireAuth, conversationHandler.History)
	r.Delete("/conversations/:id", requireAuth, conversationHandler.Delete)
}
