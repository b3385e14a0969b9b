package v1

import (
	"sitegen-backend/internal/handlers"
	"sitegen-backend/internal/libraries"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

func registerStream(r fiber.Router, svc *Services, requireAuth fiber.Handler) {
	streamHandler := handlers.NewStreamHandler(svc.Engine)

	r.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	r.Get("/ws", requireAuth, libraries.WebSocketHandler(svc.Hub, streamHandler))
}
