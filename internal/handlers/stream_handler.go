package handlers

import (
	"context"
	"log"

	"sitegen-backend/internal/libraries"
	"sitegen-backend/internal/sitegen/apperr"
	"sitegen-backend/internal/sitegen/engine"
)

// StreamHandler generates sites over a websocket, forwarding model output as it arrives.
type StreamHandler struct {
	engine *engine.Engine
}

func NewStreamHandler(eng *engine.Engine) *StreamHandler {
	return &StreamHandler{engine: eng}
}

// ProcessChatMessage streams chat_response chunks, waits for the generation to
// be stored and then sends chat_completed, or error when anything failed.
func (h *StreamHandler) ProcessChatMessage(hub *libraries.Hub, client *libraries.Client, message *libraries.ChatMessagePayload) {
	libraries.SendEventType(hub, client, libraries.WebSocketMessageTypeChatStarting)

	out, err := h.engine.GenerateStream(context.Background(), client.Identity, engine.GenerateRequest{
		Message:        message.Message,
		ConversationID: message.ConversationID,
	}, func(chunk string) error {
		libraries.SendChatChunk(hub, client, message.ConversationID, chunk)
		return nil
	})
	if err != nil {
		log.Printf("[ws] generation for client %s failed: %v", client.ID, err)
		libraries.SendErrorMessage(hub, client, apperr.Message(err))
		return
	}

	libraries.SendChatCompleted(hub, client, &libraries.ChatCompletedPayload{
		ConversationID: out.Conversation.ID,
		GenerationID:   out.Generation.ID,
		Version:        out.Generation.Version,
		HTML:           out.HTML,
	})
}
