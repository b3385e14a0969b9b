package libraries

import (
	"encoding/json"
	"log"
	"sync"

	"sitegen-backend/internal/auth"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type WebSocketMessageType string

const (
	WebSocketMessageTypePing          WebSocketMessageType = "ping"
	WebSocketMessageTypePong          WebSocketMessageType = "pong"
	WebSocketMessageTypeError         WebSocketMessageType = "error"
	WebSocketMessageTypeMessage       WebSocketMessageType = "chat_message"
	WebSocketMessageTypeChatStarting  WebSocketMessageType = "chat_starting"
	WebSocketMessageTypeChatResponse  WebSocketMessageType = "chat_response"
	WebSocketMessageTypeChatCompleted WebSocketMessageType = "chat_completed"
)

// Client is one websocket connection. Identity is captured at upgrade time.
type Client struct {
	ID       string
	Identity auth.Identity
	Conn     *websocket.Conn
	Send     chan []byte
	once     sync.Once
	mu       sync.Mutex
	closed   bool
}

type Hub struct {
	mu      sync.RWMutex
	Clients map[string]*Client
}

// WebSocketMessage is the envelope of every frame in both directions.
type WebSocketMessage struct {
	Type WebSocketMessageType `json:"type"`
	Data interface{}          `json:"data,omitempty"`
}

type ChatMessagePayload struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message"`
}

type ChatChunkPayload struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Chunk          string `json:"chunk"`
}

type ChatCompletedPayload struct {
	ConversationID string `json:"conversation_id"`
	GenerationID   string `json:"generation_id"`
	Version        int    `json:"version"`
	HTML           string `json:"html"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func NewHub() *Hub {
	return &Hub{Clients: make(map[string]*Client)}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Clients[client.ID] = client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	_, exists := h.Clients[client.ID]
	delete(h.Clients, client.ID)
	h.mu.Unlock()

	if exists {
		client.once.Do(func() {
			client.mu.Lock()
			client.closed = true
			close(client.Send)
			client.mu.Unlock()
		})
	}
}

// SendMessage queues a frame. Frames for a closed client or a full buffer are dropped.
func (h *Hub) SendMessage(client *Client, message []byte) {
	client.mu.Lock()
	defer client.mu.Unlock()
	if client.closed {
		return
	}
	select {
	case client.Send <- message:
	default:
		log.Printf("dropping frame for websocket client %s: send buffer full", client.ID)
	}
}

func (h *Hub) send(client *Client, msg WebSocketMessage) {
	raw, err := json.Marshal(msg)
	if err != nil {
		log.Printf("failed to marshal %s message: %v", msg.Type, err)
		return
	}
	h.SendMessage(client, raw)
}

func SendErrorMessage(hub *Hub, client *Client, errorMsg string) {
	hub.send(client, WebSocketMessage{Type: WebSocketMessageTypeError, Data: &ErrorPayload{Message: errorMsg}})
}

func SendEventType(hub *Hub, client *Client, eventType WebSocketMessageType) {
	hub.send(client, WebSocketMessage{Type: eventType})
}

func SendChatChunk(hub *Hub, client *Client, conversationID, chunk string) {
	hub.send(client, WebSocketMessage{
		Type: WebSocketMessageTypeChatResponse,
		Data: &ChatChunkPayload{ConversationID: conversationID, Chunk: chunk},
	})
}

func SendChatCompleted(hub *Hub, client *Client, payload *ChatCompletedPayload) {
	hub.send(client, WebSocketMessage{Type: WebSocketMessageTypeChatCompleted, Data: payload})
}

// parseWebSocketMessage decodes an inbound frame, typing the payload of chat messages.
func parseWebSocketMessage(msg []byte) (*WebSocketMessage, error) {
	var rawMessage struct {
		Type WebSocketMessageType `json:"type"`
		Data json.RawMessage      `json:"data,omitempty"`
	}
	if err := json.Unmarshal(msg, &rawMessage); err != nil {
		return nil, err
	}

	message := &WebSocketMessage{Type: rawMessage.Type}
	if len(rawMessage.Data) == 0 {
		return message, nil
	}
	switch rawMessage.Type {
	case WebSocketMessageTypeMessage:
		var chatPayload ChatMessagePayload
		if err := json.Unmarshal(rawMessage.Data, &chatPayload); err != nil {
			return nil, err
		}
		message.Data = &chatPayload
	default:
		var data interface{}
		if err := json.Unmarshal(rawMessage.Data, &data); err != nil {
			return nil, err
		}
		message.Data = data
	}
	return message, nil
}

// ChatMessageProcessor handles one chat message. It runs on its own goroutine
// and reports back through the hub.
type ChatMessageProcessor interface {
	ProcessChatMessage(hub *Hub, client *Client, message *ChatMessagePayload)
}

func WebSocketHandler(hub *Hub, processor ChatMessageProcessor) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		client := &Client{
			ID:       uuid.NewString(),
			Identity: auth.FromLocal(conn.Locals(auth.LocalsKey)),
			Conn:     conn,
			Send:     make(chan []byte, 256),
		}
		hub.Register(client)

		done := make(chan struct{})
		go func() {
			defer close(done)
			for msg := range client.Send {
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					log.Println("write error:", err)
					return
				}
			}
		}()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}

			message, err := parseWebSocketMessage(msg)
			if err != nil {
				SendErrorMessage(hub, client, "Invalid JSON format")
				continue
			}

			switch message.Type {
			case WebSocketMessageTypePing:
				SendEventType(hub, client, WebSocketMessageTypePong)
			case WebSocketMessageTypeMessage:
				chatPayload, ok := message.Data.(*ChatMessagePayload)
				if !ok || chatPayload.Message == "" {
					SendErrorMessage(hub, client, "Chat message payload is required")
					continue
				}
				go processor.ProcessChatMessage(hub, client, chatPayload)
			default:
				SendErrorMessage(hub, client, "Type is invalid or not provided")
			}
		}

		hub.Unregister(client)
		<-done
		conn.Close()
	})
}
