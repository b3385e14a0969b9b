package engine

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"sitegen-backend/internal/auth"
	llmHandlers "sitegen-backend/internal/llm_handlers"
	"sitegen-backend/internal/models"
	"sitegen-backend/internal/repo"
	"sitegen-backend/internal/sitegen/apperr"
	"sitegen-backend/internal/sitegen/helpers"
	"sitegen-backend/internal/sitegen/prompts"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	DefaultGenerationTimeout = 30 * time.Second
	descriptionLimit         = 200
)

// Engine owns conversation creation, versioning and generation persistence.
type Engine struct {
	llmClient        llmHandlers.Client
	conversationRepo repo.ConversationRepoInterface
	generationRepo   repo.GenerationRepoInterface
	timeout          time.Duration
}

func NewEngine(llmClient llmHandlers.Client, conversationRepo repo.ConversationRepoInterface, generationRepo repo.GenerationRepoInterface, timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = DefaultGenerationTimeout
	}
	return &Engine{
		llmClient:        llmClient,
		conversationRepo: conversationRepo,
		generationRepo:   generationRepo,
		timeout:          timeout,
	}
}

type GenerateRequest struct {
	Message        string
	ConversationID string
	// History holds earlier chat turns sent along with Message.
	History []llmHandlers.Message
}

type EditRequest struct {
	Instruction    string
	ConversationID string
}

// Outcome is the persisted result of a generate or edit.
type Outcome struct {
	Conversation *models.Conversation
	Generation   *models.Generation
	HTML         string
	// Created is true when the conversation was created by this call.
	Created bool
}

// Generate produces a new site from the message. Without a conversation id a
// conversation is created and the result becomes version 1; with one, the
// result is appended as the next version.
func (e *Engine) Generate(ctx context.Context, identity auth.Identity, req GenerateRequest) (*Outcome, error) {
	return e.generate(ctx, identity, req, nil)
}

// GenerateStream behaves like Generate but forwards model output to onChunk as
// it arrives. The generation is persisted before GenerateStream returns.
func (e *Engine) GenerateStream(ctx context.Context, identity auth.Identity, req GenerateRequest, onChunk llmHandlers.ChunkHandler) (*Outcome, error) {
	if onChunk == nil {
		onChunk = func(string) error { return nil }
	}
	return e.generate(ctx, identity, req, onChunk)
}

func (e *Engine) generate(ctx context.Context, identity auth.Identity, req GenerateRequest, onChunk llmHandlers.ChunkHandler) (*Outcome, error) {
	if !identity.Authenticated() {
		return nil, apperr.Unauthorized("Unauthorized")
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, apperr.Invalid("Message cannot be empty")
	}

	var conv *models.Conversation
	created := false
	if req.ConversationID != "" {
		existing, err := e.conversationRepo.GetOwned(ctx, req.ConversationID, identity.UserID)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "Failed to load conversation")
		}
		if existing == nil {
			return nil, apperr.NotFound("Conversation not found")
		}
		conv = existing
	}

	messages := append(append([]llmHandlers.Message{}, req.History...), llmHandlers.Message{
		Role:    llmHandlers.RoleUser,
		Content: message,
	})
	userPrompt := storedPrompt(messages)

	if conv == nil {
		conv = &models.Conversation{
			ID:          uuid.NewString(),
			UserID:      identity.UserID,
			Title:       helpers.TitleFromPrompt(userPrompt),
			Description: truncate(helpers.PromptText(userPrompt), descriptionLimit),
		}
		created = true
	}

	response, err := e.complete(ctx, prompts.GENERATE_PROMPT, messages, onChunk)
	if err != nil {
		return nil, err
	}

	gen := e.newGeneration(conv, identity, userPrompt, response, nil)
	var newConv *models.Conversation
	if created {
		newConv = conv
	}
	if err := e.persist(ctx, newConv, gen); err != nil {
		return nil, err
	}
	conv.CurrentGenerationID = &gen.ID
	conv.UpdatedAt = gen.CreatedAt

	log.Printf("[engine] generated %s v%d in conversation %s", gen.ID, gen.Version, conv.ID)
	return &Outcome{Conversation: conv, Generation: gen, HTML: helpers.ExtractHTML(response), Created: created}, nil
}

// Edit rewrites the current version of a conversation according to the
// instruction and stores the result as the next version.
func (e *Engine) Edit(ctx context.Context, identity auth.Identity, req EditRequest) (*Outcome, error) {
	if !identity.Authenticated() {
		return nil, apperr.Unauthorized("Unauthorized")
	}
	instruction := strings.TrimSpace(req.Instruction)
	if instruction == "" {
		return nil, apperr.Invalid("Edit instruction cannot be empty")
	}
	if req.ConversationID == "" {
		return nil, apperr.Precondition("No website to edit yet. Generate one first.")
	}

	conv, current, err := e.currentOf(ctx, identity, req.ConversationID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, apperr.Precondition("No website to edit yet. Generate one first.")
	}

	previousHTML := helpers.ExtractHTML(current.AIResponse)
	response, err := e.complete(ctx, prompts.EDIT_PROMPT, llmHandlers.UserPrompt(prompts.EditRequest(instruction, previousHTML)), nil)
	if err != nil {
		return nil, err
	}

	gen := e.newGeneration(conv, identity, instruction, response, &previousHTML)
	if err := e.persist(ctx, nil, gen); err != nil {
		return nil, err
	}
	conv.CurrentGenerationID = &gen.ID
	conv.UpdatedAt = gen.CreatedAt

	log.Printf("[engine] edited conversation %s: v%d -> v%d", conv.ID, current.Version, gen.Version)
	return &Outcome{Conversation: conv, Generation: gen, HTML: helpers.ExtractHTML(response)}, nil
}

// complete calls the gateway within the generation budget. A nil onChunk
// requests a single non-streamed reply.
func (e *Engine) complete(ctx context.Context, systemPrompt string, messages []llmHandlers.Message, onChunk llmHandlers.ChunkHandler) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var response string
	var err error
	if onChunk != nil {
		response, err = e.llmClient.ChatStream(ctx, systemPrompt, messages, onChunk)
	} else {
		response, err = e.llmClient.Chat(ctx, systemPrompt, messages)
	}
	if err != nil {
		log.Printf("[engine] model call failed: %v", err)
		if errors.Is(err, context.DeadlineExceeded) {
			return "", apperr.Wrap(apperr.KindExternal, err, "Website generation timed out")
		}
		return "", apperr.Wrap(apperr.KindExternal, err, "Failed to generate website")
	}
	if strings.TrimSpace(response) == "" {
		return "", apperr.New(apperr.KindExternal, "The model returned an empty response")
	}
	return response, nil
}

func (e *Engine) newGeneration(conv *models.Conversation, identity auth.Identity, userPrompt, response string, previousHTML *string) *models.Generation {
	return &models.Generation{
		ID:               uuid.NewString(),
		ConversationID:   conv.ID,
		UserID:           identity.UserID,
		UserPrompt:       userPrompt,
		AIResponse:       response,
		PreviousHTML:     previousHTML,
		Model:            e.llmClient.Model(),
		Status:           models.GenerationCompleted,
		DeploymentStatus: models.NotDeployed,
	}
}

func (e *Engine) persist(ctx context.Context, newConv *models.Conversation, gen *models.Generation) error {
	err := e.generationRepo.AppendVersion(ctx, newConv, gen)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrOwnerMismatch):
		return apperr.Forbidden("You do not have access to this conversation")
	case errors.Is(err, repo.ErrConversationMissing):
		return apperr.NotFound("Conversation not found")
	default:
		log.Printf("[engine] failed to persist generation: %v", err)
		return apperr.Wrap(apperr.KindInternal, err, "Failed to save generation")
	}
}

// storedPrompt keeps a single message as raw text and serializes multi-turn
// input as a message array.
func storedPrompt(messages []llmHandlers.Message) string {
	if len(messages) == 1 {
		return messages[0].Content
	}
	type storedMessage struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	out := make([]storedMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, storedMessage{Role: string(m.Role), Content: m.Content})
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return messages[len(messages)-1].Content
	}
	return string(raw)
}

func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
