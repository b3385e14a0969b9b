package engine

import (
	"context"
	"fmt"
	"strings"

	"sitegen-backend/internal/auth"
	"sitegen-backend/internal/models"
	"sitegen-backend/internal/sitegen/apperr"
	"sitegen-backend/internal/sitegen/helpers"

	"golang.org/x/sync/errgroup"
)

const summaryConcurrency = 8

// DownloadArtifact is the extracted HTML of a generation, ready to serve as a file.
type DownloadArtifact struct {
	GenerationID string
	Filename     string
	HTML         string
}

func (e *Engine) ownedConversation(ctx context.Context, identity auth.Identity, conversationID string) (*models.Conversation, error) {
	if !identity.Authenticated() {
		return nil, apperr.Unauthorized("Unauthorized")
	}
	conv, err := e.conversationRepo.GetOwned(ctx, conversationID, identity.UserID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "Failed to load conversation")
	}
	if conv == nil {
		return nil, apperr.NotFound("Conversation not found")
	}
	return conv, nil
}

// ownedGeneration fails with not_found for unknown ids and forbidden for
// generations of other users.
func (e *Engine) ownedGeneration(ctx context.Context, identity auth.Identity, generationID string) (*models.Generation, error) {
	if !identity.Authenticated() {
		return nil, apperr.Unauthorized("Unauthorized")
	}
	gen, err := e.generationRepo.GetByID(ctx, generationID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "Failed to load generation")
	}
	if gen == nil {
		return nil, apperr.NotFound("Generation not found")
	}
	if gen.UserID != identity.UserID {
		return nil, apperr.Forbidden("You do not have access to this generation")
	}
	return gen, nil
}

func (e *Engine) currentOf(ctx context.Context, identity auth.Identity, conversationID string) (*models.Conversation, *models.Generation, error) {
	conv, err := e.ownedConversation(ctx, identity, conversationID)
	if err != nil {
		return nil, nil, err
	}
	current, err := e.generationRepo.GetCurrent(ctx, conv.ID)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.KindInternal, err, "Failed to load current generation")
	}
	return conv, current, nil
}

// Current returns the generation flagged current in the conversation.
func (e *Engine) Current(ctx context.Context, identity auth.Identity, conversationID string) (*models.Generation, error) {
	if conversationID == "" {
		return nil, apperr.Precondition("No website generated yet")
	}
	_, current, err := e.currentOf(ctx, identity, conversationID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, apperr.Precondition("No website generated yet")
	}
	return current, nil
}

// Download returns the current version of the conversation as a file.
func (e *Engine) Download(ctx context.Context, identity auth.Identity, conversationID string) (*DownloadArtifact, error) {
	current, err := e.Current(ctx, identity, conversationID)
	if err != nil {
		return nil, err
	}
	return artifactOf(current), nil
}

// DownloadGeneration returns a specific generation as a file.
func (e *Engine) DownloadGeneration(ctx context.Context, identity auth.Identity, generationID string) (*DownloadArtifact, error) {
	gen, err := e.ownedGeneration(ctx, identity, generationID)
	if err != nil {
		return nil, err
	}
	return artifactOf(gen), nil
}

func artifactOf(gen *models.Generation) *DownloadArtifact {
	return &DownloadArtifact{
		GenerationID: gen.ID,
		Filename:     fmt.Sprintf("website-%s.html", gen.ID),
		HTML:         helpers.ExtractHTML(gen.AIResponse),
	}
}

func (e *Engine) GetConversation(ctx context.Context, identity auth.Identity, conversationID string) (*models.ConversationSummary, error) {
	conv, current, err := e.currentOf(ctx, identity, conversationID)
	if err != nil {
		return nil, err
	}
	return &models.ConversationSummary{Conversation: *conv, CurrentGeneration: current}, nil
}

// ListConversations returns the caller's conversations, most recently updated
// first, each joined with its current generation.
func (e *Engine) ListConversations(ctx context.Context, identity auth.Identity) ([]models.ConversationSummary, error) {
	if !identity.Authenticated() {
		return nil, apperr.Unauthorized("Unauthorized")
	}
	convs, err := e.conversationRepo.ListByUser(ctx, identity.UserID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "Failed to list conversations")
	}

	summaries := make([]models.ConversationSummary, len(convs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(summaryConcurrency)
	for i := range convs {
		i := i
		summaries[i].Conversation = convs[i]
		g.Go(func() error {
			current, err := e.generationRepo.GetCurrent(gctx, convs[i].ID)
			if err != nil {
				return err
			}
			summaries[i].CurrentGeneration = current
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "Failed to list conversations")
	}
	return summaries, nil
}

// DeleteConversation removes the conversation and all of its generations.
func (e *Engine) DeleteConversation(ctx context.Context, identity auth.Identity, conversationID string) error {
	conv, err := e.ownedConversation(ctx, identity, conversationID)
	if err != nil {
		return err
	}
	if err := e.conversationRepo.Delete(ctx, conv.ID); err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "Failed to delete conversation")
	}
	return nil
}

// History returns every version of the conversation, oldest first.
func (e *Engine) History(ctx context.Context, identity auth.Identity, conversationID string) ([]models.Generation, error) {
	conv, err := e.ownedConversation(ctx, identity, conversationID)
	if err != nil {
		return nil, err
	}
	gens, err := e.generationRepo.ListByConversation(ctx, conv.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "Failed to load history")
	}
	return gens, nil
}

// ListGenerations returns all of the caller's generations, newest first.
func (e *Engine) ListGenerations(ctx context.Context, identity auth.Identity) ([]models.Generation, error) {
	if !identity.Authenticated() {
		return nil, apperr.Unauthorized("Unauthorized")
	}
	gens, err := e.generationRepo.ListByUser(ctx, identity.UserID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "Failed to list generations")
	}
	return gens, nil
}

// UpdateHTML overwrites the stored response of a generation without calling the
// model. The document is stored fenced so extraction returns it unchanged.
func (e *Engine) UpdateHTML(ctx context.Context, identity auth.Identity, generationID string, html string) error {
	if strings.TrimSpace(html) == "" {
		return apperr.Invalid("HTML cannot be empty")
	}
	gen, err := e.ownedGeneration(ctx, identity, generationID)
	if err != nil {
		return err
	}
	if err := e.generationRepo.UpdateFields(ctx, gen.ID, map[string]interface{}{"ai_response": helpers.WrapInFence(html)}); err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "Failed to update HTML")
	}
	return nil
}
