package workflow

import (
	"context"
	"log"
	"strings"

	"sitegen-backend/internal/auth"
	"sitegen-backend/internal/sitegen/agents"
	"sitegen-backend/internal/sitegen/apperr"
	"sitegen-backend/internal/sitegen/deploy"
	"sitegen-backend/internal/sitegen/engine"
)

// Reply is the tagged result of one dispatched message.
type Reply struct {
	Action         agents.Intention `json:"action"`
	Message        string           `json:"message"`
	ConversationID string           `json:"conversationId,omitempty"`
	GenerationID   string           `json:"generationId,omitempty"`
	Version        int              `json:"version,omitempty"`
	HTML           string           `json:"html,omitempty"`
	Filename       string           `json:"filename,omitempty"`
	URL            string           `json:"url,omitempty"`
	Deployment     *deploy.Result   `json:"deployment,omitempty"`
}

// Workflow classifies a chat message and runs the matching action.
type Workflow struct {
	classifier   *agents.IntentionClassifier
	engine       *engine.Engine
	orchestrator *deploy.Orchestrator
}

func NewWorkflow(classifier *agents.IntentionClassifier, eng *engine.Engine, orchestrator *deploy.Orchestrator) *Workflow {
	return &Workflow{classifier: classifier, engine: eng, orchestrator: orchestrator}
}

func (w *Workflow) Dispatch(ctx context.Context, identity auth.Identity, message string, conversationID string) (*Reply, error) {
	if !identity.Authenticated() {
		return nil, apperr.Unauthorized("Unauthorized")
	}
	if strings.TrimSpace(message) == "" {
		return nil, apperr.Invalid("Message cannot be empty")
	}

	intention := w.classifier.Classify(ctx, message)
	log.Printf("[workflow] user %s intention=%s conversation=%q", identity.UserID, intention, conversationID)

	switch intention {
	case agents.IntentionEdit:
		return w.edit(ctx, identity, message, conversationID)
	case agents.IntentionDeploy:
		return w.deploy(ctx, identity, conversationID)
	case agents.IntentionDownload:
		return w.download(ctx, identity, conversationID)
	case agents.IntentionBoth:
		return w.generateAndDeploy(ctx, identity, message, conversationID)
	default:
		return w.generate(ctx, identity, message, conversationID)
	}
}

func (w *Workflow) generate(ctx context.Context, identity auth.Identity, message, conversationID string) (*Reply, error) {
	out, err := w.engine.Generate(ctx, identity, engine.GenerateRequest{Message: message, ConversationID: conversationID})
	if err != nil {
		return nil, err
	}
	reply := replyFromOutcome(agents.IntentionGenerate, out)
	reply.Message = "Website generated"
	return reply, nil
}

func (w *Workflow) edit(ctx context.Context, identity auth.Identity, message, conversationID string) (*Reply, error) {
	out, err := w.engine.Edit(ctx, identity, engine.EditRequest{Instruction: message, ConversationID: conversationID})
	if err != nil {
		return nil, err
	}
	reply := replyFromOutcome(agents.IntentionEdit, out)
	reply.Message = "Website updated"
	return reply, nil
}

func (w *Workflow) deploy(ctx context.Context, identity auth.Identity, conversationID string) (*Reply, error) {
	current, err := w.engine.Current(ctx, identity, conversationID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindPrecondition {
			return nil, apperr.Precondition("No website to deploy yet. Generate one first.")
		}
		return nil, err
	}
	res, err := w.orchestrator.Deploy(ctx, identity, deploy.DeployRequest{GenerationID: current.ID})
	if err != nil {
		return nil, err
	}
	return &Reply{
		Action:         agents.IntentionDeploy,
		Message:        res.Message,
		ConversationID: current.ConversationID,
		GenerationID:   current.ID,
		Version:        current.Version,
		URL:            res.URL,
		Deployment:     res,
	}, nil
}

func (w *Workflow) download(ctx context.Context, identity auth.Identity, conversationID string) (*Reply, error) {
	artifact, err := w.engine.Download(ctx, identity, conversationID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindPrecondition {
			return nil, apperr.Precondition("No website to download yet. Generate one first.")
		}
		return nil, err
	}
	return &Reply{
		Action:         agents.IntentionDownload,
		Message:        "Website ready for download",
		ConversationID: conversationID,
		GenerationID:   artifact.GenerationID,
		HTML:           artifact.HTML,
		Filename:       artifact.Filename,
	}, nil
}

// generateAndDeploy deploys only after the generation is persisted; a deploy
// problem is reported on the reply without discarding the generated site.
func (w *Workflow) generateAndDeploy(ctx context.Context, identity auth.Identity, message, conversationID string) (*Reply, error) {
	out, err := w.engine.Generate(ctx, identity, engine.GenerateRequest{Message: message, ConversationID: conversationID})
	if err != nil {
		return nil, err
	}
	reply := replyFromOutcome(agents.IntentionBoth, out)

	res, err := w.orchestrator.Deploy(ctx, identity, deploy.DeployRequest{
		GenerationID: out.Generation.ID,
		SiteName:     deploy.DefaultSiteName(),
	})
	if err != nil {
		log.Printf("[workflow] deploy after generate failed for %s: %v", out.Generation.ID, err)
		reply.Message = "Website generated, but deployment could not start: " + apperr.Message(err)
		return reply, nil
	}
	reply.Deployment = res
	reply.URL = res.URL
	reply.Message = "Website generated. " + res.Message
	return reply, nil
}

func replyFromOutcome(action agents.Intention, out *engine.Outcome) *Reply {
	return &Reply{
		Action:         action,
		ConversationID: out.Conversation.ID,
		GenerationID:   out.Generation.ID,
		Version:        out.Generation.Version,
		HTML:           out.HTML,
	}
}
