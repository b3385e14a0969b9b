package v1

import (
	"context"
	"fmt"
	"log"

	"sitegen-backend/internal/config"
	"sitegen-backend/internal/libraries"
	llmHandlers "sitegen-backend/internal/llm_handlers"
	"sitegen-backend/internal/repo"
	"sitegen-backend/internal/sitegen/agents"
	"sitegen-backend/internal/sitegen/deploy"
	"sitegen-backend/internal/sitegen/engine"
	"sitegen-backend/internal/sitegen/workflow"

	"gorm.io/gorm"
)

// Services holds the long-lived collaborators shared by the v1 routes.
type Services struct {
	Settings     config.Settings
	Users        repo.UserRepoInterface
	Generations  repo.GenerationRepoInterface
	Engine       *engine.Engine
	Orchestrator *deploy.Orchestrator
	Workflow     *workflow.Workflow
	Hub          *libraries.Hub

	snapshots *libraries.GCSSnapshotArchive
}

func NewServices(ctx context.Context, settings config.Settings, db *gorm.DB) (*Services, error) {
	llmClient, err := llmHandlers.New(ctx, LLMConfig(settings))
	if err != nil {
		return nil, fmt.Errorf("failed to init llm client: %w", err)
	}
	log.Printf("🤖 Using %s model %s", settings.LLMProvider, llmClient.Model())

	var archive libraries.SnapshotArchive
	var snapshots *libraries.GCSSnapshotArchive
	if settings.SnapshotBucket != "" {
		snapshots, err = libraries.NewGCSSnapshotArchive(ctx, settings.SnapshotBucket, settings.GCPCredential)
		if err != nil {
			return nil, fmt.Errorf("failed to init snapshot archive: %w", err)
		}
		archive = snapshots
	}

	netlify := libraries.NewNetlifyClient(settings.NetlifyAPIURL, settings.NetlifyToken)
	if !netlify.Configured() {
		log.Println("⚠️ NETLIFY_ACCESS_TOKEN not set, deployments will be reported as mock")
	}

	users := repo.NewUserRepository(db)
	conversations := repo.NewConversationRepository(db)
	generations := repo.NewGenerationRepository(db)

	eng := engine.NewEngine(llmClient, conversations, generations, settings.GenerationTimeout)
	orchestrator := deploy.NewOrchestrator(generations, netlify, archive, settings.DeployPollDelay)
	classifier := agents.NewIntentionClassifier(llmClient, settings.ClassifyTimeout)

	return &Services{
		Settings:     settings,
		Users:        users,
		Generations:  generations,
		Engine:       eng,
		Orchestrator: orchestrator,
		Workflow:     workflow.NewWorkflow(classifier, eng, orchestrator),
		Hub:          libraries.NewHub(),
		snapshots:    snapshots,
	}, nil
}

// Close releases the clients opened by NewServices.
func (s *Services) Close() error {
	if s.snapshots != nil {
		return s.snapshots.Close()
	}
	return nil
}

// LLMConfig picks the credential that matches the configured provider.
func LLMConfig(settings config.Settings) llmHandlers.Config {
	cfg := llmHandlers.Config{
		Provider:    llmHandlers.Provider(settings.LLMProvider),
		Model:       settings.LLMModel,
		ProjectID:   settings.GCPProjectID,
		Location:    settings.GCPLocation,
		Credentials: settings.GCPCredential,
	}
	switch cfg.Provider {
	case llmHandlers.ProviderOpenAI:
		cfg.APIKey = settings.OpenAIAPIKey
	case llmHandlers.ProviderGroq:
		cfg.APIKey = settings.GroqAPIKey
		cfg.BaseURL = settings.GroqBaseURL
	default:
		cfg.APIKey = settings.GeminiAPIKey
	}
	return cfg
}
