package workflow

import (
	"context"
	"testing"
	"time"

	"sitegen-backend/internal/auth"
	"sitegen-backend/internal/libraries"
	llmHandlers "sitegen-backend/internal/llm_handlers"
	"sitegen-backend/internal/models"
	"sitegen-backend/internal/repo"
	"sitegen-backend/internal/sitegen/agents"
	"sitegen-backend/internal/sitegen/apperr"
	"sitegen-backend/internal/sitegen/deploy"
	"sitegen-backend/internal/sitegen/engine"
	"sitegen-backend/internal/sitegen/prompts"
	"sitegen-backend/internal/tests/mocks"
	"sitegen-backend/internal/tests/testdb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var user = auth.Identity{UserID: "user-1"}

// scriptedLLM answers classification calls with intention and everything else with html.
func scriptedLLM(intention *string, html string) *mocks.LLMClientMock {
	return &mocks.LLMClientMock{
		ChatFunc: func(ctx context.Context, systemMessage string, messages []llmHandlers.Message, opts ...llmHandlers.CallOption) (string, error) {
			if systemMessage == prompts.CLASSIFY_PROMPT {
				return *intention, nil
			}
			return html, nil
		},
	}
}

func newWorkflow(t *testing.T, intention *string) *Workflow {
	t.Helper()
	db := testdb.New(t)
	client := scriptedLLM(intention, "```html\n<html>site</html>\n```")
	gens := repo.NewGenerationRepository(db)
	eng := engine.NewEngine(client, repo.NewConversationRepository(db), gens, time.Second)
	orch := deploy.NewOrchestrator(gens, libraries.NewNetlifyClient("", ""), nil, 0)
	return NewWorkflow(agents.NewIntentionClassifier(client, time.Second), eng, orch)
}

func TestDispatchGenerateThenEditThenDownload(t *testing.T) {
	intention := "generate"
	wf := newWorkflow(t, &intention)
	ctx := context.Background()

	generated, err := wf.Dispatch(ctx, user, "a site for my dog", "")
	require.NoError(t, err)
	assert.Equal(t, agents.IntentionGenerate, generated.Action)
	assert.Equal(t, 1, generated.Version)
	assert.Equal(t, "<html>site</html>", generated.HTML)

	intention = "edit"
	edited, err := wf.Dispatch(ctx, user, "make it purple", generated.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, agents.IntentionEdit, edited.Action)
	assert.Equal(t, 2, edited.Version)

	intention = "download"
	downloaded, err := wf.Dispatch(ctx, user, "give me the file", generated.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, "website-"+edited.GenerationID+".html", downloaded.Filename)
	assert.Equal(t, "<html>site</html>", downloaded.HTML)
}

func TestDispatchEditWithoutConversationIsPrecondition(t *testing.T) {
	intention := "edit"
	wf := newWorkflow(t, &intention)

	_, err := wf.Dispatch(context.Background(), user, "change the color", "")
	assert.Equal(t, apperr.KindPrecondition, apperr.KindOf(err))
}

func TestDispatchDeployWithoutWebsiteIsPrecondition(t *testing.T) {
	intention := "deploy"
	wf := newWorkflow(t, &intention)

	_, err := wf.Dispatch(context.Background(), user, "publish it", "")
	assert.Equal(t, apperr.KindPrecondition, apperr.KindOf(err))
}

func TestDispatchDeployWithoutCredentialIsMock(t *testing.T) {
	intention := "generate"
	wf := newWorkflow(t, &intention)
	ctx := context.Background()

	generated, err := wf.Dispatch(ctx, user, "a site", "")
	require.NoError(t, err)

	intention = "deploy"
	deployed, err := wf.Dispatch(ctx, user, "publish it", generated.ConversationID)
	require.NoError(t, err)
	require.NotNil(t, deployed.Deployment)
	assert.True(t, deployed.Deployment.Mock)
	assert.Equal(t, models.NotDeployed, deployed.Deployment.Status)
	assert.Empty(t, deployed.URL)
}

func TestDispatchBothGeneratesEvenWhenDeployIsMocked(t *testing.T) {
	intention := "both"
	wf := newWorkflow(t, &intention)

	reply, err := wf.Dispatch(context.Background(), user, "build and publish a bakery site", "")
	require.NoError(t, err)
	assert.Equal(t, agents.IntentionBoth, reply.Action)
	assert.NotEmpty(t, reply.GenerationID)
	require.NotNil(t, reply.Deployment)
	assert.Equal(t, deploy.ReasonNoCredential, reply.Deployment.Reason)
}

func TestDispatchUnknownIntentionGenerates(t *testing.T) {
	intention := "something else"
	wf := newWorkflow(t, &intention)

	reply, err := wf.Dispatch(context.Background(), user, "hello", "")
	require.NoError(t, err)
	assert.Equal(t, agents.IntentionGenerate, reply.Action)
}

func TestDispatchRequiresIdentity(t *testing.T) {
	intention := "generate"
	wf := newWorkflow(t, &intention)

	_, err := wf.Dispatch(context.Background(), auth.Identity{}, "hello", "")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}
