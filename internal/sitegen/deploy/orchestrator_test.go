package deploy

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"sitegen-backend/internal/auth"
	"sitegen-backend/internal/libraries"
	"sitegen-backend/internal/models"
	"sitegen-backend/internal/repo"
	"sitegen-backend/internal/sitegen/apperr"
	"sitegen-backend/internal/tests/testdb"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner    = auth.Identity{UserID: "owner"}
	intruder = auth.Identity{UserID: "intruder"}
)

const storedResponse = "```html\n<html><body>hello</body></html>\n```"

// fakeNetlify serves the subset of the Netlify API the orchestrator uses.
type fakeNetlify struct {
	mu             sync.Mutex
	state          string
	failCreate     bool
	failStatus     bool
	failDelete     bool
	uploaded       map[string]string
	deletedSites   []string
	createdSites   []string
	deployedHashes []string
}

func newFakeNetlify(state string) *fakeNetlify {
	return &fakeNetlify{state: state, uploaded: map[string]string{}}
}

// locked runs fn while holding the server lock.
func (f *fakeNetlify) locked(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn()
}

func (f *fakeNetlify) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer test-token" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	path := r.URL.Path
	switch {
	case r.Method == http.MethodPost && path == "/sites":
		if f.failCreate {
			http.Error(w, "quota exceeded", http.StatusUnprocessableEntity)
			return
		}
		var body struct {
			Name string `json:"name"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		id := "site-" + body.Name
		f.createdSites = append(f.createdSites, id)
		writeJSON(w, map[string]interface{}{
			"id":      id,
			"name":    body.Name,
			"url":     "http://" + body.Name + ".netlify.app",
			"ssl_url": "https://" + body.Name + ".netlify.app",
		})
	case r.Method == http.MethodPost && strings.HasSuffix(path, "/deploys"):
		var body struct {
			Files map[string]string `json:"files"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		hash := body.Files["/index.html"]
		f.deployedHashes = append(f.deployedHashes, hash)
		writeJSON(w, map[string]interface{}{"id": "deploy-1", "required": []string{hash}})
	case r.Method == http.MethodPut && strings.HasPrefix(path, "/deploys/"):
		raw, _ := io.ReadAll(r.Body)
		parts := strings.Split(path, "/")
		f.uploaded[parts[len(parts)-1]] = string(raw)
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodGet && strings.HasPrefix(path, "/sites/"):
		if f.failStatus {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		id := strings.TrimPrefix(path, "/sites/")
		writeJSON(w, map[string]interface{}{
			"id":               id,
			"ssl_url":          "https://" + strings.TrimPrefix(id, "site-") + ".netlify.app",
			"published_deploy": map[string]string{"state": f.state},
		})
	case r.Method == http.MethodDelete && strings.HasPrefix(path, "/sites/"):
		if f.failDelete {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		f.deletedSites = append(f.deletedSites, strings.TrimPrefix(path, "/sites/"))
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

type fakeArchive struct {
	saved map[string]string
}

func (a *fakeArchive) Save(ctx context.Context, generationID string, version int, html []byte) (string, error) {
	name := libraries.SnapshotObjectName(generationID, version)
	a.saved[name] = string(html)
	return "gs://snapshots/" + name, nil
}

type fixture struct {
	orch    *Orchestrator
	gens    repo.GenerationRepoInterface
	netlify *fakeNetlify
	archive *fakeArchive
	gen     *models.Generation
}

func setup(t *testing.T, state string, token string) *fixture {
	t.Helper()
	db := testdb.New(t)
	gens := repo.NewGenerationRepository(db)

	netlify := newFakeNetlify(state)
	server := httptest.NewServer(netlify)
	t.Cleanup(server.Close)

	conv := &models.Conversation{ID: uuid.NewString(), UserID: owner.UserID, Title: "Site"}
	gen := &models.Generation{
		ID:               uuid.NewString(),
		ConversationID:   conv.ID,
		UserID:           owner.UserID,
		UserPrompt:       "a site",
		AIResponse:       storedResponse,
		Model:            "test-model",
		Status:           models.GenerationCompleted,
		DeploymentStatus: models.NotDeployed,
	}
	require.NoError(t, gens.AppendVersion(context.Background(), conv, gen))

	archive := &fakeArchive{saved: map[string]string{}}
	client := libraries.NewNetlifyClient(server.URL, token)
	return &fixture{
		orch:    NewOrchestrator(gens, client, archive, 0),
		gens:    gens,
		netlify: netlify,
		archive: archive,
		gen:     gen,
	}
}

func (f *fixture) reload(t *testing.T) *models.Generation {
	t.Helper()
	gen, err := f.gens.GetByID(context.Background(), f.gen.ID)
	require.NoError(t, err)
	return gen
}

func TestMapState(t *testing.T) {
	assert.Equal(t, models.Deployed, MapState("ready"))
	assert.Equal(t, models.DeployFailed, MapState("error"))
	assert.Equal(t, models.DeployFailed, MapState("failed"))
	assert.Equal(t, models.Deploying, MapState("building"))
	assert.Equal(t, models.Deploying, MapState(""))
}

func TestDeployReadySite(t *testing.T) {
	f := setup(t, "ready", "test-token")

	res, err := f.orch.Deploy(context.Background(), owner, DeployRequest{GenerationID: f.gen.ID, SiteName: "my-site"})
	require.NoError(t, err)

	assert.Equal(t, models.Deployed, res.Status)
	assert.Equal(t, "https://my-site.netlify.app", res.URL)
	assert.Equal(t, "site-my-site", res.SiteID)
	assert.False(t, res.Mock)
	assert.True(t, res.Succeeded())

	html := "<html><body>hello</body></html>"
	hash := libraries.FileHash([]byte(html))
	f.netlify.locked(func() {
		assert.Equal(t, []string{hash}, f.netlify.deployedHashes)
		assert.Equal(t, html, f.netlify.uploaded[hash])
	})
	assert.Equal(t, html, f.archive.saved[libraries.SnapshotObjectName(f.gen.ID, 1)])

	stored := f.reload(t)
	assert.Equal(t, models.Deployed, stored.DeploymentStatus)
	require.NotNil(t, stored.DeploymentURL)
	assert.Equal(t, "https://my-site.netlify.app", *stored.DeploymentURL)
	require.NotNil(t, stored.DeploymentID)
	assert.Equal(t, "site-my-site", *stored.DeploymentID)
	assert.NotNil(t, stored.DeployedAt)

	var meta models.DeploymentMeta
	require.NoError(t, json.Unmarshal(stored.Metadata, &meta))
	assert.Equal(t, hash, meta.FileHash)
	assert.Equal(t, "ready", meta.LastState)
}

func TestDeployBuildingSiteStaysDeploying(t *testing.T) {
	f := setup(t, "building", "test-token")

	res, err := f.orch.Deploy(context.Background(), owner, DeployRequest{GenerationID: f.gen.ID, SiteName: "slow"})
	require.NoError(t, err)
	assert.Equal(t, models.Deploying, res.Status)

	f.netlify.locked(func() { f.netlify.state = "ready" })
	checked, err := f.orch.CheckStatus(context.Background(), owner, f.gen.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Deployed, checked.Status)
	assert.True(t, checked.Changed)
	assert.Equal(t, models.Deployed, f.reload(t).DeploymentStatus)
}

func TestDeployProviderErrorStateFails(t *testing.T) {
	f := setup(t, "error", "test-token")

	res, err := f.orch.Deploy(context.Background(), owner, DeployRequest{GenerationID: f.gen.ID, SiteName: "broken"})
	require.NoError(t, err)
	assert.Equal(t, models.DeployFailed, res.Status)
	assert.Equal(t, ReasonProviderFailed, res.Reason)
	assert.Empty(t, res.URL)

	stored := f.reload(t)
	assert.Equal(t, models.DeployFailed, stored.DeploymentStatus)
	assert.Nil(t, stored.DeploymentURL)
	assert.Nil(t, stored.DeploymentID)
	f.netlify.locked(func() { assert.Contains(t, f.netlify.deletedSites, "site-broken") })
}

func TestDeploySiteCreationFailureEndsFailed(t *testing.T) {
	f := setup(t, "ready", "test-token")
	f.netlify.locked(func() { f.netlify.failCreate = true })

	res, err := f.orch.Deploy(context.Background(), owner, DeployRequest{GenerationID: f.gen.ID})
	require.NoError(t, err)
	assert.Equal(t, models.DeployFailed, res.Status)
	assert.Equal(t, models.DeployFailed, f.reload(t).DeploymentStatus)
}

func TestDeployUnconfirmedStatusStaysDeploying(t *testing.T) {
	f := setup(t, "ready", "test-token")
	f.netlify.locked(func() { f.netlify.failStatus = true })

	res, err := f.orch.Deploy(context.Background(), owner, DeployRequest{GenerationID: f.gen.ID, SiteName: "quiet"})
	require.NoError(t, err)
	assert.Equal(t, models.Deploying, res.Status)
	assert.Equal(t, ReasonUnconfirmed, res.Reason)

	stored := f.reload(t)
	assert.Equal(t, models.Deploying, stored.DeploymentStatus)
	require.NotNil(t, stored.DeploymentID)
}

func TestDeployWithoutCredentialIsMockAndMutatesNothing(t *testing.T) {
	f := setup(t, "ready", "")

	res, err := f.orch.Deploy(context.Background(), owner, DeployRequest{GenerationID: f.gen.ID})
	require.NoError(t, err)

	assert.True(t, res.Mock)
	assert.Equal(t, ReasonNoCredential, res.Reason)
	assert.NotEqual(t, models.Deployed, res.Status)
	assert.Empty(t, res.URL)
	assert.False(t, res.Succeeded())

	stored := f.reload(t)
	assert.Equal(t, models.NotDeployed, stored.DeploymentStatus)
	assert.Nil(t, stored.DeploymentURL)
	f.netlify.locked(func() { assert.Empty(t, f.netlify.createdSites) })
}

func TestDeployRejectsOtherUsersGeneration(t *testing.T) {
	f := setup(t, "ready", "test-token")

	_, err := f.orch.Deploy(context.Background(), intruder, DeployRequest{GenerationID: f.gen.ID})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	stored := f.reload(t)
	assert.Equal(t, models.NotDeployed, stored.DeploymentStatus)
	f.netlify.locked(func() { assert.Empty(t, f.netlify.createdSites) })

	_, err = f.orch.Deploy(context.Background(), owner, DeployRequest{GenerationID: "missing"})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestCheckStatusIsNoopUnlessDeploying(t *testing.T) {
	f := setup(t, "ready", "test-token")

	res, err := f.orch.CheckStatus(context.Background(), owner, f.gen.ID)
	require.NoError(t, err)
	assert.Equal(t, models.NotDeployed, res.Status)
	assert.False(t, res.Changed)
	assert.Equal(t, "No status check needed", res.Message)
}

func TestDeleteDeployedResetsRow(t *testing.T) {
	f := setup(t, "ready", "test-token")
	_, err := f.orch.Deploy(context.Background(), owner, DeployRequest{GenerationID: f.gen.ID, SiteName: "gone"})
	require.NoError(t, err)

	f.netlify.locked(func() { f.netlify.failDelete = true })
	res, err := f.orch.Delete(context.Background(), owner, f.gen.ID)
	require.NoError(t, err)
	assert.True(t, res.Reset)
	assert.False(t, res.Removed)
	assert.False(t, res.ProviderDeleted)

	stored := f.reload(t)
	require.NotNil(t, stored)
	assert.Equal(t, models.NotDeployed, stored.DeploymentStatus)
	assert.Nil(t, stored.DeploymentURL)
	assert.Nil(t, stored.DeploymentID)
	assert.Nil(t, stored.DeployedAt)
}

func TestDeleteNeverDeployedRemovesRow(t *testing.T) {
	f := setup(t, "ready", "test-token")

	res, err := f.orch.Delete(context.Background(), owner, f.gen.ID)
	require.NoError(t, err)
	assert.True(t, res.Removed)

	gen, err := f.gens.GetByID(context.Background(), f.gen.ID)
	require.NoError(t, err)
	assert.Nil(t, gen)
}

func TestDeleteRejectsOtherUser(t *testing.T) {
	f := setup(t, "ready", "test-token")

	_, err := f.orch.Delete(context.Background(), intruder, f.gen.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	assert.NotNil(t, f.reload(t))
}

func TestMarkManual(t *testing.T) {
	f := setup(t, "ready", "")

	res, err := f.orch.MarkManual(context.Background(), owner, f.gen.ID, "https://dropped.netlify.app")
	require.NoError(t, err)
	assert.Equal(t, models.Deployed, res.Status)
	assert.True(t, strings.HasPrefix(res.SiteID, "manual-"))

	stored := f.reload(t)
	assert.Equal(t, models.Deployed, stored.DeploymentStatus)
	require.NotNil(t, stored.DeploymentURL)
	assert.Equal(t, "https://dropped.netlify.app", *stored.DeploymentURL)

	_, err = f.orch.MarkManual(context.Background(), owner, f.gen.ID, "not a url")
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))
}

func TestDefaultSiteNameIsLowercase(t *testing.T) {
	name := DefaultSiteName()
	assert.True(t, strings.HasPrefix(name, "ai-website-"))
	assert.Equal(t, strings.ToLower(name), name)
}

func deployBuilding(t *testing.T, f *fixture, siteName string) {
	t.Helper()
	res, err := f.orch.Deploy(context.Background(), owner, DeployRequest{GenerationID: f.gen.ID, SiteName: siteName})
	require.NoError(t, err)
	require.Equal(t, models.Deploying, res.Status)
}

func TestCheckStatusReadyMarksDeployed(t *testing.T) {
	f := setup(t, "building", "test-token")
	deployBuilding(t, f, "later")
	assert.Nil(t, f.reload(t).DeployedAt)

	f.netlify.locked(func() { f.netlify.state = "ready" })
	res, err := f.orch.CheckStatus(context.Background(), owner, f.gen.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Deployed, res.Status)
	assert.Equal(t, "https://later.netlify.app", res.URL)
	assert.True(t, res.Succeeded())

	stored := f.reload(t)
	assert.Equal(t, models.Deployed, stored.DeploymentStatus)
	require.NotNil(t, stored.DeploymentURL)
	assert.Equal(t, "https://later.netlify.app", *stored.DeploymentURL)
	require.NotNil(t, stored.DeploymentID)
	assert.Equal(t, "site-later", *stored.DeploymentID)
	assert.NotNil(t, stored.DeployedAt)
}

func TestCheckStatusErrorMarksFailedAndRemovesSite(t *testing.T) {
	f := setup(t, "building", "test-token")
	deployBuilding(t, f, "doomed")

	f.netlify.locked(func() { f.netlify.state = "error" })
	res, err := f.orch.CheckStatus(context.Background(), owner, f.gen.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DeployFailed, res.Status)
	assert.Equal(t, ReasonProviderFailed, res.Reason)
	assert.True(t, res.Changed)
	assert.False(t, res.Succeeded())

	stored := f.reload(t)
	assert.Equal(t, models.DeployFailed, stored.DeploymentStatus)
	assert.Nil(t, stored.DeploymentURL)
	assert.Nil(t, stored.DeploymentID)
	assert.Nil(t, stored.DeployedAt)
	f.netlify.locked(func() { assert.Contains(t, f.netlify.deletedSites, "site-doomed") })
}

func TestCheckStatusProviderUnavailableLeavesRow(t *testing.T) {
	f := setup(t, "building", "test-token")
	deployBuilding(t, f, "waiting")
	before := f.reload(t)

	f.netlify.locked(func() { f.netlify.failStatus = true })
	res, err := f.orch.CheckStatus(context.Background(), owner, f.gen.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Deploying, res.Status)
	assert.Equal(t, ReasonUnconfirmed, res.Reason)
	assert.False(t, res.Changed)

	after := f.reload(t)
	assert.Equal(t, before.DeploymentStatus, after.DeploymentStatus)
	assert.Equal(t, before.DeploymentURL, after.DeploymentURL)
	assert.Equal(t, before.DeploymentID, after.DeploymentID)
	assert.Equal(t, before.UpdatedAt.UnixNano(), after.UpdatedAt.UnixNano())
}

func TestFailedRedeployKeepsPreviousSiteLive(t *testing.T) {
	f := setup(t, "ready", "test-token")
	_, err := f.orch.Deploy(context.Background(), owner, DeployRequest{GenerationID: f.gen.ID, SiteName: "first"})
	require.NoError(t, err)

	f.netlify.locked(func() { f.netlify.failCreate = true })
	res, err := f.orch.Deploy(context.Background(), owner, DeployRequest{GenerationID: f.gen.ID, SiteName: "second"})
	require.NoError(t, err)
	assert.Equal(t, ReasonProviderFailed, res.Reason)
	assert.Equal(t, models.Deployed, res.Status)
	assert.Equal(t, "site-first", res.SiteID)
	assert.False(t, res.Succeeded())

	stored := f.reload(t)
	assert.Equal(t, models.Deployed, stored.DeploymentStatus)
	require.NotNil(t, stored.DeploymentID)
	assert.Equal(t, "site-first", *stored.DeploymentID)
	require.NotNil(t, stored.DeploymentURL)
	assert.Equal(t, "https://first.netlify.app", *stored.DeploymentURL)
	assert.NotNil(t, stored.DeployedAt)

	del, err := f.orch.Delete(context.Background(), owner, f.gen.ID)
	require.NoError(t, err)
	assert.True(t, del.ProviderDeleted)
	f.netlify.locked(func() { assert.Equal(t, []string{"site-first"}, f.netlify.deletedSites) })
}

func TestFailedRedeployOfPendingSiteRemovesIt(t *testing.T) {
	f := setup(t, "building", "test-token")
	deployBuilding(t, f, "pending")

	f.netlify.locked(func() { f.netlify.state = "error" })
	res, err := f.orch.Deploy(context.Background(), owner, DeployRequest{GenerationID: f.gen.ID, SiteName: "retry"})
	require.NoError(t, err)
	assert.Equal(t, models.DeployFailed, res.Status)

	stored := f.reload(t)
	assert.Nil(t, stored.DeploymentID)
	f.netlify.locked(func() {
		assert.ElementsMatch(t, []string{"site-retry", "site-pending"}, f.netlify.deletedSites)
	})
}
