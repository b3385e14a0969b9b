package deploy

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"sitegen-backend/internal/auth"
	"sitegen-backend/internal/libraries"
	"sitegen-backend/internal/models"
	"sitegen-backend/internal/repo"
	"sitegen-backend/internal/sitegen/apperr"
	"sitegen-backend/internal/sitegen/helpers"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
)

const (
	DefaultPollDelay = 3 * time.Second
	manualSitePrefix = "manual-"
)

// Reason explains a result that is not an authoritative provider outcome.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonNoCredential   Reason = "no_credential"
	ReasonProviderFailed Reason = "provider_failed"
	ReasonUnconfirmed    Reason = "unconfirmed"
)

// Hosting is the static-hosting provider the orchestrator drives.
type Hosting interface {
	Configured() bool
	CreateSite(ctx context.Context, name string) (*libraries.NetlifySite, error)
	CreateDeploy(ctx context.Context, siteID, fileHash string) (*libraries.NetlifyDeploy, error)
	UploadFile(ctx context.Context, deployID, fileHash string, content []byte) error
	GetSite(ctx context.Context, siteID string) (*libraries.NetlifySite, error)
	DeleteSite(ctx context.Context, siteID string) error
}

type DeployRequest struct {
	GenerationID string
	// HTML overrides the stored response when set.
	HTML     string
	SiteName string
}

// Result is the local deployment state after an operation. Mock is set when no
// provider call was made and Status must not be read as a hosting outcome.
type Result struct {
	GenerationID string                  `json:"generationId"`
	Status       models.DeploymentStatus `json:"status"`
	URL          string                  `json:"url,omitempty"`
	SiteID       string                  `json:"siteId,omitempty"`
	DeployID     string                  `json:"deployId,omitempty"`
	Mock         bool                    `json:"mock,omitempty"`
	Reason       Reason                  `json:"reason,omitempty"`
	Message      string                  `json:"message"`
	Changed      bool                    `json:"changed"`
}

// Succeeded reports whether the provider confirmed or accepted the deploy.
func (r *Result) Succeeded() bool {
	return !r.Mock && r.Reason != ReasonProviderFailed && (r.Status == models.Deployed || r.Status == models.Deploying)
}

type DeleteResult struct {
	GenerationID    string `json:"generationId"`
	Removed         bool   `json:"removed"`
	Reset           bool   `json:"reset"`
	ProviderDeleted bool   `json:"providerDeleted"`
	Message         string `json:"message"`
}

// Orchestrator publishes generations to the hosting provider and keeps the
// local deployment fields in one of the four defined states.
type Orchestrator struct {
	generationRepo repo.GenerationRepoInterface
	hosting        Hosting
	archive        libraries.SnapshotArchive
	pollDelay      time.Duration
}

// NewOrchestrator accepts a nil archive when snapshots are disabled.
func NewOrchestrator(generationRepo repo.GenerationRepoInterface, hosting Hosting, archive libraries.SnapshotArchive, pollDelay time.Duration) *Orchestrator {
	if pollDelay < 0 {
		pollDelay = DefaultPollDelay
	}
	return &Orchestrator{
		generationRepo: generationRepo,
		hosting:        hosting,
		archive:        archive,
		pollDelay:      pollDelay,
	}
}

// MapState converts a provider build state to a local status.
func MapState(state string) models.DeploymentStatus {
	switch strings.ToLower(state) {
	case "ready":
		return models.Deployed
	case "error", "failed":
		return models.DeployFailed
	default:
		return models.Deploying
	}
}

// DefaultSiteName is used when the caller does not pick a site name.
func DefaultSiteName() string {
	return "ai-website-" + strings.ToLower(shortuuid.New())
}

func (o *Orchestrator) ownedGeneration(ctx context.Context, identity auth.Identity, generationID string) (*models.Generation, error) {
	if !identity.Authenticated() {
		return nil, apperr.Unauthorized("Unauthorized")
	}
	if generationID == "" {
		return nil, apperr.Invalid("Generation ID is required")
	}
	gen, err := o.generationRepo.GetByID(ctx, generationID)
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

func (o *Orchestrator) providerAvailable() bool {
	return o.hosting != nil && o.hosting.Configured()
}

// Deploy publishes the generation's HTML as a hosted site. Once the request has
// been validated the generation always ends in deploying, deployed or failed.
func (o *Orchestrator) Deploy(ctx context.Context, identity auth.Identity, req DeployRequest) (*Result, error) {
	gen, err := o.ownedGeneration(ctx, identity, req.GenerationID)
	if err != nil {
		return nil, err
	}

	source := req.HTML
	if strings.TrimSpace(source) == "" {
		source = gen.AIResponse
	}
	html := helpers.ExtractHTML(source)
	if html == "" {
		return nil, apperr.Invalid("HTML content is required")
	}

	if !o.providerAvailable() {
		log.Printf("[deploy] no hosting credential, generation %s left as %s", gen.ID, gen.DeploymentStatus)
		return &Result{
			GenerationID: gen.ID,
			Status:       gen.DeploymentStatus,
			Mock:         true,
			Reason:       ReasonNoCredential,
			Message:      "Hosting is not configured. Download the HTML file and deploy it manually.",
		}, nil
	}

	siteName := strings.TrimSpace(req.SiteName)
	if siteName == "" {
		siteName = DefaultSiteName()
	}

	if err := o.update(ctx, gen.ID, map[string]interface{}{"deployment_status": models.Deploying}); err != nil {
		return nil, err
	}

	site, err := o.hosting.CreateSite(ctx, siteName)
	if err != nil {
		return o.fail(ctx, gen, "", errors.Wrap(err, "create site"))
	}
	siteURL := site.PublicURL()
	if err := o.update(ctx, gen.ID, map[string]interface{}{
		"deployment_status": models.Deploying,
		"deployment_url":    siteURL,
		"deployment_id":     site.ID,
	}); err != nil {
		return o.fail(ctx, gen, site.ID, err)
	}

	content := []byte(html)
	fileHash := libraries.FileHash(content)
	deploy, err := o.hosting.CreateDeploy(ctx, site.ID, fileHash)
	if err != nil {
		return o.fail(ctx, gen, site.ID, errors.Wrap(err, "create deploy"))
	}
	for _, required := range deploy.Required {
		if required != fileHash {
			continue
		}
		if err := o.hosting.UploadFile(ctx, deploy.ID, fileHash, content); err != nil {
			return o.fail(ctx, gen, site.ID, errors.Wrap(err, "upload file"))
		}
	}

	meta := models.DeploymentMeta{DeployID: deploy.ID, FileHash: fileHash, SiteName: siteName}
	meta.Snapshot = o.snapshot(ctx, gen, content)

	state := ""
	status := models.Deploying
	reason := ReasonUnconfirmed
	if err := sleep(ctx, o.pollDelay); err == nil {
		if info, err := o.hosting.GetSite(ctx, site.ID); err != nil {
			log.Printf("[deploy] could not confirm site %s: %v", site.ID, err)
		} else {
			state = info.State()
			status = MapState(state)
			reason = ReasonNone
			if info.PublicURL() != "" {
				siteURL = info.PublicURL()
			}
		}
	}
	meta.LastState = state

	if status == models.DeployFailed {
		return o.fail(ctx, gen, site.ID, errors.Errorf("provider reported state %q", state))
	}

	fields := map[string]interface{}{
		"deployment_status": status,
		"deployment_url":    siteURL,
		"deployment_id":     site.ID,
		"metadata":          encodeMeta(meta),
	}
	message := "Website deployed successfully"
	if status == models.Deployed {
		fields["deployed_at"] = time.Now()
	} else {
		message = "Deployment started. The build has not finished yet, check the status again shortly."
	}
	if err := o.update(context.WithoutCancel(ctx), gen.ID, fields); err != nil {
		return nil, err
	}
	if previous := deref(gen.DeploymentID); previous != "" && previous != site.ID && !strings.HasPrefix(previous, manualSitePrefix) {
		if err := o.hosting.DeleteSite(context.WithoutCancel(ctx), previous); err != nil {
			log.Printf("[deploy] failed to remove superseded site %s: %v", previous, err)
		}
	}

	log.Printf("[deploy] generation %s -> %s (%s)", gen.ID, status, siteURL)
	return &Result{
		GenerationID: gen.ID,
		Status:       status,
		URL:          siteURL,
		SiteID:       site.ID,
		DeployID:     deploy.ID,
		Reason:       reason,
		Message:      message,
		Changed:      true,
	}, nil
}

// fail records a failed deploy with URL and site id cleared. A site created
// during the attempt is removed on a best-effort basis. When the generation was
// already live before the attempt, its previous deployment is restored instead.
func (o *Orchestrator) fail(ctx context.Context, gen *models.Generation, siteID string, cause error) (*Result, error) {
	log.Printf("[deploy] generation %s failed: %v", gen.ID, cause)
	ctx = context.WithoutCancel(ctx)
	if siteID != "" {
		if err := o.hosting.DeleteSite(ctx, siteID); err != nil {
			log.Printf("[deploy] failed to remove site %s after failure: %v", siteID, err)
		}
	}

	previous := deref(gen.DeploymentID)
	if previous != "" && previous != siteID {
		if gen.DeploymentStatus == models.Deployed {
			return o.restore(ctx, gen)
		}
		if !strings.HasPrefix(previous, manualSitePrefix) {
			if err := o.hosting.DeleteSite(ctx, previous); err != nil {
				log.Printf("[deploy] failed to remove stale site %s: %v", previous, err)
			}
		}
	}

	if err := o.update(ctx, gen.ID, map[string]interface{}{
		"deployment_status": models.DeployFailed,
		"deployment_url":    nil,
		"deployment_id":     nil,
		"deployed_at":       nil,
	}); err != nil {
		return nil, err
	}
	return &Result{
		GenerationID: gen.ID,
		Status:       models.DeployFailed,
		Reason:       ReasonProviderFailed,
		Message:      "The hosting provider reported a failure. Please try again.",
		Changed:      true,
	}, nil
}

// restore puts back the deployment a failed redeploy was meant to replace.
func (o *Orchestrator) restore(ctx context.Context, gen *models.Generation) (*Result, error) {
	if err := o.update(ctx, gen.ID, map[string]interface{}{
		"deployment_status": models.Deployed,
		"deployment_url":    gen.DeploymentURL,
		"deployment_id":     gen.DeploymentID,
		"deployed_at":       gen.DeployedAt,
	}); err != nil {
		return nil, err
	}
	log.Printf("[deploy] generation %s kept previous site %s", gen.ID, deref(gen.DeploymentID))
	return &Result{
		GenerationID: gen.ID,
		Status:       models.Deployed,
		URL:          deref(gen.DeploymentURL),
		SiteID:       deref(gen.DeploymentID),
		Reason:       ReasonProviderFailed,
		Message:      "The redeploy failed. The previous deployment is still live.",
	}, nil
}

func (o *Orchestrator) snapshot(ctx context.Context, gen *models.Generation, content []byte) string {
	if o.archive == nil {
		return ""
	}
	uri, err := o.archive.Save(ctx, gen.ID, gen.Version, content)
	if err != nil {
		log.Printf("[deploy] snapshot of %s failed: %v", gen.ID, err)
		return ""
	}
	return uri
}

// CheckStatus polls the provider once for a generation that is deploying and
// reconciles the local status.
func (o *Orchestrator) CheckStatus(ctx context.Context, identity auth.Identity, generationID string) (*Result, error) {
	gen, err := o.ownedGeneration(ctx, identity, generationID)
	if err != nil {
		return nil, err
	}

	result := resultOf(gen)
	siteID := deref(gen.DeploymentID)
	if gen.DeploymentStatus != models.Deploying || siteID == "" || strings.HasPrefix(siteID, manualSitePrefix) {
		result.Message = "No status check needed"
		return result, nil
	}
	if !o.providerAvailable() {
		result.Reason = ReasonNoCredential
		result.Message = "Hosting is not configured, status cannot be checked"
		return result, nil
	}

	site, err := o.hosting.GetSite(ctx, siteID)
	if err != nil {
		log.Printf("[deploy] status check for %s failed: %v", gen.ID, err)
		result.Reason = ReasonUnconfirmed
		result.Message = "Could not confirm the deployment status"
		return result, nil
	}

	status := MapState(site.State())
	switch status {
	case models.Deploying:
		result.Message = "Deployment is still in progress"
		return result, nil
	case models.DeployFailed:
		if err := o.hosting.DeleteSite(ctx, siteID); err != nil {
			log.Printf("[deploy] failed to remove site %s: %v", siteID, err)
		}
		if err := o.update(ctx, gen.ID, map[string]interface{}{
			"deployment_status": models.DeployFailed,
			"deployment_url":    nil,
			"deployment_id":     nil,
			"deployed_at":       nil,
		}); err != nil {
			return nil, err
		}
		return &Result{
			GenerationID: gen.ID,
			Status:       models.DeployFailed,
			Reason:       ReasonProviderFailed,
			Message:      "The hosting provider reported a failure",
			Changed:      true,
		}, nil
	}

	url := site.PublicURL()
	if url == "" {
		url = deref(gen.DeploymentURL)
	}
	if err := o.update(ctx, gen.ID, map[string]interface{}{
		"deployment_status": models.Deployed,
		"deployment_url":    url,
		"deployed_at":       time.Now(),
	}); err != nil {
		return nil, err
	}
	result.Status = models.Deployed
	result.URL = url
	result.Message = "Website deployed successfully"
	result.Changed = true
	return result, nil
}

// Delete takes a deployed site down and resets the generation, or removes a
// generation that was never deployed.
func (o *Orchestrator) Delete(ctx context.Context, identity auth.Identity, generationID string) (*DeleteResult, error) {
	gen, err := o.ownedGeneration(ctx, identity, generationID)
	if err != nil {
		return nil, err
	}
	result := &DeleteResult{GenerationID: gen.ID}

	if gen.DeploymentStatus == models.NotDeployed {
		if err := o.generationRepo.Delete(ctx, gen.ID); err != nil {
			if errors.Is(err, repo.ErrCurrentVersionInUse) {
				return nil, apperr.Precondition("The current version cannot be deleted while older versions exist")
			}
			return nil, apperr.Wrap(apperr.KindInternal, err, "Failed to delete generation")
		}
		result.Removed = true
		result.Message = "Generation deleted"
		return result, nil
	}

	siteID := deref(gen.DeploymentID)
	if siteID != "" && !strings.HasPrefix(siteID, manualSitePrefix) && o.providerAvailable() {
		if err := o.hosting.DeleteSite(ctx, siteID); err != nil {
			log.Printf("[deploy] provider delete of %s failed, resetting locally: %v", siteID, err)
		} else {
			result.ProviderDeleted = true
		}
	}

	if err := o.update(ctx, gen.ID, map[string]interface{}{
		"deployment_status": models.NotDeployed,
		"deployment_url":    nil,
		"deployment_id":     nil,
		"deployed_at":       nil,
		"metadata":          nil,
	}); err != nil {
		return nil, err
	}
	result.Reset = true
	result.Message = "Deployment removed"
	return result, nil
}

// MarkManual records a deploy the user performed outside the provider API.
func (o *Orchestrator) MarkManual(ctx context.Context, identity auth.Identity, generationID string, url string) (*Result, error) {
	url = strings.TrimSpace(url)
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, apperr.Invalid("A valid deployment URL is required")
	}
	gen, err := o.ownedGeneration(ctx, identity, generationID)
	if err != nil {
		return nil, err
	}

	siteID := fmt.Sprintf("%s%d", manualSitePrefix, time.Now().UnixMilli())
	if err := o.update(ctx, gen.ID, map[string]interface{}{
		"deployment_status": models.Deployed,
		"deployment_url":    url,
		"deployment_id":     siteID,
		"deployed_at":       time.Now(),
		"metadata":          encodeMeta(models.DeploymentMeta{Manual: true}),
	}); err != nil {
		return nil, err
	}
	return &Result{
		GenerationID: gen.ID,
		Status:       models.Deployed,
		URL:          url,
		SiteID:       siteID,
		Message:      "Deployment status updated",
		Changed:      true,
	}, nil
}

func (o *Orchestrator) update(ctx context.Context, generationID string, fields map[string]interface{}) error {
	if err := o.generationRepo.UpdateFields(ctx, generationID, fields); err != nil {
		log.Printf("[deploy] failed to update generation %s: %v", generationID, err)
		return apperr.Wrap(apperr.KindInternal, err, "Failed to update deployment status")
	}
	return nil
}

func resultOf(gen *models.Generation) *Result {
	return &Result{
		GenerationID: gen.ID,
		Status:       gen.DeploymentStatus,
		URL:          deref(gen.DeploymentURL),
		SiteID:       deref(gen.DeploymentID),
	}
}

func encodeMeta(meta models.DeploymentMeta) datatypes.JSON {
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
