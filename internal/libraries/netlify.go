package libraries

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultNetlifyAPIURL = "https://api.netlify.com/api/v1"

// NetlifySite is the subset of the site resource the deployer reads.
type NetlifySite struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	URL             string         `json:"url"`
	SSLURL          string         `json:"ssl_url"`
	PublishedDeploy *NetlifyDeploy `json:"published_deploy"`
}

// PublicURL prefers the https address.
func (s *NetlifySite) PublicURL() string {
	if s.SSLURL != "" {
		return s.SSLURL
	}
	return s.URL
}

// State is the build state of the published deploy, or "" when none exists yet.
func (s *NetlifySite) State() string {
	if s.PublishedDeploy == nil {
		return ""
	}
	return s.PublishedDeploy.State
}

type NetlifyDeploy struct {
	ID       string   `json:"id"`
	SiteID   string   `json:"site_id"`
	State    string   `json:"state"`
	Required []string `json:"required"`
}

// NetlifyError is returned for non-2xx responses.
type NetlifyError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *NetlifyError) Error() string {
	return fmt.Sprintf("netlify %s failed: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// NetlifyClient talks to the Netlify REST API with a personal access token.
type NetlifyClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewNetlifyClient(baseURL, token string) *NetlifyClient {
	if baseURL == "" {
		baseURL = DefaultNetlifyAPIURL
	}
	return &NetlifyClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Configured reports whether an access token is present.
func (c *NetlifyClient) Configured() bool {
	return c != nil && c.token != ""
}

// FileHash is the digest Netlify expects in a deploy file manifest.
func FileHash(content []byte) string {
	sum := sha1.Sum(content)
	return hex.EncodeToString(sum[:])
}

func (c *NetlifyClient) CreateSite(ctx context.Context, name string) (*NetlifySite, error) {
	var site NetlifySite
	err := c.do(ctx, "create site", http.MethodPost, "/sites", "application/json", map[string]string{"name": name}, &site)
	if err != nil {
		return nil, err
	}
	return &site, nil
}

// CreateDeploy starts a deploy whose only file is /index.html with the given hash.
func (c *NetlifyClient) CreateDeploy(ctx context.Context, siteID, fileHash string) (*NetlifyDeploy, error) {
	body := map[string]interface{}{
		"files": map[string]string{"/index.html": fileHash},
	}
	var deploy NetlifyDeploy
	err := c.do(ctx, "create deploy", http.MethodPost, "/sites/"+siteID+"/deploys", "application/json", body, &deploy)
	if err != nil {
		return nil, err
	}
	return &deploy, nil
}

// UploadFile uploads raw bytes for a file the deploy reported as required.
func (c *NetlifyClient) UploadFile(ctx context.Context, deployID, fileHash string, content []byte) error {
	return c.do(ctx, "upload file", http.MethodPut, "/deploys/"+deployID+"/files/"+fileHash, "application/octet-stream", content, nil)
}

func (c *NetlifyClient) GetSite(ctx context.Context, siteID string) (*NetlifySite, error) {
	var site NetlifySite
	if err := c.do(ctx, "get site", http.MethodGet, "/sites/"+siteID, "", nil, &site); err != nil {
		return nil, err
	}
	return &site, nil
}

func (c *NetlifyClient) DeleteSite(ctx context.Context, siteID string) error {
	return c.do(ctx, "delete site", http.MethodDelete, "/sites/"+siteID, "", nil, nil)
}

// do sends body as JSON unless it is already []byte, and decodes the response into out when non-nil.
func (c *NetlifyClient) do(ctx context.Context, op, method, path, contentType string, body interface{}, out interface{}) error {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("netlify %s: failed to marshal request: %w", op, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("netlify %s: failed to create request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("netlify %s: request failed: %w", op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("netlify %s: failed to read response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &NetlifyError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("netlify %s: failed to parse response: %w", op, err)
	}
	return nil
}
