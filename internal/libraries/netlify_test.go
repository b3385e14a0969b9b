package libraries

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileHashIsSHA1Hex(t *testing.T) {
	assert.Equal(t, "a9993e364706816aba3e25717850c26c9cd0d89d", FileHash([]byte("abc")))
}

func TestNetlifyClientConfigured(t *testing.T) {
	assert.False(t, NewNetlifyClient("", "").Configured())
	assert.True(t, NewNetlifyClient("", "token").Configured())

	var nilClient *NetlifyClient
	assert.False(t, nilClient.Configured())
}

func TestNetlifyClientGetSite(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		assert.Equal(t, "/sites/abc", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"abc","url":"http://x.netlify.app","ssl_url":"https://x.netlify.app","published_deploy":{"state":"ready"}}`))
	}))
	defer server.Close()

	site, err := NewNetlifyClient(server.URL+"/", "token").GetSite(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "https://x.netlify.app", site.PublicURL())
	assert.Equal(t, "ready", site.State())
}

func TestNetlifyClientReturnsTypedErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "name already taken", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	_, err := NewNetlifyClient(server.URL, "token").CreateSite(context.Background(), "taken")
	var netlifyErr *NetlifyError
	require.ErrorAs(t, err, &netlifyErr)
	assert.Equal(t, http.StatusUnprocessableEntity, netlifyErr.StatusCode)
	assert.Equal(t, "create site", netlifyErr.Op)
	assert.Equal(t, "name already taken", netlifyErr.Body)
}

func TestSiteStateWithoutPublishedDeploy(t *testing.T) {
	site := &NetlifySite{URL: "http://plain.netlify.app"}
	assert.Equal(t, "", site.State())
	assert.Equal(t, "http://plain.netlify.app", site.PublicURL())
}

func TestSnapshotObjectName(t *testing.T) {
	assert.Equal(t, "sites/gen-1/v3/index.html", SnapshotObjectName("gen-1", 3))
}
