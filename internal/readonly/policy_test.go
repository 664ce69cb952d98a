package readonly

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElasticsearchPolicyDeniesMutatingVerbs(t *testing.T) {
	policy := NewElasticsearchPolicy()

	paths := []string{
		"/",
		"/_search",
		"/traces-apm*/_search",
		"/my-index",
		"/my-index/_doc/1",
		"/_cluster/settings",
	}

	for _, method := range []string{http.MethodPut, http.MethodPatch, http.MethodDelete} {
		for _, path := range paths {
			assert.False(t, policy.Allow(method, path),
				"%s %s must be denied", method, path)
		}
	}
}

func TestElasticsearchPolicyAllowsSearchOperations(t *testing.T) {
	policy := NewElasticsearchPolicy()

	allowed := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/"},
		{http.MethodGet, "/_cluster/health"},
		{http.MethodGet, "/_cluster/stats"},
		{http.MethodGet, "/_nodes/stats"},
		{http.MethodGet, "/_cat/indices"},
		{http.MethodGet, "/traces-apm*/_mapping"},
		{http.MethodGet, "/logs-apm.error-*/_search"},
		{http.MethodPost, "/_search"},
		{http.MethodPost, "/traces-apm*/_search"},
		{http.MethodPost, "/metricbeat-*/_count"},
		{http.MethodPost, "/logs-*/_field_caps"},
		{http.MethodPost, "/filebeat-*/_validate/query"},
		{http.MethodPost, "/_sql"},
		{http.MethodPost, "/_eql/search"},
	}

	for _, tt := range allowed {
		assert.True(t, policy.Allow(tt.method, tt.path),
			"%s %s must be allowed", tt.method, tt.path)
	}
}

func TestElasticsearchPolicyDeniesUnsafePosts(t *testing.T) {
	policy := NewElasticsearchPolicy()

	denied := []string{
		"/my-index/_doc",
		"/my-index/_update/1",
		"/_bulk",
		"/my-index/_bulk",
		"/_reindex",
		"/my-index/_delete_by_query",
		"/my-index/_update_by_query",
		"/_cluster/reroute",
		"/_scripts/my-script",
	}

	for _, path := range denied {
		assert.False(t, policy.Allow(http.MethodPost, path),
			"POST %s must be denied", path)
	}
}

func TestDatadogPolicy(t *testing.T) {
	policy := NewDatadogPolicy()

	assert.True(t, policy.Allow(http.MethodGet, "/api/v1/query"))
	assert.True(t, policy.Allow(http.MethodGet, "/api/v1/monitor"))
	assert.True(t, policy.Allow(http.MethodGet, "/api/v1/hosts"))
	assert.True(t, policy.Allow(http.MethodGet, "/api/v1/metrics/system.cpu.user"))
	assert.True(t, policy.Allow(http.MethodGet, "/api/v2/spans/events"))
	assert.True(t, policy.Allow(http.MethodPost, "/api/v2/logs/events/search"))
	assert.True(t, policy.Allow(http.MethodPost, "/api/v2/spans/events/search"))

	// Mutations stay closed, including ones that live under allowed prefixes.
	assert.False(t, policy.Allow(http.MethodPost, "/api/v1/monitor"))
	assert.False(t, policy.Allow(http.MethodPut, "/api/v1/monitor/123"))
	assert.False(t, policy.Allow(http.MethodDelete, "/api/v1/dashboard/abc"))
	assert.False(t, policy.Allow(http.MethodPost, "/api/v1/events"))
	assert.False(t, policy.Allow(http.MethodPost, "/api/v2/logs/config/pipelines"))
	assert.False(t, policy.Allow(http.MethodGet, "/api/v1/integration/aws"))
}

func TestGuardBlocksDeniedRequests(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer backend.Close()

	client := &http.Client{
		Transport: NewGuard(NewElasticsearchPolicy(), nil),
	}

	// Allowed request reaches the backend.
	resp, err := client.Get(backend.URL + "/_cluster/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Denied request fails before dialing.
	req, err := http.NewRequest(http.MethodDelete, backend.URL+"/my-index", nil)
	require.NoError(t, err)
	_, err = client.Do(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read-only filter")
}

func TestGuardDefaultsToDefaultTransport(t *testing.T) {
	guard := NewGuard(NewDatadogPolicy(), nil)
	assert.NotNil(t, guard.next)
}
