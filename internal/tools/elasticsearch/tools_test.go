package elasticsearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/byviz/mcp-observability/internal/server"
)

// TestLogger implements server.Logger for testing
type TestLogger struct{}

func (l *TestLogger) Debug(msg string, args ...interface{}) {}
func (l *TestLogger) Info(msg string, args ...interface{})  {}
func (l *TestLogger) Warn(msg string, args ...interface{})  {}
func (l *TestLogger) Error(msg string, args ...interface{}) {}

// newMockES returns an httptest server that speaks enough of the
// Elasticsearch protocol for the official client, including the product
// verification header.
func newMockES(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
}

func testClient(t *testing.T, url string) *Client {
	t.Helper()
	config := server.ElasticsearchConfig{URL: url, VerifyCerts: true}
	return NewClient(config, &TestLogger{}, true)
}

func TestRegisterElasticsearchTools(t *testing.T) {
	s := mcpserver.NewMCPServer("test", "1.0.0")

	ctx := context.Background()
	sc, err := server.NewServerContext(ctx,
		server.WithElasticsearchConfig(server.ElasticsearchConfig{
			URL: "http://localhost:9200",
		}),
		server.WithLogger(&TestLogger{}),
	)
	if err != nil {
		t.Fatalf("Failed to create server context: %v", err)
	}
	defer sc.Shutdown()

	if err := RegisterElasticsearchTools(s, sc); err != nil {
		t.Fatalf("Failed to register tools: %v", err)
	}
}

func TestClient(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		response string
		testFunc func(*Client) error
	}{
		{
			name:     "Search",
			endpoint: "/logs-test/_search",
			response: `{"took": 1, "hits": {"total": {"value": 0}, "hits": []}}`,
			testFunc: func(c *Client) error {
				_, err := c.Search(context.Background(), "logs-test", SearchOptions{Size: 10})
				return err
			},
		},
		{
			name:     "SearchWithQuery",
			endpoint: "/logs-test/_search",
			response: `{"took": 1, "hits": {"total": {"value": 1}, "hits": []}}`,
			testFunc: func(c *Client) error {
				_, err := c.Search(context.Background(), "logs-test", SearchOptions{
					Query: `{"match": {"message": "error"}}`,
					Size:  5,
				})
				return err
			},
		},
		{
			name:     "Count",
			endpoint: "/logs-test/_count",
			response: `{"count": 42}`,
			testFunc: func(c *Client) error {
				_, err := c.Count(context.Background(), "logs-test", `{"match_all": {}}`)
				return err
			},
		},
		{
			name:     "FieldCaps",
			endpoint: "/logs-test/_field_caps",
			response: `{"indices": ["logs-test"], "fields": {}}`,
			testFunc: func(c *Client) error {
				_, err := c.FieldCaps(context.Background(), "logs-test", []string{"*"})
				return err
			},
		},
		{
			name:     "ValidateQuery",
			endpoint: "/logs-test/_validate/query",
			response: `{"valid": true, "_shards": {"total": 1}}`,
			testFunc: func(c *Client) error {
				_, err := c.ValidateQuery(context.Background(), "logs-test", `{"match_all": {}}`)
				return err
			},
		},
		{
			name:     "SQLQuery",
			endpoint: "/_sql",
			response: `{"columns": [{"name": "message", "type": "text"}], "rows": []}`,
			testFunc: func(c *Client) error {
				_, err := c.SQLQuery(context.Background(), `SELECT message FROM "logs-test"`, 10)
				return err
			},
		},
		{
			name:     "ListIndices",
			endpoint: "/_cat/indices/logs-test",
			response: `[{"index": "logs-test", "health": "green", "status": "open", "docs.count": "10", "store.size": "1mb"}]`,
			testFunc: func(c *Client) error {
				indices, err := c.ListIndices(context.Background(), "logs-test")
				if err != nil {
					return err
				}
				if len(indices) != 1 || indices[0].Index != "logs-test" {
					t.Errorf("unexpected indices: %+v", indices)
				}
				return nil
			},
		},
		{
			name:     "GetMappings",
			endpoint: "/logs-test/_mapping",
			response: `{"logs-test": {"mappings": {"properties": {"message": {"type": "text"}}}}}`,
			testFunc: func(c *Client) error {
				_, err := c.GetMappings(context.Background(), "logs-test")
				return err
			},
		},
		{
			name:     "ClusterInfo",
			endpoint: "/",
			response: `{"name": "node-1", "cluster_name": "test", "version": {"number": "8.17.1"}}`,
			testFunc: func(c *Client) error {
				_, err := c.ClusterInfo(context.Background())
				return err
			},
		},
		{
			name:     "ClusterHealth",
			endpoint: "/_cluster/health",
			response: `{"cluster_name": "test", "status": "green", "number_of_nodes": 1}`,
			testFunc: func(c *Client) error {
				_, err := c.ClusterHealth(context.Background())
				return err
			},
		},
		{
			name:     "ClusterStats",
			endpoint: "/_cluster/stats",
			response: `{"cluster_name": "test", "indices": {"count": 3}}`,
			testFunc: func(c *Client) error {
				_, err := c.ClusterStats(context.Background())
				return err
			},
		},
		{
			name:     "NodesStats",
			endpoint: "/_nodes/stats",
			response: `{"cluster_name": "test", "nodes": {}}`,
			testFunc: func(c *Client) error {
				_, err := c.NodesStats(context.Background())
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockServer := newMockES(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == tt.endpoint {
					w.WriteHeader(http.StatusOK)
					w.Write([]byte(tt.response))
				} else {
					w.WriteHeader(http.StatusNotFound)
					w.Write([]byte(`{"error": "not found"}`))
				}
			})
			defer mockServer.Close()

			// All requests travel through the read-only guard, so this
			// also proves the guard admits every tool endpoint.
			if err := tt.testFunc(testClient(t, mockServer.URL)); err != nil {
				t.Errorf("Test failed: %v", err)
			}
		})
	}
}

func TestClientNotInitialized(t *testing.T) {
	client := NewClient(server.ElasticsearchConfig{}, &TestLogger{}, true)

	_, err := client.Search(context.Background(), "logs-test", SearchOptions{})
	if err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Errorf("expected not-initialized error, got: %v", err)
	}
}

func TestSearchRejectsInvalidJSON(t *testing.T) {
	client := testClient(t, "http://localhost:9200")

	_, err := client.Search(context.Background(), "logs-test", SearchOptions{Query: "{not json"})
	if err == nil || !strings.Contains(err.Error(), "invalid query") {
		t.Errorf("expected invalid query error, got: %v", err)
	}
}

func TestClientSurfacesErrorResponses(t *testing.T) {
	mockServer := newMockES(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"type": "parsing_exception", "reason": "bad query"}}`))
	})
	defer mockServer.Close()

	_, err := testClient(t, mockServer.URL).Search(context.Background(), "logs-test", SearchOptions{})
	if err == nil || !strings.Contains(err.Error(), "elasticsearch error") {
		t.Errorf("expected elasticsearch error, got: %v", err)
	}
}

func TestHandleSearch(t *testing.T) {
	mockServer := newMockES(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/_search") {
			w.Write([]byte(`{"took": 1, "hits": {"total": {"value": 0}, "hits": []}}`))
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	})
	defer mockServer.Close()

	ctx := context.Background()
	sc, err := server.NewServerContext(ctx,
		server.WithElasticsearchConfig(server.ElasticsearchConfig{
			URL:         mockServer.URL,
			VerifyCerts: true,
		}),
		server.WithLogger(&TestLogger{}),
	)
	if err != nil {
		t.Fatalf("Failed to create server context: %v", err)
	}
	defer sc.Shutdown()

	client := NewClient(sc.ElasticsearchConfig(), sc.Logger(), sc.SecurityFilteringEnabled())

	// Test valid request
	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name: "search",
			Arguments: map[string]interface{}{
				"index": "logs-test",
				"query": `{"match_all": {}}`,
			},
		},
	}

	result, err := handleSearch(context.Background(), request, client, sc)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if result.IsError {
		t.Errorf("Expected success, got error: %v", result.Content)
	}

	// Test missing index parameter
	requestBad := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      "search",
			Arguments: map[string]interface{}{},
		},
	}

	result, err = handleSearch(context.Background(), requestBad, client, sc)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !result.IsError {
		t.Errorf("Expected error for missing index parameter")
	}
}

func TestHandleSQLQueryMissingQuery(t *testing.T) {
	client := NewClient(server.ElasticsearchConfig{URL: "http://localhost:9200", VerifyCerts: true}, &TestLogger{}, true)

	sc, err := server.NewServerContext(context.Background(), server.WithLogger(&TestLogger{}))
	if err != nil {
		t.Fatalf("Failed to create server context: %v", err)
	}
	defer sc.Shutdown()

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      "sql_query",
			Arguments: map[string]interface{}{},
		},
	}

	result, err := handleSQLQuery(context.Background(), request, client, sc)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !result.IsError {
		t.Errorf("Expected error for missing query parameter")
	}
}

func TestSplitFields(t *testing.T) {
	fields := splitFields("@timestamp, message ,, service.name")
	if len(fields) != 3 {
		t.Fatalf("expected 3 fields, got %d: %v", len(fields), fields)
	}
	if fields[1] != "message" {
		t.Errorf("expected trimmed field, got %q", fields[1])
	}
}
