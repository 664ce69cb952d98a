package datadog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

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

func testClient(t *testing.T, url string) *Client {
	t.Helper()
	config := server.DatadogConfig{
		APIKey:  "test-api-key",
		AppKey:  "test-app-key",
		Site:    "datadoghq.com",
		BaseURL: url,
	}
	return NewClient(config, &TestLogger{}, true)
}

func TestRegisterDatadogTools(t *testing.T) {
	s := mcpserver.NewMCPServer("test", "1.0.0")

	ctx := context.Background()
	sc, err := server.NewServerContext(ctx,
		server.WithDatadogConfig(server.DatadogConfig{
			APIKey: "test-api-key",
			AppKey: "test-app-key",
			Site:   "datadoghq.com",
		}),
		server.WithLogger(&TestLogger{}),
	)
	if err != nil {
		t.Fatalf("Failed to create server context: %v", err)
	}
	defer sc.Shutdown()

	if err := RegisterDatadogTools(s, sc); err != nil {
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
			name:     "SearchLogs",
			endpoint: "/api/v2/logs/events/search",
			response: `{"data": [{"id": "AAA", "type": "log", "attributes": {"message": "boom", "status": "error", "service": "web", "host": "web-1", "timestamp": "2026-08-30T10:00:00Z", "tags": ["env:prod"]}}]}`,
			testFunc: func(c *Client) error {
				result, err := c.SearchLogs(context.Background(), "service:web", "1h", "", 10)
				if err != nil {
					return err
				}
				if result.Count != 1 || result.Logs[0].Service != "web" {
					t.Errorf("unexpected logs result: %+v", result)
				}
				return nil
			},
		},
		{
			name:     "SearchSpans",
			endpoint: "/api/v2/spans/events",
			response: `{"data": [{"id": "BBB", "type": "spans", "attributes": {"trace_id": "abc123", "span_id": "def456", "service": "checkout", "resource_name": "POST /orders", "type": "web", "host": "web-1", "env": "prod"}}]}`,
			testFunc: func(c *Client) error {
				result, err := c.SearchSpans(context.Background(), "service:checkout", "15m", "", 10)
				if err != nil {
					return err
				}
				if result.Count != 1 || result.Spans[0].TraceID != "abc123" {
					t.Errorf("unexpected spans result: %+v", result)
				}
				return nil
			},
		},
		{
			name:     "SearchEvents",
			endpoint: "/api/v2/events",
			response: `{"data": [{"id": "CCC", "type": "event", "attributes": {"message": "deploy finished", "tags": ["env:prod"], "timestamp": "2026-08-30T10:00:00Z"}}]}`,
			testFunc: func(c *Client) error {
				result, err := c.SearchEvents(context.Background(), "", "1h", "", 10)
				if err != nil {
					return err
				}
				if result.Count != 1 {
					t.Errorf("unexpected events result: %+v", result)
				}
				return nil
			},
		},
		{
			name:     "QueryMetrics",
			endpoint: "/api/v1/query",
			response: `{"status": "ok", "query": "avg:system.cpu.user{*}", "series": []}`,
			testFunc: func(c *Client) error {
				_, err := c.QueryMetrics(context.Background(), "avg:system.cpu.user{*}", "1h", "")
				return err
			},
		},
		{
			name:     "ListActiveMetrics",
			endpoint: "/api/v1/metrics",
			response: `{"metrics": ["system.cpu.user"], "from": "123"}`,
			testFunc: func(c *Client) error {
				_, err := c.ListActiveMetrics(context.Background(), "24h", "")
				return err
			},
		},
		{
			name:     "GetMetricMetadata",
			endpoint: "/api/v1/metrics/system.cpu.user",
			response: `{"type": "gauge", "description": "CPU user time"}`,
			testFunc: func(c *Client) error {
				_, err := c.GetMetricMetadata(context.Background(), "system.cpu.user")
				return err
			},
		},
		{
			name:     "ListMonitors",
			endpoint: "/api/v1/monitor",
			response: `[{"id": 1, "name": "High CPU", "query": "avg:system.cpu.user{*} > 90", "type": "metric alert", "overall_state": "OK", "tags": ["team:platform"]}]`,
			testFunc: func(c *Client) error {
				monitors, err := c.ListMonitors(context.Background(), "", "team:platform", 10)
				if err != nil {
					return err
				}
				if len(monitors) != 1 || monitors[0].Name != "High CPU" {
					t.Errorf("unexpected monitors: %+v", monitors)
				}
				return nil
			},
		},
		{
			name:     "ListHosts",
			endpoint: "/api/v1/hosts",
			response: `{"host_list": [{"name": "web-1", "up": true, "last_reported_time": 1756500000}], "total_matching": 1}`,
			testFunc: func(c *Client) error {
				result, err := c.ListHosts(context.Background(), "env:prod", 10)
				if err != nil {
					return err
				}
				if result.TotalCount != 1 || result.Hosts[0].Name != "web-1" {
					t.Errorf("unexpected hosts: %+v", result)
				}
				return nil
			},
		},
		{
			name:     "ListDashboards",
			endpoint: "/api/v1/dashboard",
			response: `{"dashboards": [{"id": "abc-123", "title": "Service Overview", "layout_type": "ordered", "url": "/dashboard/abc-123"}]}`,
			testFunc: func(c *Client) error {
				dashboards, err := c.ListDashboards(context.Background())
				if err != nil {
					return err
				}
				if len(dashboards) != 1 || dashboards[0].Title != "Service Overview" {
					t.Errorf("unexpected dashboards: %+v", dashboards)
				}
				return nil
			},
		},
		{
			name:     "ListSLOs",
			endpoint: "/api/v1/slo",
			response: `{"data": [{"id": "slo-1", "name": "Availability", "type": "metric", "tags": ["team:platform"], "thresholds": []}]}`,
			testFunc: func(c *Client) error {
				slos, err := c.ListSLOs(context.Background(), "Availability", 10)
				if err != nil {
					return err
				}
				if len(slos) != 1 || slos[0].Name != "Availability" {
					t.Errorf("unexpected SLOs: %+v", slos)
				}
				return nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == tt.endpoint {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusOK)
					w.Write([]byte(tt.response))
				} else {
					w.WriteHeader(http.StatusNotFound)
					w.Write([]byte(`{"errors": ["not found"]}`))
				}
			}))
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
	client := NewClient(server.DatadogConfig{Site: "datadoghq.com"}, &TestLogger{}, true)

	_, err := client.SearchLogs(context.Background(), "service:web", "", "", 10)
	if err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Errorf("expected not-initialized error, got: %v", err)
	}
}

func TestParseTime(t *testing.T) {
	fallback := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"Empty", "", false},
		{"RFC3339", "2026-08-30T09:00:00Z", false},
		{"Duration", "1h", false},
		{"Garbage", "yesterday", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTime(tt.input, fallback)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.input == "" && !got.Equal(fallback) {
				t.Errorf("expected fallback for empty input, got %v", got)
			}
		})
	}
}

func TestSearchLogsRejectsInvalidTime(t *testing.T) {
	client := testClient(t, "http://localhost:1")

	_, err := client.SearchLogs(context.Background(), "service:web", "yesterday", "", 10)
	if err == nil || !strings.Contains(err.Error(), "invalid time") {
		t.Errorf("expected invalid time error, got: %v", err)
	}
}

func TestHandleSearchLogsMissingQuery(t *testing.T) {
	client := testClient(t, "http://localhost:1")

	sc, err := server.NewServerContext(context.Background(), server.WithLogger(&TestLogger{}))
	if err != nil {
		t.Fatalf("Failed to create server context: %v", err)
	}
	defer sc.Shutdown()

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      "search_logs",
			Arguments: map[string]interface{}{},
		},
	}

	result, err := handleSearchLogs(context.Background(), request, client, sc)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !result.IsError {
		t.Errorf("Expected error for missing query parameter")
	}
}

func TestHandleListMonitors(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/monitor" {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[{"id": 1, "name": "High CPU", "query": "q", "type": "metric alert", "overall_state": "Alert"}]`))
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer mockServer.Close()

	client := testClient(t, mockServer.URL)

	sc, err := server.NewServerContext(context.Background(), server.WithLogger(&TestLogger{}))
	if err != nil {
		t.Fatalf("Failed to create server context: %v", err)
	}
	defer sc.Shutdown()

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name: "list_monitors",
			Arguments: map[string]interface{}{
				"name": "High CPU",
			},
		},
	}

	result, err := handleListMonitors(context.Background(), request, client, sc)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if result.IsError {
		t.Errorf("Expected success, got error: %v", result.Content)
	}
}
