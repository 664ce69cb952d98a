package datadog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/byviz/mcp-observability/internal/server"
)

// RegisterDatadogTools registers Datadog-related tools with the MCP server
func RegisterDatadogTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	// Create Datadog client
	client := NewClient(sc.DatadogConfig(), sc.Logger(), sc.SecurityFilteringEnabled())

	// search_logs tool
	searchLogsTool := mcp.NewTool("search_logs",
		mcp.WithDescription("Search Datadog logs with the standard query syntax"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Log search query (e.g. 'service:web status:error')"),
		),
		mcp.WithString("from",
			mcp.Description("Start time as RFC3339 or lookback duration like '1h' (default: 1 hour ago)"),
		),
		mcp.WithString("to",
			mcp.Description("End time as RFC3339 or lookback duration (default: now)"),
		),
		mcp.WithNumber("limit",
			mcp.DefaultNumber(50),
			mcp.Description("Maximum number of logs to return (max 1000)"),
		),
	)

	s.AddTool(searchLogsTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleSearchLogs(ctx, request, client, sc)
	})

	// search_spans tool
	searchSpansTool := mcp.NewTool("search_spans",
		mcp.WithDescription("Search APM spans with the standard query syntax"),
		mcp.WithString("query",
			mcp.DefaultString("*"),
			mcp.Description("Span search query (e.g. 'service:checkout resource_name:\"POST /orders\"')"),
		),
		mcp.WithString("from",
			mcp.Description("Start time as RFC3339 or lookback duration (default: 15 minutes ago)"),
		),
		mcp.WithString("to",
			mcp.Description("End time as RFC3339 or lookback duration (default: now)"),
		),
		mcp.WithNumber("limit",
			mcp.DefaultNumber(50),
			mcp.Description("Maximum number of spans to return"),
		),
	)

	s.AddTool(searchSpansTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleSearchSpans(ctx, request, client, sc)
	})

	// search_events tool
	searchEventsTool := mcp.NewTool("search_events",
		mcp.WithDescription("Search the Datadog event stream"),
		mcp.WithString("query",
			mcp.Description("Event search query (default: all events)"),
		),
		mcp.WithString("from",
			mcp.Description("Start time as RFC3339 or lookback duration (default: 1 hour ago)"),
		),
		mcp.WithString("to",
			mcp.Description("End time as RFC3339 or lookback duration (default: now)"),
		),
		mcp.WithNumber("limit",
			mcp.DefaultNumber(50),
			mcp.Description("Maximum number of events to return"),
		),
	)

	s.AddTool(searchEventsTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleSearchEvents(ctx, request, client, sc)
	})

	// query_metrics tool
	queryMetricsTool := mcp.NewTool("query_metrics",
		mcp.WithDescription("Execute a timeseries metrics query"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Metrics query (e.g. 'avg:system.cpu.user{*}')"),
		),
		mcp.WithString("from",
			mcp.Description("Start time as RFC3339 or lookback duration (default: 1 hour ago)"),
		),
		mcp.WithString("to",
			mcp.Description("End time as RFC3339 or lookback duration (default: now)"),
		),
	)

	s.AddTool(queryMetricsTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleQueryMetrics(ctx, request, client, sc)
	})

	// list_active_metrics tool
	listActiveMetricsTool := mcp.NewTool("list_active_metrics",
		mcp.WithDescription("List metrics actively reporting since a point in time"),
		mcp.WithString("from",
			mcp.Description("Start time as RFC3339 or lookback duration (default: 24 hours ago)"),
		),
		mcp.WithString("host",
			mcp.Description("Restrict the listing to a single host"),
		),
	)

	s.AddTool(listActiveMetricsTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleListActiveMetrics(ctx, request, client, sc)
	})

	// get_metric_metadata tool
	getMetricMetadataTool := mcp.NewTool("get_metric_metadata",
		mcp.WithDescription("Get metadata for a specific metric"),
		mcp.WithString("metric",
			mcp.Required(),
			mcp.Description("The name of the metric to retrieve metadata for"),
		),
	)

	s.AddTool(getMetricMetadataTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleGetMetricMetadata(ctx, request, client, sc)
	})

	// list_monitors tool
	listMonitorsTool := mcp.NewTool("list_monitors",
		mcp.WithDescription("List monitors with their current state"),
		mcp.WithString("name",
			mcp.Description("Filter monitors by name"),
		),
		mcp.WithString("tags",
			mcp.Description("Filter monitors by comma-separated monitor tags"),
		),
		mcp.WithNumber("limit",
			mcp.DefaultNumber(50),
			mcp.Description("Maximum number of monitors to return"),
		),
	)

	s.AddTool(listMonitorsTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleListMonitors(ctx, request, client, sc)
	})

	// list_hosts tool
	listHostsTool := mcp.NewTool("list_hosts",
		mcp.WithDescription("List infrastructure hosts with reporting status"),
		mcp.WithString("filter",
			mcp.Description("Host filter string (e.g. 'env:production')"),
		),
		mcp.WithNumber("limit",
			mcp.DefaultNumber(100),
			mcp.Description("Maximum number of hosts to return"),
		),
	)

	s.AddTool(listHostsTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleListHosts(ctx, request, client, sc)
	})

	// list_dashboards tool
	listDashboardsTool := mcp.NewTool("list_dashboards",
		mcp.WithDescription("List all dashboards"),
	)

	s.AddTool(listDashboardsTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleListDashboards(ctx, request, client, sc)
	})

	// list_slos tool
	listSLOsTool := mcp.NewTool("list_slos",
		mcp.WithDescription("List service level objectives"),
		mcp.WithString("query",
			mcp.Description("Filter SLOs by name query"),
		),
		mcp.WithNumber("limit",
			mcp.DefaultNumber(50),
			mcp.Description("Maximum number of SLOs to return"),
		),
	)

	s.AddTool(listSLOsTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleListSLOs(ctx, request, client, sc)
	})

	return nil
}

func errorResult(format string, args ...interface{}) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: fmt.Sprintf(format, args...),
			},
		},
	}
}

// jsonResult renders a result value as indented JSON text content.
func jsonResult(value interface{}) (*mcp.CallToolResult, error) {
	encoded, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult("Error encoding result: %v", err), nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: string(encoded),
			},
		},
	}, nil
}

// handleSearchLogs handles the search_logs tool
func handleSearchLogs(ctx context.Context, request mcp.CallToolRequest, client *Client, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	query := request.GetString("query", "")
	if query == "" {
		return errorResult("Error: query parameter is required and must be a string"), nil
	}

	from := request.GetString("from", "")
	to := request.GetString("to", "")
	limit := request.GetInt("limit", 50)

	sc.Logger().Debug("Searching logs", "query", query, "from", from, "to", to)

	result, err := client.SearchLogs(ctx, query, from, to, limit)
	if err != nil {
		sc.Logger().Error("Failed to search logs", "error", err)
		return errorResult("Error searching logs: %v", err), nil
	}

	return jsonResult(result)
}

// handleSearchSpans handles the search_spans tool
func handleSearchSpans(ctx context.Context, request mcp.CallToolRequest, client *Client, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	query := request.GetString("query", "*")
	from := request.GetString("from", "")
	to := request.GetString("to", "")
	limit := request.GetInt("limit", 50)

	sc.Logger().Debug("Searching spans", "query", query, "from", from, "to", to)

	result, err := client.SearchSpans(ctx, query, from, to, limit)
	if err != nil {
		sc.Logger().Error("Failed to search spans", "error", err)
		return errorResult("Error searching spans: %v", err), nil
	}

	return jsonResult(result)
}

// handleSearchEvents handles the search_events tool
func handleSearchEvents(ctx context.Context, request mcp.CallToolRequest, client *Client, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	query := request.GetString("query", "")
	from := request.GetString("from", "")
	to := request.GetString("to", "")
	limit := request.GetInt("limit", 50)

	sc.Logger().Debug("Searching events", "query", query, "from", from, "to", to)

	result, err := client.SearchEvents(ctx, query, from, to, limit)
	if err != nil {
		sc.Logger().Error("Failed to search events", "error", err)
		return errorResult("Error searching events: %v", err), nil
	}

	return jsonResult(result)
}

// handleQueryMetrics handles the query_metrics tool
func handleQueryMetrics(ctx context.Context, request mcp.CallToolRequest, client *Client, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	query := request.GetString("query", "")
	if query == "" {
		return errorResult("Error: query parameter is required and must be a string"), nil
	}

	from := request.GetString("from", "")
	to := request.GetString("to", "")

	sc.Logger().Debug("Querying metrics", "query", query, "from", from, "to", to)

	result, err := client.QueryMetrics(ctx, query, from, to)
	if err != nil {
		sc.Logger().Error("Failed to query metrics", "error", err)
		return errorResult("Error querying metrics: %v", err), nil
	}

	return jsonResult(result)
}

// handleListActiveMetrics handles the list_active_metrics tool
func handleListActiveMetrics(ctx context.Context, request mcp.CallToolRequest, client *Client, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	from := request.GetString("from", "")
	host := request.GetString("host", "")

	sc.Logger().Debug("Listing active metrics", "from", from, "host", host)

	result, err := client.ListActiveMetrics(ctx, from, host)
	if err != nil {
		sc.Logger().Error("Failed to list active metrics", "error", err)
		return errorResult("Error listing active metrics: %v", err), nil
	}

	return jsonResult(result)
}

// handleGetMetricMetadata handles the get_metric_metadata tool
func handleGetMetricMetadata(ctx context.Context, request mcp.CallToolRequest, client *Client, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	metric := request.GetString("metric", "")
	if metric == "" {
		return errorResult("Error: metric parameter is required and must be a string"), nil
	}

	sc.Logger().Debug("Getting metric metadata", "metric", metric)

	result, err := client.GetMetricMetadata(ctx, metric)
	if err != nil {
		sc.Logger().Error("Failed to get metric metadata", "error", err, "metric", metric)
		return errorResult("Error getting metadata for metric '%s': %v", metric, err), nil
	}

	return jsonResult(result)
}

// handleListMonitors handles the list_monitors tool
func handleListMonitors(ctx context.Context, request mcp.CallToolRequest, client *Client, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	name := request.GetString("name", "")
	tags := request.GetString("tags", "")
	limit := request.GetInt("limit", 50)

	sc.Logger().Debug("Listing monitors", "name", name, "tags", tags)

	monitors, err := client.ListMonitors(ctx, name, tags, limit)
	if err != nil {
		sc.Logger().Error("Failed to list monitors", "error", err)
		return errorResult("Error listing monitors: %v", err), nil
	}

	if len(monitors) == 0 {
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.TextContent{
					Type: "text",
					Text: "No monitors found",
				},
			},
		}, nil
	}

	return jsonResult(monitors)
}

// handleListHosts handles the list_hosts tool
func handleListHosts(ctx context.Context, request mcp.CallToolRequest, client *Client, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	filter := request.GetString("filter", "")
	limit := request.GetInt("limit", 100)

	sc.Logger().Debug("Listing hosts", "filter", filter)

	result, err := client.ListHosts(ctx, filter, limit)
	if err != nil {
		sc.Logger().Error("Failed to list hosts", "error", err)
		return errorResult("Error listing hosts: %v", err), nil
	}

	return jsonResult(result)
}

// handleListDashboards handles the list_dashboards tool
func handleListDashboards(ctx context.Context, request mcp.CallToolRequest, client *Client, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	sc.Logger().Debug("Listing dashboards")

	dashboards, err := client.ListDashboards(ctx)
	if err != nil {
		sc.Logger().Error("Failed to list dashboards", "error", err)
		return errorResult("Error listing dashboards: %v", err), nil
	}

	return jsonResult(dashboards)
}

// handleListSLOs handles the list_slos tool
func handleListSLOs(ctx context.Context, request mcp.CallToolRequest, client *Client, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	query := request.GetString("query", "")
	limit := request.GetInt("limit", 50)

	sc.Logger().Debug("Listing SLOs", "query", query)

	slos, err := client.ListSLOs(ctx, query, limit)
	if err != nil {
		sc.Logger().Error("Failed to list SLOs", "error", err)
		return errorResult("Error listing SLOs: %v", err), nil
	}

	return jsonResult(slos)
}
