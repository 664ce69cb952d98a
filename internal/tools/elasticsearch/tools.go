package elasticsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/byviz/mcp-observability/internal/server"
)

// RegisterElasticsearchTools registers Elasticsearch-related tools with the MCP server
func RegisterElasticsearchTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	// Create Elasticsearch client
	client := NewClient(sc.ElasticsearchConfig(), sc.Logger(), sc.SecurityFilteringEnabled())

	// search tool
	searchTool := mcp.NewTool("search",
		mcp.WithDescription("Execute a search query against an Elasticsearch index pattern"),
		mcp.WithString("index",
			mcp.Required(),
			mcp.Description("Index name or pattern to search (e.g. 'traces-apm*', 'filebeat-*')"),
		),
		mcp.WithString("query",
			mcp.Description("Query DSL as a JSON object (default: match_all)"),
		),
		mcp.WithNumber("size",
			mcp.DefaultNumber(10),
			mcp.Description("Maximum number of hits to return"),
		),
		mcp.WithNumber("from",
			mcp.DefaultNumber(0),
			mcp.Description("Offset for pagination"),
		),
		mcp.WithString("sort",
			mcp.Description("Sort specification as a JSON array"),
		),
		mcp.WithString("source",
			mcp.Description("Source filter as a JSON array of field names"),
		),
		mcp.WithString("aggs",
			mcp.Description("Aggregations as a JSON object"),
		),
	)

	s.AddTool(searchTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleSearch(ctx, request, client, sc)
	})

	// count tool
	countTool := mcp.NewTool("count",
		mcp.WithDescription("Count documents matching a query"),
		mcp.WithString("index",
			mcp.Required(),
			mcp.Description("Index name or pattern"),
		),
		mcp.WithString("query",
			mcp.Description("Query DSL as a JSON object (default: all documents)"),
		),
	)

	s.AddTool(countTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleCount(ctx, request, client, sc)
	})

	// field_caps tool
	fieldCapsTool := mcp.NewTool("field_caps",
		mcp.WithDescription("Get field capabilities (types, searchability) for an index pattern"),
		mcp.WithString("index",
			mcp.Required(),
			mcp.Description("Index name or pattern"),
		),
		mcp.WithString("fields",
			mcp.DefaultString("*"),
			mcp.Description("Comma-separated field names or patterns"),
		),
	)

	s.AddTool(fieldCapsTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleFieldCaps(ctx, request, client, sc)
	})

	// validate_query tool
	validateQueryTool := mcp.NewTool("validate_query",
		mcp.WithDescription("Validate a query without executing it"),
		mcp.WithString("index",
			mcp.Required(),
			mcp.Description("Index name or pattern"),
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Query DSL as a JSON object"),
		),
	)

	s.AddTool(validateQueryTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleValidateQuery(ctx, request, client, sc)
	})

	// sql_query tool
	sqlQueryTool := mcp.NewTool("sql_query",
		mcp.WithDescription("Execute an Elasticsearch SQL query"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("SQL query string (e.g. 'SELECT * FROM \"filebeat-*\" LIMIT 10')"),
		),
		mcp.WithNumber("fetch_size",
			mcp.DefaultNumber(100),
			mcp.Description("Maximum number of rows to return"),
		),
	)

	s.AddTool(sqlQueryTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleSQLQuery(ctx, request, client, sc)
	})

	// list_indices tool
	listIndicesTool := mcp.NewTool("list_indices",
		mcp.WithDescription("List indices with health, status, document count and size"),
		mcp.WithString("pattern",
			mcp.DefaultString("*"),
			mcp.Description("Index pattern to match"),
		),
	)

	s.AddTool(listIndicesTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleListIndices(ctx, request, client, sc)
	})

	// get_index_mappings tool
	getIndexMappingsTool := mcp.NewTool("get_index_mappings",
		mcp.WithDescription("Get field mappings for an index pattern"),
		mcp.WithString("index",
			mcp.Required(),
			mcp.Description("Index name or pattern"),
		),
	)

	s.AddTool(getIndexMappingsTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleGetIndexMappings(ctx, request, client, sc)
	})

	// cluster_info tool
	clusterInfoTool := mcp.NewTool("cluster_info",
		mcp.WithDescription("Get basic cluster information (name, version, cluster UUID)"),
	)

	s.AddTool(clusterInfoTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleClusterInfo(ctx, request, client, sc)
	})

	// cluster_health tool
	clusterHealthTool := mcp.NewTool("cluster_health",
		mcp.WithDescription("Get cluster health status (green/yellow/red, shard counts)"),
	)

	s.AddTool(clusterHealthTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleClusterHealth(ctx, request, client, sc)
	})

	// cluster_stats tool
	clusterStatsTool := mcp.NewTool("cluster_stats",
		mcp.WithDescription("Get cluster-wide statistics (indices, nodes, storage)"),
	)

	s.AddTool(clusterStatsTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleClusterStats(ctx, request, client, sc)
	})

	// nodes_stats tool
	nodesStatsTool := mcp.NewTool("nodes_stats",
		mcp.WithDescription("Get per-node statistics (JVM, OS, filesystem, indexing)"),
	)

	s.AddTool(nodesStatsTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleNodesStats(ctx, request, client, sc)
	})

	// analyze_trace_performance tool
	analyzeTraceTool := mcp.NewTool("analyze_trace_performance",
		mcp.WithDescription("Reconstruct the waterfall of an APM trace with outlier detection, correlated errors and recommendations"),
		mcp.WithString("trace_id",
			mcp.Required(),
			mcp.Description("The APM trace identifier to analyze"),
		),
		mcp.WithBoolean("include_errors",
			mcp.DefaultBool(true),
			mcp.Description("Correlate APM errors belonging to the trace"),
		),
		mcp.WithBoolean("include_metrics",
			mcp.DefaultBool(true),
			mcp.Description("Count service metrics around the trace window"),
		),
	)

	s.AddTool(analyzeTraceTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleAnalyzeTracePerformance(ctx, request, client, sc)
	})

	// find_error_patterns tool
	findErrorPatternsTool := mcp.NewTool("find_error_patterns",
		mcp.WithDescription("Aggregate APM errors into patterns with frequency, trend and spike analysis"),
		mcp.WithString("time_range",
			mcp.DefaultString("now-24h"),
			mcp.Description("Range lower bound in date math (e.g. 'now-1h', 'now-7d')"),
		),
		mcp.WithString("service_name",
			mcp.Description("Restrict the analysis to a single service"),
		),
		mcp.WithString("error_type",
			mcp.Description("Restrict the analysis to a single exception type"),
		),
		mcp.WithNumber("min_frequency",
			mcp.DefaultNumber(1),
			mcp.Description("Minimum occurrences for a pattern to be reported"),
		),
	)

	s.AddTool(findErrorPatternsTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleFindErrorPatterns(ctx, request, client, sc)
	})

	// correlate_business_events tool
	correlateEventsTool := mcp.NewTool("correlate_business_events",
		mcp.WithDescription("Correlate a business identifier across APM traces and business log indices into a merged timeline"),
		mcp.WithString("correlation_id",
			mcp.Required(),
			mcp.Description("Identifier to correlate (trace ID, request ID, user ID, session ID)"),
		),
		mcp.WithString("time_window",
			mcp.DefaultString("30m"),
			mcp.Description("Lookback window as a duration (e.g. '30m', '24h', '7d')"),
		),
		mcp.WithBoolean("include_user_journey",
			mcp.DefaultBool(true),
			mcp.Description("Render the merged timeline as numbered journey steps"),
		),
	)

	s.AddTool(correlateEventsTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleCorrelateBusinessEvents(ctx, request, client, sc)
	})

	return nil
}

// requestParams extracts the tool arguments as a map.
func requestParams(request mcp.CallToolRequest) map[string]interface{} {
	params := make(map[string]interface{})
	if request.Params.Arguments != nil {
		if argsMap, ok := request.Params.Arguments.(map[string]interface{}); ok {
			params = argsMap
		}
	}
	return params
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

func intParam(params map[string]interface{}, key string, fallback int) int {
	if v, ok := params[key].(float64); ok {
		return int(v)
	}
	return fallback
}

func boolParam(params map[string]interface{}, key string, fallback bool) bool {
	if v, ok := params[key].(bool); ok {
		return v
	}
	return fallback
}

// handleSearch handles the search tool
func handleSearch(ctx context.Context, request mcp.CallToolRequest, client *Client, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	params := requestParams(request)

	index, ok := params["index"].(string)
	if !ok || index == "" {
		return errorResult("Error: index parameter is required and must be a string"), nil
	}

	options := SearchOptions{
		Query:          stringParam(params, "query"),
		Size:           intParam(params, "size", 10),
		From:           intParam(params, "from", 0),
		Sort:           stringParam(params, "sort"),
		Source:         stringParam(params, "source"),
		Aggregations:   stringParam(params, "aggs"),
		TrackTotalHits: true,
	}

	sc.Logger().Debug("Executing search", "index", index, "size", options.Size)

	result, err := client.Search(ctx, index, options)
	if err != nil {
		sc.Logger().Error("Failed to execute search", "error", err, "index", index)
		return errorResult("Error executing search: %v", err), nil
	}

	return jsonResult(result)
}

// handleCount handles the count tool
func handleCount(ctx context.Context, request mcp.CallToolRequest, client *Client, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	params := requestParams(request)

	index, ok := params["index"].(string)
	if !ok || index == "" {
		return errorResult("Error: index parameter is required and must be a string"), nil
	}

	sc.Logger().Debug("Counting documents", "index", index)

	result, err := client.Count(ctx, index, stringParam(params, "query"))
	if err != nil {
		sc.Logger().Error("Failed to count documents", "error", err, "index", index)
		return errorResult("Error counting documents: %v", err), nil
	}

	return jsonResult(result)
}

// handleFieldCaps handles the field_caps tool
func handleFieldCaps(ctx context.Context, request mcp.CallToolRequest, client *Client, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	params := requestParams(request)

	index, ok := params["index"].(string)
	if !ok || index == "" {
		return errorResult("Error: index parameter is required and must be a string"), nil
	}

	fields := stringParam(params, "fields")
	if fields == "" {
		fields = "*"
	}

	sc.Logger().Debug("Getting field capabilities", "index", index, "fields", fields)

	result, err := client.FieldCaps(ctx, index, splitFields(fields))
	if err != nil {
		sc.Logger().Error("Failed to get field capabilities", "error", err, "index", index)
		return errorResult("Error getting field capabilities: %v", err), nil
	}

	return jsonResult(result)
}

// handleValidateQuery handles the validate_query tool
func handleValidateQuery(ctx context.Context, request mcp.CallToolRequest, client *Client, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	params := requestParams(request)

	index, ok := params["index"].(string)
	if !ok || index == "" {
		return errorResult("Error: index parameter is required and must be a string"), nil
	}
	query, ok := params["query"].(string)
	if !ok || query == "" {
		return errorResult("Error: query parameter is required and must be a string"), nil
	}

	sc.Logger().Debug("Validating query", "index", index)

	result, err := client.ValidateQuery(ctx, index, query)
	if err != nil {
		sc.Logger().Error("Failed to validate query", "error", err, "index", index)
		return errorResult("Error validating query: %v", err), nil
	}

	return jsonResult(result)
}

// handleSQLQuery handles the sql_query tool
func handleSQLQuery(ctx context.Context, request mcp.CallToolRequest, client *Client, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	params := requestParams(request)

	query, ok := params["query"].(string)
	if !ok || query == "" {
		return errorResult("Error: query parameter is required and must be a string"), nil
	}

	sc.Logger().Debug("Executing SQL query")

	result, err := client.SQLQuery(ctx, query, intParam(params, "fetch_size", 100))
	if err != nil {
		sc.Logger().Error("Failed to execute SQL query", "error", err)
		return errorResult("Error executing SQL query: %v", err), nil
	}

	return jsonResult(result)
}

// handleListIndices handles the list_indices tool
func handleListIndices(ctx context.Context, request mcp.CallToolRequest, client *Client, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	params := requestParams(request)

	pattern := stringParam(params, "pattern")
	if pattern == "" {
		pattern = "*"
	}

	sc.Logger().Debug("Listing indices", "pattern", pattern)

	indices, err := client.ListIndices(ctx, pattern)
	if err != nil {
		sc.Logger().Error("Failed to list indices", "error", err, "pattern", pattern)
		return errorResult("Error listing indices: %v", err), nil
	}

	if len(indices) == 0 {
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf("No indices found matching '%s'", pattern),
				},
			},
		}, nil
	}

	return jsonResult(indices)
}

// handleGetIndexMappings handles the get_index_mappings tool
func handleGetIndexMappings(ctx context.Context, request mcp.CallToolRequest, client *Client, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	params := requestParams(request)

	index, ok := params["index"].(string)
	if !ok || index == "" {
		return errorResult("Error: index parameter is required and must be a string"), nil
	}

	sc.Logger().Debug("Getting index mappings", "index", index)

	result, err := client.GetMappings(ctx, index)
	if err != nil {
		sc.Logger().Error("Failed to get index mappings", "error", err, "index", index)
		return errorResult("Error getting mappings for index '%s': %v", index, err), nil
	}

	return jsonResult(result)
}

// handleClusterInfo handles the cluster_info tool
func handleClusterInfo(ctx context.Context, request mcp.CallToolRequest, client *Client, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	sc.Logger().Debug("Getting cluster info")

	result, err := client.ClusterInfo(ctx)
	if err != nil {
		sc.Logger().Error("Failed to get cluster info", "error", err)
		return errorResult("Error getting cluster info: %v", err), nil
	}

	return jsonResult(result)
}

// handleClusterHealth handles the cluster_health tool
func handleClusterHealth(ctx context.Context, request mcp.CallToolRequest, client *Client, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	sc.Logger().Debug("Getting cluster health")

	result, err := client.ClusterHealth(ctx)
	if err != nil {
		sc.Logger().Error("Failed to get cluster health", "error", err)
		return errorResult("Error getting cluster health: %v", err), nil
	}

	return jsonResult(result)
}

// handleClusterStats handles the cluster_stats tool
func handleClusterStats(ctx context.Context, request mcp.CallToolRequest, client *Client, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	sc.Logger().Debug("Getting cluster stats")

	result, err := client.ClusterStats(ctx)
	if err != nil {
		sc.Logger().Error("Failed to get cluster stats", "error", err)
		return errorResult("Error getting cluster stats: %v", err), nil
	}

	return jsonResult(result)
}

// handleNodesStats handles the nodes_stats tool
func handleNodesStats(ctx context.Context, request mcp.CallToolRequest, client *Client, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	sc.Logger().Debug("Getting nodes stats")

	result, err := client.NodesStats(ctx)
	if err != nil {
		sc.Logger().Error("Failed to get nodes stats", "error", err)
		return errorResult("Error getting nodes stats: %v", err), nil
	}

	return jsonResult(result)
}

// handleAnalyzeTracePerformance handles the analyze_trace_performance tool
func handleAnalyzeTracePerformance(ctx context.Context, request mcp.CallToolRequest, client *Client, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	params := requestParams(request)

	traceID, ok := params["trace_id"].(string)
	if !ok || traceID == "" {
		return errorResult("Error: trace_id parameter is required and must be a string"), nil
	}

	includeErrors := boolParam(params, "include_errors", true)
	includeMetrics := boolParam(params, "include_metrics", true)

	sc.Logger().Debug("Analyzing trace performance", "trace_id", traceID)

	report, err := client.AnalyzeTracePerformance(ctx, traceID, includeErrors, includeMetrics)
	if err != nil {
		sc.Logger().Error("Failed to analyze trace", "error", err, "trace_id", traceID)
		return errorResult("Error analyzing trace '%s': %v", traceID, err), nil
	}

	return jsonResult(report)
}

// handleFindErrorPatterns handles the find_error_patterns tool
func handleFindErrorPatterns(ctx context.Context, request mcp.CallToolRequest, client *Client, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	params := requestParams(request)

	options := ErrorPatternOptions{
		TimeRange:    stringParam(params, "time_range"),
		ServiceName:  stringParam(params, "service_name"),
		ErrorType:    stringParam(params, "error_type"),
		MinFrequency: intParam(params, "min_frequency", 1),
	}

	sc.Logger().Debug("Finding error patterns", "time_range", options.TimeRange, "service", options.ServiceName)

	report, err := client.FindErrorPatterns(ctx, options)
	if err != nil {
		sc.Logger().Error("Failed to find error patterns", "error", err)
		return errorResult("Error finding error patterns: %v", err), nil
	}

	return jsonResult(report)
}

// handleCorrelateBusinessEvents handles the correlate_business_events tool
func handleCorrelateBusinessEvents(ctx context.Context, request mcp.CallToolRequest, client *Client, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	params := requestParams(request)

	correlationID, ok := params["correlation_id"].(string)
	if !ok || correlationID == "" {
		return errorResult("Error: correlation_id parameter is required and must be a string"), nil
	}

	timeWindow := stringParam(params, "time_window")
	includeJourney := boolParam(params, "include_user_journey", true)

	sc.Logger().Debug("Correlating business events", "correlation_id", correlationID, "time_window", timeWindow)

	report, err := client.CorrelateBusinessEvents(ctx, correlationID, timeWindow, includeJourney)
	if err != nil {
		sc.Logger().Error("Failed to correlate business events", "error", err, "correlation_id", correlationID)
		return errorResult("Error correlating events for '%s': %v", correlationID, err), nil
	}

	return jsonResult(report)
}

func stringParam(params map[string]interface{}, key string) string {
	value, _ := params[key].(string)
	return value
}

func splitFields(fields string) []string {
	var out []string
	for _, field := range strings.Split(fields, ",") {
		if field = strings.TrimSpace(field); field != "" {
			out = append(out, field)
		}
	}
	return out
}
