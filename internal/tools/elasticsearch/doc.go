// Package elasticsearch provides MCP tools for interacting with Elasticsearch clusters.
//
// This package implements the following MCP tools:
//
// Search Tools:
//   - search: Execute Query DSL searches with pagination, sorting and aggregations
//   - count: Count documents matching a query
//   - sql_query: Execute Elasticsearch SQL queries
//   - validate_query: Validate a query without executing it
//
// Discovery Tools:
//   - list_indices: List indices with health and size information
//   - get_index_mappings: Get field mappings for an index
//   - field_caps: Get field capabilities for an index pattern
//
// Cluster Tools:
//   - cluster_info: Basic cluster information
//   - cluster_health: Cluster health status
//   - cluster_stats: Cluster-wide statistics
//   - nodes_stats: Per-node statistics
//
// APM Analysis Tools:
//   - analyze_trace_performance: Waterfall reconstruction with outlier detection
//   - find_error_patterns: Error aggregation with trend and spike analysis
//   - correlate_business_events: Cross-index correlation of business identifiers
//
// Authentication Support:
//   - Basic authentication via username/password
//   - API key authentication
//   - Elastic Cloud ID
//   - TLS client certificates and custom CA bundles
//
// When security filtering is enabled (the default) every outgoing request
// passes a read-only endpoint guard that rejects mutating operations before
// they reach the cluster.
//
// Example tool usage:
//
//	search: {"index": "filebeat-*", "query": "{\"match\": {\"message\": \"error\"}}", "size": 20}
//	sql_query: {"query": "SELECT @timestamp, message FROM \"filebeat-*\" LIMIT 10"}
//	analyze_trace_performance: {"trace_id": "abc123", "include_errors": true}
//	correlate_business_events: {"correlation_id": "order-42", "time_window": "30m"}
package elasticsearch
