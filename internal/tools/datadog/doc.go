// Package datadog provides MCP tools for interacting with the Datadog API.
//
// This package implements the following MCP tools:
//
// Search Tools:
//   - search_logs: Search logs with the standard query syntax
//   - search_spans: Search APM spans
//   - search_events: Search the event stream
//
// Metrics Tools:
//   - query_metrics: Execute timeseries metrics queries
//   - list_active_metrics: List actively reporting metrics
//   - get_metric_metadata: Get metadata for a specific metric
//
// Inventory Tools:
//   - list_monitors: List monitors with their current state
//   - list_hosts: List infrastructure hosts
//   - list_dashboards: List dashboards
//   - list_slos: List service level objectives
//
// Authentication uses a Datadog API key and application key, attached to
// every request context the way the official client expects. The target
// site (datadoghq.com, datadoghq.eu, ...) is configurable.
//
// When security filtering is enabled (the default) every outgoing request
// passes a read-only endpoint guard that rejects mutating operations before
// they reach the API.
//
// Example tool usage:
//
//	search_logs: {"query": "service:web status:error", "from": "1h", "limit": 20}
//	search_spans: {"query": "service:checkout", "from": "15m"}
//	query_metrics: {"query": "avg:system.cpu.user{*}", "from": "1h"}
//	list_monitors: {"tags": "team:platform"}
package datadog
