// Package cmd provides the command-line interface for the MCP observability servers.
//
// This package implements the Cobra CLI framework to provide commands for:
// - Starting an MCP server per backend (serve elasticsearch, serve datadog)
// - Selecting the transport (stdio, sse, streamable-http)
// - Managing server configuration and lifecycle
//
// Each serve subcommand registers one vendor's toolset so a single server
// process exposes a coherent set of tools. Backend credentials and the
// read-only filter toggle are read from environment variables, documented
// on the respective subcommand.
//
// Example usage:
//
//	mcp-observability serve elasticsearch --transport stdio
//	mcp-observability serve datadog --transport sse --http-addr :8080
//	mcp-observability serve elasticsearch --security-filtering=false
package cmd
