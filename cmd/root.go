package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mcp-observability",
	Short: "MCP servers for Elasticsearch and Datadog observability data",
	Long: `mcp-observability provides Model Context Protocol (MCP) servers that
expose observability backends through standardized MCP interfaces.

This allows AI assistants to search logs and traces, inspect cluster
state, query metrics, and run APM analyses such as trace waterfalls,
error pattern detection and business event correlation.

Every server enforces a read-only endpoint filter by default, so tool
calls can never mutate the backend.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// SetVersion sets the version for the root command
func SetVersion(version string) {
	rootCmd.Version = version
}

func init() {
	// Add subcommands
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
}
