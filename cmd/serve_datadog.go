package cmd

import (
	"github.com/spf13/cobra"

	"github.com/byviz/mcp-observability/internal/server"
	"github.com/byviz/mcp-observability/internal/tools/datadog"
)

// newServeDatadogCmd creates the serve subcommand for Datadog.
func newServeDatadogCmd(opts *serveOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "datadog",
		Short: "Start the MCP server with Datadog tools",
		Long: `Start an MCP server exposing Datadog logs, spans, events,
metrics, monitors, hosts, dashboards and SLO tools.

Environment Variables:
  DATADOG_API_KEY  - Required: Datadog API key
  DATADOG_APP_KEY  - Required: Datadog application key
  DATADOG_SITE     - Optional: Datadog site (default: datadoghq.com)
  DATADOG_BASE_URL - Optional: override the API base URL
  DATADOG_TIMEOUT  - Optional: request timeout in seconds (default: 30)
  MCP_ENABLE_SECURITY_FILTERING - Enforce the read-only filter (default: true)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts,
				datadog.RegisterDatadogTools,
				logDatadogConfig)
		},
	}
}

func logDatadogConfig(logger server.Logger, sc *server.ServerContext) {
	config := sc.DatadogConfig()

	if config.HasAuth() {
		logger.Info("Datadog configuration", "site", config.Site, "auth", "api key + app key")
	} else {
		logger.Error("Datadog credentials missing, tool calls will fail",
			"hint", "set DATADOG_API_KEY and DATADOG_APP_KEY")
	}
}
