package cmd

import (
	"github.com/spf13/cobra"

	"github.com/byviz/mcp-observability/internal/server"
	"github.com/byviz/mcp-observability/internal/tools/elasticsearch"
)

// newServeElasticsearchCmd creates the serve subcommand for Elasticsearch.
func newServeElasticsearchCmd(opts *serveOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "elasticsearch",
		Short: "Start the MCP server with Elasticsearch tools",
		Long: `Start an MCP server exposing Elasticsearch search, discovery,
cluster and APM analysis tools.

Environment Variables:
  ELASTICSEARCH_URL          - Elasticsearch URL (default: http://localhost:9200)
  ELASTICSEARCH_USERNAME     - Optional: basic auth username
  ELASTICSEARCH_PASSWORD     - Optional: basic auth password
  ELASTICSEARCH_API_KEY      - Optional: API key authentication
  ELASTICSEARCH_CLOUD_ID     - Optional: Elastic Cloud ID (replaces the URL)
  ELASTICSEARCH_TIMEOUT      - Optional: request timeout in seconds (default: 30)
  ELASTICSEARCH_VERIFY_CERTS - Optional: verify TLS certificates (default: true)
  ELASTICSEARCH_CA_CERTS     - Optional: path to a CA bundle
  ELASTICSEARCH_CLIENT_CERT  - Optional: path to a client certificate
  ELASTICSEARCH_CLIENT_KEY   - Optional: path to a client key
  MCP_ENABLE_SECURITY_FILTERING - Enforce the read-only filter (default: true)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts,
				elasticsearch.RegisterElasticsearchTools,
				logElasticsearchConfig)
		},
	}
}

func logElasticsearchConfig(logger server.Logger, sc *server.ServerContext) {
	config := sc.ElasticsearchConfig()

	auth := "none"
	switch {
	case config.APIKey != "":
		auth = "api key"
	case config.Username != "" && config.Password != "":
		auth = "basic"
	}

	if config.CloudID != "" {
		logger.Info("Elasticsearch configuration", "cloud_id", config.CloudID, "auth", auth)
	} else {
		logger.Info("Elasticsearch configuration", "url", config.URL, "auth", auth)
	}
	if !config.VerifyCerts {
		logger.Warn("TLS certificate verification disabled")
	}
}
