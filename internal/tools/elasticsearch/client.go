package elasticsearch

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/byviz/mcp-observability/internal/readonly"
	"github.com/byviz/mcp-observability/internal/server"
)

// Client wraps the official Elasticsearch client with logging and the
// read-only request guard.
type Client struct {
	client *es.Client
	config server.ElasticsearchConfig
	logger server.Logger
}

// NewClient creates a new Elasticsearch client using the official client
// library. When filtered is true the transport carries the read-only
// endpoint guard.
func NewClient(config server.ElasticsearchConfig, logger server.Logger, filtered bool) *Client {
	logger.Debug("Creating new Elasticsearch client", "url", config.URL, "filtered", filtered)

	if config.URL == "" && config.CloudID == "" {
		logger.Error("Elasticsearch URL is empty")
		return &Client{client: nil, config: config, logger: logger}
	}

	transport, err := buildTransport(config)
	if err != nil {
		logger.Error("Failed to configure Elasticsearch transport", "error", err)
		return &Client{client: nil, config: config, logger: logger}
	}

	var roundTripper http.RoundTripper = transport
	if filtered {
		roundTripper = readonly.NewGuard(readonly.NewElasticsearchPolicy(), roundTripper)
		logger.Debug("Read-only filter enabled on Elasticsearch transport")
	} else {
		logger.Warn("Read-only filter DISABLED - all Elasticsearch endpoints reachable")
	}

	cfg := es.Config{
		Username:  config.Username,
		Password:  config.Password,
		APIKey:    config.APIKey,
		CloudID:   config.CloudID,
		Transport: roundTripper,
	}
	// Cloud ID and explicit addresses are mutually exclusive.
	if config.CloudID == "" {
		cfg.Addresses = []string{config.URL}
	}

	client, err := es.NewClient(cfg)
	if err != nil {
		logger.Error("Failed to create Elasticsearch client", "error", err, "url", config.URL)
		// Return a client that will fail on use rather than panicking here
		return &Client{client: nil, config: config, logger: logger}
	}

	if config.APIKey != "" {
		logger.Debug("Using API key authentication")
	} else if config.Username != "" && config.Password != "" {
		logger.Debug("Using basic authentication", "username", config.Username)
	} else {
		logger.Debug("No authentication configured")
	}

	return &Client{client: client, config: config, logger: logger}
}

// buildTransport derives the HTTP transport from the TLS options.
func buildTransport(config server.ElasticsearchConfig) (*http.Transport, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	tlsConfig := &tls.Config{}
	if !config.VerifyCerts {
		tlsConfig.InsecureSkipVerify = true
	}
	if config.CACerts != "" {
		pem, err := os.ReadFile(config.CACerts)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA bundle: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in CA bundle %s", config.CACerts)
		}
		tlsConfig.RootCAs = pool
	}
	if config.ClientCert != "" && config.ClientKey != "" {
		cert, err := tls.LoadX509KeyPair(config.ClientCert, config.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	transport.TLSClientConfig = tlsConfig

	return transport, nil
}

// decode reads and unmarshals an API response, converting vendor error
// statuses into errors.
func (c *Client) decode(res *esapi.Response, out interface{}) error {
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if res.IsError() {
		return fmt.Errorf("elasticsearch error (%s): %s", res.Status(), strings.TrimSpace(string(body)))
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.config.Timeout > 0 {
		return context.WithTimeout(ctx, c.config.Timeout)
	}
	return context.WithCancel(ctx)
}

// SearchOptions holds the optional parameters of a search request.
type SearchOptions struct {
	Query          string
	Size           int
	From           int
	Sort           string
	Source         string
	Aggregations   string
	TrackTotalHits bool
}

// Search executes a search against the given index pattern. Query, sort,
// _source and aggs arrive as raw JSON strings and are embedded in the
// request body unchanged.
func (c *Client) Search(ctx context.Context, index string, options SearchOptions) (map[string]interface{}, error) {
	if c.client == nil {
		return nil, fmt.Errorf("Elasticsearch client not initialized")
	}

	body := map[string]interface{}{}
	if err := embedRawJSON(body, "query", options.Query); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}
	if err := embedRawJSON(body, "sort", options.Sort); err != nil {
		return nil, fmt.Errorf("invalid sort: %w", err)
	}
	if err := embedRawJSON(body, "_source", options.Source); err != nil {
		return nil, fmt.Errorf("invalid _source: %w", err)
	}
	if err := embedRawJSON(body, "aggs", options.Aggregations); err != nil {
		return nil, fmt.Errorf("invalid aggs: %w", err)
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode search body: %w", err)
	}

	ctx, cancel := c.queryContext(ctx)
	defer cancel()

	res, err := c.client.Search(
		c.client.Search.WithContext(ctx),
		c.client.Search.WithIndex(index),
		c.client.Search.WithBody(bytes.NewReader(encoded)),
		c.client.Search.WithSize(options.Size),
		c.client.Search.WithFrom(options.From),
		c.client.Search.WithTrackTotalHits(options.TrackTotalHits),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}

	var result map[string]interface{}
	if err := c.decode(res, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// searchBody executes a search with a fully assembled request body. Used by
// the composite APM tools, which control size and sort inside the body.
func (c *Client) searchBody(ctx context.Context, index string, body map[string]interface{}) (map[string]interface{}, error) {
	if c.client == nil {
		return nil, fmt.Errorf("Elasticsearch client not initialized")
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode search body: %w", err)
	}

	ctx, cancel := c.queryContext(ctx)
	defer cancel()

	res, err := c.client.Search(
		c.client.Search.WithContext(ctx),
		c.client.Search.WithIndex(index),
		c.client.Search.WithBody(bytes.NewReader(encoded)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}

	var result map[string]interface{}
	if err := c.decode(res, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Count counts documents matching an optional query.
func (c *Client) Count(ctx context.Context, index, query string) (map[string]interface{}, error) {
	if c.client == nil {
		return nil, fmt.Errorf("Elasticsearch client not initialized")
	}

	options := []func(*esapi.CountRequest){
		c.client.Count.WithIndex(index),
	}
	if query != "" {
		body := map[string]interface{}{}
		if err := embedRawJSON(body, "query", query); err != nil {
			return nil, fmt.Errorf("invalid query: %w", err)
		}
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode count body: %w", err)
		}
		options = append(options, c.client.Count.WithBody(bytes.NewReader(encoded)))
	}

	ctx, cancel := c.queryContext(ctx)
	defer cancel()
	options = append(options, c.client.Count.WithContext(ctx))

	res, err := c.client.Count(options...)
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}

	var result map[string]interface{}
	if err := c.decode(res, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// FieldCaps returns field capabilities for an index pattern.
func (c *Client) FieldCaps(ctx context.Context, index string, fields []string) (map[string]interface{}, error) {
	if c.client == nil {
		return nil, fmt.Errorf("Elasticsearch client not initialized")
	}

	ctx, cancel := c.queryContext(ctx)
	defer cancel()

	res, err := c.client.FieldCaps(
		c.client.FieldCaps.WithContext(ctx),
		c.client.FieldCaps.WithIndex(index),
		c.client.FieldCaps.WithFields(fields...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get field capabilities: %w", err)
	}

	var result map[string]interface{}
	if err := c.decode(res, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ValidateQuery checks whether a query is valid without executing it.
func (c *Client) ValidateQuery(ctx context.Context, index, query string) (map[string]interface{}, error) {
	if c.client == nil {
		return nil, fmt.Errorf("Elasticsearch client not initialized")
	}

	body := map[string]interface{}{}
	if err := embedRawJSON(body, "query", query); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode validate body: %w", err)
	}

	ctx, cancel := c.queryContext(ctx)
	defer cancel()

	res, err := c.client.Indices.ValidateQuery(
		c.client.Indices.ValidateQuery.WithContext(ctx),
		c.client.Indices.ValidateQuery.WithIndex(index),
		c.client.Indices.ValidateQuery.WithBody(bytes.NewReader(encoded)),
		c.client.Indices.ValidateQuery.WithExplain(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to validate query: %w", err)
	}

	var result map[string]interface{}
	if err := c.decode(res, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// SQLQuery executes an Elasticsearch SQL query.
func (c *Client) SQLQuery(ctx context.Context, query string, fetchSize int) (map[string]interface{}, error) {
	if c.client == nil {
		return nil, fmt.Errorf("Elasticsearch client not initialized")
	}

	body := map[string]interface{}{"query": query}
	if fetchSize > 0 {
		body["fetch_size"] = fetchSize
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode SQL body: %w", err)
	}

	ctx, cancel := c.queryContext(ctx)
	defer cancel()

	res, err := c.client.SQL.Query(
		bytes.NewReader(encoded),
		c.client.SQL.Query.WithContext(ctx),
		c.client.SQL.Query.WithFormat("json"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to execute SQL query: %w", err)
	}

	var result map[string]interface{}
	if err := c.decode(res, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// IndexInfo is a condensed row of the cat indices API.
type IndexInfo struct {
	Index     string `json:"index"`
	Health    string `json:"health"`
	Status    string `json:"status"`
	DocsCount string `json:"docs.count"`
	StoreSize string `json:"store.size"`
}

// ListIndices lists indices matching the pattern.
func (c *Client) ListIndices(ctx context.Context, pattern string) ([]IndexInfo, error) {
	if c.client == nil {
		return nil, fmt.Errorf("Elasticsearch client not initialized")
	}

	ctx, cancel := c.queryContext(ctx)
	defer cancel()

	res, err := c.client.Cat.Indices(
		c.client.Cat.Indices.WithContext(ctx),
		c.client.Cat.Indices.WithIndex(pattern),
		c.client.Cat.Indices.WithFormat("json"),
		c.client.Cat.Indices.WithH("index", "health", "status", "docs.count", "store.size"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list indices: %w", err)
	}

	var indices []IndexInfo
	if err := c.decode(res, &indices); err != nil {
		return nil, err
	}
	return indices, nil
}

// GetMappings returns the field mappings for an index pattern.
func (c *Client) GetMappings(ctx context.Context, index string) (map[string]interface{}, error) {
	if c.client == nil {
		return nil, fmt.Errorf("Elasticsearch client not initialized")
	}

	ctx, cancel := c.queryContext(ctx)
	defer cancel()

	res, err := c.client.Indices.GetMapping(
		c.client.Indices.GetMapping.WithContext(ctx),
		c.client.Indices.GetMapping.WithIndex(index),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get mappings: %w", err)
	}

	var result map[string]interface{}
	if err := c.decode(res, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ClusterInfo returns basic cluster information (GET /).
func (c *Client) ClusterInfo(ctx context.Context) (map[string]interface{}, error) {
	if c.client == nil {
		return nil, fmt.Errorf("Elasticsearch client not initialized")
	}

	ctx, cancel := c.queryContext(ctx)
	defer cancel()

	res, err := c.client.Info(c.client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get cluster info: %w", err)
	}

	var result map[string]interface{}
	if err := c.decode(res, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ClusterHealth returns the cluster health report.
func (c *Client) ClusterHealth(ctx context.Context) (map[string]interface{}, error) {
	if c.client == nil {
		return nil, fmt.Errorf("Elasticsearch client not initialized")
	}

	ctx, cancel := c.queryContext(ctx)
	defer cancel()

	res, err := c.client.Cluster.Health(c.client.Cluster.Health.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get cluster health: %w", err)
	}

	var result map[string]interface{}
	if err := c.decode(res, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ClusterStats returns cluster-wide statistics.
func (c *Client) ClusterStats(ctx context.Context) (map[string]interface{}, error) {
	if c.client == nil {
		return nil, fmt.Errorf("Elasticsearch client not initialized")
	}

	ctx, cancel := c.queryContext(ctx)
	defer cancel()

	res, err := c.client.Cluster.Stats(c.client.Cluster.Stats.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get cluster stats: %w", err)
	}

	var result map[string]interface{}
	if err := c.decode(res, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// NodesStats returns per-node statistics.
func (c *Client) NodesStats(ctx context.Context) (map[string]interface{}, error) {
	if c.client == nil {
		return nil, fmt.Errorf("Elasticsearch client not initialized")
	}

	ctx, cancel := c.queryContext(ctx)
	defer cancel()

	res, err := c.client.Nodes.Stats(c.client.Nodes.Stats.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get nodes stats: %w", err)
	}

	var result map[string]interface{}
	if err := c.decode(res, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// embedRawJSON parses a raw JSON string and stores it under key. Empty
// strings are skipped.
func embedRawJSON(body map[string]interface{}, key, raw string) error {
	if raw == "" {
		return nil
	}
	var value interface{}
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return err
	}
	body[key] = value
	return nil
}
