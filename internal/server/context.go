package server

import (
	"context"
	"os"
	"strconv"
	"sync"
	"time"
)

// Logger interface for structured logging
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// ElasticsearchConfig holds the Elasticsearch connection configuration
type ElasticsearchConfig struct {
	URL         string
	Username    string
	Password    string
	APIKey      string
	CloudID     string
	Timeout     time.Duration
	VerifyCerts bool
	CACerts     string
	ClientCert  string
	ClientKey   string
}

// HasAuth reports whether any authentication method is configured.
func (c ElasticsearchConfig) HasAuth() bool {
	return c.APIKey != "" || (c.Username != "" && c.Password != "") || c.CloudID != ""
}

// DatadogConfig holds the Datadog API connection configuration
type DatadogConfig struct {
	APIKey  string
	AppKey  string
	Site    string
	BaseURL string
	Timeout time.Duration
}

// HasAuth reports whether both Datadog keys are configured.
func (c DatadogConfig) HasAuth() bool {
	return c.APIKey != "" && c.AppKey != ""
}

// ServerContext holds the server configuration and shared resources
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc
	mutex  sync.RWMutex

	// Configuration
	debugMode         bool
	securityFiltering bool
	logger            Logger

	// Backend configuration
	elasticsearchConfig ElasticsearchConfig
	datadogConfig       DatadogConfig
}

// ServerOption is a functional option for configuring ServerContext
type ServerOption func(*ServerContext)

// WithDebugMode sets whether debug logging is enabled
func WithDebugMode(enabled bool) ServerOption {
	return func(sc *ServerContext) {
		sc.debugMode = enabled
	}
}

// WithLogger sets the logger for the server context
func WithLogger(logger Logger) ServerOption {
	return func(sc *ServerContext) {
		sc.logger = logger
	}
}

// WithSecurityFiltering sets whether the read-only endpoint filter is enforced
func WithSecurityFiltering(enabled bool) ServerOption {
	return func(sc *ServerContext) {
		sc.securityFiltering = enabled
	}
}

// WithElasticsearchConfig sets the Elasticsearch configuration
func WithElasticsearchConfig(config ElasticsearchConfig) ServerOption {
	return func(sc *ServerContext) {
		sc.elasticsearchConfig = config
	}
}

// WithDatadogConfig sets the Datadog configuration
func WithDatadogConfig(config DatadogConfig) ServerOption {
	return func(sc *ServerContext) {
		sc.datadogConfig = config
	}
}

// NewServerContext creates a new server context with the given options
func NewServerContext(ctx context.Context, opts ...ServerOption) (*ServerContext, error) {
	serverCtx, cancel := context.WithCancel(ctx)

	sc := &ServerContext{
		ctx:               serverCtx,
		cancel:            cancel,
		securityFiltering: envBool("MCP_ENABLE_SECURITY_FILTERING", true),
	}

	// Apply options
	for _, opt := range opts {
		opt(sc)
	}

	// Set default logger if none provided
	if sc.logger == nil {
		sc.logger = &noopLogger{}
	}

	// Load backend configuration from environment if not provided
	if sc.elasticsearchConfig.URL == "" {
		sc.elasticsearchConfig = ElasticsearchConfigFromEnv()
	}
	if sc.datadogConfig.APIKey == "" {
		sc.datadogConfig = DatadogConfigFromEnv()
	}

	return sc, nil
}

// ElasticsearchConfigFromEnv builds the Elasticsearch configuration from
// ELASTICSEARCH_* environment variables.
func ElasticsearchConfigFromEnv() ElasticsearchConfig {
	return ElasticsearchConfig{
		URL:         envString("ELASTICSEARCH_URL", "http://localhost:9200"),
		Username:    os.Getenv("ELASTICSEARCH_USERNAME"),
		Password:    os.Getenv("ELASTICSEARCH_PASSWORD"),
		APIKey:      os.Getenv("ELASTICSEARCH_API_KEY"),
		CloudID:     os.Getenv("ELASTICSEARCH_CLOUD_ID"),
		Timeout:     envSeconds("ELASTICSEARCH_TIMEOUT", 30*time.Second),
		VerifyCerts: envBool("ELASTICSEARCH_VERIFY_CERTS", true),
		CACerts:     os.Getenv("ELASTICSEARCH_CA_CERTS"),
		ClientCert:  os.Getenv("ELASTICSEARCH_CLIENT_CERT"),
		ClientKey:   os.Getenv("ELASTICSEARCH_CLIENT_KEY"),
	}
}

// DatadogConfigFromEnv builds the Datadog configuration from DATADOG_*
// environment variables.
func DatadogConfigFromEnv() DatadogConfig {
	return DatadogConfig{
		APIKey:  os.Getenv("DATADOG_API_KEY"),
		AppKey:  os.Getenv("DATADOG_APP_KEY"),
		Site:    envString("DATADOG_SITE", "datadoghq.com"),
		BaseURL: os.Getenv("DATADOG_BASE_URL"),
		Timeout: envSeconds("DATADOG_TIMEOUT", 30*time.Second),
	}
}

// Context returns the context associated with the server
func (sc *ServerContext) Context() context.Context {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()
	return sc.ctx
}

// IsDebugMode returns whether debug logging is enabled
func (sc *ServerContext) IsDebugMode() bool {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()
	return sc.debugMode
}

// SecurityFilteringEnabled returns whether the read-only filter is enforced
func (sc *ServerContext) SecurityFilteringEnabled() bool {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()
	return sc.securityFiltering
}

// Logger returns the configured logger
func (sc *ServerContext) Logger() Logger {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()
	return sc.logger
}

// ElasticsearchConfig returns the Elasticsearch configuration
func (sc *ServerContext) ElasticsearchConfig() ElasticsearchConfig {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()
	return sc.elasticsearchConfig
}

// DatadogConfig returns the Datadog configuration
func (sc *ServerContext) DatadogConfig() DatadogConfig {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()
	return sc.datadogConfig
}

// SetDebugMode dynamically sets whether debug logging is enabled
func (sc *ServerContext) SetDebugMode(enabled bool) {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	sc.debugMode = enabled
}

// Shutdown gracefully shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	if sc.cancel != nil {
		sc.cancel()
		sc.cancel = nil
	}

	return nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	switch v {
	case "true", "TRUE", "True", "1", "yes", "YES":
		return true
	default:
		return false
	}
}

func envSeconds(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	seconds, err := strconv.Atoi(v)
	if err != nil || seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

// noopLogger is a logger that does nothing
type noopLogger struct{}

func (l *noopLogger) Debug(msg string, args ...interface{}) {}
func (l *noopLogger) Info(msg string, args ...interface{})  {}
func (l *noopLogger) Warn(msg string, args ...interface{})  {}
func (l *noopLogger) Error(msg string, args ...interface{}) {}
