package server

import (
	"context"
	"testing"
	"time"
)

func TestElasticsearchConfigFromEnv(t *testing.T) {
	t.Setenv("ELASTICSEARCH_URL", "https://elasticsearch.example.com:9200")
	t.Setenv("ELASTICSEARCH_USERNAME", "elastic")
	t.Setenv("ELASTICSEARCH_PASSWORD", "changeme")
	t.Setenv("ELASTICSEARCH_API_KEY", "test-api-key")
	t.Setenv("ELASTICSEARCH_CLOUD_ID", "test-cloud-id")
	t.Setenv("ELASTICSEARCH_TIMEOUT", "60")
	t.Setenv("ELASTICSEARCH_VERIFY_CERTS", "false")

	config := ElasticsearchConfigFromEnv()

	if config.URL != "https://elasticsearch.example.com:9200" {
		t.Errorf("unexpected URL: %s", config.URL)
	}
	if config.Username != "elastic" || config.Password != "changeme" {
		t.Errorf("unexpected credentials: %s/%s", config.Username, config.Password)
	}
	if config.APIKey != "test-api-key" {
		t.Errorf("unexpected API key: %s", config.APIKey)
	}
	if config.CloudID != "test-cloud-id" {
		t.Errorf("unexpected cloud ID: %s", config.CloudID)
	}
	if config.Timeout != 60*time.Second {
		t.Errorf("unexpected timeout: %s", config.Timeout)
	}
	if config.VerifyCerts {
		t.Error("expected VerifyCerts to be false")
	}
}

func TestElasticsearchConfigDefaults(t *testing.T) {
	t.Setenv("ELASTICSEARCH_URL", "")
	t.Setenv("ELASTICSEARCH_TIMEOUT", "")
	t.Setenv("ELASTICSEARCH_VERIFY_CERTS", "")

	config := ElasticsearchConfigFromEnv()

	if config.URL != "http://localhost:9200" {
		t.Errorf("unexpected default URL: %s", config.URL)
	}
	if config.Timeout != 30*time.Second {
		t.Errorf("unexpected default timeout: %s", config.Timeout)
	}
	if !config.VerifyCerts {
		t.Error("expected VerifyCerts to default to true")
	}
}

func TestElasticsearchConfigHasAuth(t *testing.T) {
	tests := []struct {
		name   string
		config ElasticsearchConfig
		want   bool
	}{
		{"no credentials", ElasticsearchConfig{URL: "http://localhost:9200"}, false},
		{"username and password", ElasticsearchConfig{Username: "elastic", Password: "changeme"}, true},
		{"username only", ElasticsearchConfig{Username: "elastic"}, false},
		{"api key", ElasticsearchConfig{APIKey: "key"}, true},
		{"cloud id", ElasticsearchConfig{CloudID: "deployment:abcd"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.config.HasAuth(); got != tt.want {
				t.Errorf("HasAuth() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDatadogConfigFromEnv(t *testing.T) {
	t.Setenv("DATADOG_API_KEY", "dd-api-key")
	t.Setenv("DATADOG_APP_KEY", "dd-app-key")
	t.Setenv("DATADOG_SITE", "datadoghq.eu")
	t.Setenv("DATADOG_TIMEOUT", "45")

	config := DatadogConfigFromEnv()

	if config.APIKey != "dd-api-key" || config.AppKey != "dd-app-key" {
		t.Errorf("unexpected keys: %s/%s", config.APIKey, config.AppKey)
	}
	if config.Site != "datadoghq.eu" {
		t.Errorf("unexpected site: %s", config.Site)
	}
	if config.Timeout != 45*time.Second {
		t.Errorf("unexpected timeout: %s", config.Timeout)
	}
	if !config.HasAuth() {
		t.Error("expected HasAuth to be true")
	}
}

func TestNewServerContextDefaults(t *testing.T) {
	t.Setenv("MCP_ENABLE_SECURITY_FILTERING", "")

	sc, err := NewServerContext(context.Background())
	if err != nil {
		t.Fatalf("NewServerContext failed: %v", err)
	}
	defer sc.Shutdown()

	if !sc.SecurityFilteringEnabled() {
		t.Error("expected security filtering to default to enabled")
	}
	if sc.IsDebugMode() {
		t.Error("expected debug mode to default to disabled")
	}
	if sc.Logger() == nil {
		t.Error("expected a default logger")
	}
}

func TestNewServerContextSecurityFilteringFromEnv(t *testing.T) {
	t.Setenv("MCP_ENABLE_SECURITY_FILTERING", "false")

	sc, err := NewServerContext(context.Background())
	if err != nil {
		t.Fatalf("NewServerContext failed: %v", err)
	}
	defer sc.Shutdown()

	if sc.SecurityFilteringEnabled() {
		t.Error("expected security filtering to be disabled via environment")
	}
}

func TestNewServerContextOptions(t *testing.T) {
	esConfig := ElasticsearchConfig{URL: "http://es.internal:9200", Username: "svc", Password: "secret"}
	ddConfig := DatadogConfig{APIKey: "k", AppKey: "a", Site: "datadoghq.com"}

	sc, err := NewServerContext(context.Background(),
		WithDebugMode(true),
		WithSecurityFiltering(false),
		WithElasticsearchConfig(esConfig),
		WithDatadogConfig(ddConfig),
	)
	if err != nil {
		t.Fatalf("NewServerContext failed: %v", err)
	}
	defer sc.Shutdown()

	if !sc.IsDebugMode() {
		t.Error("expected debug mode enabled")
	}
	if sc.SecurityFilteringEnabled() {
		t.Error("expected security filtering disabled")
	}
	if sc.ElasticsearchConfig().URL != "http://es.internal:9200" {
		t.Errorf("unexpected Elasticsearch URL: %s", sc.ElasticsearchConfig().URL)
	}
	if sc.DatadogConfig().APIKey != "k" {
		t.Errorf("unexpected Datadog API key: %s", sc.DatadogConfig().APIKey)
	}
}

func TestShutdownCancelsContext(t *testing.T) {
	sc, err := NewServerContext(context.Background())
	if err != nil {
		t.Fatalf("NewServerContext failed: %v", err)
	}

	ctx := sc.Context()
	if err := sc.Shutdown(); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	select {
	case <-ctx.Done():
	default:
		t.Error("expected context to be canceled after Shutdown")
	}

	// Second shutdown is a no-op
	if err := sc.Shutdown(); err != nil {
		t.Errorf("second Shutdown failed: %v", err)
	}
}
