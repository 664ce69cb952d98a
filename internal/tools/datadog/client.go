package datadog

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV1"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"github.com/byviz/mcp-observability/internal/readonly"
	"github.com/byviz/mcp-observability/internal/server"
)

// Client wraps the official Datadog API client with logging and the
// read-only request guard.
type Client struct {
	api    *datadog.APIClient
	config server.DatadogConfig
	logger server.Logger
}

// NewClient creates a new Datadog client using the official client library.
// When filtered is true the HTTP transport carries the read-only endpoint
// guard.
func NewClient(config server.DatadogConfig, logger server.Logger, filtered bool) *Client {
	logger.Debug("Creating new Datadog client", "site", config.Site, "filtered", filtered)

	if !config.HasAuth() {
		logger.Error("Datadog API key and application key are required")
		return &Client{api: nil, config: config, logger: logger}
	}

	var roundTripper http.RoundTripper = http.DefaultTransport
	if filtered {
		roundTripper = readonly.NewGuard(readonly.NewDatadogPolicy(), roundTripper)
		logger.Debug("Read-only filter enabled on Datadog transport")
	} else {
		logger.Warn("Read-only filter DISABLED - all Datadog endpoints reachable")
	}

	cfg := datadog.NewConfiguration()
	cfg.HTTPClient = &http.Client{
		Timeout:   config.Timeout,
		Transport: roundTripper,
	}
	// BaseURL overrides the site-based server selection, used for testing
	// against mock servers.
	if config.BaseURL != "" {
		cfg.Servers = datadog.ServerConfigurations{{URL: config.BaseURL}}
	}

	return &Client{
		api:    datadog.NewAPIClient(cfg),
		config: config,
		logger: logger,
	}
}

// authContext attaches the API credentials and site to the request context,
// the way the vendor client expects them.
func (c *Client) authContext(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, datadog.ContextAPIKeys, map[string]datadog.APIKey{
		"apiKeyAuth": {Key: c.config.APIKey},
		"appKeyAuth": {Key: c.config.AppKey},
	})
	ctx = context.WithValue(ctx, datadog.ContextServerVariables, map[string]string{
		"site": c.config.Site,
	})
	return ctx
}

func (c *Client) ready() error {
	if c.api == nil {
		return fmt.Errorf("Datadog client not initialized")
	}
	return nil
}

// parseTime accepts an RFC3339 timestamp or a lookback duration like "1h".
// Empty input yields the fallback.
func parseTime(value string, fallback time.Time) (time.Time, error) {
	if value == "" {
		return fallback, nil
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts, nil
	}
	if duration, err := time.ParseDuration(value); err == nil {
		return time.Now().Add(-duration), nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q (use RFC3339 or a duration like '1h')", value)
}

// LogEntry is a condensed Datadog log record.
type LogEntry struct {
	ID         string      `json:"id"`
	Timestamp  *time.Time  `json:"timestamp,omitempty"`
	Message    string      `json:"message"`
	Status     string      `json:"status"`
	Service    string      `json:"service"`
	Host       string      `json:"host"`
	Tags       []string    `json:"tags,omitempty"`
	Attributes interface{} `json:"attributes,omitempty"`
}

// LogsResult is the outcome of a log search.
type LogsResult struct {
	Logs  []LogEntry `json:"logs"`
	Count int        `json:"count"`
	Query string     `json:"query"`
	From  string     `json:"from"`
	To    string     `json:"to"`
}

// SearchLogs searches Datadog logs with the standard query syntax.
func (c *Client) SearchLogs(ctx context.Context, query, from, to string, limit int) (*LogsResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	fromTime, err := parseTime(from, time.Now().Add(-time.Hour))
	if err != nil {
		return nil, err
	}
	toTime, err := parseTime(to, time.Now())
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 1000 {
		limit = 1000
	}

	body := datadogV2.LogsListRequest{
		Filter: &datadogV2.LogsQueryFilter{
			From:  datadog.PtrString(fromTime.Format(time.RFC3339)),
			To:    datadog.PtrString(toTime.Format(time.RFC3339)),
			Query: datadog.PtrString(query),
		},
		Page: &datadogV2.LogsListRequestPage{
			Limit: datadog.PtrInt32(int32(limit)),
		},
		Sort: datadogV2.LOGSSORT_TIMESTAMP_DESCENDING.Ptr(),
	}

	api := datadogV2.NewLogsApi(c.api)
	resp, _, err := api.ListLogs(c.authContext(ctx), *datadogV2.NewListLogsOptionalParameters().WithBody(body))
	if err != nil {
		return nil, fmt.Errorf("failed to search logs: %w", err)
	}

	result := &LogsResult{
		Logs:  []LogEntry{},
		Query: query,
		From:  fromTime.Format(time.RFC3339),
		To:    toTime.Format(time.RFC3339),
	}
	for _, log := range resp.GetData() {
		attrs := log.GetAttributes()
		entry := LogEntry{
			ID:      log.GetId(),
			Message: attrs.GetMessage(),
			Status:  attrs.GetStatus(),
			Service: attrs.GetService(),
			Host:    attrs.GetHost(),
			Tags:    attrs.GetTags(),
		}
		if ts, ok := attrs.GetTimestampOk(); ok {
			entry.Timestamp = ts
		}
		if custom := attrs.GetAttributes(); len(custom) > 0 {
			entry.Attributes = custom
		}
		result.Logs = append(result.Logs, entry)
	}
	result.Count = len(result.Logs)

	return result, nil
}

// SpanSummary is a condensed APM span record.
type SpanSummary struct {
	TraceID  string     `json:"trace_id"`
	SpanID   string     `json:"span_id"`
	Service  string     `json:"service"`
	Resource string     `json:"resource"`
	Type     string     `json:"type"`
	Host     string     `json:"host"`
	Env      string     `json:"env"`
	Start    *time.Time `json:"start,omitempty"`
	End      *time.Time `json:"end,omitempty"`
}

// SpansResult is the outcome of a span search.
type SpansResult struct {
	Spans []SpanSummary `json:"spans"`
	Count int           `json:"count"`
	Query string        `json:"query"`
	From  string        `json:"from"`
	To    string        `json:"to"`
}

// SearchSpans searches APM spans with the standard query syntax.
func (c *Client) SearchSpans(ctx context.Context, query, from, to string, limit int) (*SpansResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	fromTime, err := parseTime(from, time.Now().Add(-15*time.Minute))
	if err != nil {
		return nil, err
	}
	toTime, err := parseTime(to, time.Now())
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	if query == "" {
		query = "*"
	}

	api := datadogV2.NewSpansApi(c.api)
	resp, _, err := api.ListSpansGet(c.authContext(ctx), *datadogV2.NewListSpansGetOptionalParameters().
		WithFilterQuery(query).
		WithFilterFrom(fromTime.Format(time.RFC3339)).
		WithFilterTo(toTime.Format(time.RFC3339)).
		WithPageLimit(int32(limit)))
	if err != nil {
		return nil, fmt.Errorf("failed to search spans: %w", err)
	}

	result := &SpansResult{
		Spans: []SpanSummary{},
		Query: query,
		From:  fromTime.Format(time.RFC3339),
		To:    toTime.Format(time.RFC3339),
	}
	for _, span := range resp.GetData() {
		attrs := span.GetAttributes()
		summary := SpanSummary{
			TraceID:  attrs.GetTraceId(),
			SpanID:   attrs.GetSpanId(),
			Service:  attrs.GetService(),
			Resource: attrs.GetResourceName(),
			Type:     attrs.GetType(),
			Host:     attrs.GetHost(),
			Env:      attrs.GetEnv(),
		}
		if ts, ok := attrs.GetStartTimestampOk(); ok {
			summary.Start = ts
		}
		if ts, ok := attrs.GetEndTimestampOk(); ok {
			summary.End = ts
		}
		result.Spans = append(result.Spans, summary)
	}
	result.Count = len(result.Spans)

	return result, nil
}

// EventSummary is a condensed Datadog event record.
type EventSummary struct {
	ID        string     `json:"id"`
	Message   string     `json:"message"`
	Tags      []string   `json:"tags,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// EventsResult is the outcome of an event search.
type EventsResult struct {
	Events []EventSummary `json:"events"`
	Count  int            `json:"count"`
	Query  string         `json:"query"`
	From   string         `json:"from"`
	To     string         `json:"to"`
}

// SearchEvents searches the Datadog event stream.
func (c *Client) SearchEvents(ctx context.Context, query, from, to string, limit int) (*EventsResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	fromTime, err := parseTime(from, time.Now().Add(-time.Hour))
	if err != nil {
		return nil, err
	}
	toTime, err := parseTime(to, time.Now())
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	params := datadogV2.NewListEventsOptionalParameters().
		WithFilterFrom(fromTime.Format(time.RFC3339)).
		WithFilterTo(toTime.Format(time.RFC3339)).
		WithPageLimit(int32(limit))
	if query != "" {
		params = params.WithFilterQuery(query)
	}

	api := datadogV2.NewEventsApi(c.api)
	resp, _, err := api.ListEvents(c.authContext(ctx), *params)
	if err != nil {
		return nil, fmt.Errorf("failed to search events: %w", err)
	}

	result := &EventsResult{
		Events: []EventSummary{},
		Query:  query,
		From:   fromTime.Format(time.RFC3339),
		To:     toTime.Format(time.RFC3339),
	}
	for _, event := range resp.GetData() {
		attrs := event.GetAttributes()
		summary := EventSummary{
			ID:      event.GetId(),
			Message: attrs.GetMessage(),
			Tags:    attrs.GetTags(),
		}
		if ts, ok := attrs.GetTimestampOk(); ok {
			summary.Timestamp = ts
		}
		result.Events = append(result.Events, summary)
	}
	result.Count = len(result.Events)

	return result, nil
}

// QueryMetrics executes a timeseries metrics query between two points in
// time.
func (c *Client) QueryMetrics(ctx context.Context, query, from, to string) (*datadogV1.MetricsQueryResponse, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	fromTime, err := parseTime(from, time.Now().Add(-time.Hour))
	if err != nil {
		return nil, err
	}
	toTime, err := parseTime(to, time.Now())
	if err != nil {
		return nil, err
	}

	api := datadogV1.NewMetricsApi(c.api)
	resp, _, err := api.QueryMetrics(c.authContext(ctx), fromTime.Unix(), toTime.Unix(), query)
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics: %w", err)
	}
	return &resp, nil
}

// ListActiveMetrics lists metrics actively reporting since a point in time.
func (c *Client) ListActiveMetrics(ctx context.Context, from, host string) (*datadogV1.MetricsListResponse, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	fromTime, err := parseTime(from, time.Now().Add(-24*time.Hour))
	if err != nil {
		return nil, err
	}

	params := datadogV1.NewListActiveMetricsOptionalParameters()
	if host != "" {
		params = params.WithHost(host)
	}

	api := datadogV1.NewMetricsApi(c.api)
	resp, _, err := api.ListActiveMetrics(c.authContext(ctx), fromTime.Unix(), *params)
	if err != nil {
		return nil, fmt.Errorf("failed to list active metrics: %w", err)
	}
	return &resp, nil
}

// GetMetricMetadata returns the metadata of a single metric.
func (c *Client) GetMetricMetadata(ctx context.Context, metric string) (*datadogV1.MetricMetadata, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	api := datadogV1.NewMetricsApi(c.api)
	resp, _, err := api.GetMetricMetadata(c.authContext(ctx), metric)
	if err != nil {
		return nil, fmt.Errorf("failed to get metric metadata: %w", err)
	}
	return &resp, nil
}

// MonitorSummary is a condensed monitor record.
type MonitorSummary struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name"`
	Status  string   `json:"status"`
	Query   string   `json:"query"`
	Type    string   `json:"type"`
	Tags    []string `json:"tags,omitempty"`
	Message string   `json:"message,omitempty"`
}

// ListMonitors lists monitors, optionally filtered by name and tags.
func (c *Client) ListMonitors(ctx context.Context, name, tags string, limit int) ([]MonitorSummary, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	params := datadogV1.NewListMonitorsOptionalParameters().WithPageSize(int32(limit))
	if name != "" {
		params = params.WithName(name)
	}
	if tags != "" {
		params = params.WithMonitorTags(tags)
	}

	api := datadogV1.NewMonitorsApi(c.api)
	monitors, _, err := api.ListMonitors(c.authContext(ctx), *params)
	if err != nil {
		return nil, fmt.Errorf("failed to list monitors: %w", err)
	}

	summaries := make([]MonitorSummary, 0, len(monitors))
	for _, monitor := range monitors {
		summaries = append(summaries, MonitorSummary{
			ID:      monitor.GetId(),
			Name:    monitor.GetName(),
			Status:  string(monitor.GetOverallState()),
			Query:   monitor.GetQuery(),
			Type:    string(monitor.GetType()),
			Tags:    monitor.GetTags(),
			Message: monitor.GetMessage(),
		})
	}
	return summaries, nil
}

// HostSummary is a condensed infrastructure host record.
type HostSummary struct {
	Name        string   `json:"name"`
	Up          bool     `json:"up"`
	LastSeen    int64    `json:"last_seen"`
	Apps        []string `json:"apps,omitempty"`
	Sources     []string `json:"sources,omitempty"`
	MuteEnabled bool     `json:"muted"`
}

// HostsResult is the outcome of a host listing.
type HostsResult struct {
	Hosts      []HostSummary `json:"hosts"`
	TotalCount int64         `json:"total_matching"`
}

// ListHosts lists infrastructure hosts, optionally filtered.
func (c *Client) ListHosts(ctx context.Context, filter string, limit int) (*HostsResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	params := datadogV1.NewListHostsOptionalParameters().WithCount(int64(limit))
	if filter != "" {
		params = params.WithFilter(filter)
	}

	api := datadogV1.NewHostsApi(c.api)
	resp, _, err := api.ListHosts(c.authContext(ctx), *params)
	if err != nil {
		return nil, fmt.Errorf("failed to list hosts: %w", err)
	}

	result := &HostsResult{
		Hosts:      []HostSummary{},
		TotalCount: resp.GetTotalMatching(),
	}
	for _, host := range resp.GetHostList() {
		result.Hosts = append(result.Hosts, HostSummary{
			Name:        host.GetName(),
			Up:          host.GetUp(),
			LastSeen:    host.GetLastReportedTime(),
			Apps:        host.GetApps(),
			Sources:     host.GetSources(),
			MuteEnabled: host.GetIsMuted(),
		})
	}
	return result, nil
}

// DashboardSummary is a condensed dashboard record.
type DashboardSummary struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	LayoutType string `json:"layout_type"`
	URL        string `json:"url"`
}

// ListDashboards lists all dashboards.
func (c *Client) ListDashboards(ctx context.Context) ([]DashboardSummary, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	api := datadogV1.NewDashboardsApi(c.api)
	resp, _, err := api.ListDashboards(c.authContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to list dashboards: %w", err)
	}

	summaries := []DashboardSummary{}
	for _, dashboard := range resp.GetDashboards() {
		summaries = append(summaries, DashboardSummary{
			ID:         dashboard.GetId(),
			Title:      dashboard.GetTitle(),
			Author:     dashboard.GetAuthorHandle(),
			LayoutType: string(dashboard.GetLayoutType()),
			URL:        dashboard.GetUrl(),
		})
	}
	return summaries, nil
}

// SLOSummary is a condensed service level objective record.
type SLOSummary struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Type string   `json:"type"`
	Tags []string `json:"tags,omitempty"`
}

// ListSLOs lists service level objectives, optionally filtered by query.
func (c *Client) ListSLOs(ctx context.Context, query string, limit int) ([]SLOSummary, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	params := datadogV1.NewListSLOsOptionalParameters().WithLimit(int64(limit))
	if query != "" {
		params = params.WithQuery(query)
	}

	api := datadogV1.NewServiceLevelObjectivesApi(c.api)
	resp, _, err := api.ListSLOs(c.authContext(ctx), *params)
	if err != nil {
		return nil, fmt.Errorf("failed to list SLOs: %w", err)
	}

	summaries := []SLOSummary{}
	for _, slo := range resp.GetData() {
		summaries = append(summaries, SLOSummary{
			ID:   slo.GetId(),
			Name: slo.GetName(),
			Type: string(slo.GetType()),
			Tags: slo.GetTags(),
		})
	}
	return summaries, nil
}
