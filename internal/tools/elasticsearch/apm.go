package elasticsearch

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/common/model"
)

// Index patterns the composite APM tools query.
const (
	tracesIndex     = "traces-apm*"
	apmErrorsIndex  = "logs-apm.error-*"
	apmMetricsIndex = "metrics-apm*"
)

// businessLogPatterns are the log index patterns scanned for business events.
var businessLogPatterns = []string{"filebeat-*", "logs-*"}

// correlationFields are the identifier fields probed when correlating a
// business event against APM data, in probe order.
var correlationFields = []string{
	"trace.id", "span.id", "transaction.id",
	"user.id", "correlation_id", "request_id", "session_id",
}

// TraceInfo summarizes the root transaction of a trace.
type TraceInfo struct {
	Service     string  `json:"service"`
	Transaction string  `json:"transaction"`
	DurationMs  float64 `json:"duration_ms"`
	Timestamp   string  `json:"timestamp"`
}

// SpanEntry is one row of the trace waterfall.
type SpanEntry struct {
	SpanID     string  `json:"span_id"`
	Name       string  `json:"name"`
	DurationMs float64 `json:"duration_ms"`
	Service    string  `json:"service"`
	Type       string  `json:"type"`
	Subtype    string  `json:"subtype"`
	Timestamp  string  `json:"timestamp"`
}

// PerformanceMetrics aggregates span durations of a trace.
type PerformanceMetrics struct {
	TotalSpans      int     `json:"total_spans"`
	TotalDurationMs float64 `json:"total_duration_ms"`
	AvgDurationMs   float64 `json:"avg_duration_ms"`
	MaxDurationMs   float64 `json:"max_duration_ms"`
	MinDurationMs   float64 `json:"min_duration_ms"`
}

// TraceError is an error correlated with a trace.
type TraceError struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
}

// TraceReport is the result of analyze_trace_performance.
type TraceReport struct {
	TraceID         string             `json:"trace_id"`
	Error           string             `json:"error,omitempty"`
	TraceInfo       TraceInfo          `json:"trace_info"`
	Waterfall       []SpanEntry        `json:"waterfall"`
	Performance     PerformanceMetrics `json:"performance_metrics"`
	Outliers        []SpanEntry        `json:"outliers"`
	ErrorsFound     int                `json:"errors_found"`
	Errors          []TraceError       `json:"errors,omitempty"`
	MetricsFound    int                `json:"metrics_found"`
	Recommendations []string           `json:"recommendations"`
}

// AnalyzeTracePerformance reconstructs the waterfall of a trace and
// correlates it with errors and metrics. Sub-queries that return no data
// degrade the report instead of failing it.
func (c *Client) AnalyzeTracePerformance(ctx context.Context, traceID string, includeErrors, includeMetrics bool) (*TraceReport, error) {
	if traceID == "" {
		return nil, fmt.Errorf("trace_id is required")
	}

	report := &TraceReport{
		TraceID:   traceID,
		Waterfall: []SpanEntry{},
		Outliers:  []SpanEntry{},
	}

	// Root transaction, newest document wins.
	traceResult := c.searchQuiet(ctx, tracesIndex, map[string]interface{}{
		"size":    1,
		"query":   termQuery("trace.id", traceID),
		"_source": []string{"trace.id", "service.name", "transaction.name", "transaction.duration.us", "@timestamp"},
		"sort":    []interface{}{map[string]interface{}{"@timestamp": map[string]interface{}{"order": "desc"}}},
	})

	traceHits := hitSources(traceResult)
	if len(traceHits) == 0 {
		report.Error = "trace not found"
		report.Recommendations = []string{}
		return report, nil
	}

	root := traceHits[0]
	report.TraceInfo = TraceInfo{
		Service:     nestedString(root, "Unknown", "service", "name"),
		Transaction: nestedString(root, "Unknown", "transaction", "name"),
		DurationMs:  nestedFloat(root, "transaction", "duration", "us") / 1000,
		Timestamp:   nestedString(root, "Unknown", "@timestamp"),
	}

	// All spans of the trace in chronological order.
	spansResult := c.searchQuiet(ctx, tracesIndex, map[string]interface{}{
		"size":  100,
		"query": termQuery("trace.id", traceID),
		"sort":  []interface{}{map[string]interface{}{"@timestamp": map[string]interface{}{"order": "asc"}}},
		"_source": []string{
			"span.id", "span.name", "span.duration.us", "@timestamp",
			"service.name", "span.type", "span.subtype",
		},
	})

	var totalDuration float64
	for _, src := range hitSources(spansResult) {
		entry := SpanEntry{
			SpanID:     truncate(nestedString(src, "N/A", "span", "id"), 8),
			Name:       nestedString(src, "N/A", "span", "name"),
			DurationMs: nestedFloat(src, "span", "duration", "us") / 1000,
			Service:    nestedString(src, "N/A", "service", "name"),
			Type:       nestedString(src, "N/A", "span", "type"),
			Subtype:    nestedString(src, "N/A", "span", "subtype"),
			Timestamp:  nestedString(src, "N/A", "@timestamp"),
		}
		report.Waterfall = append(report.Waterfall, entry)
		totalDuration += entry.DurationMs
	}

	if len(report.Waterfall) > 0 {
		metrics := PerformanceMetrics{
			TotalSpans:      len(report.Waterfall),
			TotalDurationMs: totalDuration,
			AvgDurationMs:   totalDuration / float64(len(report.Waterfall)),
			MinDurationMs:   report.Waterfall[0].DurationMs,
		}
		for _, entry := range report.Waterfall {
			if entry.DurationMs > metrics.MaxDurationMs {
				metrics.MaxDurationMs = entry.DurationMs
			}
			if entry.DurationMs < metrics.MinDurationMs {
				metrics.MinDurationMs = entry.DurationMs
			}
		}
		report.Performance = metrics

		// Outliers: spans slower than twice the average.
		for _, entry := range report.Waterfall {
			if entry.DurationMs > metrics.AvgDurationMs*2 {
				report.Outliers = append(report.Outliers, entry)
			}
		}
	}

	if includeErrors {
		errorResult := c.searchQuiet(ctx, apmErrorsIndex, map[string]interface{}{
			"size":    10,
			"query":   termQuery("trace.id", traceID),
			"_source": []string{"error.exception", "service.name", "@timestamp"},
		})

		report.ErrorsFound = totalHits(errorResult)
		for _, src := range hitSources(errorResult) {
			exceptions, _ := nested(src, "error", "exception").([]interface{})
			if len(exceptions) == 0 {
				continue
			}
			first, _ := exceptions[0].(map[string]interface{})
			report.Errors = append(report.Errors, TraceError{
				Type:      nestedString(first, "Unknown", "type"),
				Message:   truncate(nestedString(first, "N/A", "message"), 100),
				Service:   nestedString(src, "Unknown", "service", "name"),
				Timestamp: nestedString(src, "Unknown", "@timestamp"),
			})
		}
	}

	if includeMetrics && report.TraceInfo.Timestamp != "Unknown" {
		if ts, err := parseTimestamp(report.TraceInfo.Timestamp); err == nil {
			metricsResult := c.searchQuiet(ctx, apmMetricsIndex, map[string]interface{}{
				"size": 5,
				"query": map[string]interface{}{
					"bool": map[string]interface{}{
						"must": []interface{}{
							termQuery("service.name", report.TraceInfo.Service),
							map[string]interface{}{
								"range": map[string]interface{}{
									"@timestamp": map[string]interface{}{
										"gte": ts.Add(-5 * time.Minute).Format(time.RFC3339),
										"lte": ts.Add(5 * time.Minute).Format(time.RFC3339),
									},
								},
							},
						},
					},
				},
				"_source": []string{"metricset.name", "@timestamp"},
			})
			report.MetricsFound = totalHits(metricsResult)
		}
	}

	report.Recommendations = traceRecommendations(report)
	return report, nil
}

func traceRecommendations(report *TraceReport) []string {
	recommendations := []string{}

	for _, outlier := range report.Outliers {
		recommendations = append(recommendations,
			fmt.Sprintf("Investigate slow span: %s.%s (%.1fms)", outlier.Service, outlier.Name, outlier.DurationMs))
	}
	if report.Performance.TotalDurationMs > 1000 {
		recommendations = append(recommendations, "Trace exceeds 1s - consider optimizing the critical path")
	}
	if report.Performance.TotalSpans > 20 {
		recommendations = append(recommendations, "Trace has a high span count - consider reducing downstream calls")
	}
	if report.ErrorsFound > 0 {
		recommendations = append(recommendations,
			fmt.Sprintf("Investigate %d correlated errors", report.ErrorsFound))
	}

	return recommendations
}

// ErrorPatternOptions filters the error pattern analysis.
type ErrorPatternOptions struct {
	TimeRange    string
	ServiceName  string
	ErrorType    string
	MinFrequency int
}

// TimelineBucket is one hourly bucket of an error timeline.
type TimelineBucket struct {
	Timestamp string `json:"timestamp"`
	Count     int    `json:"count"`
}

// ErrorExample is a recent occurrence of an error pattern.
type ErrorExample struct {
	Message     string `json:"message"`
	Service     string `json:"service"`
	TraceID     string `json:"trace_id"`
	Transaction string `json:"transaction"`
	Timestamp   string `json:"timestamp"`
}

// ErrorPattern is one aggregated error group.
type ErrorPattern struct {
	ErrorType            string           `json:"error_type"`
	Frequency            int              `json:"frequency"`
	AffectedServices     []string         `json:"affected_services"`
	AffectedTransactions []string         `json:"affected_transactions"`
	Trend                string           `json:"trend"`
	Timeline             []TimelineBucket `json:"timeline"`
	RecentExamples       []ErrorExample   `json:"recent_examples"`
}

// ErrorPatternReport is the result of find_error_patterns.
type ErrorPatternReport struct {
	TimeRange       string         `json:"time_range"`
	ServiceName     string         `json:"service_name,omitempty"`
	ErrorType       string         `json:"error_type,omitempty"`
	MinFrequency    int            `json:"min_frequency"`
	Patterns        []ErrorPattern `json:"error_patterns"`
	Recommendations []string       `json:"recommendations"`
}

// FindErrorPatterns aggregates APM errors into patterns with trend and spike
// analysis for root cause triage.
func (c *Client) FindErrorPatterns(ctx context.Context, options ErrorPatternOptions) (*ErrorPatternReport, error) {
	if options.TimeRange == "" {
		options.TimeRange = "now-24h"
	}
	if options.MinFrequency < 1 {
		options.MinFrequency = 1
	}

	report := &ErrorPatternReport{
		TimeRange:    options.TimeRange,
		ServiceName:  options.ServiceName,
		ErrorType:    options.ErrorType,
		MinFrequency: options.MinFrequency,
		Patterns:     []ErrorPattern{},
	}

	filters := []interface{}{
		map[string]interface{}{
			"range": map[string]interface{}{
				"@timestamp": map[string]interface{}{"gte": options.TimeRange},
			},
		},
	}
	if options.ServiceName != "" {
		filters = append(filters, termQuery("service.name", options.ServiceName))
	}
	if options.ErrorType != "" {
		filters = append(filters, termQuery("error.exception.type", options.ErrorType))
	}

	result := c.searchQuiet(ctx, apmErrorsIndex, map[string]interface{}{
		"size":  0,
		"query": map[string]interface{}{"bool": map[string]interface{}{"must": filters}},
		"aggs": map[string]interface{}{
			"error_types": map[string]interface{}{
				"terms": map[string]interface{}{
					"field":         "error.exception.type",
					"size":          10,
					"min_doc_count": options.MinFrequency,
				},
				"aggs": map[string]interface{}{
					"services": map[string]interface{}{
						"terms": map[string]interface{}{"field": "service.name", "size": 5},
					},
					"transactions": map[string]interface{}{
						"terms": map[string]interface{}{"field": "transaction.name", "size": 5},
					},
					"timeline": map[string]interface{}{
						"date_histogram": map[string]interface{}{
							"field":          "@timestamp",
							"fixed_interval": "1h",
						},
					},
					"recent_errors": map[string]interface{}{
						"top_hits": map[string]interface{}{
							"size": 3,
							"_source": []string{
								"error.exception.message", "service.name",
								"@timestamp", "trace.id", "transaction.name",
							},
							"sort": []interface{}{map[string]interface{}{"@timestamp": map[string]interface{}{"order": "desc"}}},
						},
					},
				},
			},
		},
	})

	for _, bucket := range aggBuckets(result, "error_types") {
		pattern := ErrorPattern{
			ErrorType:            bucketKey(bucket, "Unknown"),
			Frequency:            int(nestedFloat(bucket, "doc_count")),
			AffectedServices:     bucketKeys(bucket, "services"),
			AffectedTransactions: bucketKeys(bucket, "transactions"),
			Timeline:             []TimelineBucket{},
			RecentExamples:       []ErrorExample{},
		}

		for _, tb := range subBuckets(bucket, "timeline") {
			count := int(nestedFloat(tb, "doc_count"))
			if count > 0 {
				pattern.Timeline = append(pattern.Timeline, TimelineBucket{
					Timestamp: nestedString(tb, "", "key_as_string"),
					Count:     count,
				})
			}
		}
		pattern.Trend = classifyTrend(pattern.Timeline)

		recent, _ := nested(bucket, "recent_errors", "hits", "hits").([]interface{})
		for _, raw := range recent {
			hit, _ := raw.(map[string]interface{})
			src, _ := hit["_source"].(map[string]interface{})
			if src == nil {
				continue
			}
			message := "N/A"
			if exceptions, _ := nested(src, "error", "exception").([]interface{}); len(exceptions) > 0 {
				if first, ok := exceptions[0].(map[string]interface{}); ok {
					message = nestedString(first, "N/A", "message")
				}
			}
			pattern.RecentExamples = append(pattern.RecentExamples, ErrorExample{
				Message:     truncate(message, 100),
				Service:     nestedString(src, "N/A", "service", "name"),
				TraceID:     nestedString(src, "N/A", "trace", "id"),
				Transaction: nestedString(src, "N/A", "transaction", "name"),
				Timestamp:   nestedString(src, "N/A", "@timestamp"),
			})
		}

		report.Patterns = append(report.Patterns, pattern)
	}

	report.Recommendations = errorPatternRecommendations(report.Patterns, options.MinFrequency)
	return report, nil
}

// classifyTrend compares the last two timeline buckets against the rest.
func classifyTrend(timeline []TimelineBucket) string {
	if len(timeline) < 2 {
		return "stable"
	}

	var recent, older int
	for i, bucket := range timeline {
		if i >= len(timeline)-2 {
			recent += bucket.Count
		} else {
			older += bucket.Count
		}
	}

	switch {
	case float64(recent) > float64(older)*1.5:
		return "increasing"
	case float64(recent) < float64(older)*0.5:
		return "decreasing"
	default:
		return "stable"
	}
}

func errorPatternRecommendations(patterns []ErrorPattern, minFrequency int) []string {
	recommendations := []string{}

	for _, pattern := range patterns {
		switch {
		case pattern.Frequency > minFrequency*5:
			recommendations = append(recommendations,
				fmt.Sprintf("High frequency of %s: %d occurrences - critical priority", pattern.ErrorType, pattern.Frequency))
		case pattern.Frequency > minFrequency*2:
			recommendations = append(recommendations,
				fmt.Sprintf("Elevated frequency of %s: %d occurrences - high priority", pattern.ErrorType, pattern.Frequency))
		}

		if len(pattern.AffectedServices) > 3 {
			recommendations = append(recommendations,
				fmt.Sprintf("%s affects multiple services - possible systemic problem", pattern.ErrorType))
		}

		if pattern.Trend == "increasing" {
			recommendations = append(recommendations,
				fmt.Sprintf("Increasing trend for %s - investigate the root cause", pattern.ErrorType))
		}

		if pattern.ErrorType == "ConnectionError" {
			for _, example := range pattern.RecentExamples {
				if containsLocalhost(example.Message) {
					recommendations = append(recommendations,
						"ConnectionError against localhost detected - check local services and ports")
					break
				}
			}
		}

		if len(pattern.Timeline) > 0 {
			var max, sum int
			for _, bucket := range pattern.Timeline {
				sum += bucket.Count
				if bucket.Count > max {
					max = bucket.Count
				}
			}
			avg := float64(sum) / float64(len(pattern.Timeline))
			if float64(max) > avg*3 {
				recommendations = append(recommendations,
					fmt.Sprintf("Temporal spike detected for %s - investigate the triggering event", pattern.ErrorType))
			}
		}
	}

	return recommendations
}

// CorrelatedEvent is an APM hit matched to a correlation identifier.
type CorrelatedEvent struct {
	Source       string  `json:"source"`
	FieldMatched string  `json:"field_matched"`
	TraceID      string  `json:"trace_id"`
	SpanID       string  `json:"span_id"`
	Service      string  `json:"service"`
	Transaction  string  `json:"transaction"`
	SpanName     string  `json:"span_name"`
	DurationMs   float64 `json:"duration_ms"`
	Timestamp    string  `json:"timestamp"`
}

// BusinessLog is a business log line matched to a correlation identifier.
type BusinessLog struct {
	Source       string `json:"source"`
	IndexPattern string `json:"index_pattern"`
	Message      string `json:"message"`
	Host         string `json:"host"`
	Service      string `json:"service"`
	Level        string `json:"level"`
	Timestamp    string `json:"timestamp"`
}

// TimelineEvent is one entry of the merged correlation timeline.
type TimelineEvent struct {
	Timestamp   string `json:"timestamp"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// CorrelationReport is the result of correlate_business_events.
type CorrelationReport struct {
	CorrelationID     string            `json:"correlation_id"`
	TimeWindow        string            `json:"time_window"`
	APMEvents         []CorrelatedEvent `json:"apm_events"`
	BusinessLogs      []BusinessLog     `json:"business_logs"`
	Timeline          []TimelineEvent   `json:"timeline"`
	UserJourney       []string          `json:"user_journey,omitempty"`
	CorrelationsFound int               `json:"correlations_found"`
	IssuesDetected    []string          `json:"issues_detected"`
}

// CorrelateBusinessEvents looks up a correlation identifier across APM traces
// and business log indices and merges the matches into a single timeline.
// All queries are bounded to now-timeWindow.
func (c *Client) CorrelateBusinessEvents(ctx context.Context, correlationID, timeWindow string, includeUserJourney bool) (*CorrelationReport, error) {
	if correlationID == "" {
		return nil, fmt.Errorf("correlation_id is required")
	}
	if timeWindow == "" {
		timeWindow = "30m"
	}
	if _, err := model.ParseDuration(timeWindow); err != nil {
		return nil, fmt.Errorf("invalid time_window %q: %w", timeWindow, err)
	}

	report := &CorrelationReport{
		CorrelationID: correlationID,
		TimeWindow:    timeWindow,
		APMEvents:     []CorrelatedEvent{},
		BusinessLogs:  []BusinessLog{},
		Timeline:      []TimelineEvent{},
	}

	windowFilter := map[string]interface{}{
		"range": map[string]interface{}{
			"@timestamp": map[string]interface{}{"gte": "now-" + timeWindow},
		},
	}

	// Probe the candidate identifier fields; the first one with hits wins.
	for _, field := range correlationFields {
		apmResult := c.searchQuiet(ctx, tracesIndex, map[string]interface{}{
			"size": 50,
			"query": map[string]interface{}{
				"bool": map[string]interface{}{
					"must": []interface{}{termQuery(field, correlationID), windowFilter},
				},
			},
			"_source": []string{
				"trace.id", "span.id", "service.name", "transaction.name",
				"span.name", "span.duration.us", "@timestamp",
			},
			"sort": []interface{}{map[string]interface{}{"@timestamp": map[string]interface{}{"order": "asc"}}},
		})

		sources := hitSources(apmResult)
		if len(sources) == 0 {
			continue
		}
		for _, src := range sources {
			report.APMEvents = append(report.APMEvents, CorrelatedEvent{
				Source:       "APM",
				FieldMatched: field,
				TraceID:      nestedString(src, "N/A", "trace", "id"),
				SpanID:       nestedString(src, "N/A", "span", "id"),
				Service:      nestedString(src, "N/A", "service", "name"),
				Transaction:  nestedString(src, "N/A", "transaction", "name"),
				SpanName:     nestedString(src, "N/A", "span", "name"),
				DurationMs:   nestedFloat(src, "span", "duration", "us") / 1000,
				Timestamp:    nestedString(src, "N/A", "@timestamp"),
			})
		}
		break
	}

	// Business logs may carry the identifier in structured fields or in the
	// free-form message.
	for _, pattern := range businessLogPatterns {
		logResult := c.searchQuiet(ctx, pattern, map[string]interface{}{
			"size": 50,
			"query": map[string]interface{}{
				"bool": map[string]interface{}{
					"must": []interface{}{windowFilter},
					"should": []interface{}{
						map[string]interface{}{"match": map[string]interface{}{"message": correlationID}},
						termQuery("correlation_id", correlationID),
						termQuery("request_id", correlationID),
						termQuery("transaction_id", correlationID),
						termQuery("trace.id", correlationID),
					},
					"minimum_should_match": 1,
				},
			},
			"_source": []string{"message", "host.name", "service.name", "@timestamp", "log.level"},
			"sort":    []interface{}{map[string]interface{}{"@timestamp": map[string]interface{}{"order": "asc"}}},
		})

		for _, src := range hitSources(logResult) {
			report.BusinessLogs = append(report.BusinessLogs, BusinessLog{
				Source:       "Business Log",
				IndexPattern: pattern,
				Message:      truncate(nestedString(src, "N/A", "message"), 200),
				Host:         nestedString(src, "N/A", "host", "name"),
				Service:      nestedString(src, "N/A", "service", "name"),
				Level:        nestedString(src, "N/A", "log", "level"),
				Timestamp:    nestedString(src, "N/A", "@timestamp"),
			})
		}
	}

	for _, event := range report.APMEvents {
		report.Timeline = append(report.Timeline, TimelineEvent{
			Timestamp:   event.Timestamp,
			Type:        "APM",
			Description: fmt.Sprintf("%s.%s (%.1fms)", event.Service, event.Transaction, event.DurationMs),
		})
	}
	for _, log := range report.BusinessLogs {
		report.Timeline = append(report.Timeline, TimelineEvent{
			Timestamp:   log.Timestamp,
			Type:        "Log",
			Description: fmt.Sprintf("%s: %s", log.Host, truncate(log.Message, 50)),
		})
	}
	sort.SliceStable(report.Timeline, func(i, j int) bool {
		return report.Timeline[i].Timestamp < report.Timeline[j].Timestamp
	})

	if includeUserJourney {
		journey := make([]string, 0, len(report.Timeline))
		for i, event := range report.Timeline {
			journey = append(journey, fmt.Sprintf("%d. [%s] %s %s", i+1, event.Type, event.Timestamp, event.Description))
		}
		report.UserJourney = journey
	}

	report.CorrelationsFound = len(report.APMEvents) + len(report.BusinessLogs)
	report.IssuesDetected = correlationIssues(report)

	return report, nil
}

func correlationIssues(report *CorrelationReport) []string {
	issues := []string{}

	switch {
	case len(report.APMEvents) > 0 && len(report.BusinessLogs) > 0:
		issues = append(issues, "Correlation established between APM and business logs")
	case len(report.APMEvents) > 0:
		issues = append(issues, "Only APM data found - check business log shipping")
	case len(report.BusinessLogs) > 0:
		issues = append(issues, "Only business logs found - check APM instrumentation")
	default:
		issues = append(issues, "No correlations found - verify the correlation_id")
	}

	// Large temporal gaps point at slow journeys, tight ones at healthy flows.
	var timestamps []time.Time
	for _, event := range report.Timeline {
		if ts, err := parseTimestamp(event.Timestamp); err == nil {
			timestamps = append(timestamps, ts)
		}
	}
	if len(timestamps) > 1 {
		span := timestamps[len(timestamps)-1].Sub(timestamps[0])
		if span > 5*time.Minute {
			issues = append(issues,
				fmt.Sprintf("Long journey detected: %.1f minutes - possible performance problem", span.Minutes()))
		} else if span < time.Second {
			issues = append(issues,
				fmt.Sprintf("Very fast journey: %.2f seconds - efficient flow", span.Seconds()))
		}
	}

	return issues
}

// searchQuiet runs a search and swallows the error, returning nil on
// failure. The composite tools degrade to partial reports when a sub-query
// fails or finds nothing.
func (c *Client) searchQuiet(ctx context.Context, index string, body map[string]interface{}) map[string]interface{} {
	result, err := c.searchBody(ctx, index, body)
	if err != nil {
		c.logger.Warn("Sub-query failed", "index", index, "error", err)
		return nil
	}
	return result
}

func termQuery(field, value string) map[string]interface{} {
	return map[string]interface{}{"term": map[string]interface{}{field: value}}
}

// hitSources extracts the _source documents from a search result.
func hitSources(result map[string]interface{}) []map[string]interface{} {
	raw, _ := nested(result, "hits", "hits").([]interface{})
	sources := make([]map[string]interface{}, 0, len(raw))
	for _, entry := range raw {
		hit, _ := entry.(map[string]interface{})
		if src, ok := hit["_source"].(map[string]interface{}); ok {
			sources = append(sources, src)
		}
	}
	return sources
}

func totalHits(result map[string]interface{}) int {
	return int(nestedFloat(result, "hits", "total", "value"))
}

func aggBuckets(result map[string]interface{}, name string) []map[string]interface{} {
	raw, _ := nested(result, "aggregations", name, "buckets").([]interface{})
	buckets := make([]map[string]interface{}, 0, len(raw))
	for _, entry := range raw {
		if bucket, ok := entry.(map[string]interface{}); ok {
			buckets = append(buckets, bucket)
		}
	}
	return buckets
}

func subBuckets(bucket map[string]interface{}, name string) []map[string]interface{} {
	raw, _ := nested(bucket, name, "buckets").([]interface{})
	buckets := make([]map[string]interface{}, 0, len(raw))
	for _, entry := range raw {
		if sub, ok := entry.(map[string]interface{}); ok {
			buckets = append(buckets, sub)
		}
	}
	return buckets
}

func bucketKey(bucket map[string]interface{}, fallback string) string {
	if key, ok := bucket["key"].(string); ok && key != "" {
		return key
	}
	return fallback
}

func bucketKeys(bucket map[string]interface{}, name string) []string {
	keys := []string{}
	for _, sub := range subBuckets(bucket, name) {
		if key, ok := sub["key"].(string); ok {
			keys = append(keys, key)
		}
	}
	return keys
}

// nested walks a map along keys, returning nil when any step is missing.
func nested(m map[string]interface{}, keys ...string) interface{} {
	var current interface{} = m
	for _, key := range keys {
		node, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current = node[key]
	}
	return current
}

func nestedString(m map[string]interface{}, fallback string, keys ...string) string {
	if s, ok := nested(m, keys...).(string); ok && s != "" {
		return s
	}
	return fallback
}

func nestedFloat(m map[string]interface{}, keys ...string) float64 {
	switch v := nested(m, keys...).(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func parseTimestamp(value string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	return time.Parse(time.RFC3339, value)
}

func containsLocalhost(message string) bool {
	return strings.Contains(message, "localhost")
}
