package readonly

import (
	"fmt"
	"net/http"
	"regexp"
)

// Policy is a verb/endpoint allow-list. Requests are denied unless their
// method carries an allow-list and the request path matches one of its
// patterns. Mutating verbs never carry an allow-list, so they are always
// denied.
type Policy struct {
	name    string
	allowed map[string][]*regexp.Regexp
}

// Name returns the policy name used in error messages.
func (p *Policy) Name() string {
	return p.name
}

// Allow reports whether the method/path pair is permitted by the policy.
func (p *Policy) Allow(method, path string) bool {
	patterns, ok := p.allowed[method]
	if !ok {
		return false
	}
	for _, pattern := range patterns {
		if pattern.MatchString(path) {
			return true
		}
	}
	return false
}

func compileAll(exprs []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(exprs))
	for i, expr := range exprs {
		patterns[i] = regexp.MustCompile(expr)
	}
	return patterns
}

// elasticsearchGetEndpoints lists read-only GET endpoints exposed for search
// and cluster introspection workflows.
var elasticsearchGetEndpoints = []string{
	// Search and query operations
	`^/_search$`,
	`^/[^_][^/]*/_search$`,
	`^/_count$`,
	`^/[^_][^/]*/_count$`,
	`^/_field_caps$`,
	`^/[^_][^/]*/_field_caps$`,
	`^/_validate/query$`,
	`^/[^_][^/]*/_validate/query$`,

	// Cluster and node information
	`^/$`,
	`^/_cluster/health$`,
	`^/_cluster/state$`,
	`^/_cluster/stats$`,
	`^/_cluster/settings$`,
	`^/_cluster/pending_tasks$`,
	`^/_nodes$`,
	`^/_nodes/.*$`,
	`^/_cat/.*$`,

	// Index metadata (read-only)
	`^/[^_][^/]*$`,
	`^/[^_][^/]*/_mapping$`,
	`^/[^_][^/]*/_settings$`,
	`^/[^_][^/]*/_stats$`,
	`^/[^_][^/]*/_recovery$`,
	`^/[^_][^/]*/_segments$`,

	// Templates and aliases (read-only)
	`^/_template(/.*)?$`,
	`^/_index_template(/.*)?$`,
	`^/_component_template(/.*)?$`,
	`^/_alias(/.*)?$`,
	`^/[^_][^/]*/_alias(/.*)?$`,

	// Licensing and feature info
	`^/_xpack$`,
	`^/_license$`,

	// Ingest pipelines and stored scripts (read-only)
	`^/_ingest/pipeline(/.*)?$`,
	`^/_scripts(/.*)?$`,

	// Snapshot and repository info (read-only)
	`^/_snapshot(/.*)?$`,
}

// elasticsearchPostEndpoints lists POST endpoints that are read-only queries
// carried in a request body.
var elasticsearchPostEndpoints = []string{
	`^/_search$`,
	`^/[^_][^/]*/_search$`,
	`^/_msearch$`,
	`^/[^_][^/]*/_msearch$`,
	`^/_count$`,
	`^/[^_][^/]*/_count$`,
	`^/_field_caps$`,
	`^/[^_][^/]*/_field_caps$`,
	`^/_validate/query$`,
	`^/[^_][^/]*/_validate/query$`,
	`^/_mget$`,
	`^/[^_][^/]*/_mget$`,
	`^/_sql$`,
	`^/_sql/translate$`,
	`^/_eql/search$`,
	`^/[^_][^/]*/_eql/search$`,
	`^/_render/template$`,
}

// datadogGetEndpoints lists read-only Datadog API endpoints for observability
// workflows.
var datadogGetEndpoints = []string{
	// Metrics and time-series data
	`^/api/v1/query$`,
	`^/api/v1/metrics(/.*)?$`,
	`^/api/v2/metrics(/.*)?$`,
	`^/api/v2/query/.*$`,

	// Dashboards and notebooks
	`^/api/v1/dashboard(/.*)?$`,
	`^/api/v2/dashboards(/.*)?$`,
	`^/api/v1/notebooks(/.*)?$`,

	// Monitoring and alerts
	`^/api/v1/monitor(/.*)?$`,
	`^/api/v2/monitor(/.*)?$`,
	`^/api/v1/downtime(/.*)?$`,
	`^/api/v1/slo(/.*)?$`,
	`^/api/v2/slos(/.*)?$`,

	// Logs and events (GET listings)
	`^/api/v2/logs/events$`,
	`^/api/v2/logs/config(/.*)?$`,
	`^/api/v1/events(/.*)?$`,
	`^/api/v2/events$`,

	// APM and traces
	`^/api/v2/apm/.*$`,
	`^/api/v2/spans/.*$`,

	// Infrastructure
	`^/api/v1/hosts(/.*)?$`,
	`^/api/v1/tags(/.*)?$`,
	`^/api/v2/usage(/.*)?$`,

	// Service catalog and incidents
	`^/api/v2/services(/.*)?$`,
	`^/api/v2/incidents(/.*)?$`,

	// Teams and organization (read-only)
	`^/api/v2/users(/.*)?$`,
	`^/api/v2/roles(/.*)?$`,
	`^/api/v2/teams(/.*)?$`,

	// Key listings (no create/delete)
	`^/api/v2/api_keys$`,
	`^/api/v2/application_keys$`,

	// Connectivity check
	`^/api/v1/validate$`,
}

// datadogPostEndpoints lists Datadog search APIs that are read-only queries
// carried in a POST body.
var datadogPostEndpoints = []string{
	`^/api/v2/logs/events/search$`,
	`^/api/v2/spans/events/search$`,
	`^/api/v2/events/search$`,
	`^/api/v2/rum/events/search$`,
}

// NewElasticsearchPolicy returns the read-only policy for the Elasticsearch
// API surface: GET on the enumerated read endpoints plus POST restricted to
// search-shaped operations. Everything else is denied.
func NewElasticsearchPolicy() *Policy {
	return &Policy{
		name: "elasticsearch-readonly",
		allowed: map[string][]*regexp.Regexp{
			http.MethodGet:  compileAll(elasticsearchGetEndpoints),
			http.MethodPost: compileAll(elasticsearchPostEndpoints),
		},
	}
}

// NewDatadogPolicy returns the read-only policy for the Datadog API surface.
func NewDatadogPolicy() *Policy {
	return &Policy{
		name: "datadog-readonly",
		allowed: map[string][]*regexp.Regexp{
			http.MethodGet:  compileAll(datadogGetEndpoints),
			http.MethodPost: compileAll(datadogPostEndpoints),
		},
	}
}

// Guard is an http.RoundTripper that rejects requests denied by the policy
// before they leave the process.
type Guard struct {
	policy *Policy
	next   http.RoundTripper
}

// NewGuard wraps next with the policy. A nil next falls back to
// http.DefaultTransport.
func NewGuard(policy *Policy, next http.RoundTripper) *Guard {
	if next == nil {
		next = http.DefaultTransport
	}
	return &Guard{policy: policy, next: next}
}

// RoundTrip implements http.RoundTripper.
func (g *Guard) RoundTrip(req *http.Request) (*http.Response, error) {
	if !g.policy.Allow(req.Method, req.URL.Path) {
		return nil, fmt.Errorf("%s: operation %s %s is not permitted by the read-only filter",
			g.policy.Name(), req.Method, req.URL.Path)
	}
	return g.next.RoundTrip(req)
}
