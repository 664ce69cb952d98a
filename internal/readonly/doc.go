// Package readonly implements the read-only security filter for the MCP
// observability servers.
//
// The filter is a verb/endpoint allow-list: destructive verbs (PUT, PATCH,
// DELETE) are always denied, GET is limited to enumerated read endpoints,
// and POST is limited to search operations that carry their query in the
// request body. Everything else is denied by default.
//
// The policy is enforced as an http.RoundTripper (Guard) installed on the
// vendor API client's transport, so a denied operation fails before any
// bytes reach the vendor API.
package readonly
