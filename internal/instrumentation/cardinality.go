package instrumentation

// Cardinality management for the HTTP metrics path label. Paths are recorded
// by route template, never by raw URL, because task and event IDs would
// otherwise create one series per resource.

// RouteUnmatched labels requests that matched no API route (static files,
// SPA fallback, probes from scanners).
const RouteUnmatched = "unmatched"

// RouteLabel returns the label to record for a request. An empty template
// means the router matched nothing.
//
// Example:
//
//	RouteLabel("/api/tasks/{task_id}")  // "/api/tasks/{task_id}"
//	RouteLabel("")                      // "unmatched"
func RouteLabel(template string) string {
	if template == "" {
		return RouteUnmatched
	}
	return template
}

// Operation types for Google API metrics.
// Status, OAuth, and Service constants are defined in config.go.
const (
	OperationList       = "list"
	OperationGet        = "get"
	OperationCreate     = "create"
	OperationUpdate     = "update"
	OperationDelete     = "delete"
	OperationComplete   = "complete"
	OperationUncomplete = "uncomplete"
	OperationQuickAdd   = "quick_add"
)
