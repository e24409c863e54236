// Package span implements the execution trace model: a repo span wrapping
// one inbound execution, agent spans nested inside it, and the artifacts
// each agent produced. Every agent invocation runs inside this hierarchy;
// finalization fails closed when the hierarchy is empty or broken.
package span

import "net/http"

// Header names carrying execution context on inbound requests.
const (
	HeaderParentSpanID  = "x-parent-span-id"
	HeaderExecutionID   = "x-execution-id"
	HeaderRequestID     = "x-request-id"
	HeaderCallerService = "x-caller-service"
	HeaderCallerVersion = "x-caller-version"
)

// ExecutionContext is the caller-established trace reference every
// execution must carry. This service never fabricates a parent-less span;
// an execution without a caller span reference would orphan the audit
// trail, so extraction rejects instead of defaulting.
type ExecutionContext struct {
	ExecutionID  string
	ParentSpanID string
}

// ExtractExecutionContext reads the execution context from inbound request
// headers. The parent span id is mandatory. The execution id comes from
// x-execution-id, falling back to x-request-id. Returns false when either
// is missing.
func ExtractExecutionContext(headers http.Header) (ExecutionContext, bool) {
	parentSpanID := firstHeaderValue(headers, HeaderParentSpanID)
	if parentSpanID == "" {
		return ExecutionContext{}, false
	}

	executionID := firstHeaderValue(headers, HeaderExecutionID)
	if executionID == "" {
		executionID = firstHeaderValue(headers, HeaderRequestID)
	}
	if executionID == "" {
		return ExecutionContext{}, false
	}

	return ExecutionContext{
		ExecutionID:  executionID,
		ParentSpanID: parentSpanID,
	}, true
}

func firstHeaderValue(headers http.Header, name string) string {
	values := headers.Values(name)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
