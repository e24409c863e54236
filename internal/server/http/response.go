package http

import (
	"github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/span"
)

// ErrorBody is the structured error carried by rejection responses.
type ErrorBody struct {
	Code            string   `json:"code"`
	Message         string   `json:"message"`
	RequiredHeaders []string `json:"required_headers,omitempty"`
}

// ErrorResponse wraps an ErrorBody for responses that never opened a span.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ExecutionResult is the agent outcome inside the execution envelope.
type ExecutionResult struct {
	Success         bool            `json:"success"`
	DecisionEventID string          `json:"decision_event_id,omitempty"`
	Output          any             `json:"output,omitempty"`
	Error           *span.SpanError `json:"error,omitempty"`
}

// ExecutionEnvelope is returned for every agent-execution request that got
// past context extraction, success or failure alike. The repo span is the
// audit record of what ran, independent of HTTP status.
type ExecutionEnvelope struct {
	ExecutionID string           `json:"execution_id"`
	RepoSpan    *span.RepoSpan   `json:"repo_span"`
	Result      *ExecutionResult `json:"result,omitempty"`
}

func missingContextResponse() ErrorResponse {
	return ErrorResponse{Error: ErrorBody{
		Code:            "MISSING_EXECUTION_CONTEXT",
		Message:         "Execution context headers are required: x-parent-span-id plus x-execution-id or x-request-id.",
		RequiredHeaders: []string{span.HeaderExecutionID, span.HeaderParentSpanID},
	}}
}
