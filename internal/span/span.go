package span

import "time"

// RepoName identifies this service in every span it creates.
const RepoName = "governance-dashboard-sub004"

// Status is the lifecycle state of a span.
type Status string

const (
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// Error codes set by span finalization and handler bookkeeping.
const (
	CodeNoAgentSpans         = "NO_AGENT_SPANS"
	CodeAgentExecutionFailed = "AGENT_EXECUTION_FAILED"
	CodeAgentUnhandledError  = "AGENT_UNHANDLED_ERROR"
)

// SpanError describes why a span failed.
type SpanError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// SpanArtifact is an output attached to an agent span. Decision events are
// always attached this way, so every observable output is attributable to a
// specific agent execution.
type SpanArtifact struct {
	ArtifactID   string `json:"artifact_id"`
	ArtifactType string `json:"artifact_type"`
	Data         any    `json:"data"`
}

// AgentSpan records one governance-agent invocation nested inside a
// RepoSpan.
type AgentSpan struct {
	SpanID       string         `json:"span_id"`
	ParentSpanID string         `json:"parent_span_id"`
	AgentName    string         `json:"agent_name"`
	RepoName     string         `json:"repo_name"`
	Status       Status         `json:"status"`
	StartTime    time.Time      `json:"start_time"`
	EndTime      *time.Time     `json:"end_time,omitempty"`
	Artifacts    []SpanArtifact `json:"artifacts"`
	Error        *SpanError     `json:"error,omitempty"`
}

// RepoSpan is the top-level trace unit for one inbound execution. It owns
// its agent spans exclusively; they never outlive it.
type RepoSpan struct {
	SpanID       string      `json:"span_id"`
	ParentSpanID string      `json:"parent_span_id"`
	ExecutionID  string      `json:"execution_id"`
	RepoName     string      `json:"repo_name"`
	Status       Status      `json:"status"`
	StartTime    time.Time   `json:"start_time"`
	EndTime      *time.Time  `json:"end_time,omitempty"`
	AgentSpans   []AgentSpan `json:"agent_spans"`
	Error        *SpanError  `json:"error,omitempty"`
}
