package span

import (
	"errors"
	"fmt"
	"strings"

	"github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/ids"
)

// ErrNotRunning is returned when a terminal transition is attempted on a
// span that is not RUNNING.
var ErrNotRunning = errors.New("span is not running")

// NewRepoSpan creates the top-level span for one execution. The execution
// context has already been validated by extraction.
func NewRepoSpan(execCtx ExecutionContext) *RepoSpan {
	return &RepoSpan{
		SpanID:       ids.NewID(),
		ParentSpanID: execCtx.ParentSpanID,
		ExecutionID:  execCtx.ExecutionID,
		RepoName:     RepoName,
		Status:       StatusRunning,
		StartTime:    ids.NowUTC(),
		AgentSpans:   []AgentSpan{},
	}
}

// NewAgentSpan creates an agent span nested under repo. The parent span id
// is always the repo span's own id, never caller-supplied.
func NewAgentSpan(repo *RepoSpan, agentName string) *AgentSpan {
	return &AgentSpan{
		SpanID:       ids.NewID(),
		ParentSpanID: repo.SpanID,
		AgentName:    agentName,
		RepoName:     RepoName,
		Status:       StatusRunning,
		StartTime:    ids.NowUTC(),
		Artifacts:    []SpanArtifact{},
	}
}

// AttachArtifact appends an artifact with a fresh id to the agent span.
// Artifacts attach only to agent spans, never to repo spans.
func AttachArtifact(agent *AgentSpan, artifactType string, data any) {
	agent.Artifacts = append(agent.Artifacts, SpanArtifact{
		ArtifactID:   ids.NewID(),
		ArtifactType: artifactType,
		Data:         data,
	})
}

// CompleteAgentSpan moves the agent span from RUNNING to COMPLETED.
func CompleteAgentSpan(agent *AgentSpan) error {
	if agent.Status != StatusRunning {
		return fmt.Errorf("complete agent span %s: %w", agent.SpanID, ErrNotRunning)
	}
	now := ids.NowUTC()
	agent.Status = StatusCompleted
	agent.EndTime = &now
	return nil
}

// FailAgentSpan moves the agent span from RUNNING to FAILED with the given
// error.
func FailAgentSpan(agent *AgentSpan, spanErr SpanError) error {
	if agent.Status != StatusRunning {
		return fmt.Errorf("fail agent span %s: %w", agent.SpanID, ErrNotRunning)
	}
	now := ids.NowUTC()
	agent.Status = StatusFailed
	agent.EndTime = &now
	agent.Error = &spanErr
	return nil
}

// FinalizeRepoSpan closes the repo span, deriving its terminal status from
// the agent spans it contains. A repo span never reports success while
// containing zero or failed agent work: zero agent spans is a structural
// violation, and any failed agent span forces the whole execution FAILED.
func FinalizeRepoSpan(repo *RepoSpan) {
	now := ids.NowUTC()
	repo.EndTime = &now

	if len(repo.AgentSpans) == 0 {
		repo.Status = StatusFailed
		repo.Error = &SpanError{
			Code:    CodeNoAgentSpans,
			Message: "Execution completed without any agent spans. This is forbidden.",
		}
		return
	}

	var failed []string
	for _, agent := range repo.AgentSpans {
		if agent.Status == StatusFailed {
			failed = append(failed, agent.AgentName)
		}
	}
	if len(failed) > 0 {
		repo.Status = StatusFailed
		repo.Error = &SpanError{
			Code:    CodeAgentExecutionFailed,
			Message: "Agent(s) failed: " + strings.Join(failed, ", "),
		}
		return
	}

	repo.Status = StatusCompleted
	repo.Error = nil
}
