package span

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() ExecutionContext {
	return ExecutionContext{ExecutionID: "exec-1", ParentSpanID: "parent-1"}
}

func TestExtractExecutionContext_MissingParentSpanID(t *testing.T) {
	cases := []http.Header{
		{},
		{"X-Execution-Id": {"exec-1"}},
		{"X-Request-Id": {"req-1"}},
		{"X-Execution-Id": {"exec-1"}, "X-Request-Id": {"req-1"}},
	}
	for _, headers := range cases {
		_, ok := ExtractExecutionContext(headers)
		assert.False(t, ok, "headers %v must be rejected", headers)
	}
}

func TestExtractExecutionContext_MissingExecutionID(t *testing.T) {
	headers := http.Header{}
	headers.Set(HeaderParentSpanID, "parent-1")

	_, ok := ExtractExecutionContext(headers)
	assert.False(t, ok)
}

func TestExtractExecutionContext_PrefersExecutionID(t *testing.T) {
	headers := http.Header{}
	headers.Set(HeaderParentSpanID, "parent-1")
	headers.Set(HeaderExecutionID, "exec-1")
	headers.Set(HeaderRequestID, "req-1")

	execCtx, ok := ExtractExecutionContext(headers)
	require.True(t, ok)
	assert.Equal(t, "exec-1", execCtx.ExecutionID)
	assert.Equal(t, "parent-1", execCtx.ParentSpanID)
}

func TestExtractExecutionContext_RequestIDFallback(t *testing.T) {
	headers := http.Header{}
	headers.Set(HeaderParentSpanID, "parent-1")
	headers.Set(HeaderRequestID, "req-1")

	execCtx, ok := ExtractExecutionContext(headers)
	require.True(t, ok)
	assert.Equal(t, "req-1", execCtx.ExecutionID)
}

func TestExtractExecutionContext_TakesFirstValue(t *testing.T) {
	headers := http.Header{}
	headers.Add(HeaderParentSpanID, "parent-1")
	headers.Add(HeaderParentSpanID, "parent-2")
	headers.Add(HeaderExecutionID, "exec-1")
	headers.Add(HeaderExecutionID, "exec-2")

	execCtx, ok := ExtractExecutionContext(headers)
	require.True(t, ok)
	assert.Equal(t, "parent-1", execCtx.ParentSpanID)
	assert.Equal(t, "exec-1", execCtx.ExecutionID)
}

func TestNewRepoSpan(t *testing.T) {
	repo := NewRepoSpan(testContext())

	assert.NotEmpty(t, repo.SpanID)
	assert.Equal(t, "parent-1", repo.ParentSpanID)
	assert.Equal(t, "exec-1", repo.ExecutionID)
	assert.Equal(t, RepoName, repo.RepoName)
	assert.Equal(t, StatusRunning, repo.Status)
	assert.False(t, repo.StartTime.IsZero())
	assert.Nil(t, repo.EndTime)
	assert.NotNil(t, repo.AgentSpans)
	assert.Empty(t, repo.AgentSpans)
}

func TestNewAgentSpan_ParentIsRepoSpan(t *testing.T) {
	repo := NewRepoSpan(testContext())
	agent := NewAgentSpan(repo, "governance-audit-agent")

	assert.Equal(t, repo.SpanID, agent.ParentSpanID)
	assert.Equal(t, "governance-audit-agent", agent.AgentName)
	assert.Equal(t, StatusRunning, agent.Status)
	assert.NotNil(t, agent.Artifacts)
	assert.Empty(t, agent.Artifacts)
}

func TestSpanIDsAreUnique(t *testing.T) {
	repo := NewRepoSpan(testContext())
	seen := map[string]bool{repo.SpanID: true}
	for i := 0; i < 1000; i++ {
		agent := NewAgentSpan(repo, "a")
		assert.False(t, seen[agent.SpanID])
		seen[agent.SpanID] = true
	}
	assert.Len(t, seen, 1001)
}

func TestAttachArtifact_AppendOnlyWithFreshIDs(t *testing.T) {
	repo := NewRepoSpan(testContext())
	agent := NewAgentSpan(repo, "a")

	const n = 5
	for i := 0; i < n; i++ {
		AttachArtifact(agent, "decision_event", map[string]any{"seq": i})
	}

	require.Len(t, agent.Artifacts, n)
	seen := map[string]bool{}
	for i, artifact := range agent.Artifacts {
		assert.Equal(t, "decision_event", artifact.ArtifactType)
		assert.Equal(t, map[string]any{"seq": i}, artifact.Data)
		assert.False(t, seen[artifact.ArtifactID])
		seen[artifact.ArtifactID] = true
	}
}

func TestCompleteAgentSpan(t *testing.T) {
	repo := NewRepoSpan(testContext())
	agent := NewAgentSpan(repo, "a")

	require.NoError(t, CompleteAgentSpan(agent))
	assert.Equal(t, StatusCompleted, agent.Status)
	require.NotNil(t, agent.EndTime)
	assert.Nil(t, agent.Error)

	err := CompleteAgentSpan(agent)
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestFailAgentSpan(t *testing.T) {
	repo := NewRepoSpan(testContext())
	agent := NewAgentSpan(repo, "a")

	spanErr := SpanError{Code: "X", Message: "Y", Details: map[string]any{"k": "v"}}
	require.NoError(t, FailAgentSpan(agent, spanErr))
	assert.Equal(t, StatusFailed, agent.Status)
	require.NotNil(t, agent.Error)
	assert.Equal(t, "X", agent.Error.Code)
	assert.Equal(t, "Y", agent.Error.Message)

	assert.ErrorIs(t, FailAgentSpan(agent, spanErr), ErrNotRunning)
	assert.ErrorIs(t, CompleteAgentSpan(agent), ErrNotRunning)
}

func TestFinalizeRepoSpan_NoAgentSpans(t *testing.T) {
	repo := NewRepoSpan(testContext())
	FinalizeRepoSpan(repo)

	assert.Equal(t, StatusFailed, repo.Status)
	require.NotNil(t, repo.EndTime)
	require.NotNil(t, repo.Error)
	assert.Equal(t, CodeNoAgentSpans, repo.Error.Code)
	assert.Equal(t, "Execution completed without any agent spans. This is forbidden.", repo.Error.Message)
}

func TestFinalizeRepoSpan_AllCompleted(t *testing.T) {
	repo := NewRepoSpan(testContext())
	for _, name := range []string{"a", "b", "c"} {
		agent := NewAgentSpan(repo, name)
		require.NoError(t, CompleteAgentSpan(agent))
		repo.AgentSpans = append(repo.AgentSpans, *agent)
	}

	FinalizeRepoSpan(repo)

	assert.Equal(t, StatusCompleted, repo.Status)
	assert.Nil(t, repo.Error)
	require.NotNil(t, repo.EndTime)
}

func TestFinalizeRepoSpan_FailedAgentsNamedInError(t *testing.T) {
	repo := NewRepoSpan(testContext())

	ok1 := NewAgentSpan(repo, "usage-oversight-agent")
	require.NoError(t, CompleteAgentSpan(ok1))
	failed1 := NewAgentSpan(repo, "change-impact-agent")
	require.NoError(t, FailAgentSpan(failed1, SpanError{Code: "X", Message: "boom"}))
	failed2 := NewAgentSpan(repo, "governance-audit-agent")
	require.NoError(t, FailAgentSpan(failed2, SpanError{Code: "Y", Message: "bang"}))
	repo.AgentSpans = append(repo.AgentSpans, *ok1, *failed1, *failed2)

	FinalizeRepoSpan(repo)

	assert.Equal(t, StatusFailed, repo.Status)
	require.NotNil(t, repo.Error)
	assert.Equal(t, CodeAgentExecutionFailed, repo.Error.Code)
	assert.Equal(t, "Agent(s) failed: change-impact-agent, governance-audit-agent", repo.Error.Message)
	assert.NotContains(t, repo.Error.Message, "usage-oversight-agent")
}

func TestFinalizeRepoSpan_SingleFailedAgent(t *testing.T) {
	repo := NewRepoSpan(testContext())
	agent := NewAgentSpan(repo, "change-impact-agent")
	require.NoError(t, FailAgentSpan(agent, SpanError{Code: "X", Message: "boom"}))
	repo.AgentSpans = append(repo.AgentSpans, *agent)

	FinalizeRepoSpan(repo)

	assert.Equal(t, StatusFailed, repo.Status)
	require.NotNil(t, repo.Error)
	assert.Equal(t, "Agent(s) failed: change-impact-agent", repo.Error.Message)
}
