package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/decision"
	apperrors "github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/errors"
	"github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/observability"
)

type capturingPersister struct {
	events []*decision.DecisionEvent
	err    error
}

func (c *capturingPersister) PersistDecisionEvent(_ context.Context, event *decision.DecisionEvent) error {
	if c.err != nil {
		return c.err
	}
	c.events = append(c.events, event)
	return nil
}

func testHarness(t *testing.T) (*Registry, *capturingPersister) {
	t.Helper()
	obs := observability.NewForTest()
	persister := &capturingPersister{}
	emitter := decision.NewEmitter(persister, obs, false)

	registry, err := NewRegistry(
		NewUsageOversightAgent(emitter, obs),
		NewChangeImpactAgent(emitter, obs),
		NewGovernanceAuditAgent(emitter, obs),
	)
	require.NoError(t, err)
	return registry, persister
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func TestParseName(t *testing.T) {
	for _, valid := range []string{"usage-oversight-agent", "change-impact-agent", "governance-audit-agent"} {
		name, err := ParseName(valid)
		require.NoError(t, err)
		assert.Equal(t, Name(valid), name)
	}

	_, err := ParseName("mystery-agent")
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	registry, _ := testHarness(t)

	agent, ok := registry.Get(ChangeImpact)
	require.True(t, ok)
	assert.Equal(t, ChangeImpact, agent.Name())

	_, ok = registry.Get(Name("unknown"))
	assert.False(t, ok)

	list := registry.List()
	require.Len(t, list, 3)
	assert.Equal(t, ChangeImpact, list[0].Name())
	assert.Equal(t, GovernanceAudit, list[1].Name())
	assert.Equal(t, UsageOversight, list[2].Name())
}

func TestNewRegistry_RejectsDuplicates(t *testing.T) {
	obs := observability.NewForTest()
	emitter := decision.NewEmitter(nil, obs, true)

	_, err := NewRegistry(
		NewChangeImpactAgent(emitter, obs),
		NewChangeImpactAgent(emitter, obs),
	)
	assert.ErrorContains(t, err, "duplicate")
}

func TestChangeImpactAgent_Execute(t *testing.T) {
	registry, persister := testHarness(t)
	agent, _ := registry.Get(ChangeImpact)

	payload := mustJSON(t, ChangeImpactRequest{
		OrganizationID: "org-1",
		ChangeRequest: ChangeRequest{
			ChangeID:    "chg-1",
			ChangeType:  "policy_modify",
			SubjectType: "policy",
			SubjectID:   "pol-99",
			Description: "tighten rate limits",
			Initiator:   "user-1",
		},
	})

	result, err := agent.Execute(t.Context(), Input{ExecutionRef: "exec-1", Payload: payload})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.NotNil(t, result.DecisionEvent)

	assert.Equal(t, decision.TypeChangeImpactAssessment, result.DecisionEvent.DecisionType)
	assert.Equal(t, "exec-1", result.DecisionEvent.ExecutionRef)
	assert.Equal(t, "org-1", result.DecisionEvent.Constraints.OrganizationID)
	assert.NoError(t, result.DecisionEvent.Validate())
	require.Len(t, persister.events, 1)

	assessment, ok := result.Output.(ChangeImpactAssessment)
	require.True(t, ok)
	assert.Equal(t, "chg-1", assessment.ChangeRequestID)
	assert.NotEmpty(t, assessment.Impacts)
	assert.NotEmpty(t, assessment.Recommendations)
	assert.GreaterOrEqual(t, assessment.RiskScore, 0.0)
	assert.LessOrEqual(t, assessment.RiskScore, 1.0)
}

func TestChangeImpactAgent_InvalidChangeType(t *testing.T) {
	registry, persister := testHarness(t)
	agent, _ := registry.Get(ChangeImpact)

	payload := mustJSON(t, ChangeImpactRequest{
		OrganizationID: "org-1",
		ChangeRequest: ChangeRequest{
			ChangeID:    "chg-1",
			ChangeType:  "explode",
			SubjectType: "policy",
			SubjectID:   "pol-1",
		},
	})

	result, err := agent.Execute(t.Context(), Input{ExecutionRef: "exec-1", Payload: payload})
	require.NoError(t, err)
	assert.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, "INVALID_AGENT_INPUT", result.Error.Code)
	assert.Contains(t, result.Error.Message, "explode")
	assert.Empty(t, persister.events)
}

func TestChangeImpactAgent_MalformedPayload(t *testing.T) {
	registry, _ := testHarness(t)
	agent, _ := registry.Get(ChangeImpact)

	result, err := agent.Execute(t.Context(), Input{ExecutionRef: "exec-1", Payload: []byte("{not json")})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "INVALID_AGENT_INPUT", result.Error.Code)
}

func TestGovernanceAuditAgent_Execute(t *testing.T) {
	registry, persister := testHarness(t)
	agent, _ := registry.Get(GovernanceAudit)

	now := time.Now().UTC()
	events := make([]AuditEvent, 0, 10)
	for i := 0; i < 10; i++ {
		events = append(events, AuditEvent{
			EventID:      fmt.Sprintf("evt-%d", i),
			ResourceType: "policy",
			Action:       "update",
			Actor:        "user-1",
			Violation:    i < 2,
			Timestamp:    now,
		})
	}

	payload := mustJSON(t, GovernanceAuditRequest{
		OrganizationID: "org-1",
		TimeWindow:     auditWindow{Start: now.Add(-24 * time.Hour), End: now},
		AuditEvents:    events,
		PolicyCount:    4,
	})

	result, err := agent.Execute(t.Context(), Input{ExecutionRef: "exec-2", Payload: payload})
	require.NoError(t, err)
	require.True(t, result.Success)

	summary, ok := result.Output.(GovernanceAuditSummary)
	require.True(t, ok)
	assert.Equal(t, 10, summary.EventsAnalyzed)
	assert.Equal(t, 2, summary.ViolationsFound)
	assert.InDelta(t, 80.0, summary.ComplianceRate, 1e-9)
	assert.NotEmpty(t, summary.Findings)

	require.Len(t, persister.events, 1)
	assert.Equal(t, decision.TypeAuditSummary, persister.events[0].DecisionType)
	require.NotNil(t, persister.events[0].Constraints.TimeWindow)
}

func TestGovernanceAuditAgent_RejectsInvertedWindow(t *testing.T) {
	registry, _ := testHarness(t)
	agent, _ := registry.Get(GovernanceAudit)

	now := time.Now().UTC()
	payload := mustJSON(t, GovernanceAuditRequest{
		OrganizationID: "org-1",
		TimeWindow:     auditWindow{Start: now, End: now.Add(-time.Hour)},
	})

	result, err := agent.Execute(t.Context(), Input{ExecutionRef: "exec-1", Payload: payload})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "INVALID_AGENT_INPUT", result.Error.Code)
}

func TestUsageOversightAgent_Execute(t *testing.T) {
	registry, persister := testHarness(t)
	agent, _ := registry.Get(UsageOversight)

	payload := mustJSON(t, UsageOversightRequest{
		OrganizationID: "org-1",
		BudgetLimitUSD: 100,
		UserTokenQuota: 1000,
		UsageRecords: []UsageRecord{
			{UserID: "u1", Model: "gpt-4o", Tokens: 500, Requests: 10, CostUSD: 40},
			{UserID: "u2", Model: "gpt-4o", Tokens: 2500, Requests: 30, CostUSD: 55},
		},
	})

	result, err := agent.Execute(t.Context(), Input{ExecutionRef: "exec-3", Payload: payload})
	require.NoError(t, err)
	require.True(t, result.Success)

	report, ok := result.Output.(UsageOversightReport)
	require.True(t, ok)
	assert.Equal(t, int64(3000), report.TotalTokens)
	assert.InDelta(t, 95.0, report.TotalCostUSD, 1e-9)
	assert.InDelta(t, 0.95, report.BudgetUtilization, 1e-9)

	kinds := map[string]bool{}
	for _, signal := range report.Signals {
		kinds[signal.Kind] = true
	}
	assert.True(t, kinds["quota_exceeded"], "u2 exceeded the token quota")
	assert.True(t, kinds["budget_warning"], "spend above 80 percent of budget")
	assert.False(t, kinds["budget_exceeded"])

	require.Len(t, persister.events, 1)
	assert.Equal(t, decision.TypeUsageOversightSignal, persister.events[0].DecisionType)
	assert.NoError(t, persister.events[0].Validate())
}

func TestUsageOversightAgent_BudgetExceeded(t *testing.T) {
	registry, _ := testHarness(t)
	agent, _ := registry.Get(UsageOversight)

	payload := mustJSON(t, UsageOversightRequest{
		OrganizationID: "org-1",
		BudgetLimitUSD: 50,
		UsageRecords: []UsageRecord{
			{UserID: "u1", Model: "gpt-4o", Tokens: 100, CostUSD: 60},
		},
	})

	result, err := agent.Execute(t.Context(), Input{ExecutionRef: "exec-1", Payload: payload})
	require.NoError(t, err)
	require.True(t, result.Success)

	report := result.Output.(UsageOversightReport)
	require.Len(t, report.Signals, 1)
	assert.Equal(t, "budget_exceeded", report.Signals[0].Kind)
	assert.Equal(t, "critical", report.Signals[0].Severity)
}

func TestAgents_DecisionEventPerInvocation(t *testing.T) {
	registry, persister := testHarness(t)

	inputs := map[Name]json.RawMessage{
		UsageOversight: mustJSON(t, UsageOversightRequest{OrganizationID: "org-1"}),
		ChangeImpact: mustJSON(t, ChangeImpactRequest{
			OrganizationID: "org-1",
			ChangeRequest: ChangeRequest{
				ChangeID: "chg-1", ChangeType: "update", SubjectType: "budget", SubjectID: "b-1",
			},
		}),
		GovernanceAudit: mustJSON(t, GovernanceAuditRequest{
			OrganizationID: "org-1",
			TimeWindow: auditWindow{
				Start: time.Now().UTC().Add(-time.Hour),
				End:   time.Now().UTC(),
			},
		}),
	}

	for _, agent := range registry.List() {
		result, err := agent.Execute(t.Context(), Input{ExecutionRef: "exec-1", Payload: inputs[agent.Name()]})
		require.NoError(t, err)
		require.True(t, result.Success, "agent %s", agent.Name())
		assert.Equal(t, agent.DecisionType(), result.DecisionEvent.DecisionType)
	}

	assert.Len(t, persister.events, 3)
}

func TestAgents_InputsHashIgnoresKeyOrder(t *testing.T) {
	registry, persister := testHarness(t)
	agent, _ := registry.Get(GovernanceAudit)

	// Same request, serialized with different key order.
	payloadA := json.RawMessage(`{
		"organization_id": "org-1",
		"time_window": {"start": "2026-08-01T00:00:00Z", "end": "2026-08-31T00:00:00Z"},
		"policy_count": 4
	}`)
	payloadB := json.RawMessage(`{
		"policy_count": 4,
		"time_window": {"end": "2026-08-31T00:00:00Z", "start": "2026-08-01T00:00:00Z"},
		"organization_id": "org-1"
	}`)

	for _, payload := range []json.RawMessage{payloadA, payloadB} {
		result, err := agent.Execute(t.Context(), Input{ExecutionRef: "exec-1", Payload: payload})
		require.NoError(t, err)
		require.True(t, result.Success)
	}

	require.Len(t, persister.events, 2)
	assert.Equal(t, persister.events[0].InputsHash, persister.events[1].InputsHash)
}

func TestAgents_ContinueWhenPersistenceDegrades(t *testing.T) {
	obs := observability.NewForTest()
	persister := &capturingPersister{
		err: apperrors.NewTransientError(errors.New("upstream unavailable"), "upstream unavailable"),
	}
	agent := NewUsageOversightAgent(decision.NewEmitter(persister, obs, false), obs)

	payload := mustJSON(t, UsageOversightRequest{OrganizationID: "org-1"})
	result, err := agent.Execute(t.Context(), Input{ExecutionRef: "exec-1", Payload: payload})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.NotNil(t, result.DecisionEvent)
	assert.Empty(t, persister.events)
}
