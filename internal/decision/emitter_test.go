package decision

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/errors"
	"github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/observability"
)

type fakePersister struct {
	events []*DecisionEvent
	err    error
}

func (f *fakePersister) PersistDecisionEvent(_ context.Context, event *DecisionEvent) error {
	f.events = append(f.events, event)
	return f.err
}

func validParams() CreateEventParams {
	return CreateEventParams{
		AgentID:      "governance-audit-agent",
		AgentVersion: "1.0.0",
		DecisionType: TypeAuditSummary,
		Input:        map[string]any{"organization_id": "org-1"},
		Outputs:      map[string]any{"findings": 3},
		Coverage:     0.8,
		Completeness: 0.5,
		Constraints:  ConstraintsApplied{OrganizationID: "org-1"},
		ExecutionRef: "exec-1",
	}
}

func newTestEmitter(p Persister, dryRun bool) *Emitter {
	return NewEmitter(p, observability.NewForTest(), dryRun)
}

func TestOverallConfidence(t *testing.T) {
	assert.Equal(t, 0.0, OverallConfidence(0, 0))
	assert.Equal(t, 1.0, OverallConfidence(1, 1))
	assert.Equal(t, 0.6, OverallConfidence(1, 0))
	assert.Equal(t, 0.4, OverallConfidence(0, 1))
}

func TestCreateEvent(t *testing.T) {
	emitter := newTestEmitter(nil, true)

	event, err := emitter.CreateEvent(validParams())
	require.NoError(t, err)

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "governance-audit-agent", event.AgentID)
	assert.Equal(t, TypeAuditSummary, event.DecisionType)
	assert.Len(t, event.InputsHash, 64)
	assert.InDelta(t, 0.8*0.6+0.5*0.4, event.Confidence.Overall, 1e-12)
	assert.Equal(t, "exec-1", event.ExecutionRef)
	assert.False(t, event.Timestamp.IsZero())
	assert.Equal(t, time.UTC, event.Timestamp.Location())
}

func TestCreateEvent_DeterministicHash(t *testing.T) {
	emitter := newTestEmitter(nil, true)

	first, err := emitter.CreateEvent(validParams())
	require.NoError(t, err)
	second, err := emitter.CreateEvent(validParams())
	require.NoError(t, err)

	assert.Equal(t, first.InputsHash, second.InputsHash)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestEvent_RoundTripValidation(t *testing.T) {
	emitter := newTestEmitter(nil, true)

	event, err := emitter.CreateEvent(validParams())
	require.NoError(t, err)
	assert.NoError(t, event.Validate())
}

func TestValidate_Rejections(t *testing.T) {
	emitter := newTestEmitter(nil, true)
	base, err := emitter.CreateEvent(validParams())
	require.NoError(t, err)

	cases := []struct {
		name   string
		mutate func(*DecisionEvent)
	}{
		{"missing id", func(e *DecisionEvent) { e.ID = "" }},
		{"missing agent_id", func(e *DecisionEvent) { e.AgentID = "" }},
		{"missing agent_version", func(e *DecisionEvent) { e.AgentVersion = "" }},
		{"unknown decision_type", func(e *DecisionEvent) { e.DecisionType = "made_up" }},
		{"short inputs_hash", func(e *DecisionEvent) { e.InputsHash = "abc123" }},
		{"non-hex inputs_hash", func(e *DecisionEvent) { e.InputsHash = string(make([]byte, 64)) }},
		{"missing execution_ref", func(e *DecisionEvent) { e.ExecutionRef = "" }},
		{"zero timestamp", func(e *DecisionEvent) { e.Timestamp = time.Time{} }},
		{"coverage above 1", func(e *DecisionEvent) { e.Confidence.Coverage = 1.5 }},
		{"negative completeness", func(e *DecisionEvent) { e.Confidence.Completeness = -0.1 }},
		{"overall mismatch", func(e *DecisionEvent) { e.Confidence.Overall = 0.99 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			event := *base
			tc.mutate(&event)
			err := event.Validate()
			assert.ErrorIs(t, err, ErrInvalidEvent)
		})
	}
}

func TestParseDecisionType(t *testing.T) {
	dt, err := ParseDecisionType("change_impact_assessment")
	require.NoError(t, err)
	assert.Equal(t, TypeChangeImpactAssessment, dt)

	_, err = ParseDecisionType("nonsense")
	assert.Error(t, err)
}

func TestEmit_PersistsValidEvent(t *testing.T) {
	persister := &fakePersister{}
	emitter := newTestEmitter(persister, false)

	event, err := emitter.Emit(t.Context(), validParams())
	require.NoError(t, err)
	require.Len(t, persister.events, 1)
	assert.Equal(t, event.ID, persister.events[0].ID)
}

func TestEmit_DryRunSkipsPersistence(t *testing.T) {
	persister := &fakePersister{}
	emitter := newTestEmitter(persister, true)

	event, err := emitter.Emit(t.Context(), validParams())
	require.NoError(t, err)
	assert.NotNil(t, event)
	assert.Empty(t, persister.events)
}

func TestEmit_ValidationFailureDoesNotPersist(t *testing.T) {
	persister := &fakePersister{}
	emitter := newTestEmitter(persister, false)

	params := validParams()
	params.Coverage = 2.0

	event, err := emitter.Emit(t.Context(), params)
	assert.ErrorIs(t, err, ErrInvalidEvent)
	assert.Nil(t, event)
	assert.Empty(t, persister.events)
}

func TestEmit_NonAuthFailureDegradesGracefully(t *testing.T) {
	persister := &fakePersister{
		err: apperrors.NewTransientError(errors.New("upstream unavailable"), "upstream unavailable"),
	}
	emitter := newTestEmitter(persister, false)

	event, err := emitter.Emit(t.Context(), validParams())
	require.Error(t, err)
	assert.True(t, apperrors.IsDegraded(err))
	assert.False(t, apperrors.IsAuthError(err))
	assert.NotNil(t, event)
	assert.Len(t, persister.events, 1)
}

func TestEmit_PermanentFailureAlsoDegrades(t *testing.T) {
	persister := &fakePersister{
		err: apperrors.NewPermanentError(errors.New("bad request"), "bad request"),
	}
	emitter := newTestEmitter(persister, false)

	event, err := emitter.Emit(t.Context(), validParams())
	require.Error(t, err)
	assert.True(t, apperrors.IsDegraded(err))
	assert.NotNil(t, event)
}

func TestEmit_AuthFailureIsFatal(t *testing.T) {
	persister := &fakePersister{
		err: apperrors.NewAuthError(errors.New("invalid api key"), http.StatusUnauthorized),
	}
	emitter := newTestEmitter(persister, false)

	event, err := emitter.Emit(t.Context(), validParams())
	require.Error(t, err)
	assert.True(t, apperrors.IsAuthError(err))
	assert.False(t, apperrors.IsDegraded(err))
	assert.NotNil(t, event)
}
