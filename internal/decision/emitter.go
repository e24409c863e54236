package decision

import (
	"context"
	"fmt"

	apperrors "github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/errors"
	"github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/ids"
	"github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/observability"
)

// OverallConfidence combines coverage and completeness with the fixed
// weighting shared by all agents.
func OverallConfidence(coverage, completeness float64) float64 {
	return coverage*0.6 + completeness*0.4
}

// Persister stores one decision event durably. Implemented by the ruvector
// client; the emitter only sees this interface.
type Persister interface {
	PersistDecisionEvent(ctx context.Context, event *DecisionEvent) error
}

// CreateEventParams is the input to event construction. Input is the
// decoded agent request; it is re-serialized and hashed, never stored, so
// equivalent requests hash identically regardless of wire key order.
type CreateEventParams struct {
	AgentID      string
	AgentVersion string
	DecisionType DecisionType
	Input        any
	Outputs      any
	Coverage     float64
	Completeness float64
	Constraints  ConstraintsApplied
	ExecutionRef string
	Telemetry    *Telemetry
}

// Emitter builds, validates, and persists decision events. Persistence is
// best-effort: non-auth failures are logged with enough metadata for manual
// recovery and the request continues; auth failures are fatal for the
// emission.
type Emitter struct {
	persister Persister
	logger    *observability.Logger
	metrics   *observability.MetricsCollector
	dryRun    bool
}

// NewEmitter constructs an emitter. A nil persister behaves like dry-run.
func NewEmitter(persister Persister, obs *observability.Observability, dryRun bool) *Emitter {
	return &Emitter{
		persister: persister,
		logger:    obs.Logger,
		metrics:   obs.Metrics,
		dryRun:    dryRun,
	}
}

// CreateEvent is pure construction: it generates the event id, hashes the
// input payload, computes overall confidence, and stamps the creation time.
func (e *Emitter) CreateEvent(params CreateEventParams) (*DecisionEvent, error) {
	inputsHash, err := ids.HashInputs(params.Input)
	if err != nil {
		return nil, fmt.Errorf("hash decision inputs: %w", err)
	}

	return &DecisionEvent{
		ID:           ids.NewID(),
		AgentID:      params.AgentID,
		AgentVersion: params.AgentVersion,
		DecisionType: params.DecisionType,
		InputsHash:   inputsHash,
		Outputs:      params.Outputs,
		Confidence: Confidence{
			Coverage:     params.Coverage,
			Completeness: params.Completeness,
			Overall:      OverallConfidence(params.Coverage, params.Completeness),
		},
		Constraints:  params.Constraints,
		ExecutionRef: params.ExecutionRef,
		Timestamp:    ids.NowUTC(),
		Telemetry:    params.Telemetry,
	}, nil
}

// Emit creates and validates an event, then persists it unless running
// dry-run. When persistence fails non-fatally the validated event is still
// returned together with a DegradedError, so callers can continue while
// knowing the event is not durably stored. Auth failures are fatal and are
// never marked degraded.
func (e *Emitter) Emit(ctx context.Context, params CreateEventParams) (*DecisionEvent, error) {
	event, err := e.CreateEvent(params)
	if err != nil {
		return nil, err
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}

	if e.metrics != nil {
		e.metrics.RecordDecisionEvent(ctx, string(event.DecisionType))
	}

	if e.dryRun || e.persister == nil {
		e.logger.Debug("dry-run: skipping decision event persistence",
			"event_id", event.ID,
			"decision_type", event.DecisionType,
		)
		return event, nil
	}

	if err := e.persister.PersistDecisionEvent(ctx, event); err != nil {
		if apperrors.IsAuthError(err) {
			if e.metrics != nil {
				e.metrics.RecordPersistFailure(ctx, "auth")
			}
			return event, fmt.Errorf("persist decision event %s: %w", event.ID, err)
		}

		class := "permanent"
		if apperrors.IsTransient(err) {
			class = "transient"
		}
		if e.metrics != nil {
			e.metrics.RecordPersistFailure(ctx, class)
		}
		e.logger.Warn("decision event persistence degraded, continuing",
			"event_id", event.ID,
			"agent_id", event.AgentID,
			"decision_type", event.DecisionType,
			"inputs_hash", event.InputsHash,
			"execution_ref", event.ExecutionRef,
			"error", err,
		)
		return event, apperrors.NewDegradedError(err,
			fmt.Sprintf("decision event %s not persisted", event.ID))
	}

	e.logger.Debug("decision event persisted",
		"event_id", event.ID,
		"decision_type", event.DecisionType,
	)
	return event, nil
}
