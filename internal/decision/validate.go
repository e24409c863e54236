package decision

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidEvent marks schema validation failures so callers can
// distinguish them from persistence errors.
var ErrInvalidEvent = errors.New("invalid decision event")

const overallTolerance = 1e-9

// Validate checks the event against its schema: required identifiers, a
// known decision type, a well-formed inputs hash, and confidence scores in
// [0,1] with overall matching the fixed combination formula.
func (e *DecisionEvent) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidEvent)
	}
	if e.AgentID == "" {
		return fmt.Errorf("%w: missing agent_id", ErrInvalidEvent)
	}
	if e.AgentVersion == "" {
		return fmt.Errorf("%w: missing agent_version", ErrInvalidEvent)
	}
	if !knownDecisionTypes[e.DecisionType] {
		return fmt.Errorf("%w: unknown decision_type %q", ErrInvalidEvent, e.DecisionType)
	}
	if !isHexHash(e.InputsHash) {
		return fmt.Errorf("%w: inputs_hash must be 64 hex characters, got %q", ErrInvalidEvent, e.InputsHash)
	}
	if e.ExecutionRef == "" {
		return fmt.Errorf("%w: missing execution_ref", ErrInvalidEvent)
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidEvent)
	}

	for _, score := range []struct {
		name  string
		value float64
	}{
		{"coverage", e.Confidence.Coverage},
		{"completeness", e.Confidence.Completeness},
		{"overall", e.Confidence.Overall},
	} {
		if score.value < 0 || score.value > 1 || math.IsNaN(score.value) {
			return fmt.Errorf("%w: confidence.%s %v out of range [0,1]", ErrInvalidEvent, score.name, score.value)
		}
	}

	expected := OverallConfidence(e.Confidence.Coverage, e.Confidence.Completeness)
	if math.Abs(e.Confidence.Overall-expected) > overallTolerance {
		return fmt.Errorf("%w: confidence.overall %v does not match coverage and completeness", ErrInvalidEvent, e.Confidence.Overall)
	}

	return nil
}

func isHexHash(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		default:
			return false
		}
	}
	return true
}
