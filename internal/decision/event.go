// Package decision defines the DecisionEvent audit record and the emitter
// that builds, validates, and persists one event per agent invocation.
package decision

import (
	"fmt"
	"time"
)

// DecisionType is the closed set of governance decision categories.
type DecisionType string

const (
	TypeUsageOversightSignal   DecisionType = "usage_oversight_signal"
	TypeChangeImpactAssessment DecisionType = "change_impact_assessment"
	TypeAuditSummary           DecisionType = "audit_summary"
	TypeComplianceStatus       DecisionType = "compliance_status"
	TypeGovernanceSnapshot     DecisionType = "governance_snapshot"
	TypePolicyAdherence        DecisionType = "policy_adherence"
	TypeApprovalTrail          DecisionType = "approval_trail"
)

var knownDecisionTypes = map[DecisionType]bool{
	TypeUsageOversightSignal:   true,
	TypeChangeImpactAssessment: true,
	TypeAuditSummary:           true,
	TypeComplianceStatus:       true,
	TypeGovernanceSnapshot:     true,
	TypePolicyAdherence:        true,
	TypeApprovalTrail:          true,
}

// ParseDecisionType validates a decision type string.
func ParseDecisionType(s string) (DecisionType, error) {
	dt := DecisionType(s)
	if !knownDecisionTypes[dt] {
		return "", fmt.Errorf("unknown decision type: %q", s)
	}
	return dt, nil
}

// Confidence scores a decision. Overall is always the fixed weighted
// combination of coverage and completeness; it is never set independently,
// so confidence combines the same way across every agent.
type Confidence struct {
	Coverage     float64 `json:"coverage"`
	Completeness float64 `json:"completeness"`
	Overall      float64 `json:"overall"`
}

// TimeWindow bounds the data a decision was computed over.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ConstraintsApplied records the scoping in effect when the decision was
// made. It is kept for audit replay, not enforced here.
type ConstraintsApplied struct {
	OrganizationID string      `json:"organization_id,omitempty"`
	TimeWindow     *TimeWindow `json:"time_window,omitempty"`
	PolicyScope    []string    `json:"policy_scope,omitempty"`
}

// Telemetry carries optional execution measurements.
type Telemetry struct {
	LatencyMS    int64    `json:"latency_ms"`
	MemoryMB     *float64 `json:"memory_mb,omitempty"`
	SourceSystem string   `json:"source_system,omitempty"`
}

// DecisionEvent is the audit record produced at most once per agent
// invocation. It is immutable once created.
type DecisionEvent struct {
	ID           string             `json:"id"`
	AgentID      string             `json:"agent_id"`
	AgentVersion string             `json:"agent_version"`
	DecisionType DecisionType       `json:"decision_type"`
	InputsHash   string             `json:"inputs_hash"`
	Outputs      any                `json:"outputs"`
	Confidence   Confidence         `json:"confidence"`
	Constraints  ConstraintsApplied `json:"constraints_applied"`
	ExecutionRef string             `json:"execution_ref"`
	Timestamp    time.Time          `json:"timestamp"`
	Telemetry    *Telemetry         `json:"telemetry,omitempty"`
}
