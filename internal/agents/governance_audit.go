package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/decision"
	apperrors "github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/errors"
	"github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/ids"
	"github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/observability"
)

const governanceAuditVersion = "1.0.0"

// GovernanceAuditRequest asks for an audit summary over a time window. The
// caller supplies the audit events; this agent only analyzes, it never
// queries operational stores directly.
type GovernanceAuditRequest struct {
	OrganizationID string       `json:"organization_id"`
	TimeWindow     auditWindow  `json:"time_window"`
	AuditEvents    []AuditEvent `json:"audit_events"`
	PolicyCount    int          `json:"policy_count"`
}

type auditWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// AuditEvent is one governance-relevant event under audit.
type AuditEvent struct {
	EventID      string    `json:"event_id"`
	ResourceType string    `json:"resource_type"`
	Action       string    `json:"action"`
	Actor        string    `json:"actor"`
	Violation    bool      `json:"violation"`
	Timestamp    time.Time `json:"timestamp"`
}

type auditFinding struct {
	FindingID   string `json:"finding_id"`
	Category    string `json:"category"`
	Severity    string `json:"severity"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// GovernanceAuditSummary is the agent's output payload.
type GovernanceAuditSummary struct {
	AuditID         string         `json:"audit_id"`
	Summary         string         `json:"summary"`
	EventsAnalyzed  int            `json:"events_analyzed"`
	ViolationsFound int            `json:"violations_found"`
	ComplianceRate  float64        `json:"compliance_rate"`
	Trend           string         `json:"trend"`
	Findings        []auditFinding `json:"findings"`
	Recommendations []string       `json:"recommendations"`
	GeneratedAt     time.Time      `json:"generated_at"`
}

// GovernanceAuditAgent produces audit summaries with compliance metrics and
// findings over a caller-supplied event window.
type GovernanceAuditAgent struct {
	emitter *decision.Emitter
	logger  *observability.Logger
}

func NewGovernanceAuditAgent(emitter *decision.Emitter, obs *observability.Observability) *GovernanceAuditAgent {
	return &GovernanceAuditAgent{emitter: emitter, logger: obs.Logger}
}

func (a *GovernanceAuditAgent) Name() Name      { return GovernanceAudit }
func (a *GovernanceAuditAgent) Version() string { return governanceAuditVersion }

func (a *GovernanceAuditAgent) DecisionType() decision.DecisionType {
	return decision.TypeAuditSummary
}

func (a *GovernanceAuditAgent) Execute(ctx context.Context, input Input) (*Result, error) {
	started := time.Now()

	var req GovernanceAuditRequest
	if err := json.Unmarshal(input.Payload, &req); err != nil {
		return invalidInput("malformed governance audit request: " + err.Error()), nil
	}
	if req.OrganizationID == "" {
		return invalidInput("organization_id is required"), nil
	}
	if req.TimeWindow.Start.IsZero() || req.TimeWindow.End.IsZero() {
		return invalidInput("time_window.start and time_window.end are required"), nil
	}
	if !req.TimeWindow.End.After(req.TimeWindow.Start) {
		return invalidInput("time_window.end must be after time_window.start"), nil
	}

	violations := 0
	for _, event := range req.AuditEvents {
		if event.Violation {
			violations++
		}
	}

	complianceRate := 100.0
	if len(req.AuditEvents) > 0 {
		complianceRate = float64(len(req.AuditEvents)-violations) / float64(len(req.AuditEvents)) * 100
	}

	findings := auditFindings(req, violations, complianceRate)

	summary := GovernanceAuditSummary{
		AuditID: ids.NewID(),
		Summary: fmt.Sprintf(
			"Governance audit for organization %s: %d events analyzed, %d violations, compliance rate %.1f%%.",
			req.OrganizationID, len(req.AuditEvents), violations, complianceRate),
		EventsAnalyzed:  len(req.AuditEvents),
		ViolationsFound: violations,
		ComplianceRate:  complianceRate,
		Trend:           complianceTrend(complianceRate, violations),
		Findings:        findings,
		Recommendations: auditRecommendations(complianceRate, violations),
		GeneratedAt:     ids.NowUTC(),
	}

	// Certainty grows with sample size; a thin event window caps it.
	coverage := 0.6
	if len(req.AuditEvents) > 100 {
		coverage = 0.9
	} else if len(req.AuditEvents) > 10 {
		coverage = 0.75
	}
	completeness := 1.0
	if len(req.AuditEvents) == 0 {
		completeness = 0.3
	}

	event, err := a.emitter.Emit(ctx, decision.CreateEventParams{
		AgentID:      string(GovernanceAudit),
		AgentVersion: governanceAuditVersion,
		DecisionType: decision.TypeAuditSummary,
		Input:        req,
		Outputs:      summary,
		Coverage:     coverage,
		Completeness: completeness,
		Constraints: decision.ConstraintsApplied{
			OrganizationID: req.OrganizationID,
			TimeWindow: &decision.TimeWindow{
				Start: req.TimeWindow.Start,
				End:   req.TimeWindow.End,
			},
		},
		ExecutionRef: input.ExecutionRef,
		Telemetry: &decision.Telemetry{
			LatencyMS:    time.Since(started).Milliseconds(),
			SourceSystem: string(GovernanceAudit),
		},
	})
	if err != nil && !apperrors.IsDegraded(err) {
		return nil, err
	}
	if err != nil {
		a.logger.Warn("governance audit continuing without durable decision event",
			"event_id", event.ID,
			"error", err,
		)
	}

	a.logger.Info("governance audit completed",
		"organization_id", req.OrganizationID,
		"events_analyzed", len(req.AuditEvents),
		"compliance_rate", complianceRate,
		"event_id", event.ID,
	)

	return &Result{
		Success:       true,
		DecisionEvent: event,
		Output:        summary,
	}, nil
}

func auditFindings(req GovernanceAuditRequest, violations int, complianceRate float64) []auditFinding {
	var findings []auditFinding

	if complianceRate < 95 {
		severity := "medium"
		if complianceRate < 80 {
			severity = "high"
		}
		findings = append(findings, auditFinding{
			FindingID:   ids.NewID(),
			Category:    "compliance_deviation",
			Severity:    severity,
			Title:       fmt.Sprintf("Compliance rate below target: %.1f%%", complianceRate),
			Description: fmt.Sprintf("%d of %d audited events violated policy", violations, len(req.AuditEvents)),
		})
	}

	if len(req.AuditEvents) == 0 {
		findings = append(findings, auditFinding{
			FindingID:   ids.NewID(),
			Category:    "audit_coverage",
			Severity:    "medium",
			Title:       "No audit events in the requested window",
			Description: "The requested time range produced no events to audit; coverage cannot be established.",
		})
	}

	if req.PolicyCount == 0 {
		findings = append(findings, auditFinding{
			FindingID:   ids.NewID(),
			Category:    "policy_violation",
			Severity:    "low",
			Title:       "No active policies in scope",
			Description: "The organization has no policies in scope for this audit window.",
		})
	}

	return findings
}

func complianceTrend(complianceRate float64, violations int) string {
	switch {
	case complianceRate >= 98 && violations < 5:
		return "improving"
	case complianceRate >= 90 && violations < 20:
		return "stable"
	case complianceRate < 80 || violations > 50:
		return "degrading"
	default:
		return "stable"
	}
}

func auditRecommendations(complianceRate float64, violations int) []string {
	var recommendations []string
	if complianceRate < 95 {
		recommendations = append(recommendations,
			fmt.Sprintf("Review policy configurations; compliance rate is %.1f%%", complianceRate))
	}
	if violations > 0 {
		recommendations = append(recommendations,
			"Investigate recorded violations and confirm remediation for each")
	}
	if len(recommendations) == 0 {
		recommendations = append(recommendations,
			"No action required; maintain current governance posture")
	}
	return recommendations
}
