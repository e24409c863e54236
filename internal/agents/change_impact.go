package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/decision"
	apperrors "github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/errors"
	"github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/ids"
	"github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/observability"
)

const changeImpactVersion = "1.0.0"

var changeTypes = map[string]bool{
	"create": true, "update": true, "delete": true, "toggle": true,
	"configure": true, "policy_modify": true, "access_change": true,
	"model_version": true, "budget_adjust": true, "quota_modify": true,
}

var subjectTypes = map[string]bool{
	"policy": true, "policy_rule": true, "configuration": true,
	"llm_model": true, "llm_provider": true, "budget": true, "quota": true,
	"access_control": true, "team": true, "user": true, "organization": true,
	"integration": true, "webhook": true,
}

// ChangeImpactRequest asks for a read-only assessment of a proposed change.
// The agent never blocks, approves, or executes the change itself.
type ChangeImpactRequest struct {
	OrganizationID    string        `json:"organization_id"`
	ChangeRequest     ChangeRequest `json:"change_request"`
	IncludeDownstream *bool         `json:"include_downstream,omitempty"`
}

// ChangeRequest describes the change under assessment.
type ChangeRequest struct {
	ChangeID    string `json:"change_id"`
	ChangeType  string `json:"change_type"`
	SubjectType string `json:"subject_type"`
	SubjectID   string `json:"subject_id"`
	Description string `json:"description"`
	Initiator   string `json:"initiator"`
}

type impactDetail struct {
	Area             string   `json:"area"`
	Score            float64  `json:"score"`
	Description      string   `json:"description"`
	AffectedEntities []string `json:"affected_entities"`
}

type affectedSystem struct {
	SystemID          string `json:"system_id"`
	SystemName        string `json:"system_name"`
	ImpactDescription string `json:"impact_description"`
	Severity          string `json:"severity"`
}

// ChangeImpactAssessment is the agent's output payload.
type ChangeImpactAssessment struct {
	AssessmentID       string           `json:"assessment_id"`
	ChangeRequestID    string           `json:"change_request_id"`
	RiskScore          float64          `json:"risk_score"`
	RiskClassification string           `json:"risk_classification"`
	Summary            string           `json:"summary"`
	Impacts            []impactDetail   `json:"impacts"`
	AffectedSystems    []affectedSystem `json:"affected_systems"`
	Recommendations    []string         `json:"recommendations"`
	AssessedAt         time.Time        `json:"assessed_at"`
}

// ChangeImpactAgent assesses the downstream governance impact of
// configuration and policy changes.
type ChangeImpactAgent struct {
	emitter *decision.Emitter
	logger  *observability.Logger
}

func NewChangeImpactAgent(emitter *decision.Emitter, obs *observability.Observability) *ChangeImpactAgent {
	return &ChangeImpactAgent{emitter: emitter, logger: obs.Logger}
}

func (a *ChangeImpactAgent) Name() Name      { return ChangeImpact }
func (a *ChangeImpactAgent) Version() string { return changeImpactVersion }

func (a *ChangeImpactAgent) DecisionType() decision.DecisionType {
	return decision.TypeChangeImpactAssessment
}

func (a *ChangeImpactAgent) Execute(ctx context.Context, input Input) (*Result, error) {
	started := time.Now()

	var req ChangeImpactRequest
	if err := json.Unmarshal(input.Payload, &req); err != nil {
		return invalidInput("malformed change impact request: " + err.Error()), nil
	}
	if req.OrganizationID == "" {
		return invalidInput("organization_id is required"), nil
	}
	if req.ChangeRequest.ChangeID == "" {
		return invalidInput("change_request.change_id is required"), nil
	}
	if !changeTypes[strings.ToLower(req.ChangeRequest.ChangeType)] {
		return invalidInput(fmt.Sprintf("invalid change type: %q", req.ChangeRequest.ChangeType)), nil
	}
	if !subjectTypes[strings.ToLower(req.ChangeRequest.SubjectType)] {
		return invalidInput(fmt.Sprintf("invalid subject type: %q", req.ChangeRequest.SubjectType)), nil
	}

	impacts := analyzeImpacts(req.ChangeRequest)
	var systems []affectedSystem
	if req.IncludeDownstream == nil || *req.IncludeDownstream {
		systems = analyzeAffectedSystems(req.ChangeRequest)
	}

	riskScore := riskScoreOf(impacts)
	classification := classifyRisk(riskScore)

	assessment := ChangeImpactAssessment{
		AssessmentID:       ids.NewID(),
		ChangeRequestID:    req.ChangeRequest.ChangeID,
		RiskScore:          riskScore,
		RiskClassification: classification,
		Summary: fmt.Sprintf(
			"Change impact assessment for %s on %s %q: risk %s. %d impact areas, %d downstream systems.",
			req.ChangeRequest.ChangeType, req.ChangeRequest.SubjectType, req.ChangeRequest.SubjectID,
			classification, len(impacts), len(systems)),
		Impacts:         impacts,
		AffectedSystems: systems,
		Recommendations: recommendationsFor(classification),
		AssessedAt:      ids.NowUTC(),
	}

	completeness := 0.5
	if len(impacts) > 0 {
		completeness += 0.25
	}
	if len(systems) > 0 {
		completeness += 0.25
	}
	coverage := 0.7

	event, err := a.emitter.Emit(ctx, decision.CreateEventParams{
		AgentID:      string(ChangeImpact),
		AgentVersion: changeImpactVersion,
		DecisionType: decision.TypeChangeImpactAssessment,
		Input:        req,
		Outputs:      assessment,
		Coverage:     coverage,
		Completeness: completeness,
		Constraints: decision.ConstraintsApplied{
			OrganizationID: req.OrganizationID,
		},
		ExecutionRef: input.ExecutionRef,
		Telemetry: &decision.Telemetry{
			LatencyMS:    time.Since(started).Milliseconds(),
			SourceSystem: string(ChangeImpact),
		},
	})
	if err != nil && !apperrors.IsDegraded(err) {
		return nil, err
	}
	if err != nil {
		a.logger.Warn("change impact assessment continuing without durable decision event",
			"event_id", event.ID,
			"error", err,
		)
	}

	a.logger.Info("change impact assessment completed",
		"change_id", req.ChangeRequest.ChangeID,
		"risk_classification", classification,
		"event_id", event.ID,
	)

	return &Result{
		Success:       true,
		DecisionEvent: event,
		Output:        assessment,
	}, nil
}

func analyzeImpacts(change ChangeRequest) []impactDetail {
	subject := strings.ToLower(change.SubjectType)
	changeType := strings.ToLower(change.ChangeType)

	var area string
	var score float64
	switch subject {
	case "policy", "policy_rule":
		area, score = "policy_enforcement", 0.5
	case "llm_model", "llm_provider":
		area, score = "model_behavior", 0.75
	case "budget", "quota":
		area, score = "cost", 0.5
	case "access_control", "user", "team":
		area, score = "access_control", 0.75
	case "configuration", "integration":
		area, score = "data_governance", 0.25
	default:
		area, score = "data_governance", 0.1
	}

	impacts := []impactDetail{{
		Area:             area,
		Score:            score,
		Description:      fmt.Sprintf("%s change to %s %q", changeType, subject, change.SubjectID),
		AffectedEntities: []string{change.SubjectID},
	}}

	switch changeType {
	case "delete":
		impacts = append(impacts, impactDetail{
			Area:             "audit_trail",
			Score:            0.25,
			Description:      "Deletion will affect audit trail continuity",
			AffectedEntities: []string{change.SubjectID},
		})
	case "access_change":
		impacts = append(impacts, impactDetail{
			Area:             "security",
			Score:            0.75,
			Description:      "Access control changes affect security posture",
			AffectedEntities: []string{change.SubjectID},
		})
	}
	return impacts
}

func analyzeAffectedSystems(change ChangeRequest) []affectedSystem {
	switch strings.ToLower(change.SubjectType) {
	case "policy", "policy_rule":
		return []affectedSystem{{
			SystemID:          "policy-engine",
			SystemName:        "LLM-Policy-Engine",
			ImpactDescription: "Policy evaluations may change",
			Severity:          "medium",
		}}
	case "llm_model", "llm_provider":
		return []affectedSystem{
			{
				SystemID:          "registry",
				SystemName:        "LLM-Registry",
				ImpactDescription: "Model routing may be affected",
				Severity:          "high",
			},
			{
				SystemID:          "cost-ops",
				SystemName:        "LLM-CostOps",
				ImpactDescription: "Cost tracking affected by model change",
				Severity:          "medium",
			},
		}
	case "budget", "quota":
		return []affectedSystem{{
			SystemID:          "cost-ops",
			SystemName:        "LLM-CostOps",
			ImpactDescription: "Budget and quota controls affected",
			Severity:          "medium",
		}}
	default:
		return nil
	}
}

func riskScoreOf(impacts []impactDetail) float64 {
	if len(impacts) == 0 {
		return 0
	}
	var sum float64
	for _, impact := range impacts {
		sum += impact.Score
	}
	score := sum / float64(len(impacts))
	if score > 1 {
		score = 1
	}
	return score
}

func classifyRisk(score float64) string {
	switch {
	case score >= 0.85:
		return "critical_risk"
	case score >= 0.65:
		return "high_risk"
	case score >= 0.4:
		return "medium_risk"
	default:
		return "low_risk"
	}
}

func recommendationsFor(classification string) []string {
	switch classification {
	case "critical_risk":
		return []string{
			"Executive approval required before proceeding",
			"Detailed rollback plan required",
		}
	case "high_risk":
		return []string{
			"Security and compliance review required",
			"Implement staged rollout",
		}
	case "medium_risk":
		return []string{"Comprehensive testing recommended"}
	default:
		return []string{"Update documentation to reflect change"}
	}
}
