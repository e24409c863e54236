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

const usageOversightVersion = "1.0.0"

// UsageOversightRequest asks for oversight signals over LLM usage records.
// Like the other agents this is read-only analysis; it never throttles or
// blocks usage.
type UsageOversightRequest struct {
	OrganizationID string        `json:"organization_id"`
	BudgetLimitUSD float64       `json:"budget_limit_usd"`
	UserTokenQuota int64         `json:"user_token_quota"`
	UsageRecords   []UsageRecord `json:"usage_records"`
}

// UsageRecord is one user's aggregated usage in the reporting window.
type UsageRecord struct {
	UserID   string  `json:"user_id"`
	Model    string  `json:"model"`
	Tokens   int64   `json:"tokens"`
	Requests int64   `json:"requests"`
	CostUSD  float64 `json:"cost_usd"`
}

type usageSignal struct {
	SignalID    string `json:"signal_id"`
	Kind        string `json:"kind"`
	Severity    string `json:"severity"`
	UserID      string `json:"user_id,omitempty"`
	Description string `json:"description"`
}

// UsageOversightReport is the agent's output payload.
type UsageOversightReport struct {
	ReportID          string        `json:"report_id"`
	Summary           string        `json:"summary"`
	TotalTokens       int64         `json:"total_tokens"`
	TotalCostUSD      float64       `json:"total_cost_usd"`
	BudgetUtilization float64       `json:"budget_utilization"`
	Signals           []usageSignal `json:"signals"`
	GeneratedAt       time.Time     `json:"generated_at"`
}

// UsageOversightAgent surfaces budget and quota oversight signals from
// aggregated usage records.
type UsageOversightAgent struct {
	emitter *decision.Emitter
	logger  *observability.Logger
}

func NewUsageOversightAgent(emitter *decision.Emitter, obs *observability.Observability) *UsageOversightAgent {
	return &UsageOversightAgent{emitter: emitter, logger: obs.Logger}
}

func (a *UsageOversightAgent) Name() Name      { return UsageOversight }
func (a *UsageOversightAgent) Version() string { return usageOversightVersion }

func (a *UsageOversightAgent) DecisionType() decision.DecisionType {
	return decision.TypeUsageOversightSignal
}

func (a *UsageOversightAgent) Execute(ctx context.Context, input Input) (*Result, error) {
	started := time.Now()

	var req UsageOversightRequest
	if err := json.Unmarshal(input.Payload, &req); err != nil {
		return invalidInput("malformed usage oversight request: " + err.Error()), nil
	}
	if req.OrganizationID == "" {
		return invalidInput("organization_id is required"), nil
	}

	var totalTokens int64
	var totalCost float64
	complete := 0
	var signals []usageSignal

	for _, record := range req.UsageRecords {
		totalTokens += record.Tokens
		totalCost += record.CostUSD
		if record.UserID != "" && record.Model != "" {
			complete++
		}
		if req.UserTokenQuota > 0 && record.Tokens > req.UserTokenQuota {
			signals = append(signals, usageSignal{
				SignalID: ids.NewID(),
				Kind:     "quota_exceeded",
				Severity: "high",
				UserID:   record.UserID,
				Description: fmt.Sprintf("user consumed %d tokens against a quota of %d",
					record.Tokens, req.UserTokenQuota),
			})
		}
	}

	utilization := 0.0
	if req.BudgetLimitUSD > 0 {
		utilization = totalCost / req.BudgetLimitUSD
		switch {
		case utilization >= 1.0:
			signals = append(signals, usageSignal{
				SignalID:    ids.NewID(),
				Kind:        "budget_exceeded",
				Severity:    "critical",
				Description: fmt.Sprintf("spend $%.2f exceeds budget $%.2f", totalCost, req.BudgetLimitUSD),
			})
		case utilization >= 0.8:
			signals = append(signals, usageSignal{
				SignalID:    ids.NewID(),
				Kind:        "budget_warning",
				Severity:    "medium",
				Description: fmt.Sprintf("spend $%.2f is %.0f%% of budget", totalCost, utilization*100),
			})
		}
	}

	report := UsageOversightReport{
		ReportID: ids.NewID(),
		Summary: fmt.Sprintf(
			"Usage oversight for organization %s: %d records, %d tokens, $%.2f spend, %d signals.",
			req.OrganizationID, len(req.UsageRecords), totalTokens, totalCost, len(signals)),
		TotalTokens:       totalTokens,
		TotalCostUSD:      totalCost,
		BudgetUtilization: utilization,
		Signals:           signals,
		GeneratedAt:       ids.NowUTC(),
	}

	// Coverage reflects how many records carried full attribution.
	coverage := 0.5
	if len(req.UsageRecords) > 0 {
		coverage = float64(complete) / float64(len(req.UsageRecords))
	}
	completeness := 0.6
	if req.BudgetLimitUSD > 0 {
		completeness += 0.2
	}
	if req.UserTokenQuota > 0 {
		completeness += 0.2
	}

	event, err := a.emitter.Emit(ctx, decision.CreateEventParams{
		AgentID:      string(UsageOversight),
		AgentVersion: usageOversightVersion,
		DecisionType: decision.TypeUsageOversightSignal,
		Input:        req,
		Outputs:      report,
		Coverage:     coverage,
		Completeness: completeness,
		Constraints: decision.ConstraintsApplied{
			OrganizationID: req.OrganizationID,
		},
		ExecutionRef: input.ExecutionRef,
		Telemetry: &decision.Telemetry{
			LatencyMS:    time.Since(started).Milliseconds(),
			SourceSystem: string(UsageOversight),
		},
	})
	if err != nil && !apperrors.IsDegraded(err) {
		return nil, err
	}
	if err != nil {
		a.logger.Warn("usage oversight continuing without durable decision event",
			"event_id", event.ID,
			"error", err,
		)
	}

	a.logger.Info("usage oversight completed",
		"organization_id", req.OrganizationID,
		"records", len(req.UsageRecords),
		"signals", len(signals),
		"event_id", event.ID,
	)

	return &Result{
		Success:       true,
		DecisionEvent: event,
		Output:        report,
	}, nil
}
