package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/agents"
	"github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/observability"
	"github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/span"
)

const maxExecuteBodySize = 1 << 20 // 1 MiB

// ExecuteHandler runs one agent per request inside the mandatory span
// hierarchy: extract context, open repo and agent spans, invoke the agent,
// attach its decision event, finalize, and return the full span tree.
type ExecuteHandler struct {
	registry    *agents.Registry
	obs         *observability.Observability
	broadcaster *DecisionBroadcaster
}

func NewExecuteHandler(registry *agents.Registry, obs *observability.Observability, broadcaster *DecisionBroadcaster) *ExecuteHandler {
	return &ExecuteHandler{registry: registry, obs: obs, broadcaster: broadcaster}
}

// HandleExecute implements POST /api/v1/agents/:agent/execute.
func (h *ExecuteHandler) HandleExecute(c *gin.Context) {
	execCtx, ok := span.ExtractExecutionContext(c.Request.Header)
	if !ok {
		c.JSON(http.StatusBadRequest, missingContextResponse())
		return
	}

	name, err := agents.ParseName(c.Param("agent"))
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: ErrorBody{
			Code:    "AGENT_NOT_FOUND",
			Message: err.Error(),
		}})
		return
	}
	agent, ok := h.registry.Get(name)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: ErrorBody{
			Code:    "AGENT_NOT_FOUND",
			Message: fmt.Sprintf("agent %q is not registered", name),
		}})
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxExecuteBodySize))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: ErrorBody{
			Code:    "INVALID_REQUEST_BODY",
			Message: "failed to read request body: " + err.Error(),
		}})
		return
	}

	ctx := observability.ContextWithExecutionID(c.Request.Context(), execCtx.ExecutionID)
	logger := h.obs.Logger.WithContext(ctx)

	repo := span.NewRepoSpan(execCtx)
	ctx = observability.ContextWithSpanID(ctx, repo.SpanID)
	agentSpan := span.NewAgentSpan(repo, string(name))

	started := time.Now()
	result, execErr := h.invoke(ctx, agent, agents.Input{
		ExecutionRef: execCtx.ExecutionID,
		Payload:      payload,
	})

	status := http.StatusOK
	var envelopeResult *ExecutionResult

	switch {
	case execErr != nil:
		spanErr := span.SpanError{
			Code:    span.CodeAgentUnhandledError,
			Message: execErr.Error(),
		}
		if err := span.FailAgentSpan(agentSpan, spanErr); err != nil {
			logger.Error("agent span bookkeeping failed", "error", err)
		}
		status = http.StatusInternalServerError
		envelopeResult = &ExecutionResult{Success: false, Error: &spanErr}
		logger.Error("agent execution failed unhandled",
			"agent", name,
			"error", execErr,
		)

	default:
		if result.DecisionEvent != nil {
			span.AttachArtifact(agentSpan, "decision_event", result.DecisionEvent)
		}
		if result.Success {
			if err := span.CompleteAgentSpan(agentSpan); err != nil {
				logger.Error("agent span bookkeeping failed", "error", err)
			}
			envelopeResult = &ExecutionResult{Success: true, Output: result.Output}
			if result.DecisionEvent != nil {
				envelopeResult.DecisionEventID = result.DecisionEvent.ID
				if h.broadcaster != nil {
					h.broadcaster.Publish(result.DecisionEvent)
				}
			}
		} else {
			spanErr := result.Error
			if spanErr == nil {
				spanErr = &span.SpanError{
					Code:    "AGENT_FAILED",
					Message: "agent reported failure without error detail",
				}
			}
			if err := span.FailAgentSpan(agentSpan, *spanErr); err != nil {
				logger.Error("agent span bookkeeping failed", "error", err)
			}
			status = http.StatusBadRequest
			envelopeResult = &ExecutionResult{Success: false, Output: result.Output, Error: spanErr}
		}
	}

	repo.AgentSpans = append(repo.AgentSpans, *agentSpan)
	span.FinalizeRepoSpan(repo)

	traceSpan := trace.SpanFromContext(ctx)
	traceSpan.SetAttributes(
		observability.AttrRepoSpanID.String(repo.SpanID),
		observability.AttrAgentName.String(string(name)),
		observability.AttrAgentStatus.String(string(agentSpan.Status)),
	)
	if result != nil && result.DecisionEvent != nil {
		traceSpan.SetAttributes(
			observability.AttrDecisionType.String(string(result.DecisionEvent.DecisionType)),
		)
	}

	h.obs.Metrics.RecordAgentExecution(ctx, string(name), string(agentSpan.Status), time.Since(started))

	c.JSON(status, ExecutionEnvelope{
		ExecutionID: execCtx.ExecutionID,
		RepoSpan:    repo,
		Result:      envelopeResult,
	})
}

// invoke runs the agent, converting panics into errors so a broken agent
// still produces a FAILED span and an audit-grade response.
func (h *ExecuteHandler) invoke(ctx context.Context, agent agents.Agent, input agents.Input) (result *agents.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("agent panicked: %v", r)
		}
	}()

	result, err = agent.Execute(ctx, input)
	if err == nil && result == nil {
		err = fmt.Errorf("agent returned no result")
	}
	return result, err
}
