package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/agents"
)

// AgentMetadata is the registration record exposed for each agent.
type AgentMetadata struct {
	AgentID      string `json:"agent_id"`
	Version      string `json:"version"`
	DecisionType string `json:"decision_type"`
	ExecuteRoute string `json:"execute_route"`
}

// AgentsHandler exposes the registry contents: which agents exist, their
// versions, and the decision type each one emits.
type AgentsHandler struct {
	registry *agents.Registry
}

func NewAgentsHandler(registry *agents.Registry) *AgentsHandler {
	return &AgentsHandler{registry: registry}
}

// HandleList implements GET /api/v1/agents.
func (h *AgentsHandler) HandleList(c *gin.Context) {
	list := h.registry.List()
	metadata := make([]AgentMetadata, 0, len(list))
	for _, agent := range list {
		metadata = append(metadata, agentMetadata(agent))
	}
	c.JSON(http.StatusOK, gin.H{"agents": metadata})
}

// HandleGet implements GET /api/v1/agents/:agent.
func (h *AgentsHandler) HandleGet(c *gin.Context) {
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
			Message: "agent is not registered: " + string(name),
		}})
		return
	}
	c.JSON(http.StatusOK, agentMetadata(agent))
}

func agentMetadata(agent agents.Agent) AgentMetadata {
	return AgentMetadata{
		AgentID:      string(agent.Name()),
		Version:      agent.Version(),
		DecisionType: string(agent.DecisionType()),
		ExecuteRoute: "POST /api/v1/agents/" + string(agent.Name()) + "/execute",
	}
}
