package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/decision"
	"github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/observability"
	"github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/ruvector"
)

const (
	defaultDecisionPageSize = 50
	maxDecisionPageSize     = 200
	decisionCacheSize       = 256
)

// DecisionsHandler serves the read side: listing and fetching persisted
// decision events from the upstream store. Events are immutable once
// created, so get-by-id responses are cached in a small LRU.
type DecisionsHandler struct {
	store *ruvector.Client
	cache *lru.Cache[string, *decision.DecisionEvent]
	obs   *observability.Observability
}

func NewDecisionsHandler(store *ruvector.Client, obs *observability.Observability) (*DecisionsHandler, error) {
	cache, err := lru.New[string, *decision.DecisionEvent](decisionCacheSize)
	if err != nil {
		return nil, err
	}
	return &DecisionsHandler{store: store, cache: cache, obs: obs}, nil
}

// HandleList implements GET /api/v1/decisions.
func (h *DecisionsHandler) HandleList(c *gin.Context) {
	limit := queryInt(c, "limit", defaultDecisionPageSize)
	if limit > maxDecisionPageSize {
		limit = maxDecisionPageSize
	}

	result, err := h.store.QueryDecisionEvents(c.Request.Context(), ruvector.QueryParams{
		AgentID:        c.Query("agent_id"),
		DecisionType:   c.Query("decision_type"),
		OrganizationID: c.Query("organization_id"),
		Limit:          limit,
		Offset:         queryInt(c, "offset", 0),
	})
	if err != nil {
		h.upstreamError(c, err, "query decision events")
		return
	}

	c.JSON(http.StatusOK, result)
}

// HandleGet implements GET /api/v1/decisions/:id.
func (h *DecisionsHandler) HandleGet(c *gin.Context) {
	id := c.Param("id")

	if event, ok := h.cache.Get(id); ok {
		c.JSON(http.StatusOK, event)
		return
	}

	event, err := h.store.GetDecisionEvent(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ruvector.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: ErrorBody{
				Code:    "DECISION_EVENT_NOT_FOUND",
				Message: "no decision event with id " + id,
			}})
			return
		}
		h.upstreamError(c, err, "get decision event")
		return
	}

	h.cache.Add(id, event)
	c.JSON(http.StatusOK, event)
}

func (h *DecisionsHandler) upstreamError(c *gin.Context, err error, op string) {
	h.obs.Logger.Error("decision store request failed", "op", op, "error", err)
	c.JSON(http.StatusBadGateway, ErrorResponse{Error: ErrorBody{
		Code:    "UPSTREAM_UNAVAILABLE",
		Message: "decision event store request failed",
	}})
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
