// Package ruvector is the HTTP client for the upstream decision event
// store. It persists, queries, and fetches DecisionEvents; failures are
// classified through the error taxonomy so the emitter can decide between
// graceful degradation and fatal auth rejection.
package ruvector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/decision"
	apperrors "github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/errors"
	"github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/ids"
	"github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/logging"
	"github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/observability"
)

const (
	defaultTimeout = 30 * time.Second
	defaultTTLDays = 365
)

// ErrNotFound is returned when the store has no event with the requested id.
var ErrNotFound = apperrors.NewPermanentError(nil, "decision event not found")

// Config holds the upstream connection settings. The client carries no
// other state, so one instance is safe for concurrent use.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	TTLDays int
	Retry   apperrors.RetryConfig
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.TTLDays <= 0 {
		c.TTLDays = defaultTTLDays
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry = apperrors.DefaultRetryConfig()
	}
	return c
}

// Client talks to the decision event store.
type Client struct {
	config Config
	http   *http.Client
	logger logging.Logger
}

// NewClient constructs a store client from config.
func NewClient(config Config, obs *observability.Observability) *Client {
	config = config.withDefaults()
	return &Client{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
		logger: logging.FromSlog(obs.Logger.Slog(), "ruvector"),
	}
}

type persistRequest struct {
	Event          *decision.DecisionEvent `json:"event"`
	IdempotencyKey string                  `json:"idempotency_key"`
	TTLDays        int                     `json:"ttl_days"`
}

// IdempotencyKey derives the deduplication key for an event. The store uses
// it to make repeated submissions of the same decision a no-op, which is
// what lets the client retry safely.
func IdempotencyKey(event *decision.DecisionEvent) string {
	return ids.HashFields(
		event.AgentID,
		event.AgentVersion,
		event.InputsHash,
		ids.Timestamp(event.Timestamp),
		event.Constraints.OrganizationID,
	)
}

// PersistDecisionEvent stores one event, retrying transient failures under
// the configured policy. Auth rejections surface as permanent auth errors
// and are never retried.
func (c *Client) PersistDecisionEvent(ctx context.Context, event *decision.DecisionEvent) error {
	payload, err := json.Marshal(persistRequest{
		Event:          event,
		IdempotencyKey: IdempotencyKey(event),
		TTLDays:        c.config.TTLDays,
	})
	if err != nil {
		return fmt.Errorf("encode decision event: %w", err)
	}

	return apperrors.Retry(ctx, c.config.Retry, c.logger, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.config.BaseURL+"/api/v1/decisions", bytes.NewReader(payload))
		if err != nil {
			return apperrors.NewPermanentError(err, "build persist request")
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

		resp, err := c.http.Do(req)
		if err != nil {
			return apperrors.NewTransientError(err, "")
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		return c.statusError(resp, "persist decision event")
	})
}

// QueryParams filters a decision event listing.
type QueryParams struct {
	AgentID        string
	DecisionType   string
	OrganizationID string
	Limit          int
	Offset         int
}

// QueryResult is one page of decision events.
type QueryResult struct {
	Events []decision.DecisionEvent `json:"events"`
	Total  int                      `json:"total"`
	Limit  int                      `json:"limit"`
	Offset int                      `json:"offset"`
}

// QueryDecisionEvents lists stored events matching the filter.
func (c *Client) QueryDecisionEvents(ctx context.Context, params QueryParams) (*QueryResult, error) {
	query := url.Values{}
	if params.AgentID != "" {
		query.Set("agent_id", params.AgentID)
	}
	if params.DecisionType != "" {
		query.Set("decision_type", params.DecisionType)
	}
	if params.OrganizationID != "" {
		query.Set("organization_id", params.OrganizationID)
	}
	if params.Limit > 0 {
		query.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Offset > 0 {
		query.Set("offset", strconv.Itoa(params.Offset))
	}

	endpoint := c.config.BaseURL + "/api/v1/decisions"
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	return retryGet[QueryResult](ctx, c, endpoint, "query decision events")
}

// GetDecisionEvent fetches one event by id. Returns ErrNotFound when the
// store has no such event.
func (c *Client) GetDecisionEvent(ctx context.Context, id string) (*decision.DecisionEvent, error) {
	endpoint := c.config.BaseURL + "/api/v1/decisions/" + url.PathEscape(id)
	return retryGet[decision.DecisionEvent](ctx, c, endpoint, "get decision event")
}

// HealthCheck verifies the store is reachable and the credentials work.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/health", nil)
	if err != nil {
		return apperrors.NewPermanentError(err, "build health request")
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.NewTransientError(err, "")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return c.statusError(resp, "health check")
}

func retryGet[T any](ctx context.Context, c *Client, endpoint, op string) (*T, error) {
	return apperrors.RetryWithResult(ctx, c.config.Retry, c.logger, func(ctx context.Context) (*T, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, apperrors.NewPermanentError(err, "build "+op+" request")
		}
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, apperrors.NewTransientError(err, "")
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, c.statusError(resp, op)
		}

		var result T
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, apperrors.NewPermanentError(err, "decode "+op+" response")
		}
		return &result, nil
	})
}

func (c *Client) statusError(resp *http.Response, op string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	err := fmt.Errorf("%s: upstream returned %d: %s", op, resp.StatusCode, bytes.TrimSpace(body))
	c.logger.Warn("ruvector request failed: op=%s status=%d", op, resp.StatusCode)
	return apperrors.ClassifyHTTPStatus(resp.StatusCode, err)
}
