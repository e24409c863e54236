// Package agents contains the governance business agents and the typed
// registry that routes invocations to them. Agent identifiers are a closed
// set; routing an unknown slug is a lookup miss at the registry boundary,
// not a scattered string comparison.
package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/decision"
	"github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/span"
)

// Name identifies a registered agent.
type Name string

const (
	UsageOversight  Name = "usage-oversight-agent"
	ChangeImpact    Name = "change-impact-agent"
	GovernanceAudit Name = "governance-audit-agent"
)

var knownNames = map[Name]bool{
	UsageOversight:  true,
	ChangeImpact:    true,
	GovernanceAudit: true,
}

// ParseName validates an agent slug from a route parameter.
func ParseName(s string) (Name, error) {
	name := Name(s)
	if !knownNames[name] {
		return "", fmt.Errorf("unknown agent: %q", s)
	}
	return name, nil
}

// Input is one agent invocation request. Payload is the raw request body;
// each agent decodes its own typed request from it.
type Input struct {
	ExecutionRef string
	Payload      json.RawMessage
}

// Result is the structured outcome of an agent invocation. A handled
// failure sets Success false and Error; the decision event is present
// whenever the agent got far enough to produce one.
type Result struct {
	Success       bool
	DecisionEvent *decision.DecisionEvent
	Output        any
	Error         *span.SpanError
}

// Agent is one governance business agent. Execute returns a structured
// Result for both success and handled failure; a returned error means the
// invocation itself broke and is treated as unhandled.
type Agent interface {
	Name() Name
	Version() string
	DecisionType() decision.DecisionType
	Execute(ctx context.Context, input Input) (*Result, error)
}

// Registry maps the closed set of agent names to their implementations.
type Registry struct {
	agents map[Name]Agent
}

// NewRegistry builds a registry, rejecting unknown names and duplicates.
func NewRegistry(agents ...Agent) (*Registry, error) {
	registry := &Registry{agents: make(map[Name]Agent, len(agents))}
	for _, agent := range agents {
		name := agent.Name()
		if !knownNames[name] {
			return nil, fmt.Errorf("register agent: unknown name %q", name)
		}
		if _, exists := registry.agents[name]; exists {
			return nil, fmt.Errorf("register agent: duplicate name %q", name)
		}
		registry.agents[name] = agent
	}
	return registry, nil
}

// Get returns the agent registered under name.
func (r *Registry) Get(name Name) (Agent, bool) {
	agent, ok := r.agents[name]
	return agent, ok
}

// List returns all registered agents sorted by name.
func (r *Registry) List() []Agent {
	list := make([]Agent, 0, len(r.agents))
	for _, agent := range r.agents {
		list = append(list, agent)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name() < list[j].Name() })
	return list
}

func invalidInput(message string) *Result {
	return &Result{
		Success: false,
		Error: &span.SpanError{
			Code:    "INVALID_AGENT_INPUT",
			Message: message,
		},
	}
}
