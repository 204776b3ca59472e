// Package routing decides which agents answer a request and how they are
// coordinated.
package routing

import (
	"log/slog"

	"github.com/pkg/errors"

	"github.com/ngxlabs/ngx-agents/ai/agents"
	"github.com/ngxlabs/ngx-agents/ai/intent"
	"github.com/ngxlabs/ngx-agents/ai/personalization"
)

// ErrNoAgents is returned when no agent can serve the request. Callers
// surface it as a business-level error event, not a transport failure.
var ErrNoAgents = errors.New("routing: no agents available for request")

// Mode is the coordination mode for the selected agents.
type Mode string

const (
	ModeParallel   Mode = "parallel"
	ModeSequential Mode = "sequential"
)

// Priority marks how urgently the request should be treated.
type Priority string

const (
	PriorityNormal   Priority = "normal"
	PriorityCritical Priority = "critical"
)

// Decision is the routing output consumed by the coordinator. It lives for
// one request only.
type Decision struct {
	AgentIDs           []string `json:"agent_ids"`
	Mode               Mode     `json:"coordination_mode"`
	Priority           Priority `json:"priority"`
	Confidence         float32  `json:"confidence"`
	SynthesisApproach  string   `json:"synthesis_approach"`
	ResponseUrgency    string   `json:"response_urgency"`
	ResponseComplexity string   `json:"response_complexity"`
	AgentLimit         int      `json:"agent_limit,omitempty"`
}

// sequentialAgentCap bounds the agent set in sequential mode to limit
// cognitive and response load.
const sequentialAgentCap = 2

// Router translates an intent analysis plus a personalization result into a
// routing decision.
type Router struct {
	registry *agents.Registry
	policy   *Policy // nil disables policy overrides
}

// NewRouter creates a router over the given agent registry.
func NewRouter(registry *agents.Registry, policy *Policy) *Router {
	return &Router{registry: registry, policy: policy}
}

// Route computes the routing decision. The same inputs always produce the
// same decision. The profile may be nil when no user data is available.
func (r *Router) Route(analysis intent.Analysis, profile *personalization.UserProfile, pres personalization.Result) (Decision, error) {
	ids := r.registry.AgentsForIntent(analysis.Primary, analysis.Secondary...)

	mod := pres.Physiological
	archetype := pres.Meta.Archetype

	// Physiologically mandated agents go first, ahead of intent matches.
	for i := len(mod.PriorityAgents) - 1; i >= 0; i-- {
		id := mod.PriorityAgents[i]
		if _, err := r.registry.Get(id); err != nil {
			slog.Warn("routing: priority agent not registered, skipping", "agent", id)
			continue
		}
		ids = prependUnique(ids, id)
	}

	d := Decision{
		AgentIDs:           ids,
		Mode:               ModeSequential,
		Priority:           PriorityNormal,
		Confidence:         analysis.Confidence,
		SynthesisApproach:  pres.ArchetypeAdaptation["synthesis_approach"],
		ResponseUrgency:    mod.ResponseUrgency,
		ResponseComplexity: mod.ResponseComplexity,
		AgentLimit:         mod.AgentLimit,
	}
	if d.SynthesisApproach == "" {
		d.SynthesisApproach = "results_oriented"
	}

	lowReadiness := mod.ReadinessScore < personalization.ReadinessLowThreshold
	switch {
	case archetype == personalization.ArchetypePrime && mod.ReadinessScore >= personalization.ReadinessHighThreshold:
		d.Mode = ModeParallel
	case archetype == personalization.ArchetypeLongevity || lowReadiness:
		d.Mode = ModeSequential
		if d.AgentLimit == 0 || d.AgentLimit > sequentialAgentCap {
			d.AgentLimit = sequentialAgentCap
		}
	case len(d.AgentIDs) > 1:
		d.Mode = ModeParallel
	}

	if mod.ResponseUrgency == personalization.UrgencySupportive {
		d.Priority = PriorityCritical
	}

	// Policy-added agents are mandatory like physiological ones and survive
	// the agent cap.
	mandatory := mod.PriorityAgents
	if r.policy != nil {
		added := r.policy.Apply(&d, analysis, profile, pres, r.registry)
		mandatory = append(append([]string(nil), mandatory...), added...)
	}

	d.AgentIDs = capAgents(d.AgentIDs, d.AgentLimit, mandatory)

	if len(d.AgentIDs) == 0 {
		return Decision{}, ErrNoAgents
	}

	slog.Debug("routing: decision computed",
		"primary_intent", analysis.Primary,
		"agents", d.AgentIDs,
		"mode", d.Mode,
		"priority", d.Priority,
	)
	return d, nil
}

// capAgents truncates ids to limit while always keeping mandatory agents.
func capAgents(ids []string, limit int, mandatory []string) []string {
	if limit <= 0 || len(ids) <= limit {
		return ids
	}
	isMandatory := make(map[string]bool, len(mandatory))
	for _, id := range mandatory {
		isMandatory[id] = true
	}

	out := make([]string, 0, limit)
	for _, id := range ids {
		if isMandatory[id] {
			out = append(out, id)
		}
	}
	for _, id := range ids {
		if len(out) >= limit {
			break
		}
		if !isMandatory[id] {
			out = append(out, id)
		}
	}
	// Mandatory agents may exceed the limit on their own; they all stay.
	return out
}

func prependUnique(list []string, id string) []string {
	for i, existing := range list {
		if existing == id {
			// Move to front to reflect mandated priority.
			copy(list[1:i+1], list[:i])
			list[0] = id
			return list
		}
	}
	return append([]string{id}, list...)
}
