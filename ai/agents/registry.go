package agents

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/ngxlabs/ngx-agents/ai/intent"
)

// ErrUnknownAgent is returned when an agent ID is not registered.
var ErrUnknownAgent = errors.New("agents: unknown agent")

// Registry holds the registered agents and the intent → agent mapping.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	agents   map[string]Agent
	order    []string // registration order, drives deterministic iteration
	byIntent map[intent.Intent][]string
	fallback []string // agent IDs used when no intent maps
}

// NewRegistry creates an empty agent registry.
func NewRegistry() *Registry {
	return &Registry{
		agents:   make(map[string]Agent),
		byIntent: make(map[intent.Intent][]string),
	}
}

// Register adds an agent and binds it to the given intents. Binding order is
// preserved per intent.
func (r *Registry) Register(a Agent, intents ...intent.Intent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := a.ID()
	if _, exists := r.agents[id]; !exists {
		r.order = append(r.order, id)
	}
	r.agents[id] = a
	for _, it := range intents {
		if it == intent.IntentGeneral {
			r.fallback = appendUniqueID(r.fallback, id)
			continue
		}
		r.byIntent[it] = appendUniqueID(r.byIntent[it], id)
	}
}

// SetFallback replaces the general fallback agent set. An empty set disables
// fallback, in which case unmapped intents route nowhere.
func (r *Registry) SetFallback(ids ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = ids
}

// Get returns the agent with the given ID.
func (r *Registry) Get(id string) (Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[id]
	if !ok {
		return nil, errors.Wrap(ErrUnknownAgent, id)
	}
	return a, nil
}

// All returns every registered agent in registration order.
func (r *Registry) All() []Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Agent, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.agents[id])
	}
	return out
}

// Cards returns the discovery documents for all registered agents.
func (r *Registry) Cards() []Card {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Card, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.agents[id].Card())
	}
	return out
}

// AgentsForIntent resolves primary and secondary intents to a deduplicated,
// ordered agent ID set. Primary contributions come first. When nothing maps,
// the fallback set is returned; the result is empty only when the fallback is
// unconfigured too.
func (r *Registry) AgentsForIntent(primary intent.Intent, secondary ...intent.Intent) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for _, id := range r.byIntent[primary] {
		out = appendUniqueID(out, id)
	}
	for _, sec := range secondary {
		for _, id := range r.byIntent[sec] {
			out = appendUniqueID(out, id)
		}
	}
	if len(out) == 0 {
		out = append(out, r.fallback...)
	}
	return out
}

func appendUniqueID(list []string, id string) []string {
	for _, existing := range list {
		if existing == id {
			return list
		}
	}
	return append(list, id)
}
