package agents

import (
	"log/slog"

	"github.com/ngxlabs/ngx-agents/ai/core/llm"
)

// BuildRegistry constructs a registry of specialists from persona configs.
// Each persona becomes one LLM-backed specialist bound to its intents.
func BuildRegistry(personas []PersonaConfig, svc llm.Service, version string) *Registry {
	registry := NewRegistry()
	for _, persona := range personas {
		specialist := NewSpecialist(persona, svc, version)
		registry.Register(specialist, specialist.Intents()...)
		slog.Debug("agents: registered specialist", "agent", persona.ID, "intents", persona.Intents)
	}
	return registry
}
