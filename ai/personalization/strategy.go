package personalization

import (
	"sync"
)

// Strategy produces agent-type-specific content adaptations on top of the
// shared two-layer computation. Variants are selected by agent type from a
// registry rather than subclassing the engine.
type Strategy interface {
	// AgentAdaptations returns the content adaptations for this agent type.
	// res carries the already-computed archetype and physiological layers.
	AgentAdaptations(pctx Context, res *Result) map[string]string
}

// StrategyFunc adapts a plain function to the Strategy interface.
type StrategyFunc func(pctx Context, res *Result) map[string]string

func (f StrategyFunc) AgentAdaptations(pctx Context, res *Result) map[string]string {
	return f(pctx, res)
}

// StrategyRegistry maps agent types to personalization strategies, with a
// shared default for unregistered types.
type StrategyRegistry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
	fallback   Strategy
}

// NewStrategyRegistry creates a registry pre-populated with the built-in
// per-agent variants.
func NewStrategyRegistry() *StrategyRegistry {
	r := &StrategyRegistry{
		strategies: make(map[string]Strategy),
		fallback:   StrategyFunc(defaultAdaptations),
	}
	r.Register("nutrition", StrategyFunc(nutritionAdaptations))
	r.Register("training", StrategyFunc(trainingAdaptations))
	r.Register("recovery", StrategyFunc(recoveryAdaptations))
	r.Register("motivation", StrategyFunc(motivationAdaptations))
	r.Register("orchestrator", StrategyFunc(orchestratorAdaptations))
	return r
}

// Register adds or replaces the strategy for an agent type.
func (r *StrategyRegistry) Register(agentType string, s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[agentType] = s
}

// Get returns the strategy for an agent type, falling back to the default.
func (r *StrategyRegistry) Get(agentType string) Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.strategies[agentType]; ok {
		return s
	}
	return r.fallback
}

func defaultAdaptations(pctx Context, res *Result) map[string]string {
	out := map[string]string{
		"complexity_adjustment": res.Physiological.ResponseComplexity,
		"delivery_style":        res.ArchetypeAdaptation["communication_style"],
		"focus_prioritization":  res.ArchetypeAdaptation["focus"],
	}
	return out
}

func nutritionAdaptations(pctx Context, res *Result) map[string]string {
	out := defaultAdaptations(pctx, res)
	if res.Physiological.ReadinessScore < ReadinessLowThreshold {
		out["meal_focus"] = "recovery_nutrition"
	} else if res.Meta.Archetype == ArchetypePrime {
		out["meal_focus"] = "performance_fueling"
	} else {
		out["meal_focus"] = "balanced_longevity"
	}
	if p := pctx.Profile; p != nil && len(p.Constraints.DietaryRestrictions) > 0 {
		out["honor_restrictions"] = "true"
	}
	return out
}

func trainingAdaptations(pctx Context, res *Result) map[string]string {
	out := defaultAdaptations(pctx, res)
	switch {
	case res.Physiological.ReadinessScore < ReadinessLowThreshold:
		out["load_adjustment"] = "deload"
	case res.Meta.Archetype == ArchetypePrime:
		out["load_adjustment"] = "progressive_overload"
	default:
		out["load_adjustment"] = "steady_progression"
	}
	if p := pctx.Profile; p != nil && len(p.InjuryHistory) > 0 {
		out["injury_aware"] = "true"
	}
	return out
}

func recoveryAdaptations(pctx Context, res *Result) map[string]string {
	out := defaultAdaptations(pctx, res)
	out["protocol_depth"] = "standard"
	if res.Physiological.RecoveryStatus == RecoveryNeeds {
		out["protocol_depth"] = "full"
	}
	return out
}

func motivationAdaptations(pctx Context, res *Result) map[string]string {
	out := defaultAdaptations(pctx, res)
	if res.Physiological.ResponseUrgency == UrgencySupportive {
		out["tone"] = "reassuring"
	} else if res.Meta.Archetype == ArchetypePrime {
		out["tone"] = "challenging"
	} else {
		out["tone"] = "encouraging"
	}
	return out
}

func orchestratorAdaptations(pctx Context, res *Result) map[string]string {
	out := defaultAdaptations(pctx, res)
	out["synthesis_approach"] = res.ArchetypeAdaptation["synthesis_approach"]
	return out
}
