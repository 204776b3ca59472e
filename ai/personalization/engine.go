package personalization

import (
	"log/slog"
	"time"
)

// Default agent identifiers pulled into the physiological modulation when the
// biometric signals demand them. Overridable via EngineConfig so routing and
// personalization stay in agreement with the registry.
const (
	DefaultMotivationAgentID = "spark_motivation"
	DefaultRecoveryAgentID   = "wave_recovery"
)

// EngineConfig configures the personalization engine.
type EngineConfig struct {
	MotivationAgentID string
	RecoveryAgentID   string
	Strategies        *StrategyRegistry
}

// Engine is the two-layer personalization engine. It is safe for concurrent
// use; all state is read-only after construction.
type Engine struct {
	motivationAgentID string
	recoveryAgentID   string
	strategies        *StrategyRegistry
}

// NewEngine creates a personalization engine.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.MotivationAgentID == "" {
		cfg.MotivationAgentID = DefaultMotivationAgentID
	}
	if cfg.RecoveryAgentID == "" {
		cfg.RecoveryAgentID = DefaultRecoveryAgentID
	}
	if cfg.Strategies == nil {
		cfg.Strategies = NewStrategyRegistry()
	}
	return &Engine{
		motivationAgentID: cfg.MotivationAgentID,
		recoveryAgentID:   cfg.RecoveryAgentID,
		strategies:        cfg.Strategies,
	}
}

// Personalize runs the two-layer computation. It never returns an error:
// any internal failure degrades to a deterministic fallback Result with
// FallbackMode set, so personalization can never block the response pipeline.
func (e *Engine) Personalize(pctx Context, mode Mode) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("personalization: recovered from panic, using fallback", "panic", r)
			result = e.Fallback(pctx)
		}
	}()

	if mode == "" {
		mode = ModeStandard
	}
	if pctx.Profile == nil || !pctx.Profile.Archetype.Valid() {
		return e.Fallback(pctx)
	}
	profile := pctx.Profile

	// Layer 1: archetype.
	adaptation := archetypeAdaptation(profile.Archetype)

	// Layer 2: physiological.
	readiness, signals := Readiness(profile.Biometrics)
	mod := e.modulate(profile, readiness, signals)

	result = Result{
		ArchetypeAdaptation: adaptation,
		Physiological:       mod,
		Confidence:          confidence(signals, false),
		Meta: Metadata{
			Archetype:      profile.Archetype,
			ReadinessScore: readiness,
			SignalsPresent: signals,
			Mode:           mode,
			Applied:        true,
			GeneratedAt:    time.Now(),
		},
	}

	// Merge: agent-specific content adaptations plus timing.
	content := e.strategies.Get(pctx.AgentType).AgentAdaptations(pctx, &result)
	for k, v := range timingAdaptation(profile.Archetype, readiness) {
		content["timing_"+k] = v
	}
	result.Content = content

	slog.Debug("personalization: result computed",
		"user_id", profile.UserID,
		"archetype", profile.Archetype,
		"readiness", readiness,
		"signals", signals,
		"confidence", result.Confidence,
	)
	return result
}

// modulate computes the physiological modulation from the biometric snapshot.
func (e *Engine) modulate(profile *UserProfile, readiness float64, signals int) Modulation {
	b := profile.Biometrics
	mod := Modulation{
		ReadinessScore:     readiness,
		SignalsPresent:     signals,
		IntensityAdjust:    "maintain",
		ResponseUrgency:    UrgencyNormal,
		ResponseComplexity: ComplexityStandard,
		RecoveryStatus:     RecoveryStatus(b),
	}

	if readiness < ReadinessLowThreshold {
		mod.IntensityAdjust = "reduce"
		mod.ResponseComplexity = ComplexitySimplified
	} else if readiness >= ReadinessHighThreshold && profile.Archetype == ArchetypePrime {
		mod.IntensityAdjust = "increase"
		mod.ResponseComplexity = ComplexityDetailed
	}

	// High stress pulls in the motivation agent and softens delivery.
	if b.StressLevel != nil && *b.StressLevel > HighStressThreshold {
		mod.ResponseUrgency = UrgencySupportive
		mod.PriorityAgents = appendUnique(mod.PriorityAgents, e.motivationAgentID)
	}

	// Low energy caps the conversation load.
	if b.EnergyLevel != nil && *b.EnergyLevel < LowEnergyThreshold {
		mod.AgentLimit = 2
		mod.ResponseComplexity = ComplexitySimplified
	}

	// Recovery debt makes the recovery agent mandatory.
	if mod.RecoveryStatus == RecoveryNeeds {
		mod.PriorityAgents = appendUnique(mod.PriorityAgents, e.recoveryAgentID)
	}

	return mod
}

// Fallback produces the deterministic degraded result: safe PRIME defaults,
// confidence capped at 0.5, fallback flags set.
func (e *Engine) Fallback(pctx Context) Result {
	archetype := ArchetypePrime
	if pctx.Profile != nil && pctx.Profile.Archetype.Valid() {
		archetype = pctx.Profile.Archetype
	}
	res := Result{
		ArchetypeAdaptation: archetypeAdaptation(archetype),
		Physiological: Modulation{
			ReadinessScore:     0.5,
			IntensityAdjust:    "maintain",
			ResponseUrgency:    UrgencyNormal,
			ResponseComplexity: ComplexityStandard,
			RecoveryStatus:     RecoveryReady,
		},
		Content:    map[string]string{},
		Confidence: 0.3,
		Meta: Metadata{
			Archetype:    archetype,
			Mode:         ModeBasic,
			FallbackMode: true,
			Applied:      false,
			GeneratedAt:  time.Now(),
		},
	}
	return res
}

// confidence scores how much supporting signal backs the result. Sparse
// biometrics lower the score; it is never fabricated as 1.0.
func confidence(signals int, fallback bool) float64 {
	if fallback {
		return 0.3
	}
	c := 0.5 + 0.1*float64(signals)
	if c > 0.9 {
		c = 0.9
	}
	return c
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
