package personalization

// archetypeAdaptation derives the base communication strategy purely from the
// archetype. PRIME gets a direct, efficiency-first register; LONGEVITY gets a
// comprehensive, sustainability-first one.
func archetypeAdaptation(a Archetype) map[string]string {
	switch a {
	case ArchetypeLongevity:
		return map[string]string{
			"communication_style": "supportive_educational",
			"detail_level":        "comprehensive",
			"pacing":              "gentle",
			"focus":               "sustainability_wellbeing",
			"framing":             "long_term_health",
			"synthesis_approach":  "wellbeing_focused",
		}
	default: // PRIME, also the safe default
		return map[string]string{
			"communication_style": "direct_performance",
			"detail_level":        "concise",
			"pacing":              "aggressive",
			"focus":               "efficiency_results",
			"framing":             "performance_gains",
			"synthesis_approach":  "results_oriented",
		}
	}
}

// timingAdaptation derives delivery-timing hints from archetype and readiness.
func timingAdaptation(a Archetype, readiness float64) map[string]string {
	timing := map[string]string{
		"preferred_cadence": "standard",
		"session_length":    "standard",
	}
	if a == ArchetypePrime && readiness >= ReadinessHighThreshold {
		timing["preferred_cadence"] = "rapid"
		timing["session_length"] = "short"
	}
	if readiness < ReadinessLowThreshold {
		timing["preferred_cadence"] = "relaxed"
		timing["session_length"] = "short"
	}
	return timing
}
