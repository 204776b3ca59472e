package personalization

// Readiness weights. The exact values are a heuristic choice; the required
// property is monotonicity: higher sleep/energy/recovery and lower stress
// always increase the score. Weights are renormalized over present signals
// so a sparse snapshot still yields a [0,1] score.
const (
	weightSleep    = 0.30
	weightEnergy   = 0.25
	weightRecovery = 0.25
	weightStress   = 0.20
)

// Thresholds on the readiness score.
const (
	// ReadinessHighThreshold gates parallel coordination for PRIME users.
	ReadinessHighThreshold = 0.7
	// ReadinessLowThreshold forces simplified/recovery-oriented variants.
	ReadinessLowThreshold = 0.5
)

// Thresholds on individual signals used by the routing modulation rules.
const (
	HighStressThreshold  = 0.7
	LowEnergyThreshold   = 0.3
	LowRecoveryThreshold = 0.4
)

// Readiness computes the scalar readiness score from a biometric snapshot.
// Returns the score in [0,1] and the number of signals that contributed.
// With zero signals the score defaults to a neutral 0.5.
func Readiness(b BiometricSnapshot) (float64, int) {
	var sum, weightTotal float64
	signals := 0

	add := func(v *float64, weight float64, inverted bool) {
		if v == nil {
			return
		}
		val := clamp01(*v)
		if inverted {
			val = 1 - val
		}
		sum += val * weight
		weightTotal += weight
		signals++
	}

	add(b.SleepQuality, weightSleep, false)
	add(b.EnergyLevel, weightEnergy, false)
	add(b.RecoveryScore, weightRecovery, false)
	add(b.StressLevel, weightStress, true)

	if signals == 0 || weightTotal == 0 {
		return 0.5, 0
	}
	return sum / weightTotal, signals
}

// RecoveryStatus derives a coarse recovery state from the snapshot.
// Low recovery score or high stress marks the user as needing recovery.
func RecoveryStatus(b BiometricSnapshot) string {
	if b.RecoveryScore != nil && *b.RecoveryScore < LowRecoveryThreshold {
		return RecoveryNeeds
	}
	if b.StressLevel != nil && *b.StressLevel > HighStressThreshold {
		return RecoveryNeeds
	}
	return RecoveryReady
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Float is a convenience for building optional biometric fields.
func Float(v float64) *float64 {
	return &v
}
