// Package personalization implements the two-layer personalization engine:
// an archetype layer (PRIME vs LONGEVITY communication strategy) modulated by
// a physiological layer (readiness derived from live biometric signals).
package personalization

import (
	"time"
)

// Archetype is one of two mutually exclusive user personas driving
// communication style.
type Archetype string

const (
	// ArchetypePrime is the performance/efficiency-oriented persona.
	ArchetypePrime Archetype = "PRIME"
	// ArchetypeLongevity is the sustainability/wellbeing-oriented persona.
	ArchetypeLongevity Archetype = "LONGEVITY"
)

// Valid reports whether a is a known archetype.
func (a Archetype) Valid() bool {
	return a == ArchetypePrime || a == ArchetypeLongevity
}

// Mode selects the depth of personalization applied.
type Mode string

const (
	ModeBasic    Mode = "basic"
	ModeStandard Mode = "standard"
	ModeExpert   Mode = "expert"
)

// BiometricSnapshot holds the most recent biometric signals for a user.
// All fields are optional; a nil field means the signal is unavailable and
// is excluded from readiness scoring. Present values are normalized to [0,1].
type BiometricSnapshot struct {
	SleepQuality  *float64 `json:"sleep_quality,omitempty"`
	StressLevel   *float64 `json:"stress_level,omitempty"`
	EnergyLevel   *float64 `json:"energy_level,omitempty"`
	RecoveryScore *float64 `json:"recovery_score,omitempty"`
}

// SignalCount returns how many biometric signals are present.
func (b BiometricSnapshot) SignalCount() int {
	n := 0
	for _, v := range []*float64{b.SleepQuality, b.StressLevel, b.EnergyLevel, b.RecoveryScore} {
		if v != nil {
			n++
		}
	}
	return n
}

// WorkoutRecord is one entry of the append-only workout history.
type WorkoutRecord struct {
	Date      time.Time `json:"date"`
	Type      string    `json:"type"`
	Duration  int       `json:"duration_minutes"`
	Intensity float64   `json:"intensity"`
}

// BiomarkerRecord is one entry of the append-only biomarker history.
type BiomarkerRecord struct {
	Date  time.Time `json:"date"`
	Name  string    `json:"name"`
	Value float64   `json:"value"`
	Unit  string    `json:"unit"`
}

// Constraints captures user-level limits that content must honor.
type Constraints struct {
	Equipment           []string `json:"equipment,omitempty"`
	DietaryRestrictions []string `json:"dietary_restrictions,omitempty"`
	TimeWindows         []string `json:"time_windows,omitempty"`
}

// UserProfile is an immutable per-request snapshot of a user, assembled from
// stored user data plus the live biometric feed. Personalization never
// mutates it; each call receives a fresh copy.
type UserProfile struct {
	UserID        string             `json:"user_id"`
	Archetype     Archetype          `json:"archetype"`
	Age           int                `json:"age,omitempty"`
	Gender        string             `json:"gender,omitempty"`
	FitnessLevel  string             `json:"fitness_level,omitempty"`
	InjuryHistory []string           `json:"injury_history,omitempty"`
	Medications   []string           `json:"medications,omitempty"`
	Biometrics    BiometricSnapshot  `json:"biometrics"`
	Workouts      []WorkoutRecord    `json:"workouts,omitempty"`
	Biomarkers    []BiomarkerRecord  `json:"biomarkers,omitempty"`
	Constraints   Constraints        `json:"constraints"`
	Preferences   map[string]float64 `json:"preferences,omitempty"`
}

// Context is the value object built once per personalization call.
type Context struct {
	Profile        *UserProfile
	AgentType      string
	RequestType    string
	RequestContent string
	Session        map[string]string
}

// Modulation is the physiological-layer output: adjustments driven by the
// biometric snapshot.
type Modulation struct {
	ReadinessScore     float64  `json:"readiness_score"`
	SignalsPresent     int      `json:"signals_present"`
	IntensityAdjust    string   `json:"intensity_adjustment"`
	PriorityAgents     []string `json:"priority_agents,omitempty"`
	ResponseUrgency    string   `json:"response_urgency"`
	ResponseComplexity string   `json:"response_complexity"`
	RecoveryStatus     string   `json:"recovery_status"`
	AgentLimit         int      `json:"agent_limit,omitempty"`
}

// Metadata describes how a Result was produced.
type Metadata struct {
	Archetype      Archetype `json:"archetype"`
	ReadinessScore float64   `json:"readiness_score"`
	SignalsPresent int       `json:"signals_present"`
	Mode           Mode      `json:"mode"`
	FallbackMode   bool      `json:"fallback_mode"`
	Applied        bool      `json:"personalization_applied"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// Result is the immutable output of one personalization call, consumed by the
// router (to bias agent selection) and the synthesizer (to shape final text).
type Result struct {
	ArchetypeAdaptation map[string]string `json:"archetype_adaptation"`
	Physiological       Modulation        `json:"physiological_modulation"`
	Content             map[string]string `json:"personalized_content"`
	Confidence          float64           `json:"confidence_score"`
	Meta                Metadata          `json:"personalization_metadata"`
}

// Response urgency values set by the physiological layer.
const (
	UrgencyNormal     = "normal"
	UrgencySupportive = "supportive"
)

// Response complexity values.
const (
	ComplexityStandard   = "standard"
	ComplexitySimplified = "simplified"
	ComplexityDetailed   = "detailed"
)

// Recovery status values.
const (
	RecoveryReady = "ready"
	RecoveryNeeds = "needs_recovery"
)
