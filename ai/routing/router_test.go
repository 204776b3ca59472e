package routing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngxlabs/ngx-agents/ai/agents"
	"github.com/ngxlabs/ngx-agents/ai/intent"
	"github.com/ngxlabs/ngx-agents/ai/personalization"
)

type stubAgent struct{ id string }

func (s *stubAgent) ID() string         { return s.id }
func (s *stubAgent) Card() agents.Card  { return agents.Card{ID: s.id} }
func (s *stubAgent) Execute(ctx context.Context, req agents.Request) (*agents.Response, error) {
	return &agents.Response{AgentID: s.id}, nil
}
func (s *stubAgent) ExecuteStream(ctx context.Context, req agents.Request, emit agents.ChunkFunc) (*agents.Response, error) {
	return s.Execute(ctx, req)
}

func testRegistry() *agents.Registry {
	r := agents.NewRegistry()
	r.Register(&stubAgent{id: agents.AgentSage}, intent.IntentNutrition)
	r.Register(&stubAgent{id: agents.AgentBlaze}, intent.IntentTraining)
	r.Register(&stubAgent{id: agents.AgentWave}, intent.IntentRecovery)
	r.Register(&stubAgent{id: agents.AgentSpark}, intent.IntentMotivation)
	r.Register(&stubAgent{id: agents.AgentStella}, intent.IntentProgress)
	r.Register(&stubAgent{id: agents.AgentGeneral}, intent.IntentGeneral)
	return r
}

func personalize(t *testing.T, archetype personalization.Archetype, b personalization.BiometricSnapshot) personalization.Result {
	t.Helper()
	engine := personalization.NewEngine(personalization.EngineConfig{})
	return engine.Personalize(personalization.Context{
		Profile: &personalization.UserProfile{UserID: "u1", Archetype: archetype, Biometrics: b},
	}, personalization.ModeStandard)
}

func TestRouteNutritionIntent(t *testing.T) {
	router := NewRouter(testRegistry(), nil)
	analysis := intent.Analysis{Primary: intent.IntentNutrition, Confidence: 0.95}
	pres := personalize(t, personalization.ArchetypePrime, personalization.BiometricSnapshot{})

	d, err := router.Route(analysis, nil, pres)
	require.NoError(t, err)
	assert.Contains(t, d.AgentIDs, agents.AgentSage)
	assert.Equal(t, float32(0.95), d.Confidence)
}

func TestRouteIdempotent(t *testing.T) {
	router := NewRouter(testRegistry(), nil)
	analysis := intent.Analysis{Primary: intent.IntentNutrition, Secondary: []intent.Intent{intent.IntentTraining}, Confidence: 0.8}
	pres := personalize(t, personalization.ArchetypePrime, personalization.BiometricSnapshot{})

	first, err := router.Route(analysis, nil, pres)
	require.NoError(t, err)
	require.NotEmpty(t, first.AgentIDs)
	for i := 0; i < 10; i++ {
		again, err := router.Route(analysis, nil, pres)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRouteDeduplicatesAgents(t *testing.T) {
	router := NewRouter(testRegistry(), nil)
	analysis := intent.Analysis{
		Primary:   intent.IntentNutrition,
		Secondary: []intent.Intent{intent.IntentNutrition, intent.IntentTraining},
	}
	pres := personalize(t, personalization.ArchetypePrime, personalization.BiometricSnapshot{})

	d, err := router.Route(analysis, nil, pres)
	require.NoError(t, err)
	seen := map[string]int{}
	for _, id := range d.AgentIDs {
		seen[id]++
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, "agent %s selected %d times", id, n)
	}
}

func TestRouteUnknownIntentFallsBackToGeneral(t *testing.T) {
	router := NewRouter(testRegistry(), nil)
	pres := personalize(t, personalization.ArchetypePrime, personalization.BiometricSnapshot{})

	d, err := router.Route(intent.Analysis{Primary: intent.Intent("algo_raro"), Confidence: 0.5}, nil, pres)
	require.NoError(t, err)
	assert.Equal(t, []string{agents.AgentGeneral}, d.AgentIDs)
}

func TestRouteNoAgentsAndNoFallback(t *testing.T) {
	r := agents.NewRegistry()
	r.Register(&stubAgent{id: agents.AgentSage}, intent.IntentNutrition)
	router := NewRouter(r, nil)
	pres := personalize(t, personalization.ArchetypePrime, personalization.BiometricSnapshot{})

	_, err := router.Route(intent.Analysis{Primary: intent.Intent("algo_raro")}, nil, pres)
	assert.ErrorIs(t, err, ErrNoAgents)
}

func TestRouteHighStressForcesMotivationAgent(t *testing.T) {
	router := NewRouter(testRegistry(), nil)
	b := personalization.BiometricSnapshot{
		StressLevel:  personalization.Float(0.9),
		SleepQuality: personalization.Float(0.6),
	}
	pres := personalize(t, personalization.ArchetypePrime, b)

	d, err := router.Route(intent.Analysis{Primary: intent.IntentNutrition, Confidence: 0.9}, nil, pres)
	require.NoError(t, err)
	assert.Contains(t, d.AgentIDs, agents.AgentSpark)
	assert.Equal(t, personalization.UrgencySupportive, d.ResponseUrgency)
	assert.Equal(t, PriorityCritical, d.Priority)
}

func TestRouteRecoveryDebtForcesRecoveryAgent(t *testing.T) {
	router := NewRouter(testRegistry(), nil)
	b := personalization.BiometricSnapshot{
		RecoveryScore: personalization.Float(0.2),
		SleepQuality:  personalization.Float(0.8),
		EnergyLevel:   personalization.Float(0.8),
		StressLevel:   personalization.Float(0.2),
	}
	pres := personalize(t, personalization.ArchetypePrime, b)

	d, err := router.Route(intent.Analysis{Primary: intent.IntentTraining, Confidence: 0.9}, nil, pres)
	require.NoError(t, err)
	assert.Contains(t, d.AgentIDs, agents.AgentWave)
}

func TestRouteLowEnergyCapsAgents(t *testing.T) {
	router := NewRouter(testRegistry(), nil)
	b := personalization.BiometricSnapshot{
		EnergyLevel:   personalization.Float(0.2),
		SleepQuality:  personalization.Float(0.9),
		StressLevel:   personalization.Float(0.1),
		RecoveryScore: personalization.Float(0.9),
	}
	pres := personalize(t, personalization.ArchetypePrime, b)

	analysis := intent.Analysis{
		Primary:   intent.IntentNutrition,
		Secondary: []intent.Intent{intent.IntentTraining, intent.IntentProgress},
		Confidence: 0.9,
	}
	d, err := router.Route(analysis, nil, pres)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(d.AgentIDs), 2)
	assert.Equal(t, personalization.ComplexitySimplified, d.ResponseComplexity)
}

func TestRoutePrimeHighReadinessGoesParallel(t *testing.T) {
	router := NewRouter(testRegistry(), nil)
	b := personalization.BiometricSnapshot{
		SleepQuality:  personalization.Float(0.9),
		EnergyLevel:   personalization.Float(0.9),
		StressLevel:   personalization.Float(0.1),
		RecoveryScore: personalization.Float(0.9),
	}
	pres := personalize(t, personalization.ArchetypePrime, b)

	analysis := intent.Analysis{Primary: intent.IntentNutrition, Secondary: []intent.Intent{intent.IntentTraining}, Confidence: 0.9}
	d, err := router.Route(analysis, nil, pres)
	require.NoError(t, err)
	assert.Equal(t, ModeParallel, d.Mode)
}

func TestRouteLongevityGoesSequentialAndCapped(t *testing.T) {
	router := NewRouter(testRegistry(), nil)
	b := personalization.BiometricSnapshot{
		SleepQuality:  personalization.Float(0.9),
		EnergyLevel:   personalization.Float(0.9),
		StressLevel:   personalization.Float(0.1),
		RecoveryScore: personalization.Float(0.9),
	}
	pres := personalize(t, personalization.ArchetypeLongevity, b)

	analysis := intent.Analysis{
		Primary:   intent.IntentNutrition,
		Secondary: []intent.Intent{intent.IntentTraining, intent.IntentProgress},
		Confidence: 0.9,
	}
	d, err := router.Route(analysis, nil, pres)
	require.NoError(t, err)
	assert.Equal(t, ModeSequential, d.Mode)
	assert.LessOrEqual(t, len(d.AgentIDs), 2)
	assert.Equal(t, "wellbeing_focused", d.SynthesisApproach)
}

func TestRouteLowReadinessGoesSequential(t *testing.T) {
	router := NewRouter(testRegistry(), nil)
	b := personalization.BiometricSnapshot{
		SleepQuality:  personalization.Float(0.2),
		EnergyLevel:   personalization.Float(0.5),
		StressLevel:   personalization.Float(0.6),
		RecoveryScore: personalization.Float(0.3),
	}
	pres := personalize(t, personalization.ArchetypePrime, b)

	analysis := intent.Analysis{Primary: intent.IntentNutrition, Secondary: []intent.Intent{intent.IntentTraining}, Confidence: 0.9}
	d, err := router.Route(analysis, nil, pres)
	require.NoError(t, err)
	assert.Equal(t, ModeSequential, d.Mode)
}
