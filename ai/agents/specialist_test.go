package agents

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngxlabs/ngx-agents/ai/core/llm"
)

type scriptedLLM struct {
	reply  string
	chunks []string
	stats  *llm.CallStats
	err    error

	gotMessages []llm.Message
}

func (s *scriptedLLM) Chat(ctx context.Context, messages []llm.Message) (string, *llm.CallStats, error) {
	s.gotMessages = messages
	return s.reply, s.stats, s.err
}

func (s *scriptedLLM) ChatStream(ctx context.Context, messages []llm.Message) (<-chan string, <-chan *llm.CallStats, <-chan error) {
	s.gotMessages = messages
	content := make(chan string, len(s.chunks))
	stats := make(chan *llm.CallStats, 1)
	errs := make(chan error, 1)
	if s.err != nil {
		errs <- s.err
		close(content)
		close(stats)
		return content, stats, errs
	}
	for _, c := range s.chunks {
		content <- c
	}
	close(content)
	if s.stats != nil {
		stats <- s.stats
	}
	close(stats)
	return content, stats, errs
}

func (s *scriptedLLM) Warmup(ctx context.Context) {}

func testPersona() PersonaConfig {
	return DefaultPersonas()[1] // SAGE
}

func TestSpecialistExecute(t *testing.T) {
	svc := &scriptedLLM{reply: "Come carbohidratos complejos 90 minutos antes.", stats: &llm.CallStats{TotalTokens: 42}}
	s := NewSpecialist(testPersona(), svc, "1.0.0")

	resp, err := s.Execute(context.Background(), Request{Content: "¿Qué debo comer antes de entrenar?"})
	require.NoError(t, err)
	assert.Equal(t, AgentSage, resp.AgentID)
	assert.Equal(t, 42, resp.TokensUsed)
	assert.NotEmpty(t, resp.Content)

	require.NotEmpty(t, svc.gotMessages)
	assert.Equal(t, "system", svc.gotMessages[0].Role)
}

func TestSpecialistExecuteAppendsDirectives(t *testing.T) {
	svc := &scriptedLLM{reply: "ok"}
	s := NewSpecialist(testPersona(), svc, "1.0.0")

	_, err := s.Execute(context.Background(), Request{
		Content: "hola",
		Directives: map[string]string{
			"delivery_style": "concise",
			"meal_focus":     "performance_fueling",
		},
	})
	require.NoError(t, err)

	system := svc.gotMessages[0].Content
	assert.Contains(t, system, "delivery_style: concise")
	assert.Contains(t, system, "meal_focus: performance_fueling")
	// sorted key order keeps the prompt stable
	assert.Less(t, strings.Index(system, "delivery_style"), strings.Index(system, "meal_focus"))
}

func TestSpecialistExecuteIncludesHistory(t *testing.T) {
	svc := &scriptedLLM{reply: "ok"}
	s := NewSpecialist(testPersona(), svc, "1.0.0")

	_, err := s.Execute(context.Background(), Request{
		Content: "¿y después de entrenar?",
		History: []HistoryTurn{
			{Role: "user", Content: "¿qué como antes?"},
			{Role: "assistant", Content: "carbohidratos"},
		},
	})
	require.NoError(t, err)
	require.Len(t, svc.gotMessages, 4)
	assert.Equal(t, "assistant", svc.gotMessages[2].Role)
	assert.Equal(t, "¿y después de entrenar?", svc.gotMessages[3].Content)
}

func TestSpecialistExecuteStreamAccumulates(t *testing.T) {
	svc := &scriptedLLM{chunks: []string{"Primero, ", "hidrátate. ", "Luego come."}, stats: &llm.CallStats{TotalTokens: 17}}
	s := NewSpecialist(testPersona(), svc, "1.0.0")

	var emitted []string
	resp, err := s.ExecuteStream(context.Background(), Request{Content: "hola"}, func(chunk string) error {
		emitted = append(emitted, chunk)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Primero, ", "hidrátate. ", "Luego come."}, emitted)
	assert.Equal(t, "Primero, hidrátate. Luego come.", resp.Content)
	assert.Equal(t, 17, resp.TokensUsed)
}

func TestSpecialistExecuteStreamError(t *testing.T) {
	svc := &scriptedLLM{err: assert.AnError}
	s := NewSpecialist(testPersona(), svc, "1.0.0")

	_, err := s.ExecuteStream(context.Background(), Request{Content: "hola"}, nil)
	assert.Error(t, err)
}

func TestSpecialistWithoutLLMReturnsError(t *testing.T) {
	s := NewSpecialist(testPersona(), nil, "1.0.0")

	_, err := s.Execute(context.Background(), Request{Content: "hola"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLLMUnavailable)

	_, err = s.ExecuteStream(context.Background(), Request{Content: "hola"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLLMUnavailable)
}

func TestBuildRegistryWithoutLLMIsolatesFailures(t *testing.T) {
	registry := BuildRegistry(DefaultPersonas(), nil, "1.0.0")

	agent, err := registry.Get(AgentSage)
	require.NoError(t, err)
	_, err = agent.Execute(context.Background(), Request{Content: "hola"})
	assert.ErrorIs(t, err, ErrLLMUnavailable)
}

func TestSpecialistCardEndpoints(t *testing.T) {
	s := NewSpecialist(testPersona(), &scriptedLLM{}, "1.2.3")
	card := s.Card()
	assert.Equal(t, "/api/v1/agents/sage_nutrition/run", card.Endpoints.Run)
	assert.Equal(t, "/api/v1/agents/sage_nutrition/status", card.Endpoints.Status)
	assert.Equal(t, "1.2.3", card.Version)
}
