package v1

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngxlabs/ngx-agents/ai/agents"
	"github.com/ngxlabs/ngx-agents/ai/budget"
	"github.com/ngxlabs/ngx-agents/ai/intent"
	"github.com/ngxlabs/ngx-agents/ai/metrics"
	"github.com/ngxlabs/ngx-agents/ai/orchestrator"
	"github.com/ngxlabs/ngx-agents/ai/personalization"
	"github.com/ngxlabs/ngx-agents/ai/routing"
	"github.com/ngxlabs/ngx-agents/ai/session"
	"github.com/ngxlabs/ngx-agents/ai/synthesis"
	"github.com/ngxlabs/ngx-agents/internal/profile"
	"github.com/ngxlabs/ngx-agents/server/auth"
)

type stubAgent struct {
	id     string
	reply  string
	tokens int
}

func (a *stubAgent) ID() string { return a.id }
func (a *stubAgent) Card() agents.Card {
	return agents.Card{ID: a.id, Name: a.id, Version: "test"}
}

func (a *stubAgent) Execute(context.Context, agents.Request) (*agents.Response, error) {
	return &agents.Response{AgentID: a.id, Content: a.reply, TokensUsed: a.tokens, Confidence: 0.9}, nil
}

func (a *stubAgent) ExecuteStream(ctx context.Context, req agents.Request, emit agents.ChunkFunc) (*agents.Response, error) {
	resp, _ := a.Execute(ctx, req)
	if err := emit(resp.Content); err != nil {
		return nil, err
	}
	return resp, nil
}

func newTestService(t *testing.T, secret string) (*APIV1Service, *echo.Echo) {
	t.Helper()
	reg := agents.NewRegistry()
	reg.Register(&stubAgent{id: agents.AgentSage, reply: "Come avena con fruta.", tokens: 20}, intent.IntentNutrition)
	reg.Register(&stubAgent{id: agents.AgentBlaze, reply: "Entrena fuerza.", tokens: 15}, intent.IntentTraining)

	budgetManager := budget.NewManager(nil)
	svc := &APIV1Service{
		Profile:  &profile.Profile{Mode: "dev", Version: "test"},
		Secret:   secret,
		Registry: reg,
		Budget:   budgetManager,
		Metrics:  metrics.NewExporter(metrics.DefaultConfig()),
		Coordinator: orchestrator.NewCoordinator(orchestrator.Deps{
			Classifier:  intent.NewClassifier(intent.DefaultRegistry(), nil),
			Engine:      personalization.NewEngine(personalization.EngineConfig{}),
			Router:      routing.NewRouter(reg, nil),
			Registry:    reg,
			Synthesizer: synthesis.NewSynthesizer(nil),
			Sessions:    session.NewManager(nil),
			Budget:      budgetManager,
		}, orchestrator.DefaultConfig()),
	}

	e := echo.New()
	svc.Register(e)
	return svc, e
}

func doJSON(e *echo.Echo, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestGetAgentDirectory(t *testing.T) {
	_, e := newTestService(t, "")

	rec := doJSON(e, http.MethodGet, "/.well-known/agent.json", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), agents.AgentSage)
	assert.Contains(t, rec.Body.String(), agents.AgentBlaze)
}

func TestRunAgentUnknown(t *testing.T) {
	_, e := newTestService(t, "")

	rec := doJSON(e, http.MethodPost, "/api/v1/agents/ghost_agent/run",
		`{"messages":[{"role":"user","content":[{"text":"hola"}]}]}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunAgentNoUserMessage(t *testing.T) {
	_, e := newTestService(t, "")

	rec := doJSON(e, http.MethodPost, "/api/v1/agents/sage_nutrition/run",
		`{"messages":[{"role":"assistant","content":[{"text":"hola"}]}]}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunAgentBuffered(t *testing.T) {
	_, e := newTestService(t, "")

	rec := doJSON(e, http.MethodPost, "/api/v1/agents/sage_nutrition/run",
		`{"messages":[{"role":"user","content":[{"text":"¿Qué debo comer?"}]}]}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "Come avena con fruta.")
	assert.Contains(t, body, `"agent_id":"sage_nutrition"`)
	assert.Contains(t, body, `"tokens_used":20`)
	assert.Contains(t, body, "execution_time_ms")
}

func TestRunAgentStreaming(t *testing.T) {
	_, e := newTestService(t, "")

	rec := doJSON(e, http.MethodPost, "/api/v1/agents/sage_nutrition/run",
		`{"stream":true,"messages":[{"role":"user","content":[{"text":"¿Qué debo comer?"}]}]}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get(echo.HeaderContentType))

	body := rec.Body.String()
	assert.Contains(t, body, `data: {"`)
	assert.Contains(t, body, `"type":"content"`)
	assert.Contains(t, body, `"type":"complete"`)
}

func TestGetAgentStatus(t *testing.T) {
	_, e := newTestService(t, "")

	rec := doJSON(e, http.MethodGet, "/api/v1/agents/sage_nutrition/status", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"online"`)

	rec = doJSON(e, http.MethodGet, "/api/v1/agents/ghost_agent/status", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatStream(t *testing.T) {
	_, e := newTestService(t, "")

	rec := doJSON(e, http.MethodPost, "/api/v1/chat/stream",
		`{"user_id":"user-1","message":"¿Qué debo comer antes de entrenar?"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get(echo.HeaderContentType))

	body := rec.Body.String()
	assert.Contains(t, body, `"type":"start"`)
	assert.Contains(t, body, `"type":"intent_analysis"`)
	assert.Contains(t, body, `"type":"agents_selected"`)
	assert.Contains(t, body, `"type":"content"`)
	assert.Contains(t, body, `"type":"complete"`)
}

func TestChatStreamMissingMessage(t *testing.T) {
	_, e := newTestService(t, "")

	rec := doJSON(e, http.MethodPost, "/api/v1/chat/stream", `{"user_id":"user-1"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatStreamWithArchetype(t *testing.T) {
	_, e := newTestService(t, "")

	rec := doJSON(e, http.MethodPost, "/api/v1/chat/stream",
		`{"user_id":"user-1","message":"¿Qué debo comer?","archetype":"prime","biometrics":{"sleep_quality":0.9}}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"type":"complete"`)
}

func TestBudgetEndpoints(t *testing.T) {
	_, e := newTestService(t, "")

	rec := doJSON(e, http.MethodPost, "/api/budget/update",
		`{"agent_id":"sage_nutrition","max_tokens":1000,"alert_threshold":0.8}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"max_tokens":1000`)

	rec = doJSON(e, http.MethodGet, "/api/budget/status/sage_nutrition", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/budget/status", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sage_nutrition")

	rec = doJSON(e, http.MethodPost, "/api/budget/reset/sage_nutrition", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/budget/alerts", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/budget/summary", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/budget/status/ghost_agent", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/budget/update", `{"agent_id":"","max_tokens":0}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthMiddleware(t *testing.T) {
	_, e := newTestService(t, "test-secret")

	rec := doJSON(e, http.MethodPost, "/api/v1/chat/stream", `{"message":"hola"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := auth.GenerateAccessToken("user-1", time.Now().Add(time.Hour), []byte("test-secret"))
	require.NoError(t, err)

	rec = doJSON(e, http.MethodGet, "/api/v1/agents/sage_nutrition/status", "",
		map[string]string{echo.HeaderAuthorization: "Bearer " + token})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/v1/agents/sage_nutrition/status", "",
		map[string]string{echo.HeaderAuthorization: "Bearer bogus"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Discovery stays public.
	rec = doJSON(e, http.MethodGet, "/.well-known/agent.json", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddlewareAPIKey(t *testing.T) {
	svc, e := newTestService(t, "test-secret")
	hash, err := auth.HashAPIKey("service-key")
	require.NoError(t, err)
	svc.Profile.APIKeyHash = hash

	rec := doJSON(e, http.MethodGet, "/api/v1/agents/sage_nutrition/status", "",
		map[string]string{echo.HeaderAuthorization: "Bearer service-key"})
	assert.Equal(t, http.StatusOK, rec.Code)
}
