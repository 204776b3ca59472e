package v1

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ngxlabs/ngx-agents/ai/agents"
)

// A2A message shapes. Content parts carry either text or opaque data.
type messagePart struct {
	Text string          `json:"text,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

type a2aMessage struct {
	Role    string        `json:"role"`
	Content []messagePart `json:"content"`
}

type runAgentRequest struct {
	Messages []a2aMessage      `json:"messages"`
	Context  map[string]string `json:"context,omitempty"`
	Stream   bool              `json:"stream,omitempty"`
}

type runAgentResponse struct {
	Messages []a2aMessage   `json:"messages"`
	Metadata map[string]any `json:"metadata"`
}

// GetAgentDirectory serves the A2A discovery document with every agent card.
func (s *APIV1Service) GetAgentDirectory(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"version": s.Profile.Version,
		"agents":  s.Registry.Cards(),
	})
}

// RunAgent executes a single agent directly, bypassing the orchestrator.
func (s *APIV1Service) RunAgent(c echo.Context) error {
	agent, err := s.Registry.Get(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "unknown agent")
	}

	var body runAgentRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}
	prompt, history := extractConversation(body.Messages)
	if prompt == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "no user message found")
	}

	req := agents.Request{
		UserID:     userIDFrom(c, body.Context),
		SessionID:  body.Context["session_id"],
		Content:    prompt,
		History:    history,
		Directives: body.Context,
	}

	if body.Stream {
		return s.runAgentStream(c, agent, req)
	}

	start := time.Now()
	resp, err := agent.Execute(c.Request().Context(), req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, errors.Wrap(err, "agent execution failed").Error())
	}
	s.recordAgentRun(resp)

	return c.JSON(http.StatusOK, runAgentResponse{
		Messages: []a2aMessage{{
			Role:    "assistant",
			Content: []messagePart{{Text: resp.Content}},
		}},
		Metadata: map[string]any{
			"agent_id":          resp.AgentID,
			"execution_time_ms": time.Since(start).Milliseconds(),
			"tokens_used":       resp.TokensUsed,
			"confidence":        resp.Confidence,
		},
	})
}

// runAgentStream delivers the agent's native token stream over SSE.
func (s *APIV1Service) runAgentStream(c echo.Context, agent agents.Agent, req agents.Request) error {
	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	start := time.Now()
	resp, err := agent.ExecuteStream(c.Request().Context(), req, func(chunk string) error {
		return writeSSE(w, map[string]any{
			"type":     "content",
			"agent_id": agent.ID(),
			"text":     chunk,
		})
	})
	if err != nil {
		return writeSSE(w, map[string]any{
			"type":    "error",
			"message": "el especialista no pudo completar la consulta",
		})
	}
	s.recordAgentRun(resp)

	return writeSSE(w, map[string]any{
		"type": "complete",
		"metadata": map[string]any{
			"agent_id":          resp.AgentID,
			"execution_time_ms": time.Since(start).Milliseconds(),
			"tokens_used":       resp.TokensUsed,
			"confidence":        resp.Confidence,
		},
	})
}

// GetAgentStatus reports one agent's card plus its current budget usage.
func (s *APIV1Service) GetAgentStatus(c echo.Context) error {
	agent, err := s.Registry.Get(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "unknown agent")
	}

	payload := map[string]any{
		"status": "online",
		"card":   agent.Card(),
	}
	if s.Budget != nil {
		if status, err := s.Budget.GetStatus(agent.ID()); err == nil {
			payload["budget"] = status
		}
	}
	return c.JSON(http.StatusOK, payload)
}

func (s *APIV1Service) recordAgentRun(resp *agents.Response) {
	if s.Budget != nil {
		s.Budget.Record(resp.AgentID, resp.TokensUsed)
	}
	if s.Metrics != nil {
		s.Metrics.RecordTokens(resp.AgentID, resp.TokensUsed)
	}
}

// extractConversation pulls the latest user message as the prompt and maps
// the earlier messages to agent history turns.
func extractConversation(messages []a2aMessage) (string, []agents.HistoryTurn) {
	promptIdx := -1
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" && flattenParts(messages[i].Content) != "" {
			promptIdx = i
			break
		}
	}
	if promptIdx < 0 {
		return "", nil
	}

	var history []agents.HistoryTurn
	for _, m := range messages[:promptIdx] {
		text := flattenParts(m.Content)
		if text == "" {
			continue
		}
		role := m.Role
		if role != "user" {
			role = "assistant"
		}
		history = append(history, agents.HistoryTurn{Role: role, Content: text})
	}
	return flattenParts(messages[promptIdx].Content), history
}

func flattenParts(parts []messagePart) string {
	out := ""
	for _, p := range parts {
		if p.Text == "" {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += p.Text
	}
	return out
}

func userIDFrom(c echo.Context, requestContext map[string]string) string {
	if id, ok := c.Get("user_id").(string); ok && id != "" {
		return id
	}
	return requestContext["user_id"]
}
