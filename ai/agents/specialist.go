package agents

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/ngxlabs/ngx-agents/ai/core/llm"
	"github.com/ngxlabs/ngx-agents/ai/intent"
)

// ErrLLMUnavailable reports an execution attempt while no LLM backend is
// configured. The coordinator isolates it as a per-agent failure.
var ErrLLMUnavailable = errors.New("agents: llm service unavailable")

// Specialist is an LLM-backed Agent driven by a PersonaConfig.
type Specialist struct {
	persona PersonaConfig
	llm     llm.Service
	version string
}

// NewSpecialist creates a specialist from a persona and an LLM service.
// Persona generation limits override the service defaults per call.
func NewSpecialist(persona PersonaConfig, svc llm.Service, version string) *Specialist {
	if svc != nil {
		svc = llm.WithSampling(svc, persona.MaxTokens, persona.Temperature)
	}
	return &Specialist{persona: persona, llm: svc, version: version}
}

// ID implements Agent.
func (s *Specialist) ID() string { return s.persona.ID }

// Card implements Agent.
func (s *Specialist) Card() Card {
	return Card{
		ID:           s.persona.ID,
		Name:         s.persona.Name,
		Description:  s.persona.Description,
		Emoji:        s.persona.Emoji,
		Capabilities: s.persona.Capabilities,
		Endpoints: Endpoint{
			Run:    fmt.Sprintf("/api/v1/agents/%s/run", s.persona.ID),
			Status: fmt.Sprintf("/api/v1/agents/%s/status", s.persona.ID),
		},
		Version: s.version,
	}
}

// Intents returns the intent labels this specialist is bound to.
func (s *Specialist) Intents() []intent.Intent {
	out := make([]intent.Intent, 0, len(s.persona.Intents))
	for _, label := range s.persona.Intents {
		out = append(out, intent.Intent(label))
	}
	return out
}

// Execute implements Agent.
func (s *Specialist) Execute(ctx context.Context, req Request) (*Response, error) {
	if s.llm == nil {
		return nil, errors.Wrapf(ErrLLMUnavailable, "agent %s", s.persona.ID)
	}
	start := time.Now()
	content, stats, err := s.llm.Chat(ctx, s.buildMessages(req))
	if err != nil {
		return nil, errors.Wrapf(err, "agent %s: chat", s.persona.ID)
	}
	resp := s.buildResponse(content, stats, start)
	slog.Debug("agent: buffered execution done",
		"agent", s.persona.ID,
		"tokens", resp.TokensUsed,
		"duration_ms", resp.Duration.Milliseconds(),
	)
	return resp, nil
}

// ExecuteStream implements Agent. Content chunks go to emit as they arrive;
// the returned Response carries the accumulated text.
func (s *Specialist) ExecuteStream(ctx context.Context, req Request, emit ChunkFunc) (*Response, error) {
	if s.llm == nil {
		return nil, errors.Wrapf(ErrLLMUnavailable, "agent %s", s.persona.ID)
	}
	start := time.Now()
	contentChan, statsChan, errChan := s.llm.ChatStream(ctx, s.buildMessages(req))

	var sb strings.Builder
	var stats *llm.CallStats
	for contentChan != nil || statsChan != nil {
		select {
		case chunk, ok := <-contentChan:
			if !ok {
				contentChan = nil
				continue
			}
			sb.WriteString(chunk)
			if emit != nil {
				if err := emit(chunk); err != nil {
					return nil, errors.Wrapf(err, "agent %s: emit", s.persona.ID)
				}
			}
		case st, ok := <-statsChan:
			if !ok {
				statsChan = nil
				continue
			}
			stats = st
		case err := <-errChan:
			if err != nil {
				return nil, errors.Wrapf(err, "agent %s: stream", s.persona.ID)
			}
		case <-ctx.Done():
			return nil, errors.Wrapf(ctx.Err(), "agent %s: canceled", s.persona.ID)
		}
	}
	select {
	case err := <-errChan:
		if err != nil {
			return nil, errors.Wrapf(err, "agent %s: stream", s.persona.ID)
		}
	default:
	}
	return s.buildResponse(sb.String(), stats, start), nil
}

func (s *Specialist) buildResponse(content string, stats *llm.CallStats, start time.Time) *Response {
	resp := &Response{
		AgentID:    s.persona.ID,
		Content:    content,
		Confidence: 0.85,
		Duration:   time.Since(start),
	}
	if stats != nil {
		resp.TokensUsed = stats.TotalTokens
	}
	return resp
}

func (s *Specialist) buildMessages(req Request) []llm.Message {
	system := s.persona.SystemPrompt
	if directives := renderDirectives(req.Directives); directives != "" {
		system += "\n\n" + directives
	}

	messages := []llm.Message{llm.SystemPrompt(system)}
	for _, turn := range req.History {
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, llm.UserMessage(req.Content))
	return messages
}

// renderDirectives turns personalization hints into a stable prompt block.
// Keys are sorted so identical directives produce identical prompts.
func renderDirectives(directives map[string]string) string {
	if len(directives) == 0 {
		return ""
	}
	keys := make([]string, 0, len(directives))
	for k := range directives {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("Directrices de personalización para esta respuesta:")
	for _, k := range keys {
		sb.WriteString("\n- ")
		sb.WriteString(k)
		sb.WriteString(": ")
		sb.WriteString(directives[k])
	}
	return sb.String()
}
