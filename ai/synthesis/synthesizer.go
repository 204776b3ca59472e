// Package synthesis merges multi-agent outputs into one user-visible message.
package synthesis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ngxlabs/ngx-agents/ai/agents"
	"github.com/ngxlabs/ngx-agents/ai/core/llm"
	"github.com/ngxlabs/ngx-agents/ai/format"
	"github.com/ngxlabs/ngx-agents/ai/personalization"
)

// Approach values derived from the user's archetype.
const (
	ApproachResults   = "results_oriented"
	ApproachWellbeing = "wellbeing_focused"
)

// Attribution records which agent produced which fragment of the merged text.
type Attribution struct {
	AgentID    string `json:"agent_id"`
	Chars      int    `json:"chars"`
	TokensUsed int    `json:"tokens_used"`
}

// Result is the synthesized response plus its audit trail.
type Result struct {
	Content      string        `json:"content"`
	Attributions []Attribution `json:"attributions"`
	TokensUsed   int           `json:"tokens_used"`
	Method       string        `json:"method"` // llm, merge, single
}

// Synthesizer combines tagged agent responses. An LLM pass produces the
// coherent merge; concatenation is the fallback when the LLM is unavailable
// or fails.
type Synthesizer struct {
	llm llm.Service // nil forces deterministic merge
}

// NewSynthesizer creates a synthesizer. Pass nil to disable the LLM pass.
func NewSynthesizer(svc llm.Service) *Synthesizer {
	return &Synthesizer{llm: svc}
}

// Synthesize merges the responses honoring the synthesis approach and the
// personalization result. responses must be non-empty.
func (s *Synthesizer) Synthesize(ctx context.Context, responses []*agents.Response, approach string, pres personalization.Result) Result {
	ordered := orderResponses(responses, approach)

	out := Result{}
	for _, resp := range ordered {
		out.Attributions = append(out.Attributions, Attribution{
			AgentID:    resp.AgentID,
			Chars:      len(resp.Content),
			TokensUsed: resp.TokensUsed,
		})
		out.TokensUsed += resp.TokensUsed
	}

	switch {
	case len(ordered) == 1:
		out.Content = ordered[0].Content
		out.Method = "single"
	case s.llm != nil:
		content, stats, err := s.llm.Chat(ctx, s.buildMessages(ordered, approach))
		if err != nil {
			slog.Error("synthesis: LLM merge failed, falling back to concatenation", "error", err)
			out.Content = mergeConcat(ordered)
			out.Method = "merge"
			break
		}
		out.Content = strings.TrimSpace(content)
		out.Method = "llm"
		if stats != nil {
			out.TokensUsed += stats.TotalTokens
		}
	default:
		out.Content = mergeConcat(ordered)
		out.Method = "merge"
	}

	if pres.Physiological.ResponseComplexity == personalization.ComplexitySimplified {
		out.Content = format.Plain(out.Content)
	}
	if header := toneHeader(pres); header != "" {
		out.Content = header + "\n\n" + out.Content
	}
	return out
}

// orderResponses sorts outputs so the approach's leading concern comes first.
// Results-oriented puts training and progress up front; wellbeing-focused
// leads with recovery and motivation.
func orderResponses(responses []*agents.Response, approach string) []*agents.Response {
	lead := map[string]int{
		agents.AgentBlaze:  0,
		agents.AgentStella: 1,
	}
	if approach == ApproachWellbeing {
		lead = map[string]int{
			agents.AgentWave:  0,
			agents.AgentSpark: 1,
			agents.AgentLuna:  2,
		}
	}

	ordered := make([]*agents.Response, len(responses))
	copy(ordered, responses)
	// Stable by construction: equal ranks keep arrival order.
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && rank(lead, ordered[j-1]) > rank(lead, ordered[j]); j-- {
			ordered[j-1], ordered[j] = ordered[j], ordered[j-1]
		}
	}
	return ordered
}

func rank(lead map[string]int, resp *agents.Response) int {
	if r, ok := lead[resp.AgentID]; ok {
		return r
	}
	return len(lead) + 1
}

func mergeConcat(responses []*agents.Response) string {
	parts := make([]string, 0, len(responses))
	for _, resp := range responses {
		parts = append(parts, resp.Content)
	}
	return strings.Join(parts, "\n\n---\n\n")
}

func (s *Synthesizer) buildMessages(responses []*agents.Response, approach string) []llm.Message {
	var sb strings.Builder
	sb.WriteString("Combina las siguientes respuestas de especialistas en una sola respuesta coherente para el usuario.\n")
	if approach == ApproachWellbeing {
		sb.WriteString("Prioriza el bienestar y la sostenibilidad; tono cálido y educativo.\n")
	} else {
		sb.WriteString("Prioriza resultados y eficiencia; tono directo y conciso.\n")
	}
	sb.WriteString("No inventes información que no esté en las respuestas.\n\n")
	for _, resp := range responses {
		fmt.Fprintf(&sb, "[%s]\n%s\n\n", resp.AgentID, resp.Content)
	}
	return []llm.Message{llm.UserMessage(sb.String())}
}

// toneHeader prepends a short supportive opener when the physiological state
// asks for it.
func toneHeader(pres personalization.Result) string {
	if pres.Physiological.ResponseUrgency != personalization.UrgencySupportive {
		return ""
	}
	return "Antes de nada: respira. Vamos paso a paso."
}
