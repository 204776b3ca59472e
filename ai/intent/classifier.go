package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ngxlabs/ngx-agents/ai/core/llm"
)

// Analysis is the classification output.
type Analysis struct {
	Primary    Intent   `json:"primary_intent"`
	Secondary  []Intent `json:"secondary_intents,omitempty"`
	Confidence float32  `json:"confidence"`
	Method     string   `json:"method"` // rule, llm, fallback
}

const (
	methodRule     = "rule"
	methodLLM      = "llm"
	methodFallback = "fallback"

	// Rule hits below this confidence get a second opinion from the LLM
	// layer when one is configured.
	llmEscalationThreshold = 0.7

	llmTimeout = 8 * time.Second
)

// Classifier maps free text to an intent Analysis. The rule layer always runs
// first; an optional LLM layer refines low-confidence results.
type Classifier struct {
	registry *Registry
	llm      llm.Service // nil disables the LLM layer
}

// NewClassifier creates a classifier. Pass a nil service for rule-only mode.
func NewClassifier(registry *Registry, svc llm.Service) *Classifier {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Classifier{registry: registry, llm: svc}
}

// Analyze classifies the input. It never returns an error: internal failures
// degrade to the general intent with confidence 0.5 so routing never stalls.
func (c *Classifier) Analyze(ctx context.Context, text string) Analysis {
	text = strings.TrimSpace(text)
	if text == "" {
		return fallbackAnalysis()
	}

	hits := c.registry.MatchAll(text)
	if len(hits) > 0 && hits[0].Confidence >= llmEscalationThreshold {
		return analysisFromHits(hits, methodRule)
	}

	if c.llm != nil {
		if a, ok := c.classifyWithLLM(ctx, text); ok {
			return a
		}
	}

	if len(hits) > 0 {
		return analysisFromHits(hits, methodRule)
	}
	return fallbackAnalysis()
}

func analysisFromHits(hits []Hit, method string) Analysis {
	a := Analysis{
		Primary:    hits[0].Intent,
		Confidence: hits[0].Confidence,
		Method:     method,
	}
	for _, h := range hits[1:] {
		a.Secondary = append(a.Secondary, h.Intent)
	}
	return a
}

func fallbackAnalysis() Analysis {
	return Analysis{Primary: IntentGeneral, Confidence: 0.5, Method: methodFallback}
}

const classifyPromptTemplate = `Clasifica la intención del mensaje de un usuario de una plataforma de bienestar.

Intenciones válidas: %s

Responde SOLO con JSON:
{"primary_intent": "<intención>", "secondary_intents": ["<intención>"], "confidence": 0.0}

Mensaje: %s`

type llmClassification struct {
	Primary    string   `json:"primary_intent"`
	Secondary  []string `json:"secondary_intents"`
	Confidence float32  `json:"confidence"`
}

func (c *Classifier) classifyWithLLM(ctx context.Context, text string) (Analysis, bool) {
	ctx, cancel := context.WithTimeout(ctx, llmTimeout)
	defer cancel()

	labels := make([]string, 0)
	for _, it := range c.registry.Intents() {
		labels = append(labels, string(it))
	}
	labels = append(labels, string(IntentGeneral))

	prompt := fmt.Sprintf(classifyPromptTemplate, strings.Join(labels, ", "), text)
	resp, _, err := c.llm.Chat(ctx, []llm.Message{llm.UserMessage(prompt)})
	if err != nil {
		slog.Warn("intent: llm classification failed, keeping rule result", "error", err)
		return Analysis{}, false
	}

	var parsed llmClassification
	if err := json.Unmarshal([]byte(extractJSON(resp)), &parsed); err != nil {
		slog.Warn("intent: llm response not parseable", "error", err)
		return Analysis{}, false
	}

	primary, ok := c.validIntent(parsed.Primary)
	if !ok {
		slog.Warn("intent: llm returned unknown intent", "intent", parsed.Primary)
		return Analysis{}, false
	}

	a := Analysis{Primary: primary, Confidence: clampConfidence(parsed.Confidence), Method: methodLLM}
	for _, s := range parsed.Secondary {
		if sec, ok := c.validIntent(s); ok && sec != primary {
			a.Secondary = append(a.Secondary, sec)
		}
	}
	return a, true
}

func (c *Classifier) validIntent(label string) (Intent, bool) {
	label = strings.TrimSpace(strings.ToLower(label))
	if label == string(IntentGeneral) {
		return IntentGeneral, true
	}
	for _, it := range c.registry.Intents() {
		if label == string(it) {
			return it, true
		}
	}
	return IntentGeneral, false
}

func clampConfidence(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// extractJSON strips markdown fences the model sometimes wraps output in.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "{"); i >= 0 {
		if j := strings.LastIndex(s, "}"); j > i {
			return s[i : j+1]
		}
	}
	return s
}
