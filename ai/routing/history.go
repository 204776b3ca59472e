package routing

import (
	"context"
	"log/slog"
	"time"

	"github.com/ngxlabs/ngx-agents/ai/core/embedding"
	"github.com/ngxlabs/ngx-agents/ai/intent"
	"github.com/ngxlabs/ngx-agents/store"
)

// historyStore is the slice of the store the recorder needs.
type historyStore interface {
	CreateRoutingRecord(ctx context.Context, create *store.RoutingRecord, embedding []float32) (*store.RoutingRecord, error)
	RoutingVectorSearch(ctx context.Context, opts *store.RoutingVectorSearchOptions) ([]*store.RoutingMatch, error)
}

// CacheHit is a prior routing decision close enough to reuse.
type CacheHit struct {
	Intent     intent.Intent
	AgentIDs   []string
	Mode       Mode
	Confidence float64
	Score      float64
}

// History records routing decisions and answers semantic lookups against
// them. The embedder may be nil, which disables both the stored vectors and
// Lookup.
type History struct {
	store        historyStore
	embedder     embedding.Service
	minScore     float64
	embedTimeout time.Duration
}

// NewHistory creates a routing history recorder. minScore below or at zero
// uses the default similarity cutoff.
func NewHistory(st historyStore, embedder embedding.Service, minScore float64) *History {
	if minScore <= 0 {
		minScore = 0.92
	}
	return &History{
		store:        st,
		embedder:     embedder,
		minScore:     minScore,
		embedTimeout: 5 * time.Second,
	}
}

// Record persists one routing decision. Embedding failures degrade to a
// record without a vector; storage failures are logged and swallowed so
// bookkeeping never affects the response path.
func (h *History) Record(ctx context.Context, userID, prompt string, analysis intent.Analysis, d Decision) {
	if h == nil || h.store == nil {
		return
	}
	vector := h.embed(ctx, prompt)
	_, err := h.store.CreateRoutingRecord(ctx, &store.RoutingRecord{
		UserID:     userID,
		Prompt:     prompt,
		Intent:     string(analysis.Primary),
		Method:     analysis.Method,
		Confidence: float64(analysis.Confidence),
		AgentIDs:   d.AgentIDs,
		Mode:       string(d.Mode),
		CreatedTs:  time.Now().Unix(),
	}, vector)
	if err != nil {
		slog.Error("routing history: record failed", "user_id", userID, "error", err)
	}
}

// Lookup finds the closest prior decision for the prompt. It returns nil
// when nothing clears the similarity cutoff or when semantic search is
// unavailable on the backend.
func (h *History) Lookup(ctx context.Context, userID, prompt string) *CacheHit {
	if h == nil || h.store == nil || h.embedder == nil {
		return nil
	}
	vector := h.embed(ctx, prompt)
	if vector == nil {
		return nil
	}
	matches, err := h.store.RoutingVectorSearch(ctx, &store.RoutingVectorSearchOptions{
		UserID: userID,
		Vector: vector,
		Limit:  1,
	})
	if err != nil {
		slog.Warn("routing history: lookup failed", "error", err)
		return nil
	}
	if len(matches) == 0 || matches[0].Score < h.minScore {
		return nil
	}
	m := matches[0]
	return &CacheHit{
		Intent:     intent.Intent(m.Intent),
		AgentIDs:   m.AgentIDs,
		Mode:       Mode(m.Mode),
		Confidence: m.Confidence,
		Score:      m.Score,
	}
}

func (h *History) embed(ctx context.Context, prompt string) []float32 {
	if h.embedder == nil {
		return nil
	}
	embedCtx, cancel := context.WithTimeout(ctx, h.embedTimeout)
	defer cancel()
	vector, err := h.embedder.Embed(embedCtx, prompt)
	if err != nil {
		slog.Warn("routing history: embedding failed", "error", err)
		return nil
	}
	return vector
}
