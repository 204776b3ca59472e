package routing

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngxlabs/ngx-agents/ai/intent"
	"github.com/ngxlabs/ngx-agents/store"
)

type fakeHistoryStore struct {
	records []*store.RoutingRecord
	vectors [][]float32
	matches []*store.RoutingMatch
	err     error
}

func (f *fakeHistoryStore) CreateRoutingRecord(_ context.Context, create *store.RoutingRecord, embedding []float32) (*store.RoutingRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.records = append(f.records, create)
	f.vectors = append(f.vectors, embedding)
	return create, nil
}

func (f *fakeHistoryStore) RoutingVectorSearch(_ context.Context, _ *store.RoutingVectorSearchOptions) ([]*store.RoutingMatch, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.matches, nil
}

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) { return f.vector, f.err }
func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = f.vector
	}
	return out, f.err
}
func (f *fakeEmbedder) Dimensions() int { return len(f.vector) }

func TestHistoryRecordStoresVector(t *testing.T) {
	st := &fakeHistoryStore{}
	h := NewHistory(st, &fakeEmbedder{vector: []float32{0.1, 0.2}}, 0)

	h.Record(context.Background(), "user-1", "¿Qué debo comer?",
		intent.Analysis{Primary: intent.IntentNutrition, Confidence: 0.9, Method: "rule"},
		Decision{AgentIDs: []string{"sage_nutrition"}, Mode: ModeParallel},
	)

	require.Len(t, st.records, 1)
	assert.Equal(t, "analizar_nutricion", st.records[0].Intent)
	assert.Equal(t, []float32{0.1, 0.2}, st.vectors[0])
}

func TestHistoryRecordWithoutEmbedderKeepsRecord(t *testing.T) {
	st := &fakeHistoryStore{}
	h := NewHistory(st, nil, 0)

	h.Record(context.Background(), "user-1", "hola",
		intent.Analysis{Primary: intent.IntentGeneral, Method: "fallback"},
		Decision{AgentIDs: []string{"nexus_general"}},
	)

	require.Len(t, st.records, 1)
	assert.Nil(t, st.vectors[0])
}

func TestHistoryRecordEmbeddingFailureDegrades(t *testing.T) {
	st := &fakeHistoryStore{}
	h := NewHistory(st, &fakeEmbedder{err: errors.New("provider down")}, 0)

	h.Record(context.Background(), "user-1", "hola",
		intent.Analysis{Primary: intent.IntentGeneral, Method: "fallback"},
		Decision{},
	)

	require.Len(t, st.records, 1)
	assert.Nil(t, st.vectors[0])
}

func TestHistoryLookupHit(t *testing.T) {
	st := &fakeHistoryStore{matches: []*store.RoutingMatch{{
		RoutingRecord: &store.RoutingRecord{
			Intent:     "analizar_nutricion",
			AgentIDs:   []string{"sage_nutrition"},
			Mode:       "parallel",
			Confidence: 0.9,
		},
		Score: 0.95,
	}}}
	h := NewHistory(st, &fakeEmbedder{vector: []float32{0.1}}, 0.92)

	hit := h.Lookup(context.Background(), "user-1", "¿Qué debo comer?")
	require.NotNil(t, hit)
	assert.Equal(t, intent.IntentNutrition, hit.Intent)
	assert.Equal(t, ModeParallel, hit.Mode)
	assert.InDelta(t, 0.95, hit.Score, 1e-9)
}

func TestHistoryLookupBelowCutoff(t *testing.T) {
	st := &fakeHistoryStore{matches: []*store.RoutingMatch{{
		RoutingRecord: &store.RoutingRecord{Intent: "analizar_nutricion"},
		Score:         0.5,
	}}}
	h := NewHistory(st, &fakeEmbedder{vector: []float32{0.1}}, 0.92)

	assert.Nil(t, h.Lookup(context.Background(), "user-1", "¿Qué debo comer?"))
}

func TestHistoryLookupUnavailable(t *testing.T) {
	var h *History
	assert.Nil(t, h.Lookup(context.Background(), "user-1", "hola"))
	h.Record(context.Background(), "user-1", "hola", intent.Analysis{}, Decision{})

	noEmbed := NewHistory(&fakeHistoryStore{}, nil, 0)
	assert.Nil(t, noEmbed.Lookup(context.Background(), "user-1", "hola"))

	failing := NewHistory(&fakeHistoryStore{err: errors.New("sqlite backend")}, &fakeEmbedder{vector: []float32{0.1}}, 0)
	assert.Nil(t, failing.Lookup(context.Background(), "user-1", "hola"))
}
