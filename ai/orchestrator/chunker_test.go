package orchestrator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitChunksEmpty(t *testing.T) {
	assert.Nil(t, SplitChunks("", 50))
	assert.Nil(t, SplitChunks("   \n  ", 50))
}

func TestSplitChunksShortTextSingleChunk(t *testing.T) {
	chunks := SplitChunks("Come carbohidratos complejos.", 120)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Come carbohidratos complejos.", chunks[0])
}

func TestSplitChunksBoundsAndReconstruction(t *testing.T) {
	var b strings.Builder
	for b.Len() < 500 {
		b.WriteString("Desayuna avena con fruta. Entrena fuerza tres veces por semana. ")
	}
	text := b.String()
	size := 50

	chunks := SplitChunks(text, size)
	require.Greater(t, len(chunks), 5)

	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 2*size, "chunk %q exceeds bound", c)
		assert.NotEmpty(t, strings.TrimSpace(c))
	}

	// Concatenation reconstructs the text modulo whitespace.
	assert.Equal(t, strings.Fields(text), strings.Fields(strings.Join(chunks, " ")))
}

func TestSplitChunksSentenceBoundariesPreferred(t *testing.T) {
	text := "Primera frase corta. Segunda frase corta. Tercera frase corta."
	chunks := SplitChunks(text, 25)
	for _, c := range chunks {
		assert.True(t, strings.HasSuffix(c, "."), "chunk %q should end at a sentence", c)
	}
}

func TestSplitChunksOversizedSentenceFallsBackToWords(t *testing.T) {
	words := strings.Repeat("palabra ", 40)
	text := strings.TrimSpace(words) + "."
	size := 30

	chunks := SplitChunks(text, size)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), size)
	}
	assert.Equal(t, strings.Fields(text), strings.Fields(strings.Join(chunks, " ")))
}

func TestSplitChunksLongWordKeptWhole(t *testing.T) {
	long := strings.Repeat("x", 80)
	chunks := SplitChunks(long, 20)
	require.Len(t, chunks, 1)
	assert.Equal(t, long, chunks[0])
}

func TestSplitChunksNewlineTerminatesSentence(t *testing.T) {
	chunks := SplitChunks("linea uno\nlinea dos", 100)
	require.Len(t, chunks, 1)
	assert.Equal(t, "linea uno linea dos", chunks[0])
}

func TestSplitChunksZeroSizeUsesDefault(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("Frase de ejemplo aqui. ", 20))
	chunks := SplitChunks(text, 0)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 2*DefaultChunkSize)
	}
}
