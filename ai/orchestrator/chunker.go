package orchestrator

import (
	"strings"
	"unicode"
)

// DefaultChunkSize is the target chunk size in characters for re-emitted
// buffered agent output.
const DefaultChunkSize = 120

// SplitChunks splits text into bounded segments on sentence boundaries,
// falling back to word boundaries for oversized sentences. Joining the
// chunks with spaces reconstructs the text modulo whitespace. A single
// sentence may exceed size by up to one word.
func SplitChunks(text string, size int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = DefaultChunkSize
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}

	for _, sentence := range splitSentences(text) {
		if len(sentence) > 2*size {
			flush()
			chunks = append(chunks, splitWords(sentence, size)...)
			continue
		}
		if current.Len() > 0 && current.Len()+1+len(sentence) > size {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(sentence)
	}
	flush()
	return chunks
}

// splitSentences cuts the text after sentence-ending punctuation followed by
// whitespace. Newlines also terminate a sentence.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\n' {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
			continue
		}
		current.WriteRune(r)
		if isSentenceEnd(r) && (i+1 >= len(runes) || unicode.IsSpace(runes[i+1])) {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '…', ';':
		return true
	}
	return false
}

// splitWords packs words into segments of at most size characters; a single
// word longer than size becomes its own segment.
func splitWords(sentence string, size int) []string {
	words := strings.Fields(sentence)
	var out []string
	var current strings.Builder

	for _, w := range words {
		if current.Len() > 0 && current.Len()+1+len(w) > size {
			out = append(out, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(w)
	}
	if current.Len() > 0 {
		out = append(out, current.String())
	}
	return out
}
