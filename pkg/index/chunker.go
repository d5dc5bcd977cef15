// Package index turns raw documents into a knowledge graph and retrievable
// chunks: extraction, entity resolution, community summarization and
// persistence.
package index

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Chunker splits document text into token-bounded chunks along sentence
// boundaries, with token overlap between consecutive chunks so entities
// straddling a boundary are seen by both extraction calls.
type Chunker struct {
	enc           *tiktoken.Tiktoken
	chunkTokens   int
	overlapTokens int
}

func NewChunker(chunkTokens, overlapTokens int) (*Chunker, error) {
	enc, err := tiktoken.GetEncoding("o200k_base")
	if err != nil {
		return nil, err
	}
	if chunkTokens <= 0 {
		chunkTokens = 600
	}
	if overlapTokens < 0 || overlapTokens >= chunkTokens {
		overlapTokens = chunkTokens / 6
	}
	return &Chunker{enc: enc, chunkTokens: chunkTokens, overlapTokens: overlapTokens}, nil
}

// Split breaks text into chunks of at most the configured token budget.
// A single sentence longer than the budget becomes its own chunk rather
// than being cut mid-sentence.
func (c *Chunker) Split(text string) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	tokens := make([]int, len(sentences))
	for i, s := range sentences {
		tokens[i] = len(c.enc.Encode(s, nil, nil))
	}

	var chunks []string
	var current []string
	currentTokens := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, strings.Join(current, " "))

		// Seed the next chunk with trailing sentences up to the overlap
		// budget.
		var carry []string
		carryTokens := 0
		for i := len(current) - 1; i >= 0; i-- {
			t := len(c.enc.Encode(current[i], nil, nil))
			if carryTokens+t > c.overlapTokens {
				break
			}
			carry = append([]string{current[i]}, carry...)
			carryTokens += t
		}
		current = carry
		currentTokens = carryTokens
	}

	for i, sentence := range sentences {
		if currentTokens+tokens[i] > c.chunkTokens && len(current) > 0 {
			flush()
		}
		current = append(current, sentence)
		currentTokens += tokens[i]
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}

	// The overlap carry can reproduce the final chunk's content verbatim.
	if len(chunks) > 1 {
		last, prev := chunks[len(chunks)-1], chunks[len(chunks)-2]
		if strings.Contains(prev, last) {
			chunks = chunks[:len(chunks)-1]
		}
	}
	return chunks
}

// splitSentences cuts text after sentence-ending punctuation followed by
// whitespace. Paragraph breaks also terminate a sentence.
func splitSentences(text string) []string {
	var sentences []string
	var b strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		b.WriteRune(runes[i])
		boundary := false
		switch runes[i] {
		case '.', '!', '?':
			boundary = i+1 >= len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n' || runes[i+1] == '\t'
		case '\n':
			boundary = i+1 < len(runes) && runes[i+1] == '\n'
		}
		if boundary {
			if s := strings.TrimSpace(b.String()); s != "" {
				sentences = append(sentences, s)
			}
			b.Reset()
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
