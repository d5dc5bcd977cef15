package index

import (
	"strings"
	"testing"
)

func newTestChunker(t *testing.T, chunkTokens, overlapTokens int) *Chunker {
	t.Helper()
	c, err := NewChunker(chunkTokens, overlapTokens)
	if err != nil {
		t.Skipf("token encoding unavailable: %v", err)
	}
	return c
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("One sentence. Another one! A third?\n\nA new paragraph without punctuation")
	expected := []string{"One sentence.", "Another one!", "A third?", "A new paragraph without punctuation"}
	if len(got) != len(expected) {
		t.Fatalf("expected %d sentences, got %v", len(expected), got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Fatalf("sentence %d: expected %q, got %q", i, expected[i], got[i])
		}
	}
}

func TestSplitSentencesIgnoresDecimalPoints(t *testing.T) {
	got := splitSentences("Version 3.5 shipped today. It works.")
	if len(got) != 2 {
		t.Fatalf("expected 2 sentences, got %v", got)
	}
}

func TestChunkerShortTextSingleChunk(t *testing.T) {
	c := newTestChunker(t, 600, 100)
	chunks := c.Split("A short document. Nothing more.")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
}

func TestChunkerRespectsBudget(t *testing.T) {
	c := newTestChunker(t, 40, 10)

	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("The quick brown fox jumps over the lazy dog. ")
	}
	chunks := c.Split(b.String())

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		tokens := len(c.enc.Encode(chunk, nil, nil))
		// Budget applies per sentence boundary; joining adds separators
		// so allow a small margin.
		if tokens > c.chunkTokens+10 {
			t.Fatalf("chunk %d has %d tokens, budget %d", i, tokens, c.chunkTokens)
		}
	}
}

func TestChunkerOverlap(t *testing.T) {
	c := newTestChunker(t, 30, 16)

	text := "Alpha beta gamma delta epsilon. Zeta eta theta iota kappa. Lambda mu nu xi omicron. Pi rho sigma tau upsilon. Phi chi psi omega one. Two three four five six."
	chunks := c.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %v", chunks)
	}

	// Each chunk after the first starts with a sentence from the tail of
	// its predecessor.
	for i := 1; i < len(chunks); i++ {
		first := strings.SplitN(chunks[i], ".", 2)[0]
		if !strings.Contains(chunks[i-1], first) {
			t.Fatalf("chunk %d does not overlap its predecessor:\nprev: %q\ncurr: %q", i, chunks[i-1], chunks[i])
		}
	}
}

func TestChunkerEmptyText(t *testing.T) {
	c := newTestChunker(t, 600, 100)
	if chunks := c.Split("   \n  "); chunks != nil {
		t.Fatalf("expected no chunks, got %v", chunks)
	}
}
