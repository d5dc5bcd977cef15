package chunkstore

import (
	"context"
	"fmt"
	"sort"
)

// SearchHybrid fuses cosine similarity and BM25 into one ranking. The
// BM25 scores are max-normalized into [0,1] first so the two signals are
// comparable; vectorWeight picks the blend (0.75 favors the dense signal,
// which matches how the two behave on short chunks).
func (s *Store) SearchHybrid(ctx context.Context, query string, k int, vectorWeight float64) ([]Hit, error) {
	if len(s.rows) == 0 || k <= 0 {
		return nil, nil
	}
	if vectorWeight < 0 || vectorWeight > 1 {
		return nil, fmt.Errorf("vector weight %f out of range [0,1]", vectorWeight)
	}

	embedding, err := s.embedder.GenerateEmbedding(ctx, []byte(query))
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	bm25 := s.keywords.searchScores(s.rows, tokenize(query))
	maxBM25 := 0.0
	for _, score := range bm25 {
		if score > maxBM25 {
			maxBM25 = score
		}
	}

	hits := make([]Hit, 0, len(s.rows))
	for i, row := range s.rows {
		score := vectorWeight * cosine(embedding, row.Embedding)
		if maxBM25 > 0 {
			score += (1 - vectorWeight) * bm25[i] / maxBM25
		}
		hits = append(hits, Hit{Row: row, Score: score})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}
