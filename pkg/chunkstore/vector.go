package chunkstore

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// SearchVector embeds the query and returns the top k rows by cosine
// similarity. Ties keep insertion order.
func (s *Store) SearchVector(ctx context.Context, query string, k int) ([]Hit, error) {
	if len(s.rows) == 0 || k <= 0 {
		return nil, nil
	}
	embedding, err := s.embedder.GenerateEmbedding(ctx, []byte(query))
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return s.searchEmbedding(embedding, k), nil
}

func (s *Store) searchEmbedding(query []float32, k int) []Hit {
	hits := make([]Hit, 0, len(s.rows))
	for _, row := range s.rows {
		hits = append(hits, Hit{Row: row, Score: cosine(query, row.Embedding)})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
