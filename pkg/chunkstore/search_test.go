package chunkstore

import (
	"context"
	"testing"
)

func seedStore(t *testing.T) *Store {
	t.Helper()
	s := New(t.TempDir(), stubEmbedder{})
	for _, text := range []string{
		"the cat sat on the mat",
		"the dog chased the ball",
		"a fish swam in the pond",
	} {
		if _, err := s.Insert(context.Background(), text, nil); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}
	return s
}

func TestSearchVectorRanking(t *testing.T) {
	s := seedStore(t)

	hits, err := s.SearchVector(context.Background(), "where is the cat", 2)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Row.Text != "the cat sat on the mat" {
		t.Fatalf("expected cat chunk first, got %q", hits[0].Row.Text)
	}
	if hits[0].Score <= hits[1].Score {
		t.Fatalf("expected descending scores, got %f then %f", hits[0].Score, hits[1].Score)
	}
}

func TestSearchVectorTiesKeepInsertionOrder(t *testing.T) {
	s := New(t.TempDir(), stubEmbedder{})
	first, _ := s.InsertWithEmbedding("first", nil, []float32{1, 0})
	second, _ := s.InsertWithEmbedding("second", nil, []float32{1, 0})

	hits := s.searchEmbedding([]float32{1, 0}, 2)
	if hits[0].Row.ID != first || hits[1].Row.ID != second {
		t.Fatalf("tied scores reordered rows: %s before %s", hits[0].Row.ID, hits[1].Row.ID)
	}
}

func TestSearchVectorEmptyStore(t *testing.T) {
	s := New(t.TempDir(), stubEmbedder{})
	hits, err := s.SearchVector(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if hits != nil {
		t.Fatalf("expected no hits, got %v", hits)
	}
}

func TestSearchBM25(t *testing.T) {
	s := seedStore(t)

	hits := s.SearchBM25("dog ball", 3)
	if len(hits) == 0 {
		t.Fatal("expected keyword hits")
	}
	if hits[0].Row.Text != "the dog chased the ball" {
		t.Fatalf("expected dog chunk first, got %q", hits[0].Row.Text)
	}

	// No token overlap means no hits, not low-scored noise.
	if hits := s.SearchBM25("zeppelin", 3); len(hits) != 0 {
		t.Fatalf("expected no hits for unseen term, got %d", len(hits))
	}
}

func TestSearchBM25PicksUpNewRows(t *testing.T) {
	s := seedStore(t)

	if hits := s.SearchBM25("parrot", 3); len(hits) != 0 {
		t.Fatalf("expected no hits before insert, got %d", len(hits))
	}
	if _, err := s.Insert(context.Background(), "a parrot on a perch", nil); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	hits := s.SearchBM25("parrot", 3)
	if len(hits) != 1 || hits[0].Row.Text != "a parrot on a perch" {
		t.Fatalf("index missed row inserted after first search: %v", hits)
	}
}

func TestSearchHybrid(t *testing.T) {
	s := seedStore(t)

	hits, err := s.SearchHybrid(context.Background(), "the cat", 3, 0.75)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}
	if hits[0].Row.Text != "the cat sat on the mat" {
		t.Fatalf("expected cat chunk first, got %q", hits[0].Row.Text)
	}

	if _, err := s.SearchHybrid(context.Background(), "the cat", 3, 1.5); err == nil {
		t.Fatal("expected error for weight out of range")
	}
}

func TestSearchHybridKeywordContribution(t *testing.T) {
	s := New(t.TempDir(), stubEmbedder{})

	// The paraphrase sits closer to the query embedding, but only the
	// verbatim chunk matches the keyword, and that should outweigh the
	// small vector deficit.
	verbatim, _ := s.InsertWithEmbedding("the zeppelin flew over the city", nil, []float32{0.9, 1, 1})
	paraphrase, _ := s.InsertWithEmbedding("the airship flew over the city", nil, []float32{1, 1, 1})

	query, err := stubEmbedder{}.GenerateEmbedding(context.Background(), []byte("zeppelin"))
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if cosine(query, []float32{0.9, 1, 1}) >= cosine(query, []float32{1, 1, 1}) {
		t.Fatal("fixture broken: verbatim chunk must have the lower vector similarity")
	}

	fused, err := s.SearchHybrid(context.Background(), "zeppelin", 2, 0.75)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if fused[0].Row.ID != verbatim || fused[1].Row.ID != paraphrase {
		t.Fatalf("expected verbatim keyword chunk first, got %s then %s", fused[0].Row.ID, fused[1].Row.ID)
	}
	if fused[0].Score <= fused[1].Score {
		t.Fatalf("keyword contribution missing: %f vs %f", fused[0].Score, fused[1].Score)
	}
}
