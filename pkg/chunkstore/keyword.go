package chunkstore

import (
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// BM25 parameters. The standard values work well for short chunks and
// there is no signal in this corpus that would justify tuning them.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// keywordIndex is a BM25 inverted index over the store's rows. It is
// rebuilt lazily on the first search after an insert; builds cost one pass
// over the corpus, which is cheaper than incremental bookkeeping during
// bulk indexing. The mutex covers the lazy rebuild so concurrent searches
// do not race on it.
type keywordIndex struct {
	mu       sync.Mutex
	dirty    bool
	postings map[string]map[int]int
	docLen   []int
	avgLen   float64
}

func newKeywordIndex() *keywordIndex {
	return &keywordIndex{dirty: true}
}

func (ki *keywordIndex) markDirty() {
	ki.mu.Lock()
	ki.dirty = true
	ki.mu.Unlock()
}

// searchScores rebuilds the index if needed and scores the query tokens
// against every document.
func (ki *keywordIndex) searchScores(rows []Row, queryTokens []string) map[int]float64 {
	ki.mu.Lock()
	defer ki.mu.Unlock()

	if ki.dirty {
		ki.rebuild(rows)
	}
	return ki.score(queryTokens, len(rows))
}

func (ki *keywordIndex) rebuild(rows []Row) {
	ki.postings = make(map[string]map[int]int)
	ki.docLen = make([]int, len(rows))

	total := 0
	for i, row := range rows {
		tokens := tokenize(row.Text)
		ki.docLen[i] = len(tokens)
		total += len(tokens)
		for _, token := range tokens {
			if ki.postings[token] == nil {
				ki.postings[token] = make(map[int]int)
			}
			ki.postings[token][i]++
		}
	}
	if len(rows) > 0 {
		ki.avgLen = float64(total) / float64(len(rows))
	}
	ki.dirty = false
}

// SearchBM25 returns the top k rows by BM25 score for the query. Rows with
// no matching token score zero and are omitted. Ties keep insertion order.
func (s *Store) SearchBM25(query string, k int) []Hit {
	if len(s.rows) == 0 || k <= 0 {
		return nil
	}

	scores := s.keywords.searchScores(s.rows, tokenize(query))

	hits := make([]Hit, 0, len(scores))
	for i, row := range s.rows {
		if scores[i] > 0 {
			hits = append(hits, Hit{Row: row, Score: scores[i]})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

func (ki *keywordIndex) score(queryTokens []string, docs int) map[int]float64 {
	scores := make(map[int]float64)
	for _, token := range queryTokens {
		posting, ok := ki.postings[token]
		if !ok {
			continue
		}
		idf := math.Log(1 + (float64(docs)-float64(len(posting))+0.5)/(float64(len(posting))+0.5))
		for doc, tf := range posting {
			norm := 1 - bm25B + bm25B*float64(ki.docLen[doc])/ki.avgLen
			scores[doc] += idf * float64(tf) * (bm25K1 + 1) / (float64(tf) + bm25K1*norm)
		}
	}
	return scores
}

// tokenize lowercases and splits on anything that is not a letter or
// digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
