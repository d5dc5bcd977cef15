package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/GPTNLP/AURA/pkg/ai"
	"github.com/GPTNLP/AURA/pkg/chunkstore"
	"github.com/GPTNLP/AURA/pkg/logger"
)

// Retrieval modes.
const (
	ModeVector = "vector"
	ModeBM25   = "bm25"
	ModeHybrid = "hybrid"
)

// TruncationMarker is appended when assembled context exceeds the budget.
const TruncationMarker = "\n[context truncated]"

// QueryKeywords is the dual-level keyword split the retrieval prompt asks
// for: themes versus concrete terms.
type QueryKeywords struct {
	HighLevel []string `json:"high_level_keywords" jsonschema_description:"Overarching concepts or themes of the query"`
	LowLevel  []string `json:"low_level_keywords" jsonschema_description:"Specific entities, details or concrete terms"`
}

// ExtractQueryKeywords asks the model to split the query into high-level
// and low-level keywords. It never fails: any error falls back to the
// query itself as the single high-level keyword.
func (e *Engine) ExtractQueryKeywords(ctx context.Context, query string) QueryKeywords {
	var kw QueryKeywords
	err := e.client.GenerateCompletionWithFormat(
		ctx,
		"query_keywords",
		"High-level and low-level keywords extracted from a search query",
		query,
		&kw,
		ai.WithModel(e.cfg.CompletionModel),
		ai.WithSystemPrompts(ai.KeywordsPrompt),
		ai.WithTemperature(0.1),
	)
	if err != nil || (len(kw.HighLevel) == 0 && len(kw.LowLevel) == 0) {
		if err != nil {
			logger.Warn("keyword extraction failed, using query verbatim", "error", err)
		}
		return QueryKeywords{HighLevel: []string{query}}
	}
	return kw
}

// Retrieve returns the top hits for the query in the given mode, plus any
// graph context gathered by 1-hop expansion of entity and relation hits.
func (e *Engine) retrieve(ctx context.Context, query, mode string, topK int) ([]chunkstore.Hit, []string, error) {
	if topK <= 0 {
		topK = e.cfg.TopK
	}

	switch mode {
	case ModeVector:
		hits, err := e.chunks.SearchVector(ctx, query, topK)
		return hits, nil, err
	case ModeBM25:
		return e.chunks.SearchBM25(query, topK), nil, nil
	case ModeHybrid, "":
		return e.retrieveHybrid(ctx, query, topK)
	default:
		return nil, nil, fmt.Errorf("unknown retrieval mode %q", mode)
	}
}

// retrieveHybrid searches once per extracted keyword, deduplicates by
// chunk id keeping the best score, and expands entity/relation hits one
// hop through the graph.
func (e *Engine) retrieveHybrid(ctx context.Context, query string, topK int) ([]chunkstore.Hit, []string, error) {
	kw := e.ExtractQueryKeywords(ctx, query)
	terms := append(append([]string{}, kw.HighLevel...), kw.LowLevel...)

	seen := make(map[string]int)
	var hits []chunkstore.Hit
	for _, term := range terms {
		if strings.TrimSpace(term) == "" {
			continue
		}
		termHits, err := e.chunks.SearchHybrid(ctx, term, topK, e.cfg.VectorWeight)
		if err != nil {
			return nil, nil, err
		}
		for _, hit := range termHits {
			if i, ok := seen[hit.Row.ID]; ok {
				if hit.Score > hits[i].Score {
					hits[i].Score = hit.Score
				}
				continue
			}
			seen[hit.Row.ID] = len(hits)
			hits = append(hits, hit)
		}
	}

	sortHits(hits)
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, e.expandGraph(hits), nil
}

// expandGraph collects 1-hop neighbor descriptions for every hit that
// profiles a graph node or edge.
func (e *Engine) expandGraph(hits []chunkstore.Hit) []string {
	var names []string
	for _, hit := range hits {
		switch hit.Row.Meta["type"] {
		case "entity":
			names = append(names, hit.Row.Meta["key"])
		case "relation":
			names = append(names, hit.Row.Meta["src"], hit.Row.Meta["tgt"])
		}
	}

	seen := make(map[string]bool)
	var expansions []string
	for _, name := range names {
		for _, neighbor := range e.graph.Neighbors(name) {
			key := name + "|" + neighbor.Name
			if seen[key] || seen[neighbor.Name+"|"+name] {
				continue
			}
			seen[key] = true

			node, ok := e.graph.Node(neighbor.Name)
			if !ok {
				continue
			}
			expansions = append(expansions, fmt.Sprintf("%s -- %s: %s %s",
				name, neighbor.Name, neighbor.Edge.Description, node.Description))
		}
	}
	return expansions
}

func sortHits(hits []chunkstore.Hit) {
	// Stable so equal scores keep discovery order.
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
}
