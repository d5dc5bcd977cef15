package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/GPTNLP/AURA/internal/util"
	"github.com/GPTNLP/AURA/pkg/ai"
	"github.com/GPTNLP/AURA/pkg/chunkstore"
)

// EmptyStoreAnswer is returned when nothing has been indexed yet.
const EmptyStoreAnswer = "I do not have enough information to answer that. No documents have been indexed yet."

// QueryResult is the structured answer: the synthesized text, the
// deduplicated source references and the raw hits for citation display.
type QueryResult struct {
	Answer  string           `json:"answer"`
	Sources []string         `json:"sources"`
	Hits    []chunkstore.Hit `json:"hits"`
}

// Query retrieves context for the question and asks the model to answer
// from it. The whole call, retrieval included, runs under the configured
// query timeout. Recoverable conditions (empty store, keyword fallback)
// return a structured result, never an error.
func (e *Engine) Query(ctx context.Context, query, mode string, topK int) (*QueryResult, error) {
	if e.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.QueryTimeout)
		defer cancel()
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.chunks.Len() == 0 {
		return &QueryResult{Answer: EmptyStoreAnswer, Sources: []string{}}, nil
	}

	hits, expansions, err := e.retrieve(ctx, query, mode, topK)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return &QueryResult{Answer: EmptyStoreAnswer, Sources: []string{}}, nil
	}

	prompt := fmt.Sprintf("Context:\n%s\n\nQuestion: %s", e.assembleContext(hits, expansions), query)
	answer, err := util.RetryWithContext(ctx, 2, func(ctx context.Context) (string, error) {
		return e.client.GenerateCompletion(
			ctx,
			prompt,
			ai.WithModel(e.cfg.CompletionModel),
			ai.WithSystemPrompts(ai.AnswerSystemPrompt),
			ai.WithTemperature(e.cfg.Temperature),
		)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	return &QueryResult{
		Answer:  strings.TrimSpace(answer),
		Sources: collectSources(hits),
		Hits:    hits,
	}, nil
}

// assembleContext concatenates hit texts and graph expansions up to the
// configured character budget, marking truncation when it cuts.
func (e *Engine) assembleContext(hits []chunkstore.Hit, expansions []string) string {
	var sb strings.Builder
	for _, hit := range hits {
		sb.WriteString(hit.Row.Text)
		sb.WriteString("\n---\n")
	}
	if len(expansions) > 0 {
		sb.WriteString("Related graph facts:\n")
		for _, expansion := range expansions {
			sb.WriteString(expansion)
			sb.WriteString("\n")
		}
	}

	budget := e.cfg.ContextBudget
	if budget <= 0 {
		budget = 8000
	}
	return util.Truncate(sb.String(), budget, TruncationMarker)
}

// collectSources deduplicates the source metadata of the hits, preserving
// rank order.
func collectSources(hits []chunkstore.Hit) []string {
	seen := make(map[string]bool)
	sources := []string{}
	for _, hit := range hits {
		source := hit.Row.Meta["source"]
		if source == "" || seen[source] {
			continue
		}
		seen[source] = true
		sources = append(sources, source)
	}
	return sources
}
