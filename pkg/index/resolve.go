package index

import (
	"context"
	"fmt"
	"strings"

	"github.com/GPTNLP/AURA/internal/util"
	"github.com/GPTNLP/AURA/pkg/ai"
	"github.com/GPTNLP/AURA/pkg/graphstore"
	"github.com/GPTNLP/AURA/pkg/logger"
)

type synonymGroups struct {
	Groups [][]string `json:"groups" jsonschema_description:"Groups of entity names referring to the same real-world entity, first element canonical"`
}

// resolveEntities asks the model which node names are synonyms and
// contracts each synonym group into its canonical name. Resolution is
// best-effort: a batch whose response cannot be parsed is skipped with a
// warning. Returns the number of skipped batches.
func resolveEntities(
	ctx context.Context,
	client ai.CompletionClient,
	graph *graphstore.Graph,
	batchSize int,
	opts ...ai.GenerateOption,
) int {
	if batchSize <= 0 {
		batchSize = 50
	}

	names := make([]string, 0, graph.NodeCount())
	for _, node := range graph.Nodes() {
		names = append(names, node.Name)
	}

	skipped := 0
	for start := 0; start < len(names); start += batchSize {
		if ctx.Err() != nil {
			return skipped
		}
		batch := names[start:util.Min(start+batchSize, len(names))]
		if len(batch) < 2 {
			continue
		}

		var groups synonymGroups
		err := util.RetryErrWithContext(ctx, 2, func(ctx context.Context) error {
			return client.GenerateCompletionWithFormat(
				ctx,
				"synonym_groups",
				"Groups of entity names that refer to the same real-world entity",
				fmt.Sprintf(ai.ResolvePrompt, "- "+strings.Join(batch, "\n- ")),
				&groups,
				opts...,
			)
		})
		if err != nil {
			logger.Warn("entity resolution batch skipped", "batch", start/batchSize, "error", err)
			skipped++
			continue
		}

		inBatch := make(map[string]bool, len(batch))
		for _, name := range batch {
			inBatch[name] = true
		}
		for _, group := range groups.Groups {
			if len(group) < 2 {
				continue
			}
			primary := graphstore.NormalizeName(group[0])
			if !inBatch[primary] {
				continue
			}
			for _, synonym := range group[1:] {
				synonym = graphstore.NormalizeName(synonym)
				if !inBatch[synonym] || synonym == primary {
					continue
				}
				graph.MergeNodes(primary, synonym)
			}
		}
	}
	return skipped
}
