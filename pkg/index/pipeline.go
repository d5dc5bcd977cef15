package index

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/GPTNLP/AURA/internal/config"
	"github.com/GPTNLP/AURA/internal/util"
	"github.com/GPTNLP/AURA/pkg/ai"
	"github.com/GPTNLP/AURA/pkg/chunkstore"
	"github.com/GPTNLP/AURA/pkg/graphstore"
	"github.com/GPTNLP/AURA/pkg/logger"
)

// EntityTypes is the open tag set extraction asks the model to choose
// from.
var EntityTypes = []string{"organization", "person", "geo", "event", "concept"}

// Input is one chunk of source text to index, with its metadata (at least
// a "source" key for citation).
type Input struct {
	Text string
	Meta map[string]string
}

// BuildStats reports what a build did, so partial success is visible to
// the caller.
type BuildStats struct {
	InsertedChunks        int
	SkippedChunks         int
	SkippedFiles          int
	Entities              int
	Relationships         int
	Communities           int
	SkippedResolveBatches int
}

// Builder runs the four-phase indexing pipeline over one graph and chunk
// store pair.
type Builder struct {
	Client    ai.Client
	Graph     *graphstore.Graph
	Chunks    *chunkstore.Store
	GraphPath string
	Config    config.Config
}

// Build indexes the inputs: extraction into the graph, entity resolution,
// community summarization and persistence. With force set, prior graph
// and chunk state is wiped first.
//
// Individual chunk or batch failures degrade gracefully and are counted;
// the build as a whole fails only when every extraction failed (the model
// service is effectively unreachable) or persistence fails.
func (b *Builder) Build(ctx context.Context, inputs []Input, force bool) (*BuildStats, error) {
	stats := &BuildStats{}

	if force {
		b.Graph.Reset()
		if err := b.Chunks.Reset(); err != nil {
			return nil, fmt.Errorf("failed to reset chunk store: %w", err)
		}
		if err := os.Remove(b.GraphPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove graph file: %w", err)
		}
	}

	// Phase 1a: store the raw chunks. Sequential, the store is
	// single-writer.
	indexed := make([]Input, 0, len(inputs))
	for _, input := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if strings.TrimSpace(input.Text) == "" {
			stats.SkippedChunks++
			continue
		}
		if _, err := b.Chunks.Insert(ctx, input.Text, input.Meta); err != nil {
			logger.Warn("chunk skipped, embedding failed", "error", err)
			stats.SkippedChunks++
			continue
		}
		stats.InsertedChunks++
		indexed = append(indexed, input)
	}

	// Phase 1b: entity/relationship extraction, parallel across chunks.
	// The graph locks internally so goroutines merge directly.
	var failed atomic.Int64
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(b.parallelism())
	for _, input := range indexed {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			raw, err := util.RetryWithContext(groupCtx, 2, func(ctx context.Context) (string, error) {
				return b.Client.GenerateCompletion(
					ctx,
					fmt.Sprintf(ai.ExtractPrompt, strings.Join(EntityTypes, ", "), strings.Join(EntityTypes, ", "), input.Text),
					ai.WithModel(b.Config.CompletionModel),
					ai.WithTemperature(0.1),
				)
			})
			if err != nil {
				logger.Warn("extraction skipped for chunk", "source", input.Meta["source"], "error", err)
				failed.Add(1)
				return nil
			}
			extraction := ParseExtraction(raw)
			for _, e := range extraction.Entities {
				b.Graph.AddOrMergeNode(e.Name, e.Type, e.Description)
			}
			for _, r := range extraction.Relationships {
				b.Graph.AddOrMergeEdge(r.Source, r.Target, r.Description, r.Keywords)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	if len(indexed) > 0 && int(failed.Load()) == len(indexed) {
		return nil, fmt.Errorf("extraction failed for all %d chunks, model service unreachable", len(indexed))
	}
	stats.SkippedChunks += int(failed.Load())

	// Phase 2: best-effort entity resolution.
	stats.SkippedResolveBatches = resolveEntities(
		ctx, b.Client, b.Graph, b.Config.ResolveBatchSize,
		ai.WithModel(b.Config.CompletionModel),
		ai.WithTemperature(0.1),
	)

	// Phase 3: community detection and summarization.
	if err := b.summarizeCommunities(ctx, stats); err != nil {
		return nil, err
	}

	// Phase 3.5: profile every node and edge into the chunk store so
	// retrieval can land directly on graph content and expand from there.
	if err := b.profileGraph(ctx); err != nil {
		return nil, err
	}

	stats.Entities = b.Graph.NodeCount()
	stats.Relationships = b.Graph.EdgeCount()

	// Phase 4: persistence. Failures here are fatal for the build.
	if err := b.Graph.SaveGraphML(b.GraphPath); err != nil {
		return nil, err
	}
	if err := b.Chunks.Flush(); err != nil {
		return nil, err
	}
	return stats, nil
}

func (b *Builder) summarizeCommunities(ctx context.Context, stats *BuildStats) error {
	if b.Graph.NodeCount() == 0 {
		return nil
	}

	for i, members := range b.Graph.Communities(b.Config.CommunitySeed) {
		if err := ctx.Err(); err != nil {
			return err
		}

		communityID := fmt.Sprintf("c%d", i)
		summary, err := b.Client.GenerateCompletion(
			ctx,
			ai.BoundPrompt(b.communityDump(members), b.promptBudget()),
			ai.WithModel(b.Config.CompletionModel),
			ai.WithSystemPrompts(ai.CommunityPrompt),
			ai.WithTemperature(0.3),
		)
		if err != nil {
			logger.Warn("community summary skipped", "community", communityID, "error", err)
			continue
		}

		_, err = b.Chunks.Insert(ctx, summary, map[string]string{
			"type":         "community_summary",
			"community_id": communityID,
			"source":       "community/" + communityID,
		})
		if err != nil {
			logger.Warn("community summary not stored", "community", communityID, "error", err)
			continue
		}
		stats.Communities++
	}
	return nil
}

// communityDump renders one community's nodes and internal edges as plain
// records for the summarization prompt.
func (b *Builder) communityDump(members []string) string {
	inCommunity := make(map[string]bool, len(members))
	for _, name := range members {
		inCommunity[name] = true
	}

	var sb strings.Builder
	sb.WriteString("Entities:\n")
	for _, name := range members {
		node, ok := b.Graph.Node(name)
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "- %s (%s): %s\n", node.Name, node.Type, node.Description)
	}
	sb.WriteString("Relationships:\n")
	for _, edge := range b.Graph.Edges() {
		if !inCommunity[edge.Source] || !inCommunity[edge.Target] {
			continue
		}
		fmt.Fprintf(&sb, "- %s -- %s [%s]: %s\n", edge.Source, edge.Target, edge.Keywords, edge.Description)
	}
	return sb.String()
}

func (b *Builder) profileGraph(ctx context.Context) error {
	for _, node := range b.Graph.Nodes() {
		if err := ctx.Err(); err != nil {
			return err
		}
		text := fmt.Sprintf("Entity: %s. Type: %s. Description: %s", node.Name, node.Type, node.Description)
		_, err := b.Chunks.Insert(ctx, text, map[string]string{"type": "entity", "key": node.Name})
		if err != nil {
			logger.Warn("entity profile not stored", "entity", node.Name, "error", err)
		}
	}
	for _, edge := range b.Graph.Edges() {
		if err := ctx.Err(); err != nil {
			return err
		}
		text := fmt.Sprintf("Relation: %s and %s. Keywords: %s. Description: %s",
			edge.Source, edge.Target, edge.Keywords, edge.Description)
		_, err := b.Chunks.Insert(ctx, text, map[string]string{"type": "relation", "src": edge.Source, "tgt": edge.Target})
		if err != nil {
			logger.Warn("relation profile not stored", "src", edge.Source, "tgt", edge.Target, "error", err)
		}
	}
	return nil
}

func (b *Builder) parallelism() int {
	if b.Config.Parallelism > 0 {
		return b.Config.Parallelism
	}
	return 4
}

// promptBudget caps prompts assembled from stored content, like community
// dumps, which otherwise grow with the community.
func (b *Builder) promptBudget() int {
	if b.Config.ContextBudget > 0 {
		return b.Config.ContextBudget
	}
	return 8000
}
