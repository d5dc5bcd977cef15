// Package config collects all tunable settings of the engine with typed
// fields and documented defaults. Values come from the environment (or a
// .env file) so deployments never patch code to retune.
package config

import (
	"time"

	"github.com/GPTNLP/AURA/internal/util"
)

const (
	BackendOllama = "ollama"
	BackendOpenAI = "openai"
)

type Config struct {
	// Model backend: "ollama" or "openai".
	Backend string
	// Base URL of the model service. Empty means the backend default.
	ServiceURL string
	// API key, required for openai, optional bearer token for ollama.
	APIKey string

	CompletionModel string
	EmbeddingModel  string

	// Chunking: token budget per chunk and token overlap between
	// consecutive chunks.
	ChunkTokens  int
	ChunkOverlap int

	// Retrieval defaults.
	TopK          int
	VectorWeight  float64
	ContextBudget int

	// Generation temperature for query answers. Near zero keeps answers
	// grounded in the retrieved context.
	Temperature float64

	// Indexing.
	ResolveBatchSize int
	CommunitySeed    uint64
	Parallelism      int

	// Per-call timeouts. Build calls run long extraction prompts.
	BuildTimeout time.Duration
	QueryTimeout time.Duration
}

// FromEnv reads the configuration from the environment, falling back to
// the documented defaults.
func FromEnv() Config {
	return Config{
		Backend:          util.GetEnvString("AURA_BACKEND", BackendOllama),
		ServiceURL:       util.GetEnvString("AURA_SERVICE_URL", ""),
		APIKey:           util.GetEnvString("AURA_API_KEY", ""),
		CompletionModel:  util.GetEnvString("AURA_COMPLETION_MODEL", "llama3.2"),
		EmbeddingModel:   util.GetEnvString("AURA_EMBEDDING_MODEL", "nomic-embed-text"),
		ChunkTokens:      int(util.GetEnvNumeric("AURA_CHUNK_TOKENS", 600)),
		ChunkOverlap:     int(util.GetEnvNumeric("AURA_CHUNK_OVERLAP", 100)),
		TopK:             int(util.GetEnvNumeric("AURA_TOP_K", 6)),
		VectorWeight:     util.GetEnvFloat("AURA_VECTOR_WEIGHT", 0.75),
		ContextBudget:    int(util.GetEnvNumeric("AURA_CONTEXT_BUDGET", 8000)),
		Temperature:      util.GetEnvFloat("AURA_TEMPERATURE", 0.05),
		ResolveBatchSize: int(util.GetEnvNumeric("AURA_RESOLVE_BATCH", 50)),
		CommunitySeed:    uint64(util.GetEnvNumeric("AURA_COMMUNITY_SEED", 1)),
		Parallelism:      int(util.GetEnvNumeric("AURA_PARALLELISM", 4)),
		BuildTimeout:     time.Duration(util.GetEnvNumeric("AURA_BUILD_TIMEOUT_SECONDS", 300)) * time.Second,
		QueryTimeout:     time.Duration(util.GetEnvNumeric("AURA_QUERY_TIMEOUT_SECONDS", 30)) * time.Second,
	}
}
