package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GPTNLP/AURA/internal/config"
	"github.com/GPTNLP/AURA/internal/util"
	"github.com/GPTNLP/AURA/pkg/ai"
	"github.com/GPTNLP/AURA/pkg/ai/ollama"
	"github.com/GPTNLP/AURA/pkg/ai/openai"
	"github.com/GPTNLP/AURA/pkg/engine"
	"github.com/GPTNLP/AURA/pkg/logger"
	"github.com/GPTNLP/AURA/pkg/logger/console"
)

const usage = `Usage:
  aura build -dir <folder> [-workdir <dir>] [-force]
  aura query <question> [-workdir <dir>] [-mode vector|bm25|hybrid] [-k <n>]`

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.FromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Build calls run long extraction prompts, query calls answer in
	// seconds. Each command gets a client with its own timeout.
	switch os.Args[1] {
	case "build":
		runBuild(ctx, cfg, mustClient(cfg, cfg.BuildTimeout), os.Args[2:])
	case "query":
		runQuery(ctx, cfg, mustClient(cfg, cfg.QueryTimeout), os.Args[2:])
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
}

func mustClient(cfg config.Config, timeout time.Duration) ai.Client {
	client, err := newClient(cfg, timeout)
	if err != nil {
		logger.Fatal("failed to create model client", "error", err)
	}
	return client
}

func newClient(cfg config.Config, timeout time.Duration) (ai.Client, error) {
	switch cfg.Backend {
	case config.BackendOllama:
		return ollama.NewClient(ollama.NewClientParams{
			CompletionModel: cfg.CompletionModel,
			EmbeddingModel:  cfg.EmbeddingModel,
			BaseURL:         cfg.ServiceURL,
			ApiKey:          cfg.APIKey,
			Timeout:         timeout,
		})
	case config.BackendOpenAI:
		return openai.NewClient(openai.NewClientParams{
			CompletionModel: cfg.CompletionModel,
			EmbeddingModel:  cfg.EmbeddingModel,
			ChatURL:         cfg.ServiceURL,
			ChatKey:         cfg.APIKey,
			EmbeddingURL:    cfg.ServiceURL,
			EmbeddingKey:    cfg.APIKey,
			Timeout:         timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func runBuild(ctx context.Context, cfg config.Config, client ai.Client, args []string) {
	flags := flag.NewFlagSet("build", flag.ExitOnError)
	dir := flags.String("dir", "", "folder with documents to index")
	workDir := flags.String("workdir", ".aura", "working directory for persisted state")
	force := flags.Bool("force", false, "wipe existing graph and chunks before building")
	flags.Parse(args)

	if *dir == "" {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	e, err := engine.New(*workDir, client, cfg)
	if err != nil {
		logger.Fatal("failed to initialize engine", "error", err)
	}

	stats, err := e.Build(ctx, engine.BuildRequest{Folder: *dir}, *force)
	if err != nil {
		logger.Fatal("build failed", "error", err)
	}
	fmt.Printf("indexed %d chunks (%d skipped, %d files skipped), %d entities, %d relationships, %d communities\n",
		stats.InsertedChunks, stats.SkippedChunks, stats.SkippedFiles,
		stats.Entities, stats.Relationships, stats.Communities)
}

func runQuery(ctx context.Context, cfg config.Config, client ai.Client, args []string) {
	var question string
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		question = args[0]
		args = args[1:]
	}

	flags := flag.NewFlagSet("query", flag.ExitOnError)
	workDir := flags.String("workdir", ".aura", "working directory for persisted state")
	mode := flags.String("mode", engine.ModeHybrid, "retrieval mode: vector, bm25 or hybrid")
	topK := flags.Int("k", cfg.TopK, "number of chunks to retrieve")
	flags.Parse(args)

	if question == "" {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	e, err := engine.New(*workDir, client, cfg)
	if err != nil {
		logger.Fatal("failed to initialize engine", "error", err)
	}

	res, err := e.Query(ctx, question, *mode, *topK)
	if err != nil {
		logger.Fatal("query failed", "error", err)
	}

	fmt.Println(res.Answer)
	if len(res.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, source := range res.Sources {
			fmt.Printf("  - %s\n", source)
		}
	}
}
