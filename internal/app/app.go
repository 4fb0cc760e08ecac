// Package app wires the engine: model client, indices, retrieval, gate,
// agent, tools, checkpoint store, and orchestrator.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"

	"github.com/koopa0/ragent/internal/agent"
	"github.com/koopa0/ragent/internal/answer"
	"github.com/koopa0/ragent/internal/checkpoint"
	"github.com/koopa0/ragent/internal/config"
	"github.com/koopa0/ragent/internal/database"
	"github.com/koopa0/ragent/internal/index"
	"github.com/koopa0/ragent/internal/ingest"
	"github.com/koopa0/ragent/internal/judge"
	"github.com/koopa0/ragent/internal/llm"
	"github.com/koopa0/ragent/internal/log"
	"github.com/koopa0/ragent/internal/orchestrator"
	"github.com/koopa0/ragent/internal/retrieval"
	"github.com/koopa0/ragent/internal/tools"
)

// App holds the wired engine and its owned resources.
type App struct {
	Config       *config.Config
	Logger       log.Logger
	Orchestrator *orchestrator.Orchestrator
	Loader       *ingest.Loader

	engine *retrieval.Engine
	sparse *index.Sparse
	pool   *pgxpool.Pool
}

// Setup builds the full engine from configuration.
//
// With postgres enabled the dense index and checkpoint store are backed by
// the database; otherwise both run in memory. The sparse index is always
// in-memory and rebuilt from the corpus at ingest time.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (*App, error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(log.Config{})
	}

	g, embedder, err := provideGenkit(ctx, cfg)
	if err != nil {
		return nil, err
	}

	completer, err := llm.NewClient(llm.Config{
		Genkit:      g,
		ModelName:   fmt.Sprintf("googleai/%s", cfg.ModelName),
		Temperature: cfg.Temperature,
		Logger:      logger,
		Limiter:     rate.NewLimiter(rate.Limit(2), 4),
	})
	if err != nil {
		return nil, fmt.Errorf("creating model client: %w", err)
	}

	app := &App{Config: cfg, Logger: logger}

	dense, store, err := app.provideStorage(ctx, cfg, embedder, logger)
	if err != nil {
		return nil, err
	}

	sparse, err := index.NewSparse(logger)
	if err != nil {
		return nil, fmt.Errorf("creating sparse index: %w", err)
	}
	app.sparse = sparse

	reranker, err := retrieval.NewModelReranker(completer, logger)
	if err != nil {
		return nil, err
	}
	engine, err := retrieval.New(retrieval.Config{
		Dense:     dense,
		Sparse:    sparse,
		Reranker:  reranker,
		Retrieval: cfg.Retrieval,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	app.engine = engine

	gate, err := judge.NewGate(completer, cfg.JudgeAffirmatives, logger)
	if err != nil {
		return nil, err
	}
	generator, err := answer.NewGenerator(completer, logger)
	if err != nil {
		return nil, err
	}

	toolset, err := provideTools(engine, cfg)
	if err != nil {
		return nil, err
	}
	runner, err := agent.New(agent.Config{
		Completer:     completer,
		Tools:         toolset,
		MaxIterations: cfg.Agent.MaxIterations,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}

	orch, err := orchestrator.New(orchestrator.Config{
		Retriever: engine,
		Gate:      gate,
		Generator: generator,
		Agent:     runner,
		Store:     store,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	app.Orchestrator = orch

	loader, err := ingest.NewLoader(ingest.Config{
		ChunkSize:    cfg.Ingest.ChunkSize,
		ChunkOverlap: cfg.Ingest.ChunkOverlap,
		Client:       toolHTTPClient(cfg),
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}
	app.Loader = loader

	return app, nil
}

// provideGenkit initializes Genkit with the Google AI plugin and looks up
// the embedder.
func provideGenkit(ctx context.Context, cfg *config.Config) (*genkit.Genkit, ai.Embedder, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, nil, errors.New("initializing genkit with gemini provider")
	}

	embedder := googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	if embedder == nil {
		return nil, nil, fmt.Errorf("looking up embedder %q", cfg.EmbedderModel)
	}
	return g, embedder, nil
}

// provideStorage selects the dense index and checkpoint store backends.
func (a *App) provideStorage(ctx context.Context, cfg *config.Config, embedder ai.Embedder, logger log.Logger) (retrieval.Searcher, checkpoint.Store, error) {
	if !cfg.Postgres.Enabled {
		dense, err := index.NewDense(embedder, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("creating dense index: %w", err)
		}
		return dense, checkpoint.NewMemoryStore(), nil
	}

	if err := database.Migrate(cfg.Postgres.URL(), logger); err != nil {
		return nil, nil, fmt.Errorf("migrating database: %w", err)
	}
	pool, err := database.Open(ctx, cfg.Postgres.ConnectionString())
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	a.pool = pool

	dense, err := index.NewPostgresDense(pool, embedder, logger)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("creating postgres dense index: %w", err)
	}
	store, err := checkpoint.NewPostgresStore(pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("creating postgres checkpoint store: %w", err)
	}
	return dense, store, nil
}

// provideTools assembles the agent toolset. The corpus retriever is always
// available; external tools join when configured. Every external tool shares
// one HTTP client bound by the configured timeout.
func provideTools(retriever tools.Retriever, cfg *config.Config) ([]tools.Tool, error) {
	retrieverTool, err := tools.NewRetrieverTool(retriever)
	if err != nil {
		return nil, err
	}
	toolset := []tools.Tool{retrieverTool}

	client := toolHTTPClient(cfg)

	wiki, err := tools.NewWikipediaTool(cfg.Tools.WikipediaLanguage, cfg.Tools.WikipediaTopK,
		tools.WithWikipediaClient(client))
	if err != nil {
		return nil, fmt.Errorf("creating wikipedia tool: %w", err)
	}
	toolset = append(toolset, wiki)

	arxiv, err := tools.NewArxivTool(cfg.Tools.ArxivTopK, cfg.Tools.ArxivMaxChars,
		tools.WithArxivClient(client))
	if err != nil {
		return nil, fmt.Errorf("creating arxiv tool: %w", err)
	}
	toolset = append(toolset, arxiv)

	if cfg.Tools.TavilyAPIKey != "" {
		web, err := tools.NewWebSearchTool(cfg.Tools.TavilyAPIKey, cfg.Tools.WebSearchTopK,
			tools.WithWebSearchClient(client))
		if err != nil {
			return nil, fmt.Errorf("creating web search tool: %w", err)
		}
		toolset = append(toolset, web)
	}

	return toolset, nil
}

// toolHTTPClient builds the shared client for external calls.
func toolHTTPClient(cfg *config.Config) *http.Client {
	timeout := cfg.Tools.Timeout
	if timeout <= 0 {
		timeout = config.DefaultToolTimeout
	}
	return &http.Client{Timeout: timeout}
}

// LoadCorpus ingests the configured URLs and files and rebuilds the indices.
func (a *App) LoadCorpus(ctx context.Context, urls, files []string) (int, error) {
	var docs []index.Document
	for _, u := range urls {
		chunks, err := a.Loader.FromURL(ctx, u)
		if err != nil {
			return 0, err
		}
		docs = append(docs, chunks...)
	}
	for _, f := range files {
		chunks, err := a.Loader.FromFile(f)
		if err != nil {
			return 0, err
		}
		docs = append(docs, chunks...)
	}

	if len(docs) == 0 {
		a.Logger.Warn("no corpus sources configured, retrieval will be empty")
		return 0, nil
	}
	if err := a.engine.Rebuild(ctx, docs); err != nil {
		return 0, err
	}
	a.Logger.Info("corpus loaded", "documents", len(docs))
	return len(docs), nil
}

// Close releases owned resources.
func (a *App) Close() {
	if a.sparse != nil {
		if err := a.sparse.Close(); err != nil {
			a.Logger.Warn("closing sparse index", "error", err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
