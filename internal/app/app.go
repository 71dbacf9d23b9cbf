// Package app wires configuration into the store, retrieval, language model
// and pipeline. It serves as dependency injection for the binaries.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/raphaelgruber/podcastrag/internal/assembler"
	"github.com/raphaelgruber/podcastrag/internal/config"
	"github.com/raphaelgruber/podcastrag/internal/db"
	"github.com/raphaelgruber/podcastrag/internal/embedding"
	"github.com/raphaelgruber/podcastrag/internal/enrich"
	"github.com/raphaelgruber/podcastrag/internal/llm"
	"github.com/raphaelgruber/podcastrag/internal/metrics"
	"github.com/raphaelgruber/podcastrag/internal/pipeline"
	"github.com/raphaelgruber/podcastrag/internal/retrieval"
	"github.com/raphaelgruber/podcastrag/internal/service"
	"github.com/raphaelgruber/podcastrag/internal/store"
	"github.com/raphaelgruber/podcastrag/internal/tokenizer"
	"github.com/raphaelgruber/podcastrag/internal/tools"
)

// Options selects which parts are built.
type Options struct {
	// WithoutLLM skips the language model and the pipeline. Retrieval and
	// recommendation still work.
	WithoutLLM bool
}

// App holds the long-lived components of a process.
type App struct {
	Config      config.Config
	Logger      *slog.Logger
	Metrics     *metrics.Collector
	Store       *store.Adapter
	Engine      *retrieval.Engine
	Recommender *service.Recommender
	Pipeline    *pipeline.Pipeline

	recorder *pipeline.JSONLRecorder
}

// New builds an App. An unreachable database or embedding provider degrades
// the app instead of failing it; an unusable language model is an error
// unless opts.WithoutLLM is set.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	mc := metrics.NewCollector()
	a := &App{Config: cfg, Logger: logger, Metrics: mc}

	a.Store = store.New(nil, store.Options{
		Logger:         logger,
		Metrics:        mc,
		Dial:           dialer(cfg, logger),
		RedialInterval: cfg.StoreRedialInterval,
	})
	if err := a.Store.Connect(ctx); err != nil {
		logger.Error("graph store unavailable, answering without it until it comes back", "error", err, "url", cfg.SurrealDBURL)
	}

	var queryEmbedder retrieval.QueryEmbedder
	emb, err := embedding.New(cfg, mc)
	if err != nil {
		logger.Warn("embedding provider unavailable, similarity fallback disabled", "error", err)
	} else {
		queryEmbedder = emb
	}

	policy := cfg.Policy
	a.Engine = retrieval.NewEngine(a.Store, queryEmbedder, retrieval.Options{
		TopK:          policy.TopK,
		ExpandDepth:   policy.ExpandDepth,
		FallbackBelow: policy.FallbackBelow,
		Dimension:     cfg.EmbedDimension,
		AlwaysHybrid:  policy.AlwaysHybrid,
	}, logger, mc)
	a.Recommender = service.NewRecommender(a.Store)

	if opts.WithoutLLM {
		return a, nil
	}

	model, err := llm.NewModel(ctx, cfg, mc)
	if err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("create language model: %w", err)
	}

	var counter tokenizer.Counter
	tk, err := tokenizer.NewTiktoken(cfg.TokenCountModel)
	if err != nil {
		logger.Warn("tiktoken unavailable, approximating token counts", "error", err)
		counter = tokenizer.Approximate
	} else {
		counter = tk
	}

	var recorder pipeline.Recorder = pipeline.NopRecorder{}
	if cfg.PipelineLogFile != "" {
		rec, err := pipeline.NewJSONLRecorder(cfg.PipelineLogFile)
		if err != nil {
			logger.Warn("pipeline log disabled", "error", err, "file", cfg.PipelineLogFile)
		} else {
			a.recorder = rec
			recorder = rec
		}
	}

	pipeOpts := pipeline.DefaultOptions()
	pipeOpts.Completion = llm.CompleteOptions{MaxTokens: cfg.LLMMaxTokens, Temperature: cfg.LLMTemperature}

	a.Pipeline = pipeline.New(pipeline.Deps{
		Retriever: a.Engine,
		Enricher:  enrich.New(a.Store, policy.MetadataCacheTTL),
		Builder: assembler.New(counter, assembler.Options{
			MaxTokens:        policy.MaxContextTokens,
			IncludeURLs:      policy.IncludeURLs,
			TruncationMarker: policy.TruncationMarker,
		}),
		Completer: model,
		Recorder:  recorder,
		Logger:    logger,
		Metrics:   mc,
	}, pipeOpts)

	logger.Info("podcastrag ready",
		"store_connected", a.Store.Connected(),
		"llm", model.Model(),
		"top_k", a.Engine.Options().TopK,
		"max_context_tokens", policy.MaxContextTokens,
	)
	return a, nil
}

// dialer connects outside the caller's cancellation so a redial triggered by
// one request keeps serving the ones after it.
func dialer(cfg config.Config, logger *slog.Logger) store.Dialer {
	dbCfg := db.Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		AuthLevel: cfg.SurrealDBAuthLevel,
	}
	return func(ctx context.Context) (store.Querier, error) {
		client, err := db.Connect(context.WithoutCancel(ctx), dbCfg, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// ToolDependencies returns the MCP tool dependencies.
func (a *App) ToolDependencies() *tools.Dependencies {
	deps := &tools.Dependencies{
		Retriever:   a.Engine,
		Recommender: a.Recommender,
		Store:       a.Store,
		Metrics:     a.Metrics,
		Logger:      a.Logger,
	}
	if a.Pipeline != nil {
		deps.Pipeline = a.Pipeline
	}
	return deps
}

// GraphCounts returns episode and segment totals, or zeros without a database.
func (a *App) GraphCounts(ctx context.Context) (db.GraphCounts, error) {
	q, err := a.Store.Querier(ctx)
	if err != nil {
		return db.GraphCounts{}, err
	}
	client, ok := q.(*db.Client)
	if !ok {
		return db.GraphCounts{}, store.ErrNotConnected
	}
	return client.QueryGraphCounts(ctx)
}

// Close releases the database connection and the pipeline log.
func (a *App) Close(ctx context.Context) error {
	var firstErr error
	if a.recorder != nil {
		if err := a.recorder.Close(); err != nil {
			firstErr = err
		}
	}
	if err := a.Store.Close(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
