// Package embedding turns query text into vectors comparable with the stored
// segment embeddings.
package embedding

import (
	"context"
	"fmt"

	"github.com/raphaelgruber/podcastrag/internal/config"
	"github.com/raphaelgruber/podcastrag/internal/metrics"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder defines the interface for text embedding providers.
type Embedder interface {
	// Embed generates an embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Model returns the name of the embedding model being used.
	Model() string

	// Dimension returns the embedding vector dimension. It must match the
	// dimension of the stored segment embeddings.
	Dimension() int
}

// New builds the configured provider, wrapped in a query cache when
// EmbedCacheSize is positive.
func New(cfg config.Config, m *metrics.Collector) (Embedder, error) {
	var backend embeddings.Embedder

	switch cfg.EmbedProvider {
	case config.ProviderOllama:
		llm, err := ollama.New(
			ollama.WithModel(cfg.EmbedModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama client: %w", err)
		}
		backend, err = embeddings.NewEmbedder(llm)
		if err != nil {
			return nil, fmt.Errorf("create ollama embedder: %w", err)
		}

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		llm, err := openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithEmbeddingModel(cfg.EmbedModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai client: %w", err)
		}
		backend, err = embeddings.NewEmbedder(llm)
		if err != nil {
			return nil, fmt.Errorf("create openai embedder: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.EmbedProvider)
	}

	var e Embedder = NewLangchain(backend, cfg.EmbedModel, cfg.EmbedDimension, m)
	if cfg.EmbedCacheSize > 0 {
		e = NewCached(e, cfg.EmbedCacheSize, cfg.EmbedCacheTTL)
	}
	return e, nil
}
