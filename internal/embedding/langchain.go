package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/raphaelgruber/podcastrag/internal/metrics"
	"github.com/tmc/langchaingo/embeddings"
)

// Langchain wraps a langchaingo embedder with dimension validation.
type Langchain struct {
	model     embeddings.Embedder
	dimension int
	modelName string
	metrics   *metrics.Collector
}

// NewLangchain wraps model. m may be nil.
func NewLangchain(model embeddings.Embedder, modelName string, dimension int, m *metrics.Collector) *Langchain {
	return &Langchain{
		model:     model,
		dimension: dimension,
		modelName: modelName,
		metrics:   m,
	}
}

// Embed generates an embedding vector for a query.
func (e *Langchain) Embed(ctx context.Context, text string) ([]float32, error) {
	textLen := len(text)
	slog.Debug("embedding text", "model", e.modelName, "text_len", textLen)

	start := time.Now()
	vector, err := e.model.EmbedQuery(ctx, text)
	duration := time.Since(start)

	if err != nil {
		e.metrics.RecordError(metrics.OpEmbedding, duration)
		slog.Warn("embedding failed", "model", e.modelName, "text_len", textLen, "duration_ms", duration.Milliseconds(), "error", err)
		return nil, fmt.Errorf("embed: %w", err)
	}
	e.metrics.RecordTiming(metrics.OpEmbedding, duration)

	if len(vector) != e.dimension {
		return nil, fmt.Errorf("dimension mismatch: got %d, want %d", len(vector), e.dimension)
	}

	slog.Debug("embedding complete", "model", e.modelName, "duration_ms", duration.Milliseconds())
	return vector, nil
}

// EmbedBatch generates embeddings for multiple texts.
func (e *Langchain) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vectors, err := e.model.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed batch: %w", err)
	}

	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("count mismatch: got %d, want %d", len(vectors), len(texts))
	}

	for i, v := range vectors {
		if len(v) != e.dimension {
			return nil, fmt.Errorf("embedding %d dimension mismatch: got %d, want %d", i, len(v), e.dimension)
		}
	}

	return vectors, nil
}

// Model returns the embedding model name.
func (e *Langchain) Model() string {
	return e.modelName
}

// Dimension returns the expected embedding dimension.
func (e *Langchain) Dimension() int {
	return e.dimension
}
