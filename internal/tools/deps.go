// Package tools provides MCP tool handlers and registration.
package tools

import (
	"context"
	"log/slog"

	"github.com/raphaelgruber/podcastrag/internal/metrics"
	"github.com/raphaelgruber/podcastrag/internal/pipeline"
	"github.com/raphaelgruber/podcastrag/internal/retrieval"
	"github.com/raphaelgruber/podcastrag/internal/service"
)

// Asker answers a question end to end.
type Asker interface {
	Run(ctx context.Context, req pipeline.Request) pipeline.Response
}

// Retriever runs retrieval without the language model.
type Retriever interface {
	Retrieve(ctx context.Context, query string) retrieval.Result
}

// StoreStatus reports graph store health.
type StoreStatus interface {
	Connected() bool
	Failures() int64
}

// Dependencies holds shared services for tool handlers.
// Passed to handler factories via closure capture.
type Dependencies struct {
	Pipeline    Asker
	Retriever   Retriever
	Recommender *service.Recommender
	Store       StoreStatus
	Metrics     *metrics.Collector
	Logger      *slog.Logger
}

func (d *Dependencies) logger() *slog.Logger {
	if d == nil || d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}
