// Package server provides the MCP server wrapper with lifecycle management.
package server

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/raphaelgruber/podcastrag/internal/metrics"
	"github.com/raphaelgruber/podcastrag/internal/tools"
)

// Name is the implementation name reported to MCP clients.
const Name = "podcastrag"

// Server wraps the MCP server with dependencies and lifecycle management.
type Server struct {
	mcp    *mcp.Server
	deps   *tools.Dependencies
	logger *slog.Logger
}

// New creates an MCP server exposing the podcast tools backed by deps.
func New(version string, deps *tools.Dependencies) *Server {
	logger := slog.Default()
	if deps != nil && deps.Logger != nil {
		logger = deps.Logger
	}

	impl := &mcp.Implementation{
		Name:    Name,
		Version: version,
	}

	return &Server{
		mcp:    mcp.NewServer(impl, nil),
		deps:   deps,
		logger: logger,
	}
}

// Setup adds middleware and registers the tools. Call once before Run.
func (s *Server) Setup() {
	var m *metrics.Collector
	if s.deps != nil {
		m = s.deps.Metrics
	}
	s.mcp.AddReceivingMiddleware(LoggingMiddleware(s.logger, m))
	tools.RegisterAll(s.mcp, s.deps)
}

// Run starts the server on stdio transport and blocks until disconnect or context cancellation.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server", "transport", "stdio")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}
