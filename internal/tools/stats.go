package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/raphaelgruber/podcastrag/internal/metrics"
)

// StatsInput defines the (empty) input schema for the stats tool.
type StatsInput struct{}

// StatsResult is the stats output.
type StatsResult struct {
	StoreConnected bool             `json:"store_connected"`
	StoreFailures  int64            `json:"store_failures"`
	Metrics        metrics.Snapshot `json:"metrics"`
}

// NewStatsHandler creates the stats tool handler.
func NewStatsHandler(deps *Dependencies) mcp.ToolHandlerFor[StatsInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatsInput) (*mcp.CallToolResult, any, error) {
		var out StatsResult
		if deps.Store != nil {
			out.StoreConnected = deps.Store.Connected()
			out.StoreFailures = deps.Store.Failures()
		}
		if deps.Metrics != nil {
			out.Metrics = deps.Metrics.Snapshot()
		}
		return JSONResult(out), nil, nil
	}
}
