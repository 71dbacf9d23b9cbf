package tools

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterAll registers all tools with the MCP server.
// This is called from main after server creation but before Run().
func RegisterAll(server *mcp.Server, deps *Dependencies) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "ping",
		Description: "Test tool - responds with pong or echoes input",
	}, NewPingHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question about the podcast using transcript segments, with episode references",
	}, NewAskHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_segments",
		Description: "Find transcript segments by keyword, graph neighbourhood and embedding similarity",
	}, NewSearchSegmentsHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "recommend_episodes",
		Description: "Recommend episodes similar to a given episode, skipping ones already heard",
	}, NewRecommendHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "stats",
		Description: "Runtime statistics: store health and per-operation timings",
	}, NewStatsHandler(deps))
}
