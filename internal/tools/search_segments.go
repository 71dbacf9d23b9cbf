package tools

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/raphaelgruber/podcastrag/internal/models"
	"github.com/raphaelgruber/podcastrag/internal/ranking"
	"github.com/raphaelgruber/podcastrag/internal/retrieval"
)

// SearchSegmentsInput defines the input schema for the search_segments tool.
type SearchSegmentsInput struct {
	Query string `json:"query" jsonschema:"required,Keyword or question to search transcripts for"`
}

// SearchSegmentsResult is the search_segments output.
type SearchSegmentsResult struct {
	Segments []models.Segment `json:"segments"`
	Count    int              `json:"count"`
	Stats    retrieval.Stats  `json:"stats"`
}

// NewSearchSegmentsHandler creates the search_segments tool handler.
// It runs hybrid retrieval and ranking without calling the language model.
func NewSearchSegmentsHandler(deps *Dependencies) mcp.ToolHandlerFor[SearchSegmentsInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchSegmentsInput) (*mcp.CallToolResult, any, error) {
		query := strings.TrimSpace(input.Query)
		if query == "" {
			return ErrorResult("Query cannot be empty", "Provide a search query"), nil, nil
		}

		res := deps.Retriever.Retrieve(ctx, query)
		segs := ranking.Rank(ranking.Dedup(res.Segments))
		out := SearchSegmentsResult{Segments: segs, Count: len(segs), Stats: res.Stats}
		if res.Stats.Placeholder {
			out.Count = 0
		}

		queryLog := query
		if len(queryLog) > 30 {
			queryLog = queryLog[:30] + "..."
		}
		deps.logger().Info("search_segments completed", "query", queryLog, "results", out.Count)

		return JSONResult(out), nil, nil
	}
}
