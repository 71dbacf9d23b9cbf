package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/raphaelgruber/podcastrag/internal/models"
	"github.com/raphaelgruber/podcastrag/internal/service"
)

// RecommendInput defines the input schema for the recommend_episodes tool.
type RecommendInput struct {
	Episode int   `json:"episode" jsonschema:"required,Episode number to base recommendations on"`
	Seen    []int `json:"seen,omitempty" jsonschema:"Episode numbers the listener already heard"`
	Limit   int   `json:"limit,omitempty" jsonschema:"Max recommendations 1-100, default 5"`
}

// RecommendResult is the recommend_episodes output.
type RecommendResult struct {
	Episode         int                     `json:"episode"`
	Recommendations []models.SimilarEpisode `json:"recommendations"`
}

// NewRecommendHandler creates the recommend_episodes tool handler.
func NewRecommendHandler(deps *Dependencies) mcp.ToolHandlerFor[RecommendInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input RecommendInput) (*mcp.CallToolResult, any, error) {
		recs, err := deps.Recommender.RecommendEpisodes(ctx, input.Episode, input.Seen, input.Limit)
		if errors.Is(err, service.ErrInvalidInput) {
			return ErrorResult(err.Error(), "Episode must be positive and limit at most 100"), nil, nil
		}
		if err != nil {
			deps.logger().Error("recommend failed", "episode", input.Episode, "error", err)
			return ErrorResult("Recommendation failed", "Database may be unavailable"), nil, nil
		}

		if len(recs) == 0 {
			return TextResult(fmt.Sprintf("No similar episodes found for episode %d", input.Episode)), nil, nil
		}
		return JSONResult(RecommendResult{Episode: input.Episode, Recommendations: recs}), nil, nil
	}
}
