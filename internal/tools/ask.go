package tools

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/raphaelgruber/podcastrag/internal/models"
	"github.com/raphaelgruber/podcastrag/internal/pipeline"
)

// AskInput defines the input schema for the ask tool.
type AskInput struct {
	Question string            `json:"question" jsonschema:"required,The question about the podcast"`
	Language string            `json:"language,omitempty" jsonschema:"Answer language: Portuguese or English. Detected from the question when empty"`
	History  []models.ChatTurn `json:"chat_history,omitempty" jsonschema:"Previous user/assistant turns, oldest first"`
}

// NewAskHandler creates the ask tool handler. The answer already carries its
// references section.
func NewAskHandler(deps *Dependencies) mcp.ToolHandlerFor[AskInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, any, error) {
		if strings.TrimSpace(input.Question) == "" {
			return ErrorResult("Question cannot be empty", "Provide a question about the podcast"), nil, nil
		}
		if deps.Pipeline == nil {
			return ErrorResult("Answering is disabled", "Configure LLM_PROVIDER or use search_segments"), nil, nil
		}

		resp := deps.Pipeline.Run(ctx, pipeline.Request{
			Message:  input.Question,
			Language: input.Language,
			History:  input.History,
		})

		deps.logger().Info("ask completed",
			"request_id", resp.RequestID,
			"stage", resp.Stage,
			"citations", len(resp.Citations),
		)

		result := TextResult(resp.Response)
		if resp.Error != "" {
			result.IsError = true
		}
		return result, nil, nil
	}
}
