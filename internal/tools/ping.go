package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// PingInput defines the input schema for the ping tool.
type PingInput struct {
	Echo string `json:"echo,omitempty" jsonschema:"Text to echo back"`
}

// NewPingHandler creates a ping tool handler with injected dependencies.
// It answers "pong", or echoes input, and flags an unreachable graph store.
func NewPingHandler(deps *Dependencies) mcp.ToolHandlerFor[PingInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input PingInput) (*mcp.CallToolResult, any, error) {
		deps.logger().Debug("ping tool called", "echo", input.Echo)

		text := "pong"
		if input.Echo != "" {
			text = input.Echo
		}
		if deps != nil && deps.Store != nil && !deps.Store.Connected() {
			text += " (graph store unavailable)"
		}
		return TextResult(text), nil, nil
	}
}
