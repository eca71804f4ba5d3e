package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/episodic/internal/engine"
)

// DeprecateTool handles the ep_deprecate MCP tool.
type DeprecateTool struct {
	engine *engine.Engine
}

// NewDeprecateTool creates a DeprecateTool.
func NewDeprecateTool(eng *engine.Engine) *DeprecateTool {
	return &DeprecateTool{engine: eng}
}

// Definition returns the MCP tool definition for ep_deprecate.
func (t *DeprecateTool) Definition() mcp.Tool {
	return mcp.NewTool("ep_deprecate",
		mcp.WithDescription(
			"Soft-delete an adopted backbone. The episode's conflict state is re-evaluated "+
				"from the remaining active backbones: certainty returns to CONFIRMED when the "+
				"conflicts clear, or to PENDING when no active backbone remains. Idempotent.",
		),
		mcp.WithString("episode_id",
			mcp.Required(),
			mcp.Description("Episode the backbone belongs to"),
		),
		mcp.WithString("backbone_id",
			mcp.Required(),
			mcp.Description("Backbone to deprecate"),
		),
	)
}

// Handle processes the ep_deprecate tool call.
func (t *DeprecateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	episodeID := req.GetString("episode_id", "")
	backboneID := req.GetString("backbone_id", "")
	if episodeID == "" {
		return mcp.NewToolResultError("'episode_id' is required"), nil
	}
	if backboneID == "" {
		return mcp.NewToolResultError("'backbone_id' is required"), nil
	}

	res, err := t.engine.Deprecate(episodeID, backboneID)
	if err != nil {
		return engineError(err)
	}
	return jsonResult(res)
}
