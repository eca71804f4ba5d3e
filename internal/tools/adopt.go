package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/episodic/internal/engine"
)

// AdoptTool handles the ep_adopt MCP tool.
type AdoptTool struct {
	engine *engine.Engine
}

// NewAdoptTool creates an AdoptTool.
func NewAdoptTool(eng *engine.Engine) *AdoptTool {
	return &AdoptTool{engine: eng}
}

// Definition returns the MCP tool definition for ep_adopt.
func (t *AdoptTool) Definition() mcp.Tool {
	return mcp.NewTool("ep_adopt",
		mcp.WithDescription(
			"Adopt a pending candidate as an authoritative backbone. Idempotent: re-adopting "+
				"returns the same backbone id. A detected conflict does not fail the call — it is "+
				"recorded and returned alongside the backbone id.",
		),
		mcp.WithString("episode_id",
			mcp.Required(),
			mcp.Description("Episode the candidate belongs to"),
		),
		mcp.WithString("candidate_id",
			mcp.Required(),
			mcp.Description("Candidate to adopt"),
		),
	)
}

// Handle processes the ep_adopt tool call.
func (t *AdoptTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	episodeID := req.GetString("episode_id", "")
	candidateID := req.GetString("candidate_id", "")
	if episodeID == "" {
		return mcp.NewToolResultError("'episode_id' is required"), nil
	}
	if candidateID == "" {
		return mcp.NewToolResultError("'candidate_id' is required"), nil
	}

	res, err := t.engine.Adopt(episodeID, candidateID)
	if err != nil {
		return engineError(err)
	}
	return jsonResult(res)
}
