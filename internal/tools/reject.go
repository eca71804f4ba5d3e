package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/episodic/internal/engine"
)

// RejectTool handles the ep_reject MCP tool.
type RejectTool struct {
	engine *engine.Engine
}

// NewRejectTool creates a RejectTool.
func NewRejectTool(eng *engine.Engine) *RejectTool {
	return &RejectTool{engine: eng}
}

// Definition returns the MCP tool definition for ep_reject.
func (t *RejectTool) Definition() mcp.Tool {
	return mcp.NewTool("ep_reject",
		mcp.WithDescription(
			"Reject a pending candidate. Idempotent: re-rejecting reports changed=false. "+
				"The rejected shape is appended to the rejected-pattern log so future proposers "+
				"can learn from it.",
		),
		mcp.WithString("episode_id",
			mcp.Required(),
			mcp.Description("Episode the candidate belongs to"),
		),
		mcp.WithString("candidate_id",
			mcp.Required(),
			mcp.Description("Candidate to reject"),
		),
		mcp.WithString("reason",
			mcp.Description("Optional free-text reason, recorded in the event and the pattern log"),
		),
	)
}

// Handle processes the ep_reject tool call.
func (t *RejectTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	episodeID := req.GetString("episode_id", "")
	candidateID := req.GetString("candidate_id", "")
	if episodeID == "" {
		return mcp.NewToolResultError("'episode_id' is required"), nil
	}
	if candidateID == "" {
		return mcp.NewToolResultError("'candidate_id' is required"), nil
	}

	res, err := t.engine.Reject(episodeID, candidateID, req.GetString("reason", ""))
	if err != nil {
		return engineError(err)
	}
	return jsonResult(res)
}
