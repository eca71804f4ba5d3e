package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/episodic/internal/engine"
)

// IngestTool handles the ep_ingest MCP tool: it opens a new episode for
// an external reference without proposing anything yet.
type IngestTool struct {
	engine *engine.Engine
}

// NewIngestTool creates an IngestTool.
func NewIngestTool(eng *engine.Engine) *IngestTool {
	return &IngestTool{engine: eng}
}

// Definition returns the MCP tool definition for ep_ingest.
func (t *IngestTool) Definition() mcp.Tool {
	return mcp.NewTool("ep_ingest",
		mcp.WithDescription(
			"Open a new episode for an observation. The episode starts UNDECIDED and "+
				"accumulates candidate codes until one is adopted. Use ep_propose to add candidates.",
		),
		mcp.WithString("ref_type",
			mcp.Required(),
			mcp.Description("Origin type of the observation (e.g. 'conversation', 'document', 'memo')"),
		),
		mcp.WithString("ref_locator",
			mcp.Required(),
			mcp.Description("Locator the origin understands (e.g. a conversation id and turn, a file path)"),
		),
	)
}

// Handle processes the ep_ingest tool call.
func (t *IngestTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	refType := req.GetString("ref_type", "")
	refLocator := req.GetString("ref_locator", "")
	if refType == "" {
		return mcp.NewToolResultError("'ref_type' is required"), nil
	}
	if refLocator == "" {
		return mcp.NewToolResultError("'ref_locator' is required"), nil
	}

	ep, err := t.engine.Ingest(engine.Reference{Type: refType, Locator: refLocator})
	if err != nil {
		return engineError(err)
	}
	return jsonResult(ep)
}
