package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/episodic/internal/encoder"
	"github.com/HendryAvila/episodic/internal/engine"
)

// ObserveTool handles the ep_observe MCP tool: one-shot ingestion of
// free text. It opens an episode and runs the keyword encoder to propose
// initial candidates, so a caller without a code in mind still gets a
// reviewable starting point.
type ObserveTool struct {
	engine *engine.Engine
}

// NewObserveTool creates an ObserveTool.
func NewObserveTool(eng *engine.Engine) *ObserveTool {
	return &ObserveTool{engine: eng}
}

// Definition returns the MCP tool definition for ep_observe.
func (t *ObserveTool) Definition() mcp.Tool {
	return mcp.NewTool("ep_observe",
		mcp.WithDescription(
			"Record a free-text observation: opens an episode and auto-proposes candidate codes "+
				"from a keyword classifier. Low-confidence proposals queue a review question. "+
				"Use ep_propose to add better candidates, ep_adopt to decide.",
		),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("The observation text"),
		),
		mcp.WithString("ref_type",
			mcp.Description("Origin type (default 'conversation')"),
		),
		mcp.WithString("ref_locator",
			mcp.Description("Locator within the origin (default 'inline')"),
		),
	)
}

type observeResult struct {
	Episode    *engine.Episode    `json:"episode"`
	Candidates []engine.Candidate `json:"candidates"`
}

// Handle processes the ep_observe tool call.
func (t *ObserveTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := req.GetString("text", "")
	if text == "" {
		return mcp.NewToolResultError("'text' is required"), nil
	}
	refType := req.GetString("ref_type", "conversation")
	refLocator := req.GetString("ref_locator", "inline")

	ep, err := t.engine.Ingest(engine.Reference{Type: refType, Locator: refLocator})
	if err != nil {
		return engineError(err)
	}

	candidates, err := t.engine.Propose(ep.ID, encoder.Generate(text))
	if err != nil {
		return engineError(err)
	}
	return jsonResult(observeResult{Episode: ep, Candidates: candidates})
}
