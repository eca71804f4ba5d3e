package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/episodic/internal/engine"
)

// EventsTool handles the ep_events MCP tool: read access to the
// append-only audit stream.
type EventsTool struct {
	store *engine.Store
	limit int
}

// NewEventsTool creates an EventsTool. limit bounds the recent view.
func NewEventsTool(store *engine.Store, limit int) *EventsTool {
	return &EventsTool{store: store, limit: limit}
}

// Definition returns the MCP tool definition for ep_events.
func (t *EventsTool) Definition() mcp.Tool {
	return mcp.NewTool("ep_events",
		mcp.WithDescription(
			"Read the append-only event stream. With an episode_id, returns that episode's full "+
				"history oldest first; without one, returns the newest events across all episodes.",
		),
		mcp.WithString("episode_id",
			mcp.Description("Episode to read the history of"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum events for the recent view"),
		),
	)
}

// Handle processes the ep_events tool call.
func (t *EventsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	episodeID := req.GetString("episode_id", "")

	var (
		events []engine.Event
		err    error
	)
	if episodeID != "" {
		events, err = t.store.EpisodeEvents(episodeID)
	} else {
		events, err = t.store.RecentEvents(intArg(req, "limit", t.limit))
	}
	if err != nil {
		return engineError(err)
	}
	if len(events) == 0 {
		return mcp.NewToolResultText("No events recorded."), nil
	}
	return jsonResult(events)
}
