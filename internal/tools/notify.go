package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/episodic/internal/engine"
)

// NotifyTool handles the ep_notify MCP tool: the trigger_notification
// entry point any subsystem uses to queue an outbound message.
type NotifyTool struct {
	engine *engine.Engine
}

// NewNotifyTool creates a NotifyTool.
func NewNotifyTool(eng *engine.Engine) *NotifyTool {
	return &NotifyTool{engine: eng}
}

// Definition returns the MCP tool definition for ep_notify.
func (t *NotifyTool) Definition() mcp.Tool {
	return mcp.NewTool("ep_notify",
		mcp.WithDescription(
			"Queue a notification for the dispatcher. Pending notifications with the same "+
				"(intent, episode_id) are deduplicated: the existing id is returned instead of "+
				"growing the queue.",
		),
		mcp.WithString("priority",
			mcp.Required(),
			mcp.Description("Tier: P1 (urgent, bypasses the focus gate) through P4"),
		),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("Kind of message: ASK, CONFIRM, NOTICE or EXPORT_REQUEST"),
		),
		mcp.WithString("intent",
			mcp.Required(),
			mcp.Description("Stable intent key used for deduplication"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("Human-readable message"),
		),
		mcp.WithString("episode_id",
			mcp.Description("Episode this message is about"),
		),
		mcp.WithString("required_context",
			mcp.Description(`JSON object of context keys that must match exactly at dispatch time, e.g. {"project": "atlas"}`),
		),
	)
}

// Handle processes the ep_notify tool call.
func (t *NotifyTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	for _, key := range []string{"priority", "type", "intent", "content"} {
		if req.GetString(key, "") == "" {
			return mcp.NewToolResultError(fmt.Sprintf("'%s' is required", key)), nil
		}
	}

	required, err := contextArg(req.GetString("required_context", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("'required_context' %v", err)), nil
	}

	id, existing, err := t.engine.TriggerNotification(engine.EnqueueParams{
		EpisodeID: req.GetString("episode_id", ""),
		Priority:  engine.Priority(req.GetString("priority", "")),
		Type:      engine.NotificationType(req.GetString("type", "")),
		Intent:    req.GetString("intent", ""),
		Content:   req.GetString("content", ""),
		Context:   required,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if existing {
		return mcp.NewToolResultText(fmt.Sprintf("Already queued as %s (deduplicated)", id)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Queued as %s", id)), nil
}
