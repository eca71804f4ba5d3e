package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/episodic/internal/dispatch"
)

// DispatchTool handles the ep_dispatch MCP tool: one polling pass of the
// priority dispatcher.
type DispatchTool struct {
	dispatcher *dispatch.Dispatcher
}

// NewDispatchTool creates a DispatchTool.
func NewDispatchTool(d *dispatch.Dispatcher) *DispatchTool {
	return &DispatchTool{dispatcher: d}
}

// Definition returns the MCP tool definition for ep_dispatch.
func (t *DispatchTool) Definition() mcp.Tool {
	return mcp.NewTool("ep_dispatch",
		mcp.WithDescription(
			"Run one dispatch pass over the notification queue. In FOCUS or WRITING mode only "+
				"P1 passes the gate; IDLE opens all tiers. Tier cooldowns, required-context matching "+
				"and same-episode batching apply. An empty pass is a normal outcome.",
		),
		mcp.WithString("current_context",
			mcp.Description(`JSON object describing the current context, matched against each notification's requirements`),
		),
	)
}

// Handle processes the ep_dispatch tool call.
func (t *DispatchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	current, err := contextArg(req.GetString("current_context", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("'current_context' %v", err)), nil
	}

	delivery, err := t.dispatcher.Dispatch(current)
	if err != nil {
		return nil, err
	}
	if delivery == nil {
		return mcp.NewToolResultText("Nothing dispatched."), nil
	}
	return jsonResult(delivery)
}

// ─── SetModeTool ────────────────────────────────────────────────────────────

// SetModeTool handles the ep_set_mode MCP tool.
type SetModeTool struct {
	dispatcher *dispatch.Dispatcher
}

// NewSetModeTool creates a SetModeTool.
func NewSetModeTool(d *dispatch.Dispatcher) *SetModeTool {
	return &SetModeTool{dispatcher: d}
}

// Definition returns the MCP tool definition for ep_set_mode.
func (t *SetModeTool) Definition() mcp.Tool {
	return mcp.NewTool("ep_set_mode",
		mcp.WithDescription(
			"Set the session mode gating the dispatcher: FOCUS, WRITING or IDLE. Entering IDLE "+
				"immediately attempts one dispatch pass so queued lower-priority work surfaces.",
		),
		mcp.WithString("mode",
			mcp.Required(),
			mcp.Description("FOCUS, WRITING or IDLE"),
		),
		mcp.WithString("current_context",
			mcp.Description("JSON context object used by the IDLE-transition dispatch pass"),
		),
	)
}

// Handle processes the ep_set_mode tool call.
func (t *SetModeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mode := dispatch.Mode(req.GetString("mode", ""))
	if err := dispatch.ValidateMode(mode); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	current, err := contextArg(req.GetString("current_context", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("'current_context' %v", err)), nil
	}

	delivery, err := t.dispatcher.SetMode(mode, current)
	if err != nil {
		return nil, err
	}
	if delivery == nil {
		return mcp.NewToolResultText(fmt.Sprintf("Mode set to %s.", mode)), nil
	}
	return jsonResult(struct {
		Mode      dispatch.Mode      `json:"mode"`
		Delivered *dispatch.Delivery `json:"delivered"`
	}{mode, delivery})
}

// ─── QueueStatusTool ────────────────────────────────────────────────────────

// QueueStatusTool handles the ep_queue_status MCP tool.
type QueueStatusTool struct {
	dispatcher *dispatch.Dispatcher
}

// NewQueueStatusTool creates a QueueStatusTool.
func NewQueueStatusTool(d *dispatch.Dispatcher) *QueueStatusTool {
	return &QueueStatusTool{dispatcher: d}
}

// Definition returns the MCP tool definition for ep_queue_status.
func (t *QueueStatusTool) Definition() mcp.Tool {
	return mcp.NewTool("ep_queue_status",
		mcp.WithDescription(
			"Report the dispatcher's session mode, the pending backlog per tier, and the "+
				"last dispatch time per tier.",
		),
	)
}

// Handle processes the ep_queue_status tool call.
func (t *QueueStatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := t.dispatcher.Status()
	if err != nil {
		return nil, err
	}
	return jsonResult(status)
}
