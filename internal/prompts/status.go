package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// StatusPrompt handles the episodic-status MCP prompt.
// It instructs the AI to read and present the current queue and event state.
type StatusPrompt struct{}

// NewStatusPrompt creates a StatusPrompt.
func NewStatusPrompt() *StatusPrompt {
	return &StatusPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StatusPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("episodic-status",
		mcp.WithPromptDescription(
			"Check the current state of the episodic server. "+
				"Shows the session mode, the pending notification backlog "+
				"per tier, and recent activity.",
		),
	)
}

// Handle processes the episodic-status prompt request.
func (p *StatusPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Episodic server status",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Please run `ep_queue_status` and `ep_events` to check the server state.\n\n" +
						"Then:\n" +
						"1. Show me the session mode and the pending backlog per priority tier\n" +
						"2. Summarize the recent events in plain language\n" +
						"3. If the backlog has P1 entries, recommend running `ep_dispatch` now\n" +
						"4. If I'm in FOCUS or WRITING and lower tiers are queued, remind me they'll surface when I switch to IDLE",
				),
			},
		},
	}, nil
}
