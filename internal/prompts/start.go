// Package prompts implements MCP prompt handlers for the episodic server.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// StartPrompt handles the episodic-start MCP prompt.
// It guides the AI to open an episode and run one observation through the
// propose/adopt lifecycle.
type StartPrompt struct{}

// NewStartPrompt creates a StartPrompt.
func NewStartPrompt() *StartPrompt {
	return &StartPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StartPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("episodic-start",
		mcp.WithPromptDescription(
			"Start tracking a new episode. "+
				"This opens an episode for a source text, proposes encoded "+
				"candidates and walks through adopting or rejecting them.",
		),
		mcp.WithArgument("text",
			mcp.ArgumentDescription("The utterance or passage to encode"),
		),
	)
}

// Handle processes the episodic-start prompt request.
func (p *StartPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	text := ""
	if args := req.Params.Arguments; args != nil {
		if t, ok := args["text"]; ok {
			text = t
		}
	}

	instruction := "I want to start tracking a new episode.\n\n"
	if text != "" {
		instruction += fmt.Sprintf("Source text: %q\n\n", text)
	}
	instruction += "Please:\n" +
		"1. Run `ep_observe` with the source text (ask me for it if I haven't given one)\n" +
		"2. Show me the proposed candidates with their codes decoded into readable meaning\n" +
		"3. For each candidate, ask me whether to `ep_adopt` or `ep_reject` it\n" +
		"4. If adopting raises conflicts or reflective questions, surface them and ask how I want to resolve them\n" +
		"5. Finish with `ep_show` so I can see the episode's final state"

	return &mcp.GetPromptResult{
		Description: "Start a new episode",
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.NewTextContent(instruction),
			},
		},
	}, nil
}
