package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/episodic/internal/engine"
)

// EpisodeTool handles the ep_show MCP tool: the full current view of one
// episode.
type EpisodeTool struct {
	store *engine.Store
}

// NewEpisodeTool creates an EpisodeTool.
func NewEpisodeTool(store *engine.Store) *EpisodeTool {
	return &EpisodeTool{store: store}
}

// Definition returns the MCP tool definition for ep_show.
func (t *EpisodeTool) Definition() mcp.Tool {
	return mcp.NewTool("ep_show",
		mcp.WithDescription(
			"Show an episode with its candidates, active backbones and facets.",
		),
		mcp.WithString("episode_id",
			mcp.Required(),
			mcp.Description("Episode to show"),
		),
	)
}

type episodeView struct {
	Episode    *engine.Episode    `json:"episode"`
	Candidates []engine.Candidate `json:"candidates"`
	Backbones  []engine.Backbone  `json:"backbones"`
	Facets     []engine.Facet     `json:"facets"`
}

// Handle processes the ep_show tool call.
func (t *EpisodeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	episodeID := req.GetString("episode_id", "")
	if episodeID == "" {
		return mcp.NewToolResultError("'episode_id' is required"), nil
	}

	ep, err := t.store.GetEpisode(episodeID)
	if err != nil {
		return engineError(err)
	}
	candidates, err := t.store.ListCandidates(episodeID)
	if err != nil {
		return nil, err
	}
	backbones, err := t.store.ActiveBackbones(episodeID)
	if err != nil {
		return nil, err
	}
	facets, err := t.store.EpisodeFacets(episodeID)
	if err != nil {
		return nil, err
	}

	return jsonResult(episodeView{
		Episode:    ep,
		Candidates: candidates,
		Backbones:  backbones,
		Facets:     facets,
	})
}
