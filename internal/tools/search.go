package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/episodic/internal/engine"
)

// SearchTool handles the ep_search MCP tool: the two-stage bitmask +
// facet filter over episodes.
type SearchTool struct {
	store *engine.Store
	limit int
}

// NewSearchTool creates a SearchTool. limit caps the result size.
func NewSearchTool(store *engine.Store, limit int) *SearchTool {
	return &SearchTool{store: store, limit: limit}
}

// Definition returns the MCP tool definition for ep_search.
func (t *SearchTool) Definition() mcp.Tool {
	return mcp.NewTool("ep_search",
		mcp.WithDescription(
			"Search episodes by backbone chunks and facets. Chunk filters require an exact "+
				"nibble match on one active backbone (omitted chunks are wildcards); each facet "+
				"filter requires at least one matching facet row. All filters AND together.",
		),
		mcp.WithNumber("chunk_a",
			mcp.Description("Existence-mode nibble (0-15) to match exactly"),
		),
		mcp.WithNumber("chunk_b",
			mcp.Description("Perspective-mode nibble (0-15) to match exactly"),
		),
		mcp.WithNumber("chunk_c",
			mcp.Description("Temporal-mode nibble (0-15) to match exactly"),
		),
		mcp.WithNumber("chunk_d",
			mcp.Description("Relation-mode nibble (0-15) to match exactly"),
		),
		mcp.WithString("facets",
			mcp.Description(`JSON array of facet filters: [{"id": 3, "value": 2}]`),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum episodes to return"),
		),
	)
}

// Handle processes the ep_search tool call.
func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q := engine.SearchQuery{Limit: intArg(req, "limit", t.limit)}

	chunkPtr := func(key string) *uint8 {
		if v, ok := req.GetArguments()[key].(float64); ok {
			u := uint8(int(v) & 0xFF)
			return &u
		}
		return nil
	}
	q.ChunkA = chunkPtr("chunk_a")
	q.ChunkB = chunkPtr("chunk_b")
	q.ChunkC = chunkPtr("chunk_c")
	q.ChunkD = chunkPtr("chunk_d")

	facets, err := facetsArg(req.GetString("facets", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	q.Facets = facets

	episodes, err := t.store.SearchEpisodes(q)
	if err != nil {
		return engineError(err)
	}
	if len(episodes) == 0 {
		return mcp.NewToolResultText("No episodes match the given filters."), nil
	}
	return jsonResult(episodes)
}
