package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/episodic/internal/engine"
)

// ProposeTool handles the ep_propose MCP tool: it submits one or more
// candidate codes against an episode as a single all-or-nothing batch.
type ProposeTool struct {
	engine *engine.Engine
}

// NewProposeTool creates a ProposeTool.
func NewProposeTool(eng *engine.Engine) *ProposeTool {
	return &ProposeTool{engine: eng}
}

// proposeArg mirrors one element of the candidates JSON array. Bits is
// json.Number so a non-integer surfaces as INVALID_TYPE rather than a
// silent truncation.
type proposeArg struct {
	Bits       json.Number           `json:"bits"`
	Facets     []engine.FacetSetting `json:"facets,omitempty"`
	Note       string                `json:"note,omitempty"`
	Confidence int                   `json:"confidence"`
	ProposedBy string                `json:"proposed_by,omitempty"`
}

// Definition returns the MCP tool definition for ep_propose.
func (t *ProposeTool) Definition() mcp.Tool {
	return mcp.NewTool("ep_propose",
		mcp.WithDescription(
			"Propose candidate backbone codes for an episode. The batch is all-or-nothing: "+
				"one invalid code rejects every candidate in the call. Candidates below confidence 50 "+
				"automatically queue a review question.",
		),
		mcp.WithString("episode_id",
			mcp.Required(),
			mcp.Description("Episode the candidates belong to"),
		),
		mcp.WithString("candidates",
			mcp.Required(),
			mcp.Description(`JSON array of candidates: [{"bits": 12610, "confidence": 80, "note": "...", `+
				`"proposed_by": "human", "facets": [{"id": 3, "value": 2}]}]. `+
				`bits is the 16-bit backbone code as an integer.`),
		),
	)
}

// Handle processes the ep_propose tool call.
func (t *ProposeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	episodeID := req.GetString("episode_id", "")
	rawCandidates := req.GetString("candidates", "")
	if episodeID == "" {
		return mcp.NewToolResultError("'episode_id' is required"), nil
	}
	if rawCandidates == "" {
		return mcp.NewToolResultError("'candidates' is required"), nil
	}

	var args []proposeArg
	if err := json.Unmarshal([]byte(rawCandidates), &args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("'candidates' must be a JSON array: %v", err)), nil
	}
	if len(args) == 0 {
		return mcp.NewToolResultError("'candidates' must not be empty"), nil
	}

	items := make([]engine.ProposeItem, len(args))
	for i, a := range args {
		bits, err := a.Bits.Int64()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("INVALID_TYPE: candidate %d: backbone code must be an integer", i)), nil
		}
		proposedBy := a.ProposedBy
		if proposedBy == "" {
			proposedBy = "human"
		}
		items[i] = engine.ProposeItem{
			ProposedBy: proposedBy,
			Bits:       int(bits),
			Facets:     a.Facets,
			Note:       a.Note,
			Confidence: a.Confidence,
		}
	}

	candidates, err := t.engine.Propose(episodeID, items)
	if err != nil {
		return engineError(err)
	}
	return jsonResult(candidates)
}
