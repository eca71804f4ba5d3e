// Package tools implements the MCP tool handlers of the episodic server.
//
// Each tool handler follows the same pattern:
//   - a struct with dependencies (engine, dispatcher) injected via constructor
//   - Definition() returns the mcp.Tool schema
//   - Handle() processes the request and returns a result
//
// Validation and ownership failures from the engine are caller errors and
// come back as tool-result errors; only infrastructure failures propagate
// as Go errors.
package tools

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/episodic/internal/bitmap"
	"github.com/HendryAvila/episodic/internal/engine"
)

// intArg extracts an integer argument, returning defaultVal if the key
// is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// facetsArg parses a JSON array of {"id": n, "value": n} facet settings.
func facetsArg(raw string) ([]engine.FacetSetting, error) {
	if raw == "" {
		return nil, nil
	}
	var facets []engine.FacetSetting
	if err := json.Unmarshal([]byte(raw), &facets); err != nil {
		return nil, fmt.Errorf("'facets' must be a JSON array of {id, value} pairs: %w", err)
	}
	return facets, nil
}

// contextArg parses a JSON object argument into a map.
func contextArg(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("must be a JSON object: %w", err)
	}
	return m, nil
}

// engineError maps the engine's typed failures to tool results. Caller
// bugs (invalid codes, mismatches, terminal states, unknown ids) become
// tool-result errors the client can read; anything else is an
// infrastructure failure and propagates.
func engineError(err error) (*mcp.CallToolResult, error) {
	var (
		ice *bitmap.InvalidCodeError
		mm  *engine.EpisodeMismatchError
		ts  *engine.TerminalStateError
		nf  *engine.NotFoundError
	)
	switch {
	case errors.As(err, &ice):
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", ice.Reason, ice)), nil
	case errors.As(err, &mm):
		return mcp.NewToolResultError("EPISODE_MISMATCH: " + mm.Error()), nil
	case errors.As(err, &ts):
		return mcp.NewToolResultError("TERMINAL_STATE: " + ts.Error()), nil
	case errors.As(err, &nf):
		return mcp.NewToolResultError("NOT_FOUND: " + nf.Error()), nil
	}
	return nil, err
}

// jsonResult marshals v as an indented JSON tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
