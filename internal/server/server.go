// Package server wires all MCP components and creates the server instance.
//
// This is the composition root (DIP): it creates concrete implementations
// and injects them into the tools/prompts that depend on abstractions.
// No business logic lives here — only wiring.
package server

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/HendryAvila/episodic/internal/config"
	"github.com/HendryAvila/episodic/internal/dispatch"
	"github.com/HendryAvila/episodic/internal/engine"
	"github.com/HendryAvila/episodic/internal/epidora"
	"github.com/HendryAvila/episodic/internal/prompts"
	"github.com/HendryAvila/episodic/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all tools and prompts
// registered. This is the single place where all dependencies are
// resolved.
//
// The returned cleanup function closes the store's database connection
// and must be called on shutdown (typically via defer). It is always
// non-nil and safe to call.
func New() (*server.MCPServer, func(), error) {
	// --- Load configuration ---

	cfg, err := config.Load(filepath.Join(config.Default().DataDir, config.ConfigFile))
	if err != nil {
		return nil, noop, err
	}

	// --- Create shared dependencies ---

	store, err := engine.NewStore(cfg.DataDir)
	if err != nil {
		return nil, noop, fmt.Errorf("opening store: %w", err)
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			log.Printf("WARNING: store close: %v", err)
		}
	}

	eng := engine.NewEngine(store, epidora.New(), engine.NewPatternLog(cfg.DataDir), nil)

	dispatcher, err := dispatch.New(store, dispatch.NewFileStore(cfg.DataDir), cfg.DispatchCooldowns(), nil)
	if err != nil {
		cleanup()
		return nil, noop, fmt.Errorf("creating dispatcher: %w", err)
	}

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"episodic",
		Version,
		server.WithToolCapabilities(true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register lifecycle tools ---

	ingestTool := tools.NewIngestTool(eng)
	s.AddTool(ingestTool.Definition(), ingestTool.Handle)

	observeTool := tools.NewObserveTool(eng)
	s.AddTool(observeTool.Definition(), observeTool.Handle)

	proposeTool := tools.NewProposeTool(eng)
	s.AddTool(proposeTool.Definition(), proposeTool.Handle)

	adoptTool := tools.NewAdoptTool(eng)
	s.AddTool(adoptTool.Definition(), adoptTool.Handle)

	rejectTool := tools.NewRejectTool(eng)
	s.AddTool(rejectTool.Definition(), rejectTool.Handle)

	deprecateTool := tools.NewDeprecateTool(eng)
	s.AddTool(deprecateTool.Definition(), deprecateTool.Handle)

	// --- Register query tools ---

	episodeTool := tools.NewEpisodeTool(store)
	s.AddTool(episodeTool.Definition(), episodeTool.Handle)

	searchTool := tools.NewSearchTool(store, cfg.SearchLimit)
	s.AddTool(searchTool.Definition(), searchTool.Handle)

	eventsTool := tools.NewEventsTool(store, cfg.RecentEventsLimit)
	s.AddTool(eventsTool.Definition(), eventsTool.Handle)

	// --- Register notification tools ---

	notifyTool := tools.NewNotifyTool(eng)
	s.AddTool(notifyTool.Definition(), notifyTool.Handle)

	dispatchTool := tools.NewDispatchTool(dispatcher)
	s.AddTool(dispatchTool.Definition(), dispatchTool.Handle)

	setModeTool := tools.NewSetModeTool(dispatcher)
	s.AddTool(setModeTool.Definition(), setModeTool.Handle)

	queueStatusTool := tools.NewQueueStatusTool(dispatcher)
	s.AddTool(queueStatusTool.Definition(), queueStatusTool.Handle)

	// --- Register prompts ---

	startPrompt := prompts.NewStartPrompt()
	s.AddPrompt(startPrompt.Definition(), startPrompt.Handle)

	statusPrompt := prompts.NewStatusPrompt()
	s.AddPrompt(statusPrompt.Definition(), statusPrompt.Handle)

	return s, cleanup, nil
}

// noop is a no-op cleanup function returned when initialization fails
// before the store is opened.
func noop() {}

// serverInstructions returns the system instructions that tell the AI
// how to use the episodic server effectively.
func serverInstructions() string {
	return `You have access to Episodic, a semantic memory MCP server.

## What Episodic Does

Episodic encodes conversational moments ("episodes") into compact 16-bit
semantic backbone codes, tracks their lifecycle, and queues notifications
through a priority dispatcher that respects your attention.

Each backbone code packs four semantic chunks:
- Existence: what kind of thing it is (state, event, process, principle, ...)
- Perspective: the stance it is seen from (structural, functional, hypothetical, ...)
- Temporal: its relation to time (timeless, snapshot, sequence, ...)
- Relation: how it connects to other things (equivalence, oppositional, causal, ...)

## Core Workflow

1. ep_observe — the fast path: ingest a text and auto-propose encoded candidates
   (or ep_ingest + ep_propose to control the encoding yourself)
2. ep_adopt — accept a candidate; it becomes an active backbone on the episode.
   Adoption runs conflict detection against the episode's other backbones and
   lints the candidate note for overconfident language.
3. ep_reject — decline a candidate with a reason (logged for pattern analysis)
4. ep_deprecate — retire a backbone that no longer holds
5. ep_show / ep_search / ep_events — inspect episodes, filter by semantic
   chunks and facets, read the audit trail

## Conflicts and Reflective Questions

Adopting can surface semantic conflicts (e.g. one backbone says STATE where
another says PROCESS) or reflective questions from the language linter
("Does this definition hold true in all contexts?"). Present these to the
user verbatim — they are prompts for reflection, not errors.

## Notifications and Modes

Episodic queues notifications in four priority tiers (P1 urgent … P4 ambient)
and gates delivery on the session mode:
- FOCUS / WRITING: only P1 gets through
- IDLE: all tiers are eligible

Use ep_set_mode to track what the user is doing. Switching to IDLE triggers
an immediate dispatch pass. Call ep_dispatch periodically when idle;
an empty pass is normal. ep_queue_status shows the backlog.

## Important Rules

- Backbone codes are integers; 0 (0x0000) is the valid "fully unknown" code
- Adoption is idempotent — re-adopting an adopted candidate is safe
- A rejected candidate can never be adopted, and vice versa
- Deprecating the last backbone returns the episode's certainty to PENDING
- Never invent backbone codes by hand unless the user asks; prefer ep_observe`
}
