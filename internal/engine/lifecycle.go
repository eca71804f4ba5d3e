package engine

import (
	"database/sql"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/HendryAvila/episodic/internal/bitmap"
)

// Finding is one advisory result from the linter: a numeric finding id,
// a short descriptor, and a reflective suggestion for the author.
type Finding struct {
	ID         int    `json:"finding_id"`
	Descriptor string `json:"descriptor"`
	Suggestion string `json:"suggestion"`
}

// Linter is the advisory text linter consumed on adoption. Findings are
// advisory only: they annotate the episode and raise questions, they
// never block an operation.
type Linter interface {
	Lint(text string) []Finding
}

// Engine orchestrates the candidate lifecycle: ingest, propose, adopt,
// reject, deprecate. Adopt/reject/deprecate are serialized per episode;
// operations on different episodes run in parallel.
type Engine struct {
	store    *Store
	linter   Linter
	patterns *PatternLog
	logger   *log.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEngine wires the orchestrator. linter and patterns may be nil; the
// corresponding side effects are then skipped.
func NewEngine(store *Store, linter Linter, patterns *PatternLog, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		store:    store,
		linter:   linter,
		patterns: patterns,
		logger:   logger,
		locks:    make(map[string]*sync.Mutex),
	}
}

// Store exposes the underlying store for read-side consumers.
func (e *Engine) Store() *Store {
	return e.store
}

// episodeLock returns the mutex serializing mutations of one episode.
func (e *Engine) episodeLock(episodeID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[episodeID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[episodeID] = l
	}
	return l
}

// --- Ingest ---

// Ingest creates a new UNDECIDED episode for a reference and records the
// INGEST event.
func (e *Engine) Ingest(ref Reference) (*Episode, error) {
	if strings.TrimSpace(ref.Type) == "" {
		return nil, fmt.Errorf("reference type is required")
	}
	if strings.TrimSpace(ref.Locator) == "" {
		return nil, fmt.Errorf("reference locator is required")
	}

	ep := &Episode{
		ID:        newID("ep"),
		Status:    EpisodeUndecided,
		Ref:       ref,
		CreatedAt: now(),
	}

	err := e.store.withTx(func(tx *sql.Tx) error {
		if err := insertEpisode(tx, ep); err != nil {
			return fmt.Errorf("inserting episode: %w", err)
		}
		return appendEvent(tx, EventIngest, ep.ID, map[string]any{
			"ref_type":    ref.Type,
			"ref_locator": ref.Locator,
		})
	})
	if err != nil {
		return nil, err
	}

	e.logger.Printf("ingested episode %s (%s:%s)", ep.ID, ref.Type, ref.Locator)
	return ep, nil
}

// --- Propose ---

// ProposeItem is one proposed code in a propose batch.
type ProposeItem struct {
	ProposedBy string         `json:"proposed_by"`
	Bits       int            `json:"bits"`
	Facets     []FacetSetting `json:"facets,omitempty"`
	Note       string         `json:"note,omitempty"`
	Confidence int            `json:"confidence"`
}

// lowConfidenceThreshold triggers a review notification on propose.
const lowConfidenceThreshold = 50

// Propose validates and persists a batch of candidates against an
// episode. The batch is all-or-nothing: the first invalid code records a
// BITMAP_INVALID event and aborts the whole batch with zero candidate
// rows written. Candidates below the confidence threshold raise a P3
// review notification.
func (e *Engine) Propose(episodeID string, items []ProposeItem) ([]Candidate, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("propose requires at least one candidate")
	}
	if _, err := e.store.GetEpisode(episodeID); err != nil {
		return nil, err
	}

	// Validate the full batch before writing anything.
	codes := make([]bitmap.Code, len(items))
	for i, item := range items {
		code, err := bitmap.Validate(item.Bits)
		if err != nil {
			evErr := e.store.withTx(func(tx *sql.Tx) error {
				return appendEvent(tx, EventBitmapInvalid, episodeID, map[string]any{
					"stage":  "propose",
					"raw":    item.Bits,
					"reason": err.Error(),
					"index":  i,
				})
			})
			if evErr != nil {
				e.logger.Printf("recording BITMAP_INVALID failed: %v", evErr)
			}
			return nil, err
		}
		codes[i] = code

		for _, f := range item.Facets {
			if err := bitmap.ValidateFacet(f.ID, f.Value); err != nil {
				return nil, fmt.Errorf("candidate %d: %w", i, err)
			}
		}
		if item.Confidence < 0 || item.Confidence > 100 {
			return nil, fmt.Errorf("candidate %d: confidence %d out of range 0..100", i, item.Confidence)
		}
	}

	candidates := make([]Candidate, len(items))
	hexCodes := make([]string, len(items))
	sources := make([]string, 0, len(items))
	seenSource := map[string]bool{}
	for i, item := range items {
		candidates[i] = Candidate{
			ID:         newID("cand"),
			EpisodeID:  episodeID,
			ProposedBy: item.ProposedBy,
			Bits:       codes[i].Bits,
			Facets:     item.Facets,
			Note:       item.Note,
			Confidence: item.Confidence,
			Status:     CandidatePending,
			ProposedAt: now(),
		}
		hexCodes[i] = fmt.Sprintf("0x%04X", codes[i].Bits)
		if !seenSource[item.ProposedBy] {
			seenSource[item.ProposedBy] = true
			sources = append(sources, item.ProposedBy)
		}
	}

	err := e.store.withTx(func(tx *sql.Tx) error {
		for i := range candidates {
			if err := insertCandidate(tx, &candidates[i]); err != nil {
				return fmt.Errorf("inserting candidate: %w", err)
			}
		}
		return appendEvent(tx, EventPropose, episodeID, map[string]any{
			"count":   len(candidates),
			"sources": sources,
			"codes":   hexCodes,
		})
	})
	if err != nil {
		return nil, err
	}

	for i := range candidates {
		c := &candidates[i]
		if c.Confidence >= lowConfidenceThreshold {
			continue
		}
		_, _, nErr := e.store.EnqueueNotification(EnqueueParams{
			EpisodeID: episodeID,
			Priority:  P3,
			Type:      NotifyAsk,
			Intent:    "low_confidence:" + c.ID,
			Content: fmt.Sprintf("Candidate %s (%s, confidence %d) needs review.",
				c.ID, hexCodes[i], c.Confidence),
		})
		if nErr != nil {
			e.logger.Printf("enqueue low-confidence notification: %v", nErr)
		}
	}

	return candidates, nil
}

// --- Adopt ---

// AdoptResult reports the adoption outcome. BackboneID is stable across
// repeated adopt calls for the same candidate; Conflicts lists the rule
// firings detected after this adoption (empty on the idempotent replay).
type AdoptResult struct {
	BackboneID string       `json:"backbone_id"`
	Role       BackboneRole `json:"role"`
	Conflicts  []Conflict   `json:"conflicts,omitempty"`
	Findings   []Finding    `json:"findings,omitempty"`
}

// Adopt promotes a PENDING candidate to an authoritative backbone. It is
// idempotent: re-adopting an ADOPTED candidate returns the existing
// backbone id without new writes. Adopting a REJECTED candidate is a
// terminal-state error. A detected conflict is a recorded fact, not a
// failure: adopt still succeeds and returns the backbone id.
func (e *Engine) Adopt(episodeID, candidateID string) (*AdoptResult, error) {
	lock := e.episodeLock(episodeID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := e.store.GetEpisode(episodeID); err != nil {
		return nil, err
	}
	cand, err := e.store.GetCandidate(candidateID)
	if err != nil {
		return nil, err
	}
	if cand.EpisodeID != episodeID {
		return nil, &EpisodeMismatchError{Entity: "candidate", ID: candidateID, EpisodeID: episodeID, OwnerID: cand.EpisodeID}
	}
	switch cand.Status {
	case CandidateAdopted:
		bb, err := e.store.GetBackbone(cand.BackboneID)
		if err != nil {
			return nil, err
		}
		return &AdoptResult{BackboneID: bb.ID, Role: bb.Role}, nil
	case CandidateRejected:
		return nil, &TerminalStateError{CandidateID: candidateID, Status: CandidateRejected}
	}

	// Defense in depth: the stored code may predate the current
	// allow-lists.
	code, err := bitmap.Validate(int(cand.Bits))
	if err != nil {
		evErr := e.store.withTx(func(tx *sql.Tx) error {
			return appendEvent(tx, EventBitmapInvalid, episodeID, map[string]any{
				"stage":        "adopt",
				"raw":          int(cand.Bits),
				"reason":       err.Error(),
				"candidate_id": candidateID,
			})
		})
		if evErr != nil {
			e.logger.Printf("recording BITMAP_INVALID failed: %v", evErr)
		}
		return nil, err
	}

	result := &AdoptResult{}
	var notices []EnqueueParams

	err = e.store.withTx(func(tx *sql.Tx) error {
		active, err := countActiveBackbones(tx, episodeID)
		if err != nil {
			return fmt.Errorf("counting active backbones: %w", err)
		}
		role := RolePrimary
		if active > 0 {
			role = RoleAlternative
		}

		bb := &Backbone{
			ID:        newID("bb"),
			EpisodeID: episodeID,
			Code:      code,
			Role:      role,
			AdoptedAt: now(),
		}
		if err := insertBackbone(tx, bb); err != nil {
			return fmt.Errorf("inserting backbone: %w", err)
		}
		result.BackboneID = bb.ID
		result.Role = role

		// Proposed facets apply first; adoption then always confirms
		// certainty, and a detected conflict demotes it below.
		for _, f := range cand.Facets {
			if err := setFacet(tx, episodeID, f.ID, f.Value); err != nil {
				return fmt.Errorf("applying facet 0x%X: %w", uint8(f.ID), err)
			}
		}
		if err := setFacet(tx, episodeID, bitmap.FacetCertainty, bitmap.CertaintyConfirmed); err != nil {
			return fmt.Errorf("confirming certainty: %w", err)
		}

		if err := markCandidateAdopted(tx, candidateID, bb.ID); err != nil {
			return fmt.Errorf("marking candidate adopted: %w", err)
		}
		if err := setEpisodeStatus(tx, episodeID, EpisodeDecided); err != nil {
			return fmt.Errorf("deciding episode: %w", err)
		}
		if err := appendEvent(tx, EventAdopt, episodeID, map[string]any{
			"candidate_id": candidateID,
			"backbone_id":  bb.ID,
			"role":         string(role),
		}); err != nil {
			return err
		}

		// The re-check must observe the backbone written above, so it
		// runs inside the same transaction.
		backbones, err := activeBackbones(tx, episodeID)
		if err != nil {
			return err
		}
		conflicts := DetectConflicts(backbones)
		if len(conflicts) > 0 {
			result.Conflicts = conflicts
			if err := setFacet(tx, episodeID, bitmap.FacetCertainty, bitmap.CertaintyConflict); err != nil {
				return fmt.Errorf("marking certainty conflict: %w", err)
			}
			if err := appendEvent(tx, EventConflictMark, episodeID, map[string]any{
				"conflicts": conflicts,
			}); err != nil {
				return err
			}
			notices = append(notices, EnqueueParams{
				EpisodeID: episodeID,
				Priority:  P1,
				Type:      NotifyNotice,
				Intent:    "conflict:" + episodeID,
				Content:   "Backbone conflict detected: " + conflicts[0].Describe(),
			})
		}

		if e.linter != nil && strings.TrimSpace(cand.Note) != "" {
			findings := e.linter.Lint(cand.Note)
			result.Findings = findings
			for _, f := range findings {
				if err := setFacet(tx, episodeID, bitmap.FacetAlignment, uint8(f.ID)); err != nil {
					return fmt.Errorf("setting alignment facet: %w", err)
				}
				if err := appendEvent(tx, EventEpidoraMark, episodeID, map[string]any{
					"candidate_id": candidateID,
					"finding_id":   f.ID,
					"descriptor":   f.Descriptor,
				}); err != nil {
					return err
				}
				notices = append(notices, EnqueueParams{
					EpisodeID: episodeID,
					Priority:  P2,
					Type:      NotifyAsk,
					Intent:    fmt.Sprintf("epidora:%s:%d", candidateID, f.ID),
					Content:   f.Suggestion,
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, n := range notices {
		if _, _, nErr := e.store.EnqueueNotification(n); nErr != nil {
			e.logger.Printf("enqueue %s notification: %v", n.Intent, nErr)
		}
	}

	e.logger.Printf("adopted candidate %s as backbone %s (%s) on %s",
		candidateID, result.BackboneID, result.Role, episodeID)
	return result, nil
}

// --- Reject ---

// Result reports whether a mutating operation changed state. Replaying a
// terminal transition yields Changed=false.
type Result struct {
	Changed bool `json:"changed"`
}

// Reject marks a PENDING candidate REJECTED and appends the candidate's
// shape to the rejected-pattern log. Re-rejecting is an idempotent no-op;
// rejecting an ADOPTED candidate is a terminal-state error. The pattern
// log write is best-effort and never fails the operation.
func (e *Engine) Reject(episodeID, candidateID, reason string) (Result, error) {
	lock := e.episodeLock(episodeID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := e.store.GetEpisode(episodeID); err != nil {
		return Result{}, err
	}
	cand, err := e.store.GetCandidate(candidateID)
	if err != nil {
		return Result{}, err
	}
	if cand.EpisodeID != episodeID {
		return Result{}, &EpisodeMismatchError{Entity: "candidate", ID: candidateID, EpisodeID: episodeID, OwnerID: cand.EpisodeID}
	}
	switch cand.Status {
	case CandidateRejected:
		return Result{Changed: false}, nil
	case CandidateAdopted:
		return Result{}, &TerminalStateError{CandidateID: candidateID, Status: CandidateAdopted}
	}

	err = e.store.withTx(func(tx *sql.Tx) error {
		if err := markCandidateRejected(tx, candidateID); err != nil {
			return fmt.Errorf("marking candidate rejected: %w", err)
		}
		payload := map[string]any{"candidate_id": candidateID}
		if reason != "" {
			payload["reason"] = reason
		}
		return appendEvent(tx, EventReject, episodeID, payload)
	})
	if err != nil {
		return Result{}, err
	}

	if e.patterns != nil {
		if pErr := e.patterns.Append(RejectedPattern{
			Timestamp:   now(),
			EpisodeID:   episodeID,
			CandidateID: candidateID,
			Code:        fmt.Sprintf("0x%04X", cand.Bits),
			Facets:      cand.Facets,
			Confidence:  cand.Confidence,
			Source:      cand.ProposedBy,
			Note:        cand.Note,
			Reason:      reason,
		}); pErr != nil {
			e.logger.Printf("rejected-pattern log write failed (ignored): %v", pErr)
		}
	}

	e.logger.Printf("rejected candidate %s on %s", candidateID, episodeID)
	return Result{Changed: true}, nil
}

// --- Deprecate ---

// Deprecate soft-deletes a backbone and re-evaluates the episode's
// conflict state from the remaining active set: certainty returns to
// CONFIRMED when the conflicts clear and active backbones remain, or to
// PENDING when none remain. Deprecating twice is an idempotent no-op.
func (e *Engine) Deprecate(episodeID, backboneID string) (Result, error) {
	lock := e.episodeLock(episodeID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := e.store.GetEpisode(episodeID); err != nil {
		return Result{}, err
	}
	bb, err := e.store.GetBackbone(backboneID)
	if err != nil {
		return Result{}, err
	}
	if bb.EpisodeID != episodeID {
		return Result{}, &EpisodeMismatchError{Entity: "backbone", ID: backboneID, EpisodeID: episodeID, OwnerID: bb.EpisodeID}
	}
	if bb.Deprecated {
		return Result{Changed: false}, nil
	}

	err = e.store.withTx(func(tx *sql.Tx) error {
		if err := markBackboneDeprecated(tx, backboneID); err != nil {
			return fmt.Errorf("deprecating backbone: %w", err)
		}

		remaining, err := activeBackbones(tx, episodeID)
		if err != nil {
			return err
		}

		certainty := bitmap.CertaintyPending
		var conflicts []Conflict
		if len(remaining) > 0 {
			certainty = bitmap.CertaintyConfirmed
			if conflicts = DetectConflicts(remaining); len(conflicts) > 0 {
				certainty = bitmap.CertaintyConflict
			}
		}
		if err := setFacet(tx, episodeID, bitmap.FacetCertainty, certainty); err != nil {
			return fmt.Errorf("resetting certainty: %w", err)
		}

		// Surviving conflicts are a fresh fact about the shrunken set and
		// get their own audit record.
		if len(conflicts) > 0 {
			if err := appendEvent(tx, EventConflictMark, episodeID, map[string]any{
				"conflicts": conflicts,
			}); err != nil {
				return err
			}
		}

		return appendEvent(tx, EventDeprecate, episodeID, map[string]any{
			"backbone_id": backboneID,
			"remaining":   len(remaining),
		})
	})
	if err != nil {
		return Result{}, err
	}

	e.logger.Printf("deprecated backbone %s on %s", backboneID, episodeID)
	return Result{Changed: true}, nil
}

// --- Notifications ---

// TriggerNotification enqueues a notification on behalf of any
// subsystem, deduplicating on (intent, episode) while PENDING.
func (e *Engine) TriggerNotification(p EnqueueParams) (id string, existing bool, err error) {
	return e.store.EnqueueNotification(p)
}
