package engine

import "fmt"

// The engine returns typed, branchable error kinds for every validation
// and ownership failure. Callers use errors.As to map them to boundary
// responses: invalid codes and episode mismatches are caller errors,
// terminal-state violations are conflicts, not-found is not-found.
// Invalid backbone codes surface as *bitmap.InvalidCodeError.

// NotFoundError reports that an entity does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// EpisodeMismatchError reports that a candidate or backbone was addressed
// through an episode it does not belong to. This is always a caller bug,
// never a silent success.
type EpisodeMismatchError struct {
	Entity    string
	ID        string
	EpisodeID string // the episode the caller supplied
	OwnerID   string // the episode the entity actually belongs to
}

func (e *EpisodeMismatchError) Error() string {
	return fmt.Sprintf("%s %q belongs to episode %q, not %q", e.Entity, e.ID, e.OwnerID, e.EpisodeID)
}

// TerminalStateError reports an attempt to move a candidate out of a
// terminal status in the wrong direction (adopt a REJECTED candidate, or
// reject an ADOPTED one). Re-applying the same terminal transition is an
// idempotent no-op and does not produce this error.
type TerminalStateError struct {
	CandidateID string
	Status      CandidateStatus
}

func (e *TerminalStateError) Error() string {
	return fmt.Sprintf("candidate %q is already %s", e.CandidateID, e.Status)
}
