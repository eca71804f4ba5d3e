// Package engine implements the episodic encoding engine: the entity
// model (episodes, candidates, backbones, facets, events, notifications),
// the SQLite store that persists it, the candidate lifecycle
// (ingest/propose/adopt/reject/deprecate), mechanical conflict detection,
// and the two-stage bitmask + facet search.
//
// The engine follows the same design principles as the rest of the
// server:
//   - SRP: types, store, conflict rules, lifecycle, and search in
//     separate files
//   - DIP: the advisory linter is an interface; the dispatcher consumes
//     the queue through an interface
//   - events are append-only and are the system of record for every
//     state transition
package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/HendryAvila/episodic/internal/bitmap"
)

// --- Episode ---

// EpisodeStatus tracks whether an episode has an adopted backbone yet.
type EpisodeStatus string

const (
	EpisodeUndecided EpisodeStatus = "UNDECIDED"
	EpisodeDecided   EpisodeStatus = "DECIDED"
)

// Reference is the opaque descriptor of where an episode's observation
// came from: an origin type plus a locator the origin understands.
type Reference struct {
	Type    string `json:"type"`
	Locator string `json:"locator"`
}

// Episode is the root unit of observation. It accumulates candidates
// and, once decided, backbones. Episodes are never deleted; their
// history lives in the event log.
type Episode struct {
	ID        string        `json:"id"`
	Status    EpisodeStatus `json:"status"`
	Ref       Reference     `json:"ref"`
	CreatedAt string        `json:"created_at"`
}

// --- Candidate ---

// CandidateStatus tracks a candidate's position in its lifecycle.
// Transitions are monotone: PENDING→ADOPTED or PENDING→REJECTED only.
type CandidateStatus string

const (
	CandidatePending  CandidateStatus = "PENDING"
	CandidateAdopted  CandidateStatus = "ADOPTED"
	CandidateRejected CandidateStatus = "REJECTED"
)

// FacetSetting is one proposed (facet-id, value) pair. The id selects the
// value enumeration (see bitmap.ValidateFacet); singleton ids overwrite
// on apply, others append.
type FacetSetting struct {
	ID    bitmap.FacetID `json:"id"`
	Value uint8          `json:"value"`
}

// Candidate is a proposed backbone code awaiting adoption or rejection.
type Candidate struct {
	ID         string          `json:"id"`
	EpisodeID  string          `json:"episode_id"`
	ProposedBy string          `json:"proposed_by"`
	Bits       uint16          `json:"bits"`
	Facets     []FacetSetting  `json:"facets"`
	Note       string          `json:"note,omitempty"`
	Confidence int             `json:"confidence"`
	Status     CandidateStatus `json:"status"`
	// BackboneID is set when the candidate is adopted; re-adopt returns
	// it instead of creating a second backbone.
	BackboneID string `json:"backbone_id,omitempty"`
	ProposedAt string `json:"proposed_at"`
}

// --- Backbone ---

// BackboneRole distinguishes the first adopted backbone of an episode
// from later alternatives. The role is computed from the count of active
// backbones at adoption time, not from insertion order.
type BackboneRole string

const (
	RolePrimary     BackboneRole = "PRIMARY"
	RoleAlternative BackboneRole = "ALTERNATIVE"
)

// Backbone is an adopted, authoritative backbone code attached to an
// episode. Backbones are soft-deleted via the Deprecated flag, never
// physically removed.
type Backbone struct {
	ID         string       `json:"id"`
	EpisodeID  string       `json:"episode_id"`
	Code       bitmap.Code  `json:"code"`
	Role       BackboneRole `json:"role"`
	Deprecated bool         `json:"deprecated"`
	AdoptedAt  string       `json:"adopted_at"`
}

// --- Facet ---

// Facet is a persisted (facet-id, value) annotation on an episode.
type Facet struct {
	UUID      string         `json:"uuid"`
	EpisodeID string         `json:"episode_id"`
	ID        bitmap.FacetID `json:"id"`
	Value     uint8          `json:"value"`
}

// --- Event ---

// EventType classifies an append-only audit record.
type EventType string

const (
	EventIngest        EventType = "INGEST"
	EventPropose       EventType = "PROPOSE"
	EventAdopt         EventType = "ADOPT"
	EventReject        EventType = "REJECT"
	EventDeprecate     EventType = "DEPRECATE"
	EventConflictMark  EventType = "CONFLICT_MARK"
	EventBitmapInvalid EventType = "BITMAP_INVALID"
	EventEpidoraMark   EventType = "EPIDORA_MARK"
)

// Event is one append-only audit record. Events are never mutated or
// deleted; downstream reporting reads this stream but never writes it.
type Event struct {
	ID        string         `json:"id"`
	EpisodeID string         `json:"episode_id,omitempty"`
	Type      EventType      `json:"type"`
	Payload   map[string]any `json:"payload"`
	At        string         `json:"at"`
}

// --- Notification ---

// Priority orders notifications for the dispatcher. P1 is most urgent.
// The string forms sort correctly ("P1" < "P2"), which the queue relies on.
type Priority string

const (
	P1 Priority = "P1"
	P2 Priority = "P2"
	P3 Priority = "P3"
	P4 Priority = "P4"
)

// Priorities lists all tiers in dispatch order.
var Priorities = []Priority{P1, P2, P3, P4}

var validPriorities = map[Priority]bool{P1: true, P2: true, P3: true, P4: true}

// ValidatePriority returns an error if the priority is not P1..P4.
func ValidatePriority(p Priority) error {
	if !validPriorities[p] {
		return fmt.Errorf("invalid priority %q: must be one of: P1, P2, P3, P4", p)
	}
	return nil
}

// NotificationType classifies what kind of outbound message a
// notification is.
type NotificationType string

const (
	NotifyAsk           NotificationType = "ASK"
	NotifyConfirm       NotificationType = "CONFIRM"
	NotifyNotice        NotificationType = "NOTICE"
	NotifyExportRequest NotificationType = "EXPORT_REQUEST"
)

var validNotificationTypes = map[NotificationType]bool{
	NotifyAsk: true, NotifyConfirm: true, NotifyNotice: true, NotifyExportRequest: true,
}

// ValidateNotificationType returns an error if the type is unknown.
func ValidateNotificationType(t NotificationType) error {
	if !validNotificationTypes[t] {
		return fmt.Errorf("invalid notification type %q: must be one of: ASK, CONFIRM, NOTICE, EXPORT_REQUEST", t)
	}
	return nil
}

// NotificationStatus tracks whether a queue row has been delivered.
type NotificationStatus string

const (
	NotificationPending NotificationStatus = "PENDING"
	NotificationServed  NotificationStatus = "SERVED"
)

// Notification is one item in the outbound priority queue. Pending rows
// are deduplicated on (Intent, EpisodeID) at enqueue time.
type Notification struct {
	ID        string             `json:"id"`
	EpisodeID string             `json:"episode_id,omitempty"`
	Priority  Priority           `json:"priority"`
	Type      NotificationType   `json:"type"`
	Intent    string             `json:"intent"`
	Content   string             `json:"content"`
	Context   map[string]any     `json:"required_context,omitempty"`
	Status    NotificationStatus `json:"status"`
	CreatedAt string             `json:"created_at"`
}

// EnqueueParams holds the input for enqueueing a notification.
type EnqueueParams struct {
	EpisodeID string           `json:"episode_id,omitempty"`
	Priority  Priority         `json:"priority"`
	Type      NotificationType `json:"type"`
	Intent    string           `json:"intent"`
	Content   string           `json:"content"`
	Context   map[string]any   `json:"required_context,omitempty"`
}

// --- IDs ---

// newID generates a short prefixed id, e.g. "ep_3fa4c1d2".
func newID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// --- JSON column helpers ---

func marshalJSON(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshaling json column: %w", err)
	}
	return string(data), nil
}

func unmarshalFacets(raw string) ([]FacetSetting, error) {
	if raw == "" {
		return nil, nil
	}
	var facets []FacetSetting
	if err := json.Unmarshal([]byte(raw), &facets); err != nil {
		return nil, fmt.Errorf("parsing facets column: %w", err)
	}
	return facets, nil
}

func unmarshalMap(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("parsing json column: %w", err)
	}
	return m, nil
}
