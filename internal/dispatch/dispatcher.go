package dispatch

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/HendryAvila/episodic/internal/engine"
)

// timeNow allows tests to control time.
var timeNow = time.Now

// Queue is the notification backlog the dispatcher drains. Satisfied by
// *engine.Store.
type Queue interface {
	PendingNotifications() ([]engine.Notification, error)
	MarkServed(ids []string) error
	QueueCounts() (map[engine.Priority]int, error)
}

// DefaultCooldowns is the per-tier minimum gap between deliveries.
var DefaultCooldowns = map[engine.Priority]time.Duration{
	engine.P1: 10 * time.Minute,
	engine.P2: 30 * time.Minute,
	engine.P3: 30 * time.Minute,
	engine.P4: 30 * time.Minute,
}

// Delivery is one dispatch outcome: a single notification, or a
// batched summary covering several rows of one episode and tier.
type Delivery struct {
	Priority  engine.Priority         `json:"priority"`
	Type      engine.NotificationType `json:"type"`
	EpisodeID string                  `json:"episode_id,omitempty"`
	Content   string                  `json:"content"`
	Batched   bool                    `json:"batched"`
	Count     int                     `json:"count"`
	IDs       []string                `json:"ids"`
}

// Status is a read-only snapshot of the dispatcher for reporting.
type Status struct {
	Mode     Mode                           `json:"mode"`
	Pending  map[engine.Priority]int        `json:"pending"`
	LastSent map[engine.Priority]*time.Time `json:"last_sent"`
}

// Dispatcher owns the gating policy and the persisted state behind it.
// All operations are serialized through one mutex: the cooldown
// timestamps are read-modify-write state and must have a single owner.
type Dispatcher struct {
	mu        sync.Mutex
	queue     Queue
	states    StateStore
	state     State
	cooldowns map[engine.Priority]time.Duration
	logger    *log.Logger
}

// New loads persisted state and returns a ready dispatcher. A nil
// cooldowns map selects DefaultCooldowns.
func New(queue Queue, states StateStore, cooldowns map[engine.Priority]time.Duration, logger *log.Logger) (*Dispatcher, error) {
	st, err := states.Load()
	if err != nil {
		return nil, fmt.Errorf("dispatch: load state: %w", err)
	}
	if cooldowns == nil {
		cooldowns = DefaultCooldowns
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Dispatcher{
		queue:     queue,
		states:    states,
		state:     st,
		cooldowns: cooldowns,
		logger:    logger,
	}, nil
}

// Mode returns the current session mode.
func (d *Dispatcher) Mode() Mode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.Mode
}

// SetMode changes the session mode and persists it. Transitioning into
// IDLE from a non-IDLE mode immediately attempts one dispatch pass so
// queued lower-priority work surfaces the moment focus is released; the
// resulting delivery (or nil) is returned.
func (d *Dispatcher) SetMode(mode Mode, currentContext map[string]any) (*Delivery, error) {
	if err := ValidateMode(mode); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	wasIdle := d.state.Mode == ModeIdle
	d.state.Mode = mode
	if err := d.states.Save(d.state); err != nil {
		return nil, fmt.Errorf("dispatch: save state: %w", err)
	}
	d.logger.Printf("session mode set to %s", mode)

	if mode == ModeIdle && !wasIdle {
		return d.dispatchLocked(currentContext)
	}
	return nil, nil
}

// Dispatch runs one policy pass against the pending queue. It returns
// nil with no error when nothing survives the gates — an empty pass is
// a normal outcome, not a failure.
func (d *Dispatcher) Dispatch(currentContext map[string]any) (*Delivery, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dispatchLocked(currentContext)
}

func (d *Dispatcher) dispatchLocked(currentContext map[string]any) (*Delivery, error) {
	pending, err := d.queue.PendingNotifications()
	if err != nil {
		return nil, fmt.Errorf("dispatch: load queue: %w", err)
	}

	now := timeNow()
	gated := d.gateEligible(pending)
	current := d.effectiveContext(currentContext)

	for _, n := range gated {
		if !matchContext(n.Context, current) {
			continue
		}
		if !d.cooldownExpired(n.Priority, now) {
			continue
		}

		delivery := d.buildDelivery(n, gated)
		if err := d.queue.MarkServed(delivery.IDs); err != nil {
			return nil, fmt.Errorf("dispatch: mark served: %w", err)
		}

		sent := now
		d.state.LastSent[n.Priority] = &sent
		if err := d.states.Save(d.state); err != nil {
			return nil, fmt.Errorf("dispatch: save state: %w", err)
		}

		d.logger.Printf("dispatched %s %s (%d row(s))", delivery.Priority, delivery.Type, delivery.Count)
		return delivery, nil
	}
	return nil, nil
}

// effectiveContext copies the caller's context and defaults session_state
// to the current mode, so notifications can require a mode without the
// caller restating it.
func (d *Dispatcher) effectiveContext(currentContext map[string]any) map[string]any {
	current := make(map[string]any, len(currentContext)+1)
	for k, v := range currentContext {
		current[k] = v
	}
	if _, ok := current["session_state"]; !ok {
		current["session_state"] = string(d.state.Mode)
	}
	return current
}

// gateEligible applies the session-mode gate, preserving queue order.
func (d *Dispatcher) gateEligible(pending []engine.Notification) []engine.Notification {
	if d.state.Mode == ModeIdle {
		return pending
	}
	var eligible []engine.Notification
	for _, n := range pending {
		if n.Priority == engine.P1 {
			eligible = append(eligible, n)
		}
	}
	return eligible
}

func (d *Dispatcher) cooldownExpired(p engine.Priority, now time.Time) bool {
	last := d.state.LastSent[p]
	if last == nil {
		return true
	}
	return now.Sub(*last) >= d.cooldowns[p]
}

// buildDelivery wraps the selected notification. When the selected row
// is P2-P4 and belongs to an episode, every other gate-eligible P2-P4
// row of that episode folds into one summary; the selected row's tier
// still owns the cooldown update. P1 always delivers singly.
func (d *Dispatcher) buildDelivery(n engine.Notification, gated []engine.Notification) *Delivery {
	delivery := &Delivery{
		Priority:  n.Priority,
		Type:      n.Type,
		EpisodeID: n.EpisodeID,
		Content:   n.Content,
		Count:     1,
		IDs:       []string{n.ID},
	}

	if n.Priority == engine.P1 || n.EpisodeID == "" {
		return delivery
	}

	for _, other := range gated {
		if other.ID != n.ID && other.Priority != engine.P1 && other.EpisodeID == n.EpisodeID {
			delivery.IDs = append(delivery.IDs, other.ID)
		}
	}
	if len(delivery.IDs) > 1 {
		delivery.Batched = true
		delivery.Count = len(delivery.IDs)
		delivery.Content = fmt.Sprintf("%d new updates queued for episode %s", delivery.Count, n.EpisodeID)
	}
	return delivery
}

// Status reports the mode, per-tier backlog and cooldown timestamps.
func (d *Dispatcher) Status() (Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	counts, err := d.queue.QueueCounts()
	if err != nil {
		return Status{}, fmt.Errorf("dispatch: queue counts: %w", err)
	}

	lastSent := make(map[engine.Priority]*time.Time, len(d.state.LastSent))
	for p, ts := range d.state.LastSent {
		lastSent[p] = ts
	}
	return Status{Mode: d.state.Mode, Pending: counts, LastSent: lastSent}, nil
}
