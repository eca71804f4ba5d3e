// Package dispatch decides which queued notification is delivered and
// when. Policy order: session-mode gate, strict context match, per-tier
// cooldown, then same-episode batching for the lower tiers. The
// dispatcher owns a small persistent state record so cooldowns and the
// session mode survive restarts.
package dispatch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/HendryAvila/episodic/internal/engine"
)

// Mode is the session mode gating delivery. FOCUS and WRITING let only
// P1 through; IDLE opens all tiers.
type Mode string

const (
	ModeFocus   Mode = "FOCUS"
	ModeWriting Mode = "WRITING"
	ModeIdle    Mode = "IDLE"
)

var validModes = map[Mode]bool{ModeFocus: true, ModeWriting: true, ModeIdle: true}

// ValidateMode returns an error if the mode is unknown.
func ValidateMode(m Mode) error {
	if !validModes[m] {
		return fmt.Errorf("invalid mode %q: must be one of: FOCUS, WRITING, IDLE", m)
	}
	return nil
}

// State is the dispatcher's persisted record: the current session mode
// and the last successful dispatch time per tier.
type State struct {
	Mode     Mode                           `json:"state"`
	LastSent map[engine.Priority]*time.Time `json:"last_sent"`
}

// DefaultState starts in FOCUS with no dispatch history, so a fresh
// process interrupts with nothing below P1 until told otherwise.
func DefaultState() State {
	return State{
		Mode: ModeFocus,
		LastSent: map[engine.Priority]*time.Time{
			engine.P1: nil, engine.P2: nil, engine.P3: nil, engine.P4: nil,
		},
	}
}

// StateStore persists dispatcher state across restarts.
type StateStore interface {
	Load() (State, error)
	Save(State) error
}

// StateFile is the dispatcher state filename under the data directory.
const StateFile = "dispatcher_state.json"

// FileStore persists dispatcher state as a JSON file, written atomically
// via a temp file and rename.
type FileStore struct {
	path string
}

// NewFileStore returns a store writing under dataDir.
func NewFileStore(dataDir string) *FileStore {
	return &FileStore{path: filepath.Join(dataDir, StateFile)}
}

// Load reads the state file, falling back to DefaultState when the file
// does not exist yet.
func (f *FileStore) Load() (State, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return DefaultState(), nil
	}
	if err != nil {
		return State{}, fmt.Errorf("reading dispatcher state: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("parsing dispatcher state: %w", err)
	}
	if err := ValidateMode(st.Mode); err != nil {
		return State{}, err
	}
	if st.LastSent == nil {
		st.LastSent = DefaultState().LastSent
	}
	return st, nil
}

// Save writes the state atomically.
func (f *FileStore) Save(st State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling dispatcher state: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing dispatcher state: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replacing dispatcher state: %w", err)
	}
	return nil
}
