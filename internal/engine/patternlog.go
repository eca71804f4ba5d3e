package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// PatternLogFile is the rejected-pattern log filename under the data
// directory.
const PatternLogFile = "rejected_patterns.jsonl"

// RejectedPattern is one line of the rejected-pattern log: the shape of
// a candidate that a human turned down, kept so future proposers can
// learn from it.
type RejectedPattern struct {
	Timestamp   string         `json:"timestamp"`
	EpisodeID   string         `json:"episode_id"`
	CandidateID string         `json:"candidate_id"`
	Code        string         `json:"code"`
	Facets      []FacetSetting `json:"facets,omitempty"`
	Confidence  int            `json:"confidence"`
	Source      string         `json:"source"`
	Note        string         `json:"note,omitempty"`
	Reason      string         `json:"reason,omitempty"`
}

// PatternLog appends rejected-pattern records to a JSONL file. Writes
// are best-effort by contract: callers log failures and move on.
type PatternLog struct {
	mu   sync.Mutex
	path string
}

// NewPatternLog returns a log writing under dataDir. The file is created
// on first append.
func NewPatternLog(dataDir string) *PatternLog {
	return &PatternLog{path: filepath.Join(dataDir, PatternLogFile)}
}

// Append writes one record as a single JSON line.
func (p *PatternLog) Append(rec RejectedPattern) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling rejected pattern: %w", err)
	}

	f, err := os.OpenFile(p.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("opening pattern log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("appending pattern log: %w", err)
	}
	return nil
}
