package dispatch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/HendryAvila/episodic/internal/engine"
)

func TestFileStore_MissingFileDefaults(t *testing.T) {
	fs := NewFileStore(t.TempDir())
	st, err := fs.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st.Mode != ModeFocus {
		t.Errorf("default mode = %s, want FOCUS", st.Mode)
	}
	for _, p := range engine.Priorities {
		if st.LastSent[p] != nil {
			t.Errorf("last_sent[%s] = %v, want nil", p, st.LastSent[p])
		}
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	fs := NewFileStore(dir)

	sent := time.Date(2026, 8, 25, 9, 30, 0, 0, time.UTC)
	st := DefaultState()
	st.Mode = ModeIdle
	st.LastSent[engine.P2] = &sent

	if err := fs.Save(st); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := NewFileStore(dir).Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Mode != ModeIdle {
		t.Errorf("mode = %s", got.Mode)
	}
	if got.LastSent[engine.P2] == nil || !got.LastSent[engine.P2].Equal(sent) {
		t.Errorf("last_sent[P2] = %v, want %v", got.LastSent[engine.P2], sent)
	}
	if got.LastSent[engine.P1] != nil {
		t.Errorf("last_sent[P1] = %v, want nil", got.LastSent[engine.P1])
	}
}

func TestFileStore_WireFormat(t *testing.T) {
	dir := t.TempDir()
	fs := NewFileStore(dir)
	if err := fs.Save(DefaultState()); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, StateFile))
	if err != nil {
		t.Fatal(err)
	}
	body := string(data)
	if !strings.Contains(body, `"state": "FOCUS"`) {
		t.Errorf("missing state field: %s", body)
	}
	if !strings.Contains(body, `"last_sent"`) || !strings.Contains(body, `"P1": null`) {
		t.Errorf("missing last_sent tiers: %s", body)
	}
}

func TestFileStore_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	fs := NewFileStore(dir)
	if err := fs.Save(DefaultState()); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, StateFile+".tmp")); !os.IsNotExist(err) {
		t.Error("temp file should be renamed away")
	}
}

func TestFileStore_RejectsUnknownMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, StateFile)
	if err := os.WriteFile(path, []byte(`{"state":"PANIC","last_sent":{}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(dir).Load(); err == nil {
		t.Error("unknown persisted mode should fail loudly")
	}
}
