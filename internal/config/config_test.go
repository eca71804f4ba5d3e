package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/HendryAvila/episodic/internal/engine"
)

func TestDefault_SetsCooldowns(t *testing.T) {
	cfg := Default()
	if cfg.Cooldowns.P1Minutes != 10 {
		t.Errorf("P1 cooldown = %d, want 10", cfg.Cooldowns.P1Minutes)
	}
	for tier, m := range map[string]int{
		"P2": cfg.Cooldowns.P2Minutes, "P3": cfg.Cooldowns.P3Minutes, "P4": cfg.Cooldowns.P4Minutes,
	} {
		if m != 30 {
			t.Errorf("%s cooldown = %d, want 30", tier, m)
		}
	}
	if cfg.DataDir == "" {
		t.Error("DataDir should default under the home directory")
	}
	if cfg.SearchLimit != 50 || cfg.RecentEventsLimit != 20 {
		t.Errorf("limits = %d/%d", cfg.SearchLimit, cfg.RecentEventsLimit)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), ConfigFile))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFile)
	body := `
data_dir: /var/lib/episodic
cooldowns:
  p1_minutes: 5
search_limit: 100
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataDir != "/var/lib/episodic" {
		t.Errorf("DataDir = %s", cfg.DataDir)
	}
	if cfg.Cooldowns.P1Minutes != 5 {
		t.Errorf("P1 cooldown = %d, want 5", cfg.Cooldowns.P1Minutes)
	}
	// Untouched keys keep their defaults.
	if cfg.Cooldowns.P2Minutes != 30 {
		t.Errorf("P2 cooldown = %d, want 30", cfg.Cooldowns.P2Minutes)
	}
	if cfg.RecentEventsLimit != 20 {
		t.Errorf("RecentEventsLimit = %d, want 20", cfg.RecentEventsLimit)
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"negative cooldown": "cooldowns:\n  p3_minutes: -1\n",
		"zero search limit": "search_limit: 0\n",
		"empty data dir":    `data_dir: ""` + "\n",
		"bad yaml":          "cooldowns: [\n",
	}
	for name, body := range cases {
		path := filepath.Join(dir, name+".yaml")
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Errorf("%s: Load should fail", name)
		}
	}
}

func TestDispatchCooldowns_Conversion(t *testing.T) {
	cfg := Default()
	cooldowns := cfg.DispatchCooldowns()
	if cooldowns[engine.P1] != 10*time.Minute {
		t.Errorf("P1 = %v", cooldowns[engine.P1])
	}
	if cooldowns[engine.P4] != 30*time.Minute {
		t.Errorf("P4 = %v", cooldowns[engine.P4])
	}
}
