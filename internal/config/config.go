// Package config holds server configuration: the data directory and the
// dispatcher's cooldown windows. Defaults work out of the box; an
// optional YAML file overrides them.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/HendryAvila/episodic/internal/engine"
)

// ConfigFile is the optional override file looked up under the data
// directory.
const ConfigFile = "config.yaml"

// Cooldowns holds the per-tier dispatch cooldown windows in minutes.
type Cooldowns struct {
	P1Minutes int `yaml:"p1_minutes"`
	P2Minutes int `yaml:"p2_minutes"`
	P3Minutes int `yaml:"p3_minutes"`
	P4Minutes int `yaml:"p4_minutes"`
}

// Config is the full server configuration.
type Config struct {
	DataDir           string    `yaml:"data_dir"`
	Cooldowns         Cooldowns `yaml:"cooldowns"`
	SearchLimit       int       `yaml:"search_limit"`
	RecentEventsLimit int       `yaml:"recent_events_limit"`
}

// Default returns the configuration used when no file overrides it.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir: filepath.Join(home, ".episodic"),
		Cooldowns: Cooldowns{
			P1Minutes: 10,
			P2Minutes: 30,
			P3Minutes: 30,
			P4Minutes: 30,
		},
		SearchLimit:       50,
		RecentEventsLimit: 20,
	}
}

// Load reads the YAML file at path over the defaults. A missing file is
// not an error: the defaults are returned as-is.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("config: data_dir must not be empty")
	}
	for tier, m := range map[string]int{
		"p1": c.Cooldowns.P1Minutes, "p2": c.Cooldowns.P2Minutes,
		"p3": c.Cooldowns.P3Minutes, "p4": c.Cooldowns.P4Minutes,
	} {
		if m < 0 {
			return fmt.Errorf("config: %s cooldown must not be negative", tier)
		}
	}
	if c.SearchLimit <= 0 {
		return fmt.Errorf("config: search_limit must be positive")
	}
	return nil
}

// DispatchCooldowns converts the configured minutes into the map the
// dispatcher consumes.
func (c Config) DispatchCooldowns() map[engine.Priority]time.Duration {
	return map[engine.Priority]time.Duration{
		engine.P1: time.Duration(c.Cooldowns.P1Minutes) * time.Minute,
		engine.P2: time.Duration(c.Cooldowns.P2Minutes) * time.Minute,
		engine.P3: time.Duration(c.Cooldowns.P3Minutes) * time.Minute,
		engine.P4: time.Duration(c.Cooldowns.P4Minutes) * time.Minute,
	}
}
