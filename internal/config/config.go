// Package config defines the explicit configuration value shared by the
// engine's components.
//
// There is no process-wide mutable settings singleton: callers construct a
// Config (usually from Default, optionally overlaid from a YAML file) and
// pass it into each component's constructor.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the symbolic memory engine.
type Config struct {
	// DataDir is the root directory for all persisted artifacts.
	DataDir string `yaml:"data_dir"`

	// MaxEvents bounds the in-memory event window (sliding retention).
	MaxEvents int `yaml:"max_events"`

	// MaxSymbolLen bounds normalized symbol length.
	MaxSymbolLen int `yaml:"max_symbol_len"`

	// ThoughtsMin and ThoughtsMax bound the number of generation steps
	// per cycle (inclusive).
	ThoughtsMin int `yaml:"thoughts_min"`
	ThoughtsMax int `yaml:"thoughts_max"`

	// TopSymbols is how many ranked symbols the selection policy sees.
	TopSymbols int `yaml:"top_symbols"`

	// Abstraction behaviour.
	InsightChance    float64 `yaml:"insight_chance"`     // probability of attempting abstraction on an eligible cycle
	AbstractionEvery int     `yaml:"abstraction_every"`  // attempt only every N cycles
	MinPairSupport   int     `yaml:"min_pair_support"`   // minimum edge weight for promotion
	MaxAbsDepth      int     `yaml:"max_abs_depth"`      // maximum abstraction nesting depth
	MaxAbsPerWindow  int     `yaml:"max_abs_per_window"` // promotion ceiling within the rate window
	RateWindow       int     `yaml:"rate_window"`        // attempts remembered by the rate limiter
	PairScanLimit    int     `yaml:"pair_scan_limit"`    // ranked edges examined per attempt

	// Anti-repetition / exploration.
	RepeatWindow   int     `yaml:"repeat_window"`    // recently-picked symbols excluded from selection
	ExploreChance  float64 `yaml:"explore_chance"`   // probability of injecting a seed symbol
	AbstractChance float64 `yaml:"abs_pick_chance"`  // probability of picking an existing abstraction

	// Persistence cadence and pacing. Pauses are cosmetic throttles;
	// zero is a no-op and changes no outcomes.
	SaveEvery    int `yaml:"save_every"`     // autosave snapshots every N cycles
	CyclePauseMS int `yaml:"cycle_pause_ms"` // delay between cycles, milliseconds
	StepPauseMS  int `yaml:"step_pause_ms"`  // delay between steps, milliseconds
}

// CyclePause returns the between-cycle delay.
func (c Config) CyclePause() time.Duration {
	return time.Duration(c.CyclePauseMS) * time.Millisecond
}

// StepPause returns the between-step delay.
func (c Config) StepPause() time.Duration {
	return time.Duration(c.StepPauseMS) * time.Millisecond
}

// Default returns the engine's default configuration.
func Default() Config {
	return Config{
		DataDir:          "data",
		MaxEvents:        5000,
		MaxSymbolLen:     32,
		ThoughtsMin:      3,
		ThoughtsMax:      7,
		TopSymbols:       20,
		InsightChance:    0.55,
		AbstractionEvery: 3,
		MinPairSupport:   6,
		MaxAbsDepth:      2,
		MaxAbsPerWindow:  10,
		RateWindow:       100,
		PairScanLimit:    80,
		RepeatWindow:     25,
		ExploreChance:    0.28,
		AbstractChance:   0.18,
		SaveEvery:        10,
		CyclePauseMS:     600,
		StepPauseMS:      120,
	}
}

// LoadFile overlays the YAML file at path onto the defaults.
// A missing file is not an error: the defaults are returned unchanged.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks bounds that would otherwise surface as subtle runtime
// misbehaviour (empty windows, inverted ranges, probabilities outside [0,1]).
func (c Config) Validate() error {
	if c.MaxEvents <= 0 {
		return fmt.Errorf("max_events must be positive, got %d", c.MaxEvents)
	}
	if c.ThoughtsMin <= 0 || c.ThoughtsMax < c.ThoughtsMin {
		return fmt.Errorf("thoughts range invalid: min=%d max=%d", c.ThoughtsMin, c.ThoughtsMax)
	}
	if c.MaxAbsDepth < 1 {
		return fmt.Errorf("max_abs_depth must be at least 1, got %d", c.MaxAbsDepth)
	}
	if c.RateWindow <= 0 || c.MaxAbsPerWindow < 0 {
		return fmt.Errorf("rate window invalid: window=%d ceiling=%d", c.RateWindow, c.MaxAbsPerWindow)
	}
	if c.AbstractionEvery <= 0 {
		return fmt.Errorf("abstraction_every must be positive, got %d", c.AbstractionEvery)
	}
	if c.SaveEvery <= 0 {
		return fmt.Errorf("save_every must be positive, got %d", c.SaveEvery)
	}
	for name, p := range map[string]float64{
		"insight_chance":  c.InsightChance,
		"explore_chance":  c.ExploreChance,
		"abs_pick_chance": c.AbstractChance,
	} {
		if p < 0 || p > 1 {
			return fmt.Errorf("%s must be within [0,1], got %v", name, p)
		}
	}
	return nil
}

// Derived artifact paths inside DataDir.

// EventsPath is the JSONL event log.
func (c Config) EventsPath() string { return filepath.Join(c.DataDir, "events.jsonl") }

// GraphPath is the graph snapshot.
func (c Config) GraphPath() string { return filepath.Join(c.DataDir, "graph.json") }

// RulesPath is the rewrite rules snapshot.
func (c Config) RulesPath() string { return filepath.Join(c.DataDir, "rules.json") }

// SeedPath is the seed vocabulary file.
func (c Config) SeedPath() string { return filepath.Join(c.DataDir, "seed.txt") }

// ArchivePath is the SQLite cold storage for trimmed events.
func (c Config) ArchivePath() string { return filepath.Join(c.DataDir, "archive.db") }
