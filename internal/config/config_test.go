package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefault_Valid tests that the defaults pass their own validation.
func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 5000, cfg.MaxEvents)
	assert.Equal(t, 2, cfg.MaxAbsDepth)
	assert.Equal(t, 25, cfg.RepeatWindow)
}

// TestLoadFile_Missing tests that an absent file yields the defaults.
func TestLoadFile_Missing(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

// TestLoadFile_Overlay tests that file values override defaults while
// unspecified fields keep their default values.
func TestLoadFile_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mirror.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"max_events: 100\nexplore_chance: 0.5\ncycle_pause_ms: 0\n"), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.MaxEvents)
	assert.Equal(t, 0.5, cfg.ExploreChance)
	assert.Equal(t, time.Duration(0), cfg.CyclePause())
	// Untouched field keeps its default.
	assert.Equal(t, 6, cfg.MinPairSupport)
}

// TestLoadFile_Malformed tests that unparseable YAML is an error.
func TestLoadFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mirror.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_events: [not an int\n"), 0o644))

	_, err := LoadFile(path)
	require.Error(t, err)
}

// TestValidate_Bounds tests rejection of out-of-range settings.
func TestValidate_Bounds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero max_events", func(c *Config) { c.MaxEvents = 0 }},
		{"inverted thoughts range", func(c *Config) { c.ThoughtsMin = 5; c.ThoughtsMax = 3 }},
		{"zero depth", func(c *Config) { c.MaxAbsDepth = 0 }},
		{"zero rate window", func(c *Config) { c.RateWindow = 0 }},
		{"zero abstraction cadence", func(c *Config) { c.AbstractionEvery = 0 }},
		{"negative save cadence", func(c *Config) { c.SaveEvery = -1 }},
		{"probability above one", func(c *Config) { c.ExploreChance = 1.5 }},
		{"negative probability", func(c *Config) { c.InsightChance = -0.1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

// TestPaths tests artifact path derivation.
func TestPaths(t *testing.T) {
	cfg := Default()
	cfg.DataDir = "/tmp/m"

	assert.Equal(t, filepath.Join("/tmp/m", "events.jsonl"), cfg.EventsPath())
	assert.Equal(t, filepath.Join("/tmp/m", "graph.json"), cfg.GraphPath())
	assert.Equal(t, filepath.Join("/tmp/m", "rules.json"), cfg.RulesPath())
	assert.Equal(t, filepath.Join("/tmp/m", "seed.txt"), cfg.SeedPath())
	assert.Equal(t, filepath.Join("/tmp/m", "archive.db"), cfg.ArchivePath())
}
