/*
Package config manages EvoMemory configuration.

Configuration lives at ~/.evomemory/config.json next to the database and
the exported rule snapshot. A missing file means defaults; a malformed
one is a typed error so the CLI can print an actionable hint.
*/
package config

import (
	"os"
	"path/filepath"

	"github.com/khanglvm/evomemory/internal/confidence"
	"github.com/khanglvm/evomemory/internal/evolve"
	"github.com/khanglvm/evomemory/internal/search"
)

// dirName is the dot-directory under the user's home.
const dirName = ".evomemory"

// PruneConfig controls retention of old low-confidence neurons.
type PruneConfig struct {
	// MaxAgeDays is the age beyond which a neuron becomes a pruning
	// candidate.
	MaxAgeDays int `json:"max_age_days"`

	// ConfidenceBelow is the confidence under which an old neuron is
	// pruned.
	ConfidenceBelow float64 `json:"confidence_below"`
}

// CompressConfig controls meta-neuron compression.
type CompressConfig struct {
	// MinClusterSize is the smallest duplicate cluster worth
	// compressing.
	MinClusterSize int `json:"min_cluster_size"`

	// ConfidenceBelow marks a cluster as low value.
	ConfidenceBelow float64 `json:"confidence_below"`
}

// Config is the full EvoMemory configuration.
type Config struct {
	// DataDir holds the database, config and snapshot files.
	DataDir string `json:"data_dir"`

	Search     search.Params     `json:"search"`
	Confidence confidence.Config `json:"confidence"`
	Evolve     evolve.Config     `json:"evolve"`
	Prune      PruneConfig       `json:"prune"`
	Compress   CompressConfig    `json:"compress"`
}

// Default returns the standard configuration rooted in the user's home
// directory.
func Default() *Config {
	dataDir := dirName
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, dirName)
	}

	return &Config{
		DataDir:    dataDir,
		Search:     search.DefaultParams(),
		Confidence: confidence.DefaultConfig(),
		Evolve:     evolve.DefaultConfig(),
		Prune: PruneConfig{
			MaxAgeDays:      30,
			ConfidenceBelow: 0.3,
		},
		Compress: CompressConfig{
			MinClusterSize:  3,
			ConfidenceBelow: 0.5,
		},
	}
}

// DatabasePath is the SQLite file location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "memory.db")
}

// SnapshotPath is the exported rule snapshot location.
func (c *Config) SnapshotPath() string {
	return filepath.Join(c.DataDir, "instinct.json")
}

// ConfigPath is the config file location inside DataDir.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.DataDir, "config.json")
}
