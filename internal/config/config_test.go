package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	if cfg.DataDir == "" {
		t.Fatal("expected a data dir")
	}
	if filepath.Base(cfg.DataDir) != ".evomemory" {
		t.Errorf("expected data dir named .evomemory, got %q", cfg.DataDir)
	}

	if cfg.Search.K1 != 1.5 || cfg.Search.B != 0.75 {
		t.Errorf("unexpected BM25 defaults: k1=%f b=%f", cfg.Search.K1, cfg.Search.B)
	}
	if cfg.Evolve.Interval != 100 {
		t.Errorf("unexpected evolution interval: %d", cfg.Evolve.Interval)
	}
	if cfg.Prune.MaxAgeDays != 30 || cfg.Prune.ConfidenceBelow != 0.3 {
		t.Errorf("unexpected prune defaults: %+v", cfg.Prune)
	}
	if cfg.Compress.MinClusterSize != 3 {
		t.Errorf("unexpected compress defaults: %+v", cfg.Compress)
	}
}

func TestConfigPaths(t *testing.T) {
	cfg := Default()
	cfg.DataDir = "/tmp/evomemory-test"

	if cfg.DatabasePath() != filepath.Join(cfg.DataDir, "memory.db") {
		t.Errorf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.SnapshotPath() != filepath.Join(cfg.DataDir, "instinct.json") {
		t.Errorf("unexpected snapshot path: %q", cfg.SnapshotPath())
	}
	if cfg.ConfigPath() != filepath.Join(cfg.DataDir, "config.json") {
		t.Errorf("unexpected config path: %q", cfg.ConfigPath())
	}
}

func TestLoadFromMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("missing file must yield defaults, got error: %v", err)
	}

	defaults := Default()
	if cfg.Evolve != defaults.Evolve {
		t.Errorf("expected default evolve config, got %+v", cfg.Evolve)
	}
	if cfg.Search != defaults.Search {
		t.Errorf("expected default search params, got %+v", cfg.Search)
	}
}

func TestLoadFromPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	partial := `{"evolve": {"interval": 50, "scan_window": 200, "min_support": 5, "high_confidence": 0.85, "low_confidence": 0.4, "negative_streak": 3, "topic_min_count": 3, "caution_ceiling": 0.4, "material_delta": 0.05}}`
	if err := os.WriteFile(path, []byte(partial), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}

	if cfg.Evolve.Interval != 50 {
		t.Errorf("expected overridden interval 50, got %d", cfg.Evolve.Interval)
	}
	// Sections absent from the file keep their defaults.
	if cfg.Search != Default().Search {
		t.Errorf("expected default search params, got %+v", cfg.Search)
	}
	if cfg.Prune != Default().Prune {
		t.Errorf("expected default prune config, got %+v", cfg.Prune)
	}
}

func TestLoadFromMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	_, err := LoadFrom(path)

	var cfgErr *InvalidConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected InvalidConfigError, got %v", err)
	}
	if cfgErr.Path != path {
		t.Errorf("expected path %q in error, got %q", path, cfgErr.Path)
	}
	if cfgErr.Hint == "" {
		t.Error("expected a hint in the error")
	}
}

func TestSaveAndReload(t *testing.T) {
	cfg := Default()
	cfg.DataDir = filepath.Join(t.TempDir(), "nested", "dir")
	cfg.Evolve.Interval = 25
	cfg.Prune.MaxAgeDays = 7

	if err := Save(cfg); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	loaded, err := LoadFrom(cfg.ConfigPath())
	if err != nil {
		t.Fatalf("failed to reload: %v", err)
	}

	if loaded.Evolve.Interval != 25 {
		t.Errorf("expected interval 25 after reload, got %d", loaded.Evolve.Interval)
	}
	if loaded.Prune.MaxAgeDays != 7 {
		t.Errorf("expected max age 7 after reload, got %d", loaded.Prune.MaxAgeDays)
	}
	if loaded.DataDir != cfg.DataDir {
		t.Errorf("expected data dir %q after reload, got %q", cfg.DataDir, loaded.DataDir)
	}
}
