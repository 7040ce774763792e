package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// InvalidConfigError represents a malformed config file.
type InvalidConfigError struct {
	Path    string
	Message string
	Hint    string
}

func (e *InvalidConfigError) Error() string {
	msg := fmt.Sprintf("invalid config: %s\n", e.Path)
	if e.Message != "" {
		msg += e.Message + "\n"
	}
	if e.Hint != "" {
		msg += "Hint: " + e.Hint
	}
	return msg
}

// Load reads the configuration from the default location. A missing
// file yields the defaults; a malformed one is an error.
func Load() (*Config, error) {
	return LoadFrom(Default().ConfigPath())
}

// LoadFrom reads configuration from an explicit path. Fields absent
// from the file keep their default values.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, &InvalidConfigError{
			Path:    path,
			Message: fmt.Sprintf("JSON parse error: %v", err),
			Hint:    "fix the file or delete it to fall back to defaults",
		}
	}

	return cfg, nil
}

// Save writes the configuration to its path inside DataDir.
func Save(cfg *Config) error {
	path := cfg.ConfigPath()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
