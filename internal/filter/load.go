package filter

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadConfig reads a policy config from a JSON file. An empty path
// yields the built-in defaults.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read policy file: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse policy file %s: %w", path, err)
	}
	if cfg.Version == "" {
		cfg.Version = "v1"
	}
	return cfg, nil
}
