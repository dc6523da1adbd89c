package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads a YAML policy file over the defaults. Absent keys
// keep their default values, so a file may override just one knob.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read policy file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse policy file %s: %w", path, err)
	}

	if err := cfg.Weighting.Validate(); err != nil {
		return cfg, fmt.Errorf("policy file %s: %w", path, err)
	}
	if err := cfg.Strategy.Validate(); err != nil {
		return cfg, fmt.Errorf("policy file %s: %w", path, err)
	}
	return cfg, nil
}
