package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Initialize loads, merges, and validates the tool registry from configDir:
// load YAML, expand environment variables, merge built-ins with user
// overrides, validate, and return a ready-to-use Registry. A missing
// tools.yaml is not an error — the registry falls back to built-ins only,
// so an empty deployment still boots.
func Initialize(ctx context.Context, configDir string) (*Registry, error) {
	log := slog.With("config_dir", configDir)
	log.Info("loading tool registry")

	userTools, err := loadToolsYAML(configDir)
	if err != nil {
		return nil, fmt.Errorf("config: load tools.yaml: %w", err)
	}

	merged, err := mergeTools(GetBuiltinTools(), userTools)
	if err != nil {
		return nil, err
	}

	reg := NewRegistry(merged)
	if err := validate(reg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	log.Info("tool registry loaded", "tools", len(merged))
	return reg, nil
}

// loadToolsYAML reads and parses configDir/tools.yaml, expanding environment
// variables first (teacher's ExpandEnv pass before yaml.Unmarshal). A
// missing file yields an empty map rather than ErrConfigNotFound, since the
// registry is usable with built-ins alone.
func loadToolsYAML(configDir string) (map[string]ToolConfig, error) {
	path := filepath.Join(configDir, "tools.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]ToolConfig{}, nil
		}
		return nil, err
	}

	data = ExpandEnv(data)

	var doc ToolsYAMLConfig
	doc.Tools = make(map[string]ToolConfig)
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return doc.Tools, nil
}
