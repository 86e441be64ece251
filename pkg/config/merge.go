package config

import (
	"fmt"

	"dario.cat/mergo"
)

// mergeTools merges built-in and user-defined tool configurations. A
// user-defined tool with the same name as a built-in is merged field-by-field
// on top of it (user values win, unset fields fall back to the built-in) via
// mergo. A user-defined tool with a new name is added as-is.
func mergeTools(builtin, user map[string]ToolConfig) (map[string]ToolConfig, error) {
	result := make(map[string]ToolConfig, len(builtin)+len(user))
	for name, tool := range builtin {
		result[name] = tool
	}
	for name, userTool := range user {
		if base, ok := result[name]; ok {
			merged := base
			if err := mergo.Merge(&merged, userTool, mergo.WithOverride); err != nil {
				return nil, fmt.Errorf("config: merge tool %q: %w", name, err)
			}
			result[name] = merged
			continue
		}
		result[name] = userTool
	}
	return result, nil
}
