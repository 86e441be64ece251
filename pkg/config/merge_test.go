package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeToolsUserOverridesBuiltinField(t *testing.T) {
	builtin := map[string]ToolConfig{
		"rust_crate_docs": {Name: "rust_crate_docs", DocType: "crate", Title: "Rust Crate Documentation"},
	}
	user := map[string]ToolConfig{
		"rust_crate_docs": {Name: "rust_crate_docs", DocType: "crate", Title: "Custom Title"},
	}

	merged, err := mergeTools(builtin, user)
	require.NoError(t, err)
	assert.Equal(t, "Custom Title", merged["rust_crate_docs"].Title)
}

func TestMergeToolsAddsNewUserTool(t *testing.T) {
	builtin := map[string]ToolConfig{
		"rust_crate_docs": {Name: "rust_crate_docs", DocType: "crate"},
	}
	user := map[string]ToolConfig{
		"internal_wiki": {Name: "internal_wiki", DocType: "wiki"},
	}

	merged, err := mergeTools(builtin, user)
	require.NoError(t, err)
	assert.Len(t, merged, 2)
	assert.Equal(t, "wiki", merged["internal_wiki"].DocType)
}

func TestMergeToolsPreservesUnmentionedBuiltins(t *testing.T) {
	builtin := GetBuiltinTools()
	merged, err := mergeTools(builtin, map[string]ToolConfig{})
	require.NoError(t, err)
	assert.Equal(t, builtin, merged)
}
