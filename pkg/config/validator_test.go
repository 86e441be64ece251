package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassesOnBuiltins(t *testing.T) {
	reg := NewRegistry(GetBuiltinTools())
	assert.NoError(t, validate(reg))
}

func TestValidateRejectsMissingDocType(t *testing.T) {
	reg := NewRegistry(map[string]ToolConfig{
		"broken": {Name: "broken"},
	})
	err := validate(reg)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestValidateRejectsDuplicateDocType(t *testing.T) {
	reg := NewRegistry(map[string]ToolConfig{
		"tool_a": {Name: "tool_a", DocType: "crate"},
		"tool_b": {Name: "tool_b", DocType: "crate"},
	})
	assert.Error(t, validate(reg))
}
