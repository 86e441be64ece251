package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnvSubstitutesVariables(t *testing.T) {
	os.Setenv("DOCS_MCP_TEST_VAR", "value")
	defer os.Unsetenv("DOCS_MCP_TEST_VAR")

	out := ExpandEnv([]byte("key: ${DOCS_MCP_TEST_VAR}"))
	assert.Equal(t, "key: value", string(out))
}

func TestExpandEnvMissingVariableBecomesEmpty(t *testing.T) {
	out := ExpandEnv([]byte("key: ${DOCS_MCP_DEFINITELY_UNSET}"))
	assert.Equal(t, "key: ", string(out))
}
