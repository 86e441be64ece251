package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryGetByDocType(t *testing.T) {
	reg := NewRegistry(GetBuiltinTools())

	tool, err := reg.GetByDocType("crate")
	require.NoError(t, err)
	assert.Equal(t, "rust_crate_docs", tool.Name)

	_, err = reg.GetByDocType("nonexistent")
	assert.ErrorIs(t, err, ErrDocTypeNotFound)
}

func TestRegistryGetByName(t *testing.T) {
	reg := NewRegistry(GetBuiltinTools())

	tool, err := reg.Get("api_docs")
	require.NoError(t, err)
	assert.Equal(t, "api", tool.DocType)
	assert.True(t, tool.MetadataHints.SupportsAPIVersion)

	_, err = reg.Get("nonexistent")
	assert.ErrorIs(t, err, ErrToolNotFound)
}

func TestRegistryGetAllIsACopy(t *testing.T) {
	reg := NewRegistry(GetBuiltinTools())
	all := reg.GetAll()
	delete(all, "api_docs")

	_, err := reg.Get("api_docs")
	assert.NoError(t, err, "mutating the GetAll result must not affect the registry")
}

func TestRegistryDocTypes(t *testing.T) {
	reg := NewRegistry(GetBuiltinTools())
	assert.ElementsMatch(t, []string{"crate", "api", "web"}, reg.DocTypes())
}
