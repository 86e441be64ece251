package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeFallsBackToBuiltinsWhenFileMissing(t *testing.T) {
	reg, err := Initialize(context.Background(), t.TempDir())
	require.NoError(t, err)

	all := reg.GetAll()
	assert.Len(t, all, len(GetBuiltinTools()))
}

func TestInitializeMergesUserToolsYAML(t *testing.T) {
	dir := t.TempDir()
	yamlContent := `
tools:
  internal_wiki:
    name: internal_wiki
    docType: wiki
    title: Internal Wiki
  rust_crate_docs:
    name: rust_crate_docs
    docType: crate
    title: Overridden Title
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tools.yaml"), []byte(yamlContent), 0o644))

	reg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	wiki, err := reg.Get("internal_wiki")
	require.NoError(t, err)
	assert.Equal(t, "wiki", wiki.DocType)

	crate, err := reg.Get("rust_crate_docs")
	require.NoError(t, err)
	assert.Equal(t, "Overridden Title", crate.Title)
}

func TestInitializeRejectsInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tools.yaml"), []byte("not: [valid"), 0o644))

	_, err := Initialize(context.Background(), dir)
	assert.Error(t, err)
}

func TestInitializeRejectsDuplicateDocTypeAcrossUserAndBuiltin(t *testing.T) {
	dir := t.TempDir()
	yamlContent := `
tools:
  rust_crate_docs_2:
    name: rust_crate_docs_2
    docType: crate
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tools.yaml"), []byte(yamlContent), 0o644))

	_, err := Initialize(context.Background(), dir)
	assert.ErrorIs(t, err, ErrValidationFailed)
}
