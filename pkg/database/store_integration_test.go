package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/5dlabs/docs-mcp/pkg/database"
	testdb "github.com/5dlabs/docs-mcp/test/database"
)

func TestStoreUpsertAndFetchDocumentByNaturalKey(t *testing.T) {
	client := testdb.NewTestClient(t)
	store := database.NewStore(client)
	ctx := context.Background()

	doc := database.Document{
		Kind:       "rust-crate",
		SourceName: "tokio",
		Path:       "src/lib.rs",
		Title:      "tokio::lib",
		Content:    "An asynchronous runtime for Rust.",
		Metadata:   map[string]any{"version": "1.38.0"},
	}

	id1, err := store.UpsertDocument(ctx, doc)
	require.NoError(t, err)

	doc.Content = "An asynchronous runtime for Rust, updated."
	id2, err := store.UpsertDocument(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, id1, id2, "upserting the same natural key must not create a new row")

	fetched, err := store.GetDocument(ctx, doc.Kind, doc.SourceName, doc.Path)
	require.NoError(t, err)
	assert.Equal(t, doc.Content, fetched.Content)
	assert.Equal(t, "1.38.0", fetched.Metadata["version"])
}

func TestStoreSearchFindsDocumentByContent(t *testing.T) {
	client := testdb.NewTestClient(t)
	store := database.NewStore(client)
	ctx := context.Background()

	_, err := store.UpsertDocument(ctx, database.Document{
		Kind:       "rust-crate",
		SourceName: "serde",
		Path:       "README.md",
		Title:      "serde",
		Content:    "A generic serialization and deserialization framework.",
	})
	require.NoError(t, err)

	hits, err := store.Search(ctx, "serialization framework", database.SearchOptions{Kind: "rust-crate"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "serde", hits[0].SourceName)
}

func TestStoreCountDocumentsScopedByKind(t *testing.T) {
	client := testdb.NewTestClient(t)
	store := database.NewStore(client)
	ctx := context.Background()

	_, err := store.UpsertDocument(ctx, database.Document{
		Kind: "rust-crate", SourceName: "tokio", Path: "a.rs", Content: "a",
	})
	require.NoError(t, err)
	_, err = store.UpsertDocument(ctx, database.Document{
		Kind: "npm-package", SourceName: "react", Path: "a.ts", Content: "a",
	})
	require.NoError(t, err)

	count, err := store.CountDocuments(ctx, "rust-crate")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	total, err := store.CountDocuments(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}
