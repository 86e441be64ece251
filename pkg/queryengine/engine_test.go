package queryengine

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/5dlabs/docs-mcp/pkg/config"
	"github.com/5dlabs/docs-mcp/pkg/database"
)

type fakeStore struct {
	docs         map[uuid.UUID]database.Document
	searchHits   []database.Hit
	vectorHits   []database.Hit
	vectorErr    error
	byKind       []database.Document
	searchCalled bool
	vectorCalled bool
	lastOpts     database.SearchOptions
}

func (f *fakeStore) Search(ctx context.Context, query string, opts database.SearchOptions) ([]database.Hit, error) {
	f.searchCalled = true
	f.lastOpts = opts
	return f.searchHits, nil
}

func (f *fakeStore) VectorSearch(ctx context.Context, embedding []float32, opts database.SearchOptions) ([]database.Hit, error) {
	f.vectorCalled = true
	return f.vectorHits, f.vectorErr
}

func (f *fakeStore) GetDocumentByID(ctx context.Context, id uuid.UUID) (database.Document, error) {
	d, ok := f.docs[id]
	if !ok {
		return database.Document{}, database.ErrNotFound
	}
	return d, nil
}

func (f *fakeStore) FindByKind(ctx context.Context, kind string, limit int) ([]database.Document, error) {
	return f.byKind, nil
}

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vec, f.err
}

func testRegistry() *config.Registry {
	return config.NewRegistry(config.GetBuiltinTools())
}

func TestDispatchRejectsEmptyQuery(t *testing.T) {
	e := New(testRegistry(), &fakeStore{}, nil)
	_, err := e.Dispatch(context.Background(), "crate", Request{Query: "  "})
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestDispatchUnknownDocType(t *testing.T) {
	e := New(testRegistry(), &fakeStore{}, nil)
	_, err := e.Dispatch(context.Background(), "nonexistent", Request{Query: "x"})
	assert.ErrorIs(t, err, config.ErrDocTypeNotFound)
}

func TestDispatchRejectsInvalidFilterValue(t *testing.T) {
	e := New(testRegistry(), &fakeStore{}, nil)
	badFilter := "not-a-real-topic"
	_, err := e.Dispatch(context.Background(), "crate", Request{Query: "x", Topic: &badFilter})
	assert.ErrorIs(t, err, ErrInvalidFilterValue)
}

func TestDispatchDiscoveryShortCircuitSkipsSearch(t *testing.T) {
	store := &fakeStore{byKind: []database.Document{
		{Path: "src/lib.rs"}, {Path: "src/async/mod.rs"}, {Path: "examples/basic.rs"},
	}}
	e := New(testRegistry(), store, fakeEmbedder{})
	resp, err := e.Dispatch(context.Background(), "crate", Request{Query: "list endpoints"})
	require.NoError(t, err)
	assert.True(t, resp.IsDiscovery)
	assert.False(t, store.searchCalled)
	assert.False(t, store.vectorCalled)
	assert.NotEmpty(t, resp.Catalog)
}

func TestDispatchFallsBackToTextSearchWhenVectorFails(t *testing.T) {
	id := uuid.New()
	store := &fakeStore{
		vectorErr: assertAnError,
		searchHits: []database.Hit{{DocumentID: id, Path: "src/lib.rs"}},
		docs: map[uuid.UUID]database.Document{
			id: {Path: "src/lib.rs", Title: "lib", Content: "# Hello\nworld", Format: "markdown", SourceName: "tokio"},
		},
	}
	e := New(testRegistry(), store, fakeEmbedder{vec: []float32{0.1}})
	resp, err := e.Dispatch(context.Background(), "crate", Request{Query: "hello"})
	require.NoError(t, err)
	assert.True(t, store.vectorCalled)
	assert.True(t, store.searchCalled)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "src/lib.rs", resp.Results[0].Path)
	assert.Equal(t, 1.0, resp.Results[0].Relevance)
}

func TestDispatchClampsLimit(t *testing.T) {
	store := &fakeStore{}
	e := New(testRegistry(), store, nil)
	_, err := e.Dispatch(context.Background(), "crate", Request{Query: "x", Limit: 1000})
	require.NoError(t, err)
	require.True(t, store.searchCalled)
	assert.Equal(t, MaxLimit, store.lastOpts.Limit)
}

var assertAnError = assertError("boom")

type assertError string

func (e assertError) Error() string { return string(e) }
