package job

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/5dlabs/docs-mcp/pkg/database"
	"github.com/5dlabs/docs-mcp/pkg/embedbatch"
)

type fakeStore struct {
	mu          sync.Mutex
	jobs        map[uuid.UUID]*database.JobRecord
	docs        []database.Document
	checkpoints int
}

func newFakeStore() *fakeStore {
	return &fakeStore{jobs: make(map[uuid.UUID]*database.JobRecord)}
}

func (f *fakeStore) UpsertDocument(ctx context.Context, doc database.Document) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs = append(f.docs, doc)
	return uuid.New(), nil
}

func (f *fakeStore) UpsertChunk(ctx context.Context, documentID uuid.UUID, index int, content string) (uuid.UUID, error) {
	return uuid.New(), nil
}

func (f *fakeStore) ChunksPendingEmbedding(ctx context.Context, limit int) ([]database.Chunk, error) {
	return nil, nil
}

func (f *fakeStore) CreateJob(ctx context.Context, kind, sourceName string) (uuid.UUID, error) {
	id := uuid.New()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[id] = &database.JobRecord{ID: id, Kind: kind, SourceName: sourceName, Status: "queued", CreatedAt: time.Now()}
	return id, nil
}

func (f *fakeStore) UpdateJobStatus(ctx context.Context, id uuid.UUID, status string, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.jobs[id]
	if !ok {
		return database.ErrNotFound
	}
	rec.Status = status
	rec.Error = errMsg
	now := time.Now()
	if status == "running" && rec.StartedAt == nil {
		rec.StartedAt = &now
	}
	if status == "completed" || status == "failed" || status == "cancelled" {
		rec.CompletedAt = &now
	}
	return nil
}

func (f *fakeStore) SaveCheckpoint(ctx context.Context, id uuid.UUID, progress, checkpoint map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkpoints++
	return nil
}

func (f *fakeStore) CountDocuments(ctx context.Context, kind string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.docs)), nil
}

func (f *fakeStore) GetJob(ctx context.Context, id uuid.UUID) (database.JobRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.jobs[id]
	if !ok {
		return database.JobRecord{}, database.ErrNotFound
	}
	return *rec, nil
}

type fakeEmbedder struct {
	mu   sync.Mutex
	reqs []embedbatch.Request
}

func (f *fakeEmbedder) Add(req embedbatch.Request) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	return req.CustomID
}

type sliceEnumerator struct {
	docs []Document
}

func (e sliceEnumerator) Enumerate(ctx context.Context, target string) (<-chan Document, <-chan error) {
	docCh := make(chan Document, len(e.docs))
	errCh := make(chan error)
	for _, d := range e.docs {
		docCh <- d
	}
	close(docCh)
	close(errCh)
	return docCh, errCh
}

func waitForTerminal(t *testing.T, store *fakeStore, jobID uuid.UUID) database.JobRecord {
	t.Helper()
	var rec database.JobRecord
	require.Eventually(t, func() bool {
		r, err := store.GetJob(context.Background(), jobID)
		if err != nil {
			return false
		}
		rec = r
		return rec.Status == "completed" || rec.Status == "failed" || rec.Status == "cancelled"
	}, 2*time.Second, 5*time.Millisecond)
	return rec
}

func TestStartRunsPipelineToCompletion(t *testing.T) {
	store := newFakeStore()
	embedder := &fakeEmbedder{}
	o := New(Config{BatchSize: 2, CheckpointEveryNBatch: 1}, store, embedder)

	docs := []Document{
		{Path: "a.md", Content: "hello"},
		{Path: "b.md", Content: "world"},
		{Path: "c.md", Content: "!"},
	}
	jobID, err := o.Start(context.Background(), sliceEnumerator{docs: docs}, RunOptions{Kind: KindIngest, SourceName: "test"})
	require.NoError(t, err)

	rec := waitForTerminal(t, store, jobID)
	assert.Equal(t, "completed", rec.Status)
	assert.NotNil(t, rec.StartedAt)
	assert.NotNil(t, rec.CompletedAt)
	assert.Len(t, embedder.reqs, 3)
	assert.Greater(t, store.checkpoints, 0)
}

func TestStartDryRunSkipsEmbedAndUpsert(t *testing.T) {
	store := newFakeStore()
	embedder := &fakeEmbedder{}
	o := New(Config{BatchSize: 10}, store, embedder)

	docs := []Document{{Path: "a.md", Content: "hello"}}
	jobID, err := o.Start(context.Background(), sliceEnumerator{docs: docs}, RunOptions{Kind: KindIngest, SourceName: "test", DryRun: true})
	require.NoError(t, err)

	rec := waitForTerminal(t, store, jobID)
	assert.Equal(t, "completed", rec.Status)
	assert.Empty(t, embedder.reqs)
	assert.Empty(t, store.docs)
}

func TestCancelTransitionsJobToCancelled(t *testing.T) {
	store := newFakeStore()
	embedder := &fakeEmbedder{}
	o := New(Config{BatchSize: 1}, store, embedder)

	blocking := make(chan Document)
	errCh := make(chan error)
	blockingEnum := blockingEnumerator{docCh: blocking, errCh: errCh}

	jobID, err := o.Start(context.Background(), blockingEnum, RunOptions{Kind: KindIngest, SourceName: "test"})
	require.NoError(t, err)

	require.NoError(t, o.Cancel(jobID))
	close(blocking)
	close(errCh)

	rec := waitForTerminal(t, store, jobID)
	assert.Equal(t, "cancelled", rec.Status)
}

type blockingEnumerator struct {
	docCh chan Document
	errCh chan error
}

func (e blockingEnumerator) Enumerate(ctx context.Context, target string) (<-chan Document, <-chan error) {
	return e.docCh, e.errCh
}

func TestResumeReturnsNotImplemented(t *testing.T) {
	store := newFakeStore()
	o := New(Config{}, store, &fakeEmbedder{})
	err := o.Resume(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrResumeNotImplemented)
}
