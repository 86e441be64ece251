package embedbatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/5dlabs/docs-mcp/pkg/ratelimit"
)

type fakeRemote struct {
	submitted map[string][]Request
	status    map[string]Status
	results   map[string][]Result
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		submitted: map[string][]Request{},
		status:    map[string]Status{},
		results:   map[string][]Result{},
	}
}

func (f *fakeRemote) UploadAndSubmit(ctx context.Context, model string, requests []Request) (string, string, error) {
	id := "remote-batch-1"
	f.submitted[id] = requests
	f.status[id] = StatusProcessing
	return id, "remote-file-1", nil
}

func (f *fakeRemote) Retrieve(ctx context.Context, remoteBatchID string) (Status, []Result, string, error) {
	return f.status[remoteBatchID], f.results[remoteBatchID], "", nil
}

func (f *fakeRemote) Cancel(ctx context.Context, remoteBatchID string) error {
	f.status[remoteBatchID] = StatusCancelled
	return nil
}

func testLimiter(t *testing.T) *ratelimit.Limiter {
	t.Helper()
	l, err := ratelimit.New(ratelimit.Config{RequestsPerMinute: 600, TokensPerMinute: 1_000_000})
	require.NoError(t, err)
	return l
}

func TestQueueRolloverOnSize(t *testing.T) {
	remote := newFakeRemote()
	q := NewQueue(Config{Model: "text-embedding-3-small", MaxRequestsPerBatch: 2}, remote, testLimiter(t))

	id1 := q.Add(Request{CustomID: "a", Text: "hello"})
	id2 := q.Add(Request{CustomID: "b", Text: "world"})
	assert.Equal(t, id1, id2)

	batch, ok := q.Get(id1)
	require.True(t, ok)
	assert.Equal(t, StatusReady, batch.Status)
	assert.Len(t, batch.Requests, 2)
}

func TestQueueSubmitAndPollRoundTrip(t *testing.T) {
	remote := newFakeRemote()
	q := NewQueue(Config{
		Model:                           "text-embedding-3-small",
		MaxRequestsPerBatch:             10,
		SyncCostPerMillionTokensMicros:  20,
		BatchCostPerMillionTokensMicros: 10,
	}, remote, testLimiter(t))

	id := q.Add(Request{CustomID: "a", Text: "hello world"})
	readyID := q.Flush()
	assert.Equal(t, id, readyID)

	require.NoError(t, q.Submit(context.Background()))

	batch, ok := q.Get(id)
	require.True(t, ok)
	assert.Equal(t, StatusSubmitted, batch.Status)
	assert.NotEmpty(t, batch.RemoteBatchID)
	assert.Greater(t, batch.Cost.SyncCostMicros, int64(-1))

	remote.status[batch.RemoteBatchID] = StatusCompleted
	remote.results[batch.RemoteBatchID] = []Result{{CustomID: "a", Vector: []float32{0.1, 0.2}}}

	require.NoError(t, q.Poll(context.Background()))

	batch, ok = q.Get(id)
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, batch.Status)
	assert.Len(t, batch.Results, 1)
}

func TestQueueCancelRejectsTerminalBatch(t *testing.T) {
	remote := newFakeRemote()
	q := NewQueue(Config{Model: "m", MaxRequestsPerBatch: 1}, remote, testLimiter(t))

	id := q.Add(Request{CustomID: "a", Text: "x"})
	require.NoError(t, q.Submit(context.Background()))

	batch, _ := q.Get(id)
	remote.status[batch.RemoteBatchID] = StatusCompleted
	require.NoError(t, q.Poll(context.Background()))

	err := q.Cancel(context.Background(), id)
	assert.Error(t, err)
}

func TestQueueCleanupRemovesOldTerminalBatches(t *testing.T) {
	remote := newFakeRemote()
	q := NewQueue(Config{Model: "m", MaxRequestsPerBatch: 1}, remote, testLimiter(t))

	id := q.Add(Request{CustomID: "a", Text: "x"})
	q.mu.Lock()
	q.batches[id].Status = StatusFailed
	q.batches[id].CompletedAt = time.Now().Add(-time.Hour)
	q.mu.Unlock()

	removed := q.Cleanup(time.Minute)
	assert.Equal(t, 1, removed)
	_, ok := q.Get(id)
	assert.False(t, ok)
}
