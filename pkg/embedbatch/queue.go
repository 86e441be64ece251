// Package embedbatch drives the remote embedding batch facility: it
// accumulates embedding requests into batches, uploads and submits them
// polls for completion, and reports cost savings versus synchronous calls.
package embedbatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/5dlabs/docs-mcp/pkg/ratelimit"
	"github.com/5dlabs/docs-mcp/pkg/retry"
)

// Config tunes batch accumulation thresholds.
type Config struct {
	Model string
	// MaxRequestsPerBatch closes the accepting batch once it reaches this
	// many requests.
	MaxRequestsPerBatch int
	// MaxWait closes the accepting batch after this long even if it hasn't
	// filled up, so small ingests don't stall indefinitely.
	MaxWait time.Duration
	// SyncCostPerMillionTokensMicros and BatchCostPerMillionTokensMicros
	// price CostInfo; the batch rate is expected to be half the sync rate.
	SyncCostPerMillionTokensMicros  int64
	BatchCostPerMillionTokensMicros int64
}

// RemoteClient is the subset of the remote batch facility the Queue needs
// satisfied by *Client (go-openai backed).
type RemoteClient interface {
	UploadAndSubmit(ctx context.Context, model string, requests []Request) (remoteBatchID, remoteFileID string, err error)
	Retrieve(ctx context.Context, remoteBatchID string) (status Status, results []Result, errMsg string, err error)
	Cancel(ctx context.Context, remoteBatchID string) error
}

// Queue owns the single batch currently accepting requests plus the history
// of batches in flight, and drives their lifecycle against a RemoteClient.
type Queue struct {
	cfg     Config
	remote  RemoteClient
	limiter *ratelimit.Limiter
	policy  *retry.Policy
	breaker *retry.Breaker
	logger  *slog.Logger

	mu        sync.Mutex
	accepting *Batch
	batches   map[string]*Batch
}

// NewQueue builds a Queue with a fresh accepting batch.
func NewQueue(cfg Config, remote RemoteClient, limiter *ratelimit.Limiter) *Queue {
	q := &Queue{
		cfg:     cfg,
		remote:  remote,
		limiter: limiter,
		policy:  retry.NewPolicy(),
		breaker: retry.NewBreaker(retry.DefaultBreakerConfig()),
		logger:  slog.Default(),
		batches: make(map[string]*Batch),
	}
	q.accepting = q.newBatch()
	return q
}

func (q *Queue) newBatch() *Batch {
	return &Batch{
		ID:        uuid.New().String(),
		Status:    StatusAccepting,
		Model:     q.cfg.Model,
		CreatedAt: time.Now(),
	}
}

// Add appends a request to the accepting batch, rolling it over to Ready if
// it has reached its size or age threshold. Returns the batch ID the
// request landed in, so callers can correlate results later.
func (q *Queue) Add(req Request) string {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.accepting.Requests = append(q.accepting.Requests, req)
	id := q.accepting.ID

	full := q.cfg.MaxRequestsPerBatch > 0 && len(q.accepting.Requests) >= q.cfg.MaxRequestsPerBatch
	aged := q.cfg.MaxWait > 0 && time.Since(q.accepting.CreatedAt) >= q.cfg.MaxWait
	if full || aged {
		q.rolloverLocked()
	}
	return id
}

// Flush forces the accepting batch to Ready regardless of fill level
// matching the "flush on shutdown/explicit request" edge case.
func (q *Queue) Flush() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.accepting.Requests) == 0 {
		return q.accepting.ID
	}
	id := q.accepting.ID
	q.rolloverLocked()
	return id
}

// rolloverLocked moves the accepting batch to Ready and starts a fresh one.
// Caller must hold q.mu.
func (q *Queue) rolloverLocked() {
	ready := q.accepting
	ready.Status = StatusReady
	ready.Cost = q.estimateCost(ready)
	q.batches[ready.ID] = ready
	q.accepting = q.newBatch()
}

// estimateCost prices a batch at rollover time from the char/4 proxy, before
// the remote facility has reported actual usage.
func (q *Queue) estimateCost(b *Batch) CostInfo {
	return q.costFor(b.EstimatedTokens(), 0)
}

// costFor computes CostInfo for a token count, optionally stamping TokensUsed
// when tokens come from actual batch-output usage rather than the estimate.
func (q *Queue) costFor(tokens, tokensUsed int64) CostInfo {
	sync := tokens * q.cfg.SyncCostPerMillionTokensMicros / 1_000_000
	batch := tokens * q.cfg.BatchCostPerMillionTokensMicros / 1_000_000
	savings := sync - batch
	// The percentage comes from the configured rates rather than the
	// truncated micro amounts, so it does not drift for small token counts.
	var pct float64
	if tokens > 0 && q.cfg.SyncCostPerMillionTokensMicros > 0 {
		rateSavings := q.cfg.SyncCostPerMillionTokensMicros - q.cfg.BatchCostPerMillionTokensMicros
		pct = float64(rateSavings) / float64(q.cfg.SyncCostPerMillionTokensMicros) * 100
	}
	return CostInfo{
		EstimatedTokens: tokens,
		TokensUsed:      tokensUsed,
		SyncCostMicros:  sync,
		BatchCostMicros: batch,
		SavingsMicros:   savings,
		SavingsPercent:  pct,
	}
}

// Submit uploads and submits every Ready batch to the remote facility
// transitioning them to Submitted. Failures are retried per the shared
// retry policy and tracked through the circuit breaker; a batch that fails
// permanently moves to Failed rather than blocking the rest of the queue.
func (q *Queue) Submit(ctx context.Context) error {
	for _, b := range q.readyBatches() {
		if err := q.submitOne(ctx, b); err != nil {
			q.logger.Warn("embedbatch: submit failed", "batch_id", b.ID, "error", err)
		}
	}
	return nil
}

func (q *Queue) readyBatches() []*Batch {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []*Batch
	for _, b := range q.batches {
		if b.Status == StatusReady {
			out = append(out, b)
		}
	}
	return out
}

func (q *Queue) submitOne(ctx context.Context, b *Batch) error {
	if err := q.limiter.WaitForCapacity(ctx, int(b.EstimatedTokens())); err != nil {
		return fmt.Errorf("embedbatch: rate limit wait: %w", err)
	}
	if err := q.breaker.Allow(); err != nil {
		return err
	}

	var remoteBatchID, remoteFileID string
	err := q.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		remoteBatchID, remoteFileID, err = q.remote.UploadAndSubmit(ctx, b.Model, b.Requests)
		return err
	})
	if err != nil {
		q.breaker.Failure()
		q.markFailed(b, err.Error())
		return err
	}
	q.breaker.Success()

	q.mu.Lock()
	b.RemoteBatchID = remoteBatchID
	b.RemoteFileID = remoteFileID
	b.Status = StatusSubmitted
	b.SubmittedAt = time.Now()
	q.mu.Unlock()
	return nil
}

// Poll checks every in-flight (submitted/processing) batch against the
// remote facility and updates its status, recording results on completion.
func (q *Queue) Poll(ctx context.Context) error {
	for _, b := range q.inFlightBatches() {
		if err := q.pollOne(ctx, b); err != nil {
			q.logger.Warn("embedbatch: poll failed", "batch_id", b.ID, "error", err)
		}
	}
	return nil
}

func (q *Queue) inFlightBatches() []*Batch {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []*Batch
	for _, b := range q.batches {
		if b.Status == StatusSubmitted || b.Status == StatusProcessing {
			out = append(out, b)
		}
	}
	return out
}

func (q *Queue) pollOne(ctx context.Context, b *Batch) error {
	status, results, errMsg, err := q.remote.Retrieve(ctx, b.RemoteBatchID)
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	b.Status = status
	if status == StatusCompleted {
		b.Results = results
		b.CompletedAt = time.Now()

		var totalTokens int64
		for _, r := range results {
			totalTokens += r.TokensUsed
		}
		if totalTokens > 0 {
			b.Cost = q.costFor(totalTokens, totalTokens)
		}
	}
	if status == StatusFailed {
		b.Error = errMsg
		b.CompletedAt = time.Now()
	}
	return nil
}

func (q *Queue) markFailed(b *Batch, msg string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	b.Status = StatusFailed
	b.Error = msg
	b.CompletedAt = time.Now()
}

// CompletedResult pairs a batch's ID with the results a caller hasn't
// consumed yet.
type CompletedResult struct {
	BatchID string
	Results []Result
}

// DrainCompleted returns the results of every completed batch that hasn't
// been drained yet, marking them consumed so the caller is handed each
// batch's results exactly once regardless of how many times Poll runs
// afterward. Callers use this to attach embeddings back onto the chunks
// that produced the originating requests.
func (q *Queue) DrainCompleted() []CompletedResult {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []CompletedResult
	for _, b := range q.batches {
		if b.Status == StatusCompleted && !b.ResultsConsumed {
			b.ResultsConsumed = true
			out = append(out, CompletedResult{BatchID: b.ID, Results: b.Results})
		}
	}
	return out
}

// Cancel cancels an in-flight batch both locally and, if already submitted
// on the remote facility.
func (q *Queue) Cancel(ctx context.Context, batchID string) error {
	q.mu.Lock()
	b, ok := q.batches[batchID]
	q.mu.Unlock()
	if !ok {
		return fmt.Errorf("embedbatch: unknown batch %q", batchID)
	}
	if b.Status.Terminal() {
		return fmt.Errorf("embedbatch: batch %q already terminal (%s)", batchID, b.Status)
	}

	if b.RemoteBatchID != "" {
		if err := q.remote.Cancel(ctx, b.RemoteBatchID); err != nil {
			return fmt.Errorf("embedbatch: cancel remote batch: %w", err)
		}
	}

	q.mu.Lock()
	b.Status = StatusCancelled
	b.CompletedAt = time.Now()
	q.mu.Unlock()
	return nil
}

// Get returns a snapshot of a batch by ID.
func (q *Queue) Get(batchID string) (Batch, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if b, ok := q.batches[batchID]; ok {
		return *b, true
	}
	if q.accepting.ID == batchID {
		return *q.accepting, true
	}
	return Batch{}, false
}

// Cleanup removes terminal batches older than olderThan to bound memory use.
func (q *Queue) Cleanup(olderThan time.Duration) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	removed := 0
	cutoff := time.Now().Add(-olderThan)
	for id, b := range q.batches {
		if b.Status.Terminal() && b.CompletedAt.Before(cutoff) {
			delete(q.batches, id)
			removed++
		}
	}
	return removed
}
