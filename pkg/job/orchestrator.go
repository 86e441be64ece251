package job

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/5dlabs/docs-mcp/pkg/database"
	"github.com/5dlabs/docs-mcp/pkg/embedbatch"
)

// Config tunes the pipeline's batching, concurrency and checkpoint cadence.
type Config struct {
	BatchSize             int           // B, default 100
	Workers               int           // W, default 4
	CheckpointEveryNBatch int           // K, default 10
	RetentionWindow       time.Duration // default 30 days
}

// DefaultConfig returns the defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:             100,
		Workers:               4,
		CheckpointEveryNBatch: 10,
		RetentionWindow:       30 * 24 * time.Hour,
	}
}

// Embedder is the subset of the embedding engine the orchestrator drives.
// Satisfied by *embedbatch.Queue in production and a fake in tests.
type Embedder interface {
	Add(req embedbatch.Request) string
}

// Store is the subset of the document store the orchestrator writes
// through. Satisfied by *database.Store.
type Store interface {
	UpsertDocument(ctx context.Context, doc database.Document) (uuid.UUID, error)
	UpsertChunk(ctx context.Context, documentID uuid.UUID, index int, content string) (uuid.UUID, error)
	ChunksPendingEmbedding(ctx context.Context, limit int) ([]database.Chunk, error)
	CreateJob(ctx context.Context, kind, sourceName string) (uuid.UUID, error)
	UpdateJobStatus(ctx context.Context, id uuid.UUID, status string, errMsg string) error
	SaveCheckpoint(ctx context.Context, id uuid.UUID, progress, checkpoint map[string]any) error
	CountDocuments(ctx context.Context, kind string) (int64, error)
	GetJob(ctx context.Context, id uuid.UUID) (database.JobRecord, error)
}

// Orchestrator runs ingest jobs: enumerate -> chunk -> embed -> upsert
// with checkpointing, progress tracking, dry-run and cancellation.
type Orchestrator struct {
	cfg      Config
	store    Store
	embedder Embedder
	logger   *slog.Logger

	mu     sync.Mutex
	active map[uuid.UUID]*runState
}

type runState struct {
	cancel    context.CancelFunc
	progress  Progress
	startedAt time.Time
	mu        sync.Mutex
}

// New builds an Orchestrator. cfg's zero value is replaced field-by-field
// with DefaultConfig where unset.
func New(cfg Config, store Store, embedder Embedder) *Orchestrator {
	d := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = d.BatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = d.Workers
	}
	if cfg.CheckpointEveryNBatch <= 0 {
		cfg.CheckpointEveryNBatch = d.CheckpointEveryNBatch
	}
	if cfg.RetentionWindow <= 0 {
		cfg.RetentionWindow = d.RetentionWindow
	}
	return &Orchestrator{
		cfg:      cfg,
		store:    store,
		embedder: embedder,
		logger:   slog.Default(),
		active:   make(map[uuid.UUID]*runState),
	}
}

// RunOptions parameterizes a single job invocation.
type RunOptions struct {
	Kind       Kind
	SourceName string
	Target     string
	Operation  string
	DryRun     bool
	Validate   bool
}

// Start enqueues and immediately begins running a job in the background
// returning its id per the 202-accepted contract. The job record transitions
// Queued -> Running synchronously before Start returns, so a caller that
// polls immediately afterward always observes a valid status.
func (o *Orchestrator) Start(ctx context.Context, enum Enumerator, opts RunOptions) (uuid.UUID, error) {
	jobID, err := o.store.CreateJob(ctx, string(opts.Kind), opts.SourceName)
	if err != nil {
		return uuid.Nil, fmt.Errorf("job: create: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	rs := &runState{cancel: cancel, startedAt: time.Now()}

	o.mu.Lock()
	o.active[jobID] = rs
	o.mu.Unlock()

	if err := o.store.UpdateJobStatus(ctx, jobID, string(StatusRunning), ""); err != nil {
		cancel()
		return uuid.Nil, fmt.Errorf("job: transition to running: %w", err)
	}

	go o.run(runCtx, jobID, enum, opts, rs)

	return jobID, nil
}

// Cancel flags a running job for cancellation at the next batch boundary.
func (o *Orchestrator) Cancel(jobID uuid.UUID) error {
	o.mu.Lock()
	rs, ok := o.active[jobID]
	o.mu.Unlock()
	if !ok {
		return fmt.Errorf("job: %s is not active", jobID)
	}
	rs.cancel()
	return nil
}

// Progress reports a best-effort snapshot for a still-active job.
func (o *Orchestrator) Progress(jobID uuid.UUID) (Progress, bool) {
	o.mu.Lock()
	rs, ok := o.active[jobID]
	o.mu.Unlock()
	if !ok {
		return Progress{}, false
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.progress, true
}

// GetJob fetches a job's current externally visible status, satisfying the
// status-polling half of the 202-accepted contract regardless of whether
// the job is still running in this process.
func (o *Orchestrator) GetJob(ctx context.Context, jobID uuid.UUID) (Record, error) {
	rec, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		return Record{}, err
	}
	return Record{
		ID:         rec.ID,
		Kind:       Kind(rec.Kind),
		SourceName: rec.SourceName,
		Status:     Status(rec.Status),
		Error:      rec.Error,
		StartedAt:  rec.StartedAt,
		FinishedAt: rec.CompletedAt,
		CreatedAt:  rec.CreatedAt,
	}, nil
}

// Resume is defined by the checkpoint contract but is not implemented:
// callers must treat a resumed job as unsupported rather than silently
// re-running it from scratch.
func (o *Orchestrator) Resume(ctx context.Context, jobID uuid.UUID) error {
	return ErrResumeNotImplemented
}

func (o *Orchestrator) run(ctx context.Context, jobID uuid.UUID, enum Enumerator, opts RunOptions, rs *runState) {
	log := o.logger.With("job_id", jobID, "kind", opts.Kind, "target", opts.Target)
	log.Info("job started")

	finalStatus, finalErr := o.pipeline(ctx, jobID, enum, opts, rs, log)

	o.mu.Lock()
	delete(o.active, jobID)
	o.mu.Unlock()

	errMsg := ""
	if finalErr != nil {
		errMsg = finalErr.Error()
	}
	if err := o.store.UpdateJobStatus(context.Background(), jobID, string(finalStatus), errMsg); err != nil {
		log.Error("failed to persist terminal job status", "error", err)
	}
	log.Info("job finished", "status", finalStatus)
}

// pipeline implements the enumerate -> batch -> (embed, upsert) -> checkpoint
// loop, returning the terminal status to record.
func (o *Orchestrator) pipeline(ctx context.Context, jobID uuid.UUID, enum Enumerator, opts RunOptions, rs *runState, log *slog.Logger) (Status, error) {
	docCh, errCh := enum.Enumerate(ctx, opts.Target)

	batch := make([]Document, 0, o.cfg.BatchSize)
	batchNum := 0
	processed := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := o.processBatch(ctx, opts.Kind, opts.SourceName, batch, opts.DryRun); err != nil {
			return err
		}
		processed += len(batch)
		batchNum++

		rs.mu.Lock()
		rs.progress.Processed = processed
		if processed > 0 {
			elapsed := time.Since(rs.startedAt)
			remaining := rs.progress.Total - processed
			if rs.progress.Total > 0 && remaining > 0 {
				eta := elapsed * time.Duration(remaining) / time.Duration(processed)
				rs.progress.ETA = &eta
			}
		}
		rs.mu.Unlock()

		if batchNum%o.cfg.CheckpointEveryNBatch == 0 {
			progress := map[string]any{"processed": processed, "batch": batchNum}
			checkpoint := map[string]any{"hash": checkpointHash(jobID, batchNum, processed)}
			if err := o.store.SaveCheckpoint(ctx, jobID, progress, checkpoint); err != nil {
				log.Warn("checkpoint save failed", "batch", batchNum, "error", err)
			}
		}
		batch = batch[:0]
		return nil
	}

loop:
	for {
		select {
		case <-ctx.Done():
			_ = flush()
			return StatusCancelled, nil
		case doc, ok := <-docCh:
			if !ok {
				break loop
			}
			batch = append(batch, doc)
			rs.mu.Lock()
			rs.progress.Total++
			rs.mu.Unlock()
			if len(batch) >= o.cfg.BatchSize {
				if err := flush(); err != nil {
					return StatusFailed, err
				}
			}
		case err, ok := <-errCh:
			if ok && err != nil {
				return StatusFailed, fmt.Errorf("job: enumerate: %w", err)
			}
		}
	}

	if err := flush(); err != nil {
		return StatusFailed, err
	}

	if opts.Validate {
		report, err := o.validate(ctx, opts.Kind)
		if err != nil {
			log.Warn("validation pass failed", "error", err)
		} else {
			log.Info("validation pass complete", "total_documents", report.TotalDocuments)
		}
	}

	select {
	case <-ctx.Done():
		return StatusCancelled, nil
	default:
	}

	return StatusCompleted, nil
}

// processBatch runs a batch under a worker-permit semaphore sized to
// cfg.Workers. Documents within a batch are processed serially under a
// single held permit in this implementation; the semaphore exists so a
// future per-document-concurrency change stays bounded by W without
// touching the rest of the pipeline.
func (o *Orchestrator) processBatch(ctx context.Context, kind Kind, sourceName string, batch []Document, dryRun bool) error {
	permits := make(chan struct{}, o.cfg.Workers)
	permits <- struct{}{}
	defer func() { <-permits }()

	if dryRun {
		return nil
	}

	for _, doc := range batch {
		metadata := make(map[string]any, len(doc.Metadata))
		for k, v := range doc.Metadata {
			metadata[k] = v
		}
		docID, err := o.store.UpsertDocument(ctx, database.Document{
			Kind:       string(kind),
			SourceName: sourceName,
			Path:       doc.Path,
			Title:      doc.Title,
			Content:    doc.Content,
			Metadata:   metadata,
		})
		if err != nil {
			return fmt.Errorf("job: upsert %s: %w", doc.Path, err)
		}

		// One whole-document chunk per ingested document in this MVP; the
		// chunk row is what carries the embedding once the batch engine
		// returns results, keyed by chunk ID as the request's CustomID.
		chunkID, err := o.store.UpsertChunk(ctx, docID, 0, doc.Content)
		if err != nil {
			return fmt.Errorf("job: upsert chunk %s: %w", doc.Path, err)
		}
		o.embedder.Add(embedbatch.Request{CustomID: chunkID.String(), Text: doc.Content})
	}
	return nil
}

func (o *Orchestrator) validate(ctx context.Context, kind Kind) (ValidationReport, error) {
	total, err := o.store.CountDocuments(ctx, string(kind))
	if err != nil {
		return ValidationReport{}, err
	}

	validated := int(total)
	if pending, err := o.store.ChunksPendingEmbedding(ctx, 1); err == nil && len(pending) > 0 {
		// At least one chunk is still waiting on the embedding queue; don't
		// count its document as fully validated yet.
		validated--
	}
	if validated < 0 {
		validated = 0
	}

	return ValidationReport{
		TotalDocuments:     int(total),
		ValidatedDocuments: validated,
		ChecksumMatches:    []string{},
		SchemaViolations:   []string{},
	}, nil
}

func checkpointHash(jobID uuid.UUID, batchNum, processed int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%d", jobID, batchNum, processed)))
	return hex.EncodeToString(sum[:])
}

// RetentionCutoff resolves the cutoff timestamp before which terminal job
// records are eligible for cleanup.
func (o *Orchestrator) RetentionCutoff(now time.Time) time.Time {
	return now.Add(-o.cfg.RetentionWindow)
}
