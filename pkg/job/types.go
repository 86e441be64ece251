// Package job implements the ingest pipeline orchestrator: a checkpointed
// state machine that enumerates documents from a source
// batches them through the embedding engine and document store, and
// tracks progress/ETA to completion.
package job

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is a job's lifecycle state.
type Status string

// Job lifecycle states.
const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether a status cannot transition further.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// ErrInvalidTransition names a state change the machine does not allow (e.g.
// Completed -> Running). Nothing in this package returns it: status updates
// go through Store.UpdateJobStatus, which writes any status without a
// transition check.
var ErrInvalidTransition = fmt.Errorf("job: invalid state transition")

// ErrResumeNotImplemented is returned by Resume: the checkpoint contract is
// defined but resuming from it is not yet wired up.
var ErrResumeNotImplemented = fmt.Errorf("job: resume not implemented")

// Kind discriminates what a job enumerates and ingests.
type Kind string

// Known job kinds, matching the document_sources.kind discriminator.
const (
	KindCrate  Kind = "crate"
	KindIngest Kind = "ingest"
)

// Record is the persisted, externally visible shape of a job, as returned
// by status-polling callers (the 202-accepted contract).
type Record struct {
	ID         uuid.UUID
	Kind       Kind
	SourceName string
	Status     Status
	Error      string
	StartedAt  *time.Time
	FinishedAt *time.Time
	CreatedAt  time.Time
}

// Document is one enumerable unit coming out of a source enumerator.
type Document struct {
	Path     string
	Title    string
	Content  string
	Metadata map[string]string
}

// Enumerator lists documents for a job's target. Implementations live
// outside this package (filesystem walkers, crate downloaders, repo
// crawlers) — the orchestrator only depends on this interface.
type Enumerator interface {
	Enumerate(ctx context.Context, target string) (<-chan Document, <-chan error)
}

// Checkpoint is a progress marker within a job. The orchestrator keeps only
// the latest one on the job row, overwriting the previous: the batch number
// and processed count go into jobs.progress and the hash into
// jobs.checkpoint (both jsonb). Earlier checkpoints are not retained.
type Checkpoint struct {
	JobID     uuid.UUID
	BatchNum  int
	Processed int
	CreatedAt time.Time
	Hash      string
}

// ValidationReport summarizes a post-ingest consistency pass. The MVP may
// leave ChecksumMatches/SchemaViolations empty, but callers must always see
// this shape.
type ValidationReport struct {
	TotalDocuments     int
	ValidatedDocuments int
	ChecksumMatches    []string
	SchemaViolations   []string
}

// Progress is a point-in-time snapshot of a running job's advancement.
type Progress struct {
	Processed int
	Total     int
	ETA       *time.Duration
}
