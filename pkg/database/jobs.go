package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// JobRecord is the persisted row backing a job orchestrator run. The
// `crate_jobs`/`ingest_jobs` split of the original data model is collapsed
// into one physical table with a Kind discriminator.
type JobRecord struct {
	ID          uuid.UUID
	Kind        string
	SourceName  string
	Status      string
	Progress    map[string]any
	Checkpoint  map[string]any
	Error       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// CreateJob inserts a new job row in the "queued" status.
func (s *Store) CreateJob(ctx context.Context, kind, sourceName string) (uuid.UUID, error) {
	var id uuid.UUID
	row := s.client.pool.QueryRow(ctx, `
		INSERT INTO jobs (kind, source_name, status)
		VALUES ($1, $2, 'queued')
		RETURNING id
	`, kind, sourceName)
	if err := row.Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("database: create job: %w", err)
	}
	return id, nil
}

// UpdateJobStatus transitions a job's status, stamping started_at/
// completed_at as appropriate.
func (s *Store) UpdateJobStatus(ctx context.Context, id uuid.UUID, status string, errMsg string) error {
	_, err := s.client.pool.Exec(ctx, `
		UPDATE jobs SET
			status = $2,
			error = $3,
			updated_at = now(),
			started_at = CASE WHEN started_at IS NULL AND $2 = 'running' THEN now() ELSE started_at END,
			completed_at = CASE WHEN $2 IN ('completed', 'failed', 'cancelled') THEN now() ELSE completed_at END
		WHERE id = $1
	`, id, status, errMsg)
	if err != nil {
		return fmt.Errorf("database: update job status: %w", err)
	}
	return nil
}

// SaveCheckpoint persists a job's progress/checkpoint JSON so it can be
// resumed or inspected after a restart.
func (s *Store) SaveCheckpoint(ctx context.Context, id uuid.UUID, progress, checkpoint map[string]any) error {
	progressJSON, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("database: marshal progress: %w", err)
	}
	checkpointJSON, err := json.Marshal(checkpoint)
	if err != nil {
		return fmt.Errorf("database: marshal checkpoint: %w", err)
	}
	_, err = s.client.pool.Exec(ctx, `
		UPDATE jobs SET progress = $2, checkpoint = $3, updated_at = now()
		WHERE id = $1
	`, id, progressJSON, checkpointJSON)
	if err != nil {
		return fmt.Errorf("database: save checkpoint: %w", err)
	}
	return nil
}

// GetJob fetches a job by ID.
func (s *Store) GetJob(ctx context.Context, id uuid.UUID) (JobRecord, error) {
	row := s.client.pool.QueryRow(ctx, `
		SELECT id, kind, source_name, status, progress, checkpoint, error,
			created_at, updated_at, started_at, completed_at
		FROM jobs WHERE id = $1
	`, id)
	return scanJob(row)
}

// ListActiveJobs returns jobs not yet in a terminal status, for orchestrator
// startup recovery and the admin/status surface.
func (s *Store) ListActiveJobs(ctx context.Context) ([]JobRecord, error) {
	rows, err := s.client.pool.Query(ctx, `
		SELECT id, kind, source_name, status, progress, checkpoint, error,
			created_at, updated_at, started_at, completed_at
		FROM jobs
		WHERE status NOT IN ('completed', 'failed', 'cancelled')
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("database: list active jobs: %w", err)
	}
	defer rows.Close()

	var jobs []JobRecord
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func scanJob(row pgx.Row) (JobRecord, error) {
	var j JobRecord
	var progress, checkpoint []byte
	if err := row.Scan(&j.ID, &j.Kind, &j.SourceName, &j.Status, &progress, &checkpoint, &j.Error,
		&j.CreatedAt, &j.UpdatedAt, &j.StartedAt, &j.CompletedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JobRecord{}, ErrNotFound
		}
		return JobRecord{}, fmt.Errorf("database: scan job: %w", err)
	}
	if len(progress) > 0 {
		if err := json.Unmarshal(progress, &j.Progress); err != nil {
			return JobRecord{}, fmt.Errorf("database: unmarshal progress: %w", err)
		}
	}
	if len(checkpoint) > 0 {
		if err := json.Unmarshal(checkpoint, &j.Checkpoint); err != nil {
			return JobRecord{}, fmt.Errorf("database: unmarshal checkpoint: %w", err)
		}
	}
	return j, nil
}
