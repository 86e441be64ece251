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

// ErrNotFound is returned when a lookup by natural key or ID finds nothing.
var ErrNotFound = errors.New("database: not found")

// Document is a single ingested document, keyed naturally by
// (kind, source_name, path) per the upsert contract.
type Document struct {
	ID         uuid.UUID
	Kind       string
	SourceName string
	Path       string
	Title      string
	Content    string
	Format     string
	Metadata   map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Store is the document store adapter: natural-key upsert, hybrid
// lexical/vector search, and metadata filtering, all hand-written SQL
// against a pgxpool.Pool.
type Store struct {
	client *Client
}

// NewStore wraps a Client with document-store operations.
func NewStore(client *Client) *Store {
	return &Store{client: client}
}

// UpsertDocument inserts or updates a document by its natural key
// (kind, source_name, path), following the ON CONFLICT DO UPDATE pattern
// grounded in open-rails-searchkit's pg.PostgresStorage.UpsertTextEmbedding.
func (s *Store) UpsertDocument(ctx context.Context, doc Document) (uuid.UUID, error) {
	metadata, err := json.Marshal(doc.Metadata)
	if err != nil {
		return uuid.Nil, fmt.Errorf("database: marshal metadata: %w", err)
	}
	format := doc.Format
	if format == "" {
		format = "markdown"
	}

	var id uuid.UUID
	row := s.client.pool.QueryRow(ctx, `
		INSERT INTO documents (kind, source_name, path, title, content, format, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (kind, source_name, path) DO UPDATE SET
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			format = EXCLUDED.format,
			metadata = EXCLUDED.metadata,
			updated_at = now()
		RETURNING id
	`, doc.Kind, doc.SourceName, doc.Path, doc.Title, doc.Content, format, metadata)
	if err := row.Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("database: upsert document: %w", err)
	}
	return id, nil
}

// GetDocument fetches a document by its natural key.
func (s *Store) GetDocument(ctx context.Context, kind, sourceName, path string) (Document, error) {
	row := s.client.pool.QueryRow(ctx, `
		SELECT id, kind, source_name, path, title, content, format, metadata, created_at, updated_at
		FROM documents
		WHERE kind = $1 AND source_name = $2 AND path = $3
	`, kind, sourceName, path)
	return scanDocument(row)
}

// GetDocumentByID fetches a document by surrogate ID.
func (s *Store) GetDocumentByID(ctx context.Context, id uuid.UUID) (Document, error) {
	row := s.client.pool.QueryRow(ctx, `
		SELECT id, kind, source_name, path, title, content, format, metadata, created_at, updated_at
		FROM documents WHERE id = $1
	`, id)
	return scanDocument(row)
}

func scanDocument(row pgx.Row) (Document, error) {
	var d Document
	var metadata []byte
	if err := row.Scan(&d.ID, &d.Kind, &d.SourceName, &d.Path, &d.Title, &d.Content, &d.Format, &metadata, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("database: scan document: %w", err)
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &d.Metadata); err != nil {
			return Document{}, fmt.Errorf("database: unmarshal metadata: %w", err)
		}
	}
	return d, nil
}

// DeleteDocumentsBySource removes every document for a (kind, source_name)
// pair, used when a source is re-ingested from scratch or removed.
func (s *Store) DeleteDocumentsBySource(ctx context.Context, kind, sourceName string) (int64, error) {
	tag, err := s.client.pool.Exec(ctx, `
		DELETE FROM documents WHERE kind = $1 AND source_name = $2
	`, kind, sourceName)
	if err != nil {
		return 0, fmt.Errorf("database: delete documents by source: %w", err)
	}
	return tag.RowsAffected(), nil
}

// FindByKind lists documents of a given kind, newest first — used by the
// discovery short-circuit to build a catalog without invoking search.
func (s *Store) FindByKind(ctx context.Context, kind string, limit int) ([]Document, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.client.pool.Query(ctx, `
		SELECT id, kind, source_name, path, title, content, format, metadata, created_at, updated_at
		FROM documents WHERE kind = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("database: find by kind: %w", err)
	}
	defer rows.Close()
	return scanDocuments(rows)
}

// FindBySource lists documents from one (kind, source_name) pair, newest
// first.
func (s *Store) FindBySource(ctx context.Context, kind, sourceName string, limit int) ([]Document, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.client.pool.Query(ctx, `
		SELECT id, kind, source_name, path, title, content, format, metadata, created_at, updated_at
		FROM documents WHERE kind = $1 AND source_name = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, kind, sourceName, limit)
	if err != nil {
		return nil, fmt.Errorf("database: find by source: %w", err)
	}
	defer rows.Close()
	return scanDocuments(rows)
}

func scanDocuments(rows pgx.Rows) ([]Document, error) {
	var docs []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// CountDocuments returns the total number of stored documents, optionally
// scoped to a kind.
func (s *Store) CountDocuments(ctx context.Context, kind string) (int64, error) {
	var count int64
	var err error
	if kind == "" {
		err = s.client.pool.QueryRow(ctx, `SELECT count(*) FROM documents`).Scan(&count)
	} else {
		err = s.client.pool.QueryRow(ctx, `SELECT count(*) FROM documents WHERE kind = $1`, kind).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("database: count documents: %w", err)
	}
	return count, nil
}
