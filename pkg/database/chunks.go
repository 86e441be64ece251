package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	pgvector "github.com/pgvector/pgvector-go"
)

// Chunk is one embeddable unit of a document's content.
type Chunk struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	Index      int
	Content    string
}

// UpsertChunk stores (or replaces) a document's chunk at a given index
// without an embedding yet — embeddings are attached separately once the
// batch engine returns results, matching the chunk-then-embed
// pipeline ordering.
func (s *Store) UpsertChunk(ctx context.Context, documentID uuid.UUID, index int, content string) (uuid.UUID, error) {
	var id uuid.UUID
	row := s.client.pool.QueryRow(ctx, `
		INSERT INTO document_chunks (document_id, chunk_index, content)
		VALUES ($1, $2, $3)
		ON CONFLICT (document_id, chunk_index) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = NULL,
			embedded_at = NULL
		RETURNING id
	`, documentID, index, content)
	if err := row.Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("database: upsert chunk: %w", err)
	}
	return id, nil
}

// SetChunkEmbedding attaches an embedding vector to a chunk by ID and stamps
// embedded_at.
func (s *Store) SetChunkEmbedding(ctx context.Context, chunkID uuid.UUID, embedding []float32) error {
	_, err := s.client.pool.Exec(ctx, `
		UPDATE document_chunks
		SET embedding = $2, embedded_at = now()
		WHERE id = $1
	`, chunkID, pgvector.NewVector(embedding))
	if err != nil {
		return fmt.Errorf("database: set chunk embedding: %w", err)
	}
	return nil
}

// ChunksPendingEmbedding returns up to limit chunks that have no embedding
// yet, oldest first, for the job orchestrator's embed stage to pick up.
func (s *Store) ChunksPendingEmbedding(ctx context.Context, limit int) ([]Chunk, error) {
	rows, err := s.client.pool.Query(ctx, `
		SELECT id, document_id, chunk_index, content
		FROM document_chunks
		WHERE embedding IS NULL
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("database: list pending chunks: %w", err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Index, &c.Content); err != nil {
			return nil, fmt.Errorf("database: scan chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}
