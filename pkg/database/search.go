package database

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"
)

// Hit is a single search result, ranked by Score (higher is better
// regardless of which retrieval path produced it).
type Hit struct {
	DocumentID uuid.UUID
	Kind       string
	SourceName string
	Path       string
	Title      string
	Score      float32
	CreatedAt  time.Time
}

// SearchOptions controls a hybrid lexical/vector query.
type SearchOptions struct {
	Kind        string
	SourceNames []string
	Limit       int
	// Metadata holds equality predicates against the documents.metadata
	// jsonb column (format, complexity, category, topic, api_version per
	// the tool registry), applied conjunctively alongside Kind/SourceNames.
	Metadata map[string]string
	// Embedding, when non-nil, additionally ranks by cosine distance
	// against document_chunks.embedding.
	Embedding []float32
}

// metadataFilterKeys is the fixed, ordered set of metadata predicates the
// adapter accepts, matching the tool registry's allowed filter set.
var metadataFilterKeys = []string{"format", "complexity", "category", "topic", "api_version"}

// Search runs the hybrid lexical query: websearch_to_tsquery first,
// falling back to plainto_tsquery, and finally to a tokenized ILIKE
// conjunction if full-text search itself is unavailable (e.g. the tsvector
// column or its GIN index is missing in a degraded deployment). Grounded on
// open-rails-searchkit's search.FTSSearch.
func (s *Store) Search(ctx context.Context, query string, opts SearchOptions) ([]Hit, error) {
	q := strings.TrimSpace(strings.Join(strings.Fields(query), " "))
	if q == "" {
		return nil, nil
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	hits, err := s.ftsSearch(ctx, "websearch_to_tsquery", q, opts, limit)
	if err == nil {
		return hits, nil
	}

	hits, err = s.ftsSearch(ctx, "plainto_tsquery", q, opts, limit)
	if err == nil {
		return hits, nil
	}

	return s.ilikeSearch(ctx, q, opts, limit)
}

func (s *Store) ftsSearch(ctx context.Context, tsFunc, q string, opts SearchOptions, limit int) ([]Hit, error) {
	where, args, next := buildFilterClause(opts, 2)
	args = append([]any{q}, args...)

	// The full-text match and the path-substring match are OR'd together in
	// the WHERE clause per the hybrid-search contract; ts_rank_cd naturally
	// scores 0 for rows that only matched on path, so the ORDER BY still
	// ranks content hits first and falls back to created_at DESC.
	sql := fmt.Sprintf(`
		SELECT id, kind, source_name, path, title, created_at,
			ts_rank_cd(tsv, %s('english', $1))::float4 AS score
		FROM documents
		WHERE (tsv @@ %s('english', $1) OR path ILIKE '%%' || $1 || '%%') %s
		ORDER BY score DESC, created_at DESC
		LIMIT $%d
	`, tsFunc, tsFunc, where, next)
	args = append(args, limit)

	rows, err := s.client.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("database: fts search (%s): %w", tsFunc, err)
	}
	defer rows.Close()
	return scanHits(rows)
}

// searchTokens splits q into runs of letters/digits, keeping only tokens of
// at least 3 characters, matching the degraded-search tokenization contract.
func searchTokens(q string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() >= 3 {
			tokens = append(tokens, cur.String())
		}
		cur.Reset()
	}
	for _, r := range q {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

// ilikeSearch degrades to a tokenized ILIKE conjunction over content/path
// when full-text search cannot be used at all: tokens shorter than three
// alphanumeric characters are dropped, and an empty token set falls back to
// a single substring match on the raw query instead of matching everything.
func (s *Store) ilikeSearch(ctx context.Context, q string, opts SearchOptions, limit int) ([]Hit, error) {
	tokens := searchTokens(q)
	if len(tokens) == 0 {
		tokens = []string{q}
	}

	var conds []string
	args := []any{}
	argN := 1
	for _, tok := range tokens {
		conds = append(conds, fmt.Sprintf("(content ILIKE $%d OR path ILIKE $%d)", argN, argN))
		args = append(args, "%"+tok+"%")
		argN++
	}

	where, filterArgs, next := buildFilterClause(opts, argN)
	args = append(args, filterArgs...)

	sql := fmt.Sprintf(`
		SELECT id, kind, source_name, path, title, created_at, 1.0::float4 AS score
		FROM documents
		WHERE %s %s
		ORDER BY created_at DESC
		LIMIT $%d
	`, strings.Join(conds, " AND "), where, next)
	args = append(args, limit)

	rows, err := s.client.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("database: ilike search: %w", err)
	}
	defer rows.Close()
	return scanHits(rows)
}

// VectorSearch ranks document chunks by cosine distance to embedding
// joining back to their parent document. It degrades by returning
// (nil, ErrVectorSearchUnavailable) when the pgvector extension or column is
// absent, so callers silently fall back to the lexical path.
func (s *Store) VectorSearch(ctx context.Context, embedding []float32, opts SearchOptions) ([]Hit, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	where, args, next := buildFilterClause(opts, 2)
	args = append([]any{pgvector.NewVector(embedding)}, args...)

	sql := fmt.Sprintf(`
		SELECT d.id, d.kind, d.source_name, d.path, d.title, d.created_at,
			(1 - (c.embedding <=> $1))::float4 AS score
		FROM document_chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE c.embedding IS NOT NULL %s
		ORDER BY c.embedding <=> $1
		LIMIT $%d
	`, where, next)
	args = append(args, limit)

	rows, err := s.client.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVectorSearchUnavailable, err)
	}
	defer rows.Close()
	return scanHits(rows)
}

// ErrVectorSearchUnavailable signals that the caller should fall back to
// lexical search because the vector query failed (missing pgvector
// extension or embedding column, etc). An empty embedding column is not an
// error: VectorSearch then returns no hits and a nil error.
var ErrVectorSearchUnavailable = fmt.Errorf("database: vector search unavailable")

func buildFilterClause(opts SearchOptions, startArg int) (string, []any, int) {
	var clauses []string
	var args []any
	n := startArg

	if opts.Kind != "" {
		clauses = append(clauses, fmt.Sprintf("kind = $%d", n))
		args = append(args, opts.Kind)
		n++
	}
	if len(opts.SourceNames) > 0 {
		clauses = append(clauses, fmt.Sprintf("source_name = ANY($%d::text[])", n))
		args = append(args, opts.SourceNames)
		n++
	}
	for _, key := range metadataFilterKeys {
		val, ok := opts.Metadata[key]
		if !ok {
			continue
		}
		clauses = append(clauses, fmt.Sprintf("metadata->>'%s' = $%d", key, n))
		args = append(args, val)
		n++
	}

	if len(clauses) == 0 {
		return "", args, n
	}
	return "AND " + strings.Join(clauses, " AND "), args, n
}

func scanHits(rows pgx.Rows) ([]Hit, error) {
	var hits []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.DocumentID, &h.Kind, &h.SourceName, &h.Path, &h.Title, &h.CreatedAt, &h.Score); err != nil {
			return nil, fmt.Errorf("database: scan hit: %w", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}
