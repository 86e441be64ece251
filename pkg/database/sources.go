package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// SourceConfig is a per-source enumerator configuration row (repository
// URL, crate name, etc.), supplementing the distilled data model per
// original_source/db/src/queries.rs.
type SourceConfig struct {
	Kind       string
	SourceName string
	Config     map[string]any
	Enabled    bool
}

// UpsertSource registers or updates a source's enumerator configuration.
func (s *Store) UpsertSource(ctx context.Context, src SourceConfig) error {
	config, err := json.Marshal(src.Config)
	if err != nil {
		return fmt.Errorf("database: marshal source config: %w", err)
	}
	_, err = s.client.pool.Exec(ctx, `
		INSERT INTO document_sources (kind, source_name, config, enabled)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (kind, source_name) DO UPDATE SET
			config = EXCLUDED.config,
			enabled = EXCLUDED.enabled,
			updated_at = now()
	`, src.Kind, src.SourceName, config, src.Enabled)
	if err != nil {
		return fmt.Errorf("database: upsert source: %w", err)
	}
	return nil
}

// GetSource looks up a source's enumerator configuration by natural key.
func (s *Store) GetSource(ctx context.Context, kind, sourceName string) (SourceConfig, error) {
	row := s.client.pool.QueryRow(ctx, `
		SELECT kind, source_name, config, enabled
		FROM document_sources WHERE kind = $1 AND source_name = $2
	`, kind, sourceName)

	var sc SourceConfig
	var config []byte
	if err := row.Scan(&sc.Kind, &sc.SourceName, &config, &sc.Enabled); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SourceConfig{}, ErrNotFound
		}
		return SourceConfig{}, fmt.Errorf("database: scan source: %w", err)
	}
	if len(config) > 0 {
		if err := json.Unmarshal(config, &sc.Config); err != nil {
			return SourceConfig{}, fmt.Errorf("database: unmarshal source config: %w", err)
		}
	}
	return sc, nil
}

// ListEnabledSources returns every enabled source, optionally filtered by
// kind, for orchestrator startup scheduling.
func (s *Store) ListEnabledSources(ctx context.Context, kind string) ([]SourceConfig, error) {
	var rows pgx.Rows
	var err error
	if kind == "" {
		rows, err = s.client.pool.Query(ctx, `
			SELECT kind, source_name, config, enabled FROM document_sources WHERE enabled
		`)
	} else {
		rows, err = s.client.pool.Query(ctx, `
			SELECT kind, source_name, config, enabled FROM document_sources WHERE enabled AND kind = $1
		`, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("database: list sources: %w", err)
	}
	defer rows.Close()

	var out []SourceConfig
	for rows.Next() {
		var sc SourceConfig
		var config []byte
		if err := rows.Scan(&sc.Kind, &sc.SourceName, &config, &sc.Enabled); err != nil {
			return nil, fmt.Errorf("database: scan source: %w", err)
		}
		if len(config) > 0 {
			if err := json.Unmarshal(config, &sc.Config); err != nil {
				return nil, fmt.Errorf("database: unmarshal source config: %w", err)
			}
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}
