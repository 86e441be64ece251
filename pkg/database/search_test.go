package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildFilterClauseNoFilters(t *testing.T) {
	where, args, next := buildFilterClause(SearchOptions{}, 2)
	assert.Equal(t, "", where)
	assert.Empty(t, args)
	assert.Equal(t, 2, next)
}

func TestBuildFilterClauseKindAndSources(t *testing.T) {
	where, args, next := buildFilterClause(SearchOptions{
		Kind:        "rust-crate",
		SourceNames: []string{"tokio", "serde"},
	}, 2)
	assert.Equal(t, "AND kind = $2 AND source_name = ANY($3::text[])", where)
	assert.Equal(t, []any{"rust-crate", []string{"tokio", "serde"}}, args)
	assert.Equal(t, 4, next)
}
