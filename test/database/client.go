// Package database provides test helpers for spinning up a real PostgreSQL
// instance (via testcontainers, or an external CI database) for C4 document
// store integration tests.
package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/5dlabs/docs-mcp/pkg/database"
)

// NewTestClient creates a database.Client backed by a real PostgreSQL
// instance. In CI (when CI_DATABASE_URL is set) it connects to an external
// service container; locally it spins up a disposable testcontainer. Either
// way, migrations run exactly as they would at production startup, and the
// container/pool are cleaned up via t.Cleanup.
func NewTestClient(t *testing.T) *database.Client {
	t.Helper()
	ctx := context.Background()

	if ciURL := os.Getenv("CI_DATABASE_URL"); ciURL != "" {
		t.Log("using external PostgreSQL from CI_DATABASE_URL")
		return clientFromDSN(t, ctx, ciURL)
	}

	t.Log("using testcontainers for PostgreSQL")
	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return clientFromDSN(t, ctx, connStr)
}

func clientFromDSN(t *testing.T, ctx context.Context, dsn string) *database.Client {
	t.Helper()
	cfg, err := database.ParseDSN(dsn)
	require.NoError(t, err)

	client, err := database.NewClient(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}
