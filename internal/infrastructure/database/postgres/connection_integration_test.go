//go:build integration

// Integration tests for the PostgreSQL equivalence store. Tests require Docker
// and are gated behind the "integration" build tag.
package postgres_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/turtacn/rcr/internal/config"
	"github.com/turtacn/rcr/internal/infrastructure/database/postgres"
	"github.com/turtacn/rcr/internal/infrastructure/monitoring/logging"
)

// startPostgres launches a PostgreSQL 16 container and returns an open
// connection to it.
func startPostgres(t *testing.T) *postgres.Connection {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "rcr_test",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mapped, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)
	port, err := strconv.Atoi(mapped.Port())
	require.NoError(t, err)

	cfg := config.DatabaseConfig{
		Enabled:  true,
		Host:     host,
		Port:     port,
		User:     "test",
		Password: "test",
		DBName:   "rcr_test",
		SSLMode:  "disable",
		MaxConns: 2,
	}

	// The listening port can open before the server accepts logins.
	var conn *postgres.Connection
	require.Eventually(t, func() bool {
		conn, err = postgres.NewConnection(ctx, cfg, logging.NewNopLogger())
		return err == nil
	}, 30*time.Second, 500*time.Millisecond)
	t.Cleanup(conn.Close)

	applyEquivalenceSchema(t, conn)
	return conn
}

func applyEquivalenceSchema(t *testing.T, conn *postgres.Connection) {
	t.Helper()
	_, err := conn.Pool().Exec(context.Background(), `
		CREATE TABLE IF NOT EXISTS equivalence_it (
			namespace    TEXT NOT NULL,
			value        TEXT NOT NULL,
			canonical_id TEXT NOT NULL,
			PRIMARY KEY (namespace, value)
		);
		INSERT INTO equivalence_it VALUES
			('EG', '207', 'uuid-207'),
			('HGNC', 'AKT1', 'uuid-207')
		ON CONFLICT DO NOTHING;
	`)
	require.NoError(t, err)
}

func TestEquivalenceStore_Integration(t *testing.T) {
	ctx := context.Background()
	conn := startPostgres(t)
	require.NoError(t, conn.HealthCheck(ctx))

	store, err := postgres.NewEquivalenceStore(conn.Pool(), "equivalence_it", logging.NewNopLogger())
	require.NoError(t, err)

	t.Run("case-insensitive namespace", func(t *testing.T) {
		id, found, err := store.ResolveCanonicalID(ctx, "eg", "207")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "uuid-207", id)
	})

	t.Run("shared canonical id", func(t *testing.T) {
		id, found, err := store.ResolveCanonicalID(ctx, "HGNC", "AKT1")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "uuid-207", id)
	})

	t.Run("no equivalent", func(t *testing.T) {
		_, found, err := store.ResolveCanonicalID(ctx, "EG", "999")
		require.NoError(t, err)
		assert.False(t, found)
	})
}
