//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/roach88/flowreg/internal/registry"
	"github.com/roach88/flowreg/internal/store/storetest"
)

// startPostgres runs a disposable PostgreSQL container for the test and
// returns its connection string.
func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "flowreg",
			"POSTGRES_PASSWORD": "flowreg",
			"POSTGRES_DB":       "flowreg",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		).WithDeadline(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background()) // Best effort test cleanup
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://flowreg:flowreg@%s:%s/flowreg?sslmode=disable", host, port.Port())
}

func TestIntegration_Conformance(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	storetest.Run(t, func(t *testing.T) registry.Transactor {
		s, err := Open(ctx, dsn)
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })

		// Each subtest starts from an empty table.
		_, err = s.Pool().Exec(ctx, `TRUNCATE flows`)
		require.NoError(t, err)
		return s
	})
}

func TestIntegration_MigrateIdempotent(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	s, err := Open(ctx, dsn)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.Ping(ctx))

	var applied int
	require.NoError(t, s.Pool().QueryRow(ctx, `SELECT COUNT(*) FROM flowreg_migrations`).Scan(&applied))
	assert.Equal(t, 2, applied)
}
