// Package testutil starts throwaway infrastructure for tests and builds ledger fixtures.
package testutil

import (
	"context"
	"net"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/nkiryanov/ledgerbank/internal/db"
)

const defaultPostgresImage = "postgres:17-alpine"

// Free port on 127.0.0.1 to run a server on
func RandomPort() (int, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:")
	if err != nil {
		return 0, err
	}
	defer ln.Close() // nolint:errcheck

	return ln.Addr().(*net.TCPAddr).Port, nil
}

type PostgresContainer struct {
	DSN  string
	Pool *pgxpool.Pool

	// Close pool and remove container, safe to call more than once
	Terminate func()
}

// Start migrated postgres in docker
// Skipped with -short or when docker is not reachable
// Image may be overridden with LEDGERBANK_TEST_POSTGRES_IMAGE
func StartPostgresContainer(t *testing.T) PostgresContainer {
	t.Helper()

	if testing.Short() {
		t.Skip("postgres container is not started in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	image := os.Getenv("LEDGERBANK_TEST_POSTGRES_IMAGE")
	if image == "" {
		image = defaultPostgresImage
	}

	container, err := postgres.Run(t.Context(),
		image,
		postgres.WithDatabase("ledgerbank-test"),
		postgres.WithUsername("ledgerbank"),
		postgres.WithPassword("pwd"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err, "postgres container not started")

	dsn, err := container.ConnectionString(t.Context(), "sslmode=disable")
	require.NoError(t, err)

	pool, err := db.ConnectAndMigrate(t.Context(), dsn)
	require.NoError(t, err, "schema not migrated, dsn=%s", dsn)

	var once sync.Once
	return PostgresContainer{
		DSN:  dsn,
		Pool: pool,
		Terminate: func() {
			once.Do(func() {
				pool.Close()
				testcontainers.CleanupContainer(t, container)
			})
		},
	}
}

type dbtx interface {
	Begin(context.Context) (pgx.Tx, error)
}

// Run testFunc in a transaction that is rolled back at the end
// Begin on the given pgx.Tx makes a savepoint, so the store code under test may nest freely
func InTx(dbtx dbtx, t *testing.T, testFunc func(tx pgx.Tx)) {
	t.Helper()

	tx, err := dbtx.Begin(t.Context())
	require.NoError(t, err)

	defer func() {
		require.NoError(t, tx.Rollback(context.WithoutCancel(t.Context())))
	}()

	testFunc(tx)
}
