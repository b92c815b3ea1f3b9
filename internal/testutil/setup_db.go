package testutil

import (
	"context"
	"database/sql"
	"io"
	"path/filepath"
	"testing"
	"time"

	"hub_wallet/internal/infra"
	"hub_wallet/internal/logging"
	"hub_wallet/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// SetupTestDB starts a Postgres container, waits until it accepts
// connections, applies the wallet schema and returns the pool with a teardown.
func SetupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	t.Helper()
	ctx := context.Background()
	postgresC, err := tcpostgres.Run(ctx,
		"postgres:17-alpine",
		tcpostgres.WithDatabase("wallets"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("secret"),
	)
	require.NoError(t, err)

	dbURL, err := postgresC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)

	ready := func() bool { return pool.Ping(ctx) == nil }
	if !assert.Eventually(t, ready, 20*time.Second, 500*time.Millisecond) {
		dumpContainerLogs(ctx, t, postgresC)
		pool.Close()
		postgresC.Terminate(ctx)
		t.FailNow()
	}

	require.NoError(t, repository.NewWalletPGRepository(pool, logging.Discard()).Migrate(ctx))

	return pool, func() {
		pool.Close()
		postgresC.Terminate(ctx)
	}
}

func dumpContainerLogs(ctx context.Context, t *testing.T, c *tcpostgres.PostgresContainer) {
	t.Helper()
	logs, err := c.Logs(ctx)
	if err != nil {
		t.Logf("postgres never became ready; container logs unavailable: %v", err)
		return
	}
	defer logs.Close()
	out, _ := io.ReadAll(logs)
	t.Logf("postgres never became ready; container logs:\n%s", out)
}

// SetupSQLiteDB opens a migrated SQLite database in a per-test directory.
func SetupSQLiteDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	ctx := context.Background()
	db, err := infra.NewSQLiteDB(ctx, filepath.Join(t.TempDir(), "wallets.db"))
	require.NoError(t, err)

	require.NoError(t, repository.NewWalletSQLiteRepository(db, logging.Discard()).Migrate(ctx))

	return db, func() {
		db.Close()
	}
}
