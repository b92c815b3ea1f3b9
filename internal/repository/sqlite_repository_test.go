package repository_test

import (
	"context"
	"testing"

	"hub_wallet/internal/repository"
	"hub_wallet/internal/testutil"

	"github.com/stretchr/testify/assert"
)

func TestWalletSQLiteRepository(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) ledgerStore {
		db, teardown := testutil.SetupSQLiteDB(t)
		t.Cleanup(teardown)
		return repository.NewWalletSQLiteRepository(db, testLogger)
	})
}

func TestWalletSQLiteRepository_MigrateIsIdempotent(t *testing.T) {
	db, teardown := testutil.SetupSQLiteDB(t)
	defer teardown()

	repo := repository.NewWalletSQLiteRepository(db, testLogger)
	assert.NoError(t, repo.Migrate(context.Background()))
}
