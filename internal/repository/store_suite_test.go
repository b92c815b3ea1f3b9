package repository_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"hub_wallet/internal/models"
	"hub_wallet/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type ledgerStore interface {
	CreateWallet(ctx context.Context, wallet models.Wallet) error
	GetWallet(ctx context.Context, walletID string) (models.Wallet, error)
	WithinTx(ctx context.Context, fn func(tx repository.Tx) error) error
	ListTransactions(ctx context.Context, walletID string, offset, limit int64) ([]models.Transaction, int64, error)
	SumTransactions(ctx context.Context, walletID string) (int64, int64, error)
}

// runStoreSuite checks the behaviour every ledger store must share.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) ledgerStore) {
	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, newStore(t)) })
	t.Run("AdjustAndAppend", func(t *testing.T) { testAdjustAndAppend(t, newStore(t)) })
	t.Run("ConditionalDecrement", func(t *testing.T) { testConditionalDecrement(t, newStore(t)) })
	t.Run("RollbackOnError", func(t *testing.T) { testRollbackOnError(t, newStore(t)) })
	t.Run("Paging", func(t *testing.T) { testPaging(t, newStore(t)) })
	t.Run("SumTransactions", func(t *testing.T) { testSumTransactions(t, newStore(t)) })
	t.Run("ConcurrentCredits", func(t *testing.T) { testConcurrentCredits(t, newStore(t)) })
	t.Run("ConcurrentDebits", func(t *testing.T) { testConcurrentDebits(t, newStore(t)) })
}

func newWallet(t *testing.T, store ledgerStore) string {
	t.Helper()
	walletID := uuid.NewString()
	require.NoError(t, store.CreateWallet(context.Background(), models.Wallet{ID: walletID, CustomerID: "c1"}))
	return walletID
}

// applyDelta mirrors what the engine does: one conditional update plus one
// ledger row. It reports whether the update matched.
func applyDelta(ctx context.Context, store ledgerStore, walletID string, delta int64) (bool, error) {
	var applied bool
	err := store.WithinTx(ctx, func(tx repository.Tx) error {
		affected, err := tx.AdjustBalance(ctx, walletID, delta)
		if err != nil || affected == 0 {
			return err
		}
		if _, err := tx.AppendTransaction(ctx, models.Transaction{
			WalletID:    walletID,
			AmountPence: delta,
			Created:     time.Now(),
		}); err != nil {
			return err
		}
		applied = true
		return nil
	})
	return applied, err
}

func testCreateAndGet(t *testing.T, store ledgerStore) {
	ctx := context.Background()
	walletID := newWallet(t, store)

	wallet, err := store.GetWallet(ctx, walletID)
	assert.NoError(t, err)
	assert.Equal(t, models.Wallet{ID: walletID, CustomerID: "c1", BalancePence: 0}, wallet)

	err = store.CreateWallet(ctx, models.Wallet{ID: walletID, CustomerID: "c2"})
	assert.ErrorIs(t, err, repository.ErrWalletAlreadyExist)

	_, err = store.GetWallet(ctx, uuid.NewString())
	assert.ErrorIs(t, err, repository.ErrWalletNotFound)
}

func testAdjustAndAppend(t *testing.T, store ledgerStore) {
	ctx := context.Background()
	walletID := newWallet(t, store)

	applied, err := applyDelta(ctx, store, walletID, 10000)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = applyDelta(ctx, store, walletID, -3000)
	require.NoError(t, err)
	assert.True(t, applied)

	wallet, err := store.GetWallet(ctx, walletID)
	require.NoError(t, err)
	assert.Equal(t, int64(7000), wallet.BalancePence)

	txns, total, err := store.ListTransactions(ctx, walletID, 0, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, txns, 2)
	assert.Equal(t, int64(10000), txns[0].AmountPence)
	assert.Equal(t, int64(-3000), txns[1].AmountPence)
	assert.Less(t, txns[0].ID, txns[1].ID)
	assert.False(t, txns[0].Created.IsZero())
	assert.Equal(t, walletID, txns[0].WalletID)

	applied, err = applyDelta(ctx, store, uuid.NewString(), 5000)
	assert.NoError(t, err)
	assert.False(t, applied)
}

func testConditionalDecrement(t *testing.T, store ledgerStore) {
	ctx := context.Background()
	walletID := newWallet(t, store)
	_, err := applyDelta(ctx, store, walletID, 1000)
	require.NoError(t, err)

	applied, err := applyDelta(ctx, store, walletID, -1001)
	assert.NoError(t, err)
	assert.False(t, applied)

	applied, err = applyDelta(ctx, store, walletID, -1000)
	assert.NoError(t, err)
	assert.True(t, applied)

	wallet, err := store.GetWallet(ctx, walletID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), wallet.BalancePence)
}

func testRollbackOnError(t *testing.T, store ledgerStore) {
	ctx := context.Background()
	walletID := newWallet(t, store)
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(tx repository.Tx) error {
		affected, err := tx.AdjustBalance(ctx, walletID, 5000)
		require.NoError(t, err)
		require.Equal(t, int64(1), affected)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	wallet, err := store.GetWallet(ctx, walletID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), wallet.BalancePence)

	_, total, err := store.ListTransactions(ctx, walletID, 0, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func testPaging(t *testing.T, store ledgerStore) {
	ctx := context.Background()
	walletID := newWallet(t, store)
	other := newWallet(t, store)
	for i := 1; i <= 12; i++ {
		_, err := applyDelta(ctx, store, walletID, int64(i*1000))
		require.NoError(t, err)
	}
	_, err := applyDelta(ctx, store, other, 1000)
	require.NoError(t, err)

	txns, total, err := store.ListTransactions(ctx, walletID, 10, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(12), total)
	require.Len(t, txns, 2)
	assert.Equal(t, int64(11000), txns[0].AmountPence)
	assert.Equal(t, int64(12000), txns[1].AmountPence)

	txns, total, err = store.ListTransactions(ctx, walletID, 20, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(12), total)
	assert.Empty(t, txns)

	txns, total, err = store.ListTransactions(ctx, uuid.NewString(), 0, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	assert.Empty(t, txns)
}

func testSumTransactions(t *testing.T, store ledgerStore) {
	ctx := context.Background()
	walletID := newWallet(t, store)

	balance, sum, err := store.SumTransactions(ctx, walletID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
	assert.Equal(t, int64(0), sum)

	for _, delta := range []int64{10000, -2500, 4000} {
		_, err := applyDelta(ctx, store, walletID, delta)
		require.NoError(t, err)
	}
	balance, sum, err = store.SumTransactions(ctx, walletID)
	require.NoError(t, err)
	assert.Equal(t, int64(11500), balance)
	assert.Equal(t, balance, sum)

	_, _, err = store.SumTransactions(ctx, uuid.NewString())
	assert.ErrorIs(t, err, repository.ErrWalletNotFound)
}

func testConcurrentCredits(t *testing.T, store ledgerStore) {
	ctx := context.Background()
	walletID := newWallet(t, store)
	const workers = 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			applied, err := applyDelta(ctx, store, walletID, 1000)
			assert.NoError(t, err)
			assert.True(t, applied)
		}()
	}
	wg.Wait()

	balance, sum, err := store.SumTransactions(ctx, walletID)
	require.NoError(t, err)
	assert.Equal(t, int64(workers*1000), balance)
	assert.Equal(t, balance, sum)
}

func testConcurrentDebits(t *testing.T, store ledgerStore) {
	ctx := context.Background()
	walletID := newWallet(t, store)
	_, err := applyDelta(ctx, store, walletID, 1000)
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int64
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			applied, err := applyDelta(ctx, store, walletID, -100)
			assert.NoError(t, err)
			if applied {
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(10), succeeded.Load())
	balance, sum, err := store.SumTransactions(ctx, walletID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
	assert.Equal(t, balance, sum)
}
