package repository

import (
	"context"
	"errors"

	"hub_wallet/internal/models"
)

var (
	ErrWalletNotFound     = errors.New("wallet not found")
	ErrWalletAlreadyExist = errors.New("wallet already exists")
	ErrNegativeBalance    = errors.New("balance must not be negative")
)

//go:generate mockgen -source=repository.go -destination=../../test/mock_ledger_tx.go -package=test Tx

// Tx is the set of ledger operations available inside one store transaction.
// Everything done through a Tx commits or rolls back together.
type Tx interface {
	GetWallet(ctx context.Context, walletID string) (models.Wallet, error)
	// AdjustBalance adds delta to the wallet balance in a single statement,
	// provided the result stays non-negative. It returns the affected row count.
	AdjustBalance(ctx context.Context, walletID string, delta int64) (int64, error)
	AppendTransaction(ctx context.Context, txn models.Transaction) (models.Transaction, error)
}
