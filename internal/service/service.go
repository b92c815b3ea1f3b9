package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"hub_wallet/internal/models"
	"hub_wallet/internal/repository"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=../../test/mock_wallet_store.go -package=test WalletStore

type WalletStore interface {
	CreateWallet(ctx context.Context, wallet models.Wallet) error
	GetWallet(ctx context.Context, walletID string) (models.Wallet, error)
	WithinTx(ctx context.Context, fn func(tx repository.Tx) error) error
	ListTransactions(ctx context.Context, walletID string, offset, limit int64) ([]models.Transaction, int64, error)
	SumTransactions(ctx context.Context, walletID string) (int64, int64, error)
}

const (
	MinAddPence    = 10 * 100
	MaxAdjustPence = 10000 * 100
)

type adjustment string

const (
	credit adjustment = "CREDIT"
	debit  adjustment = "DEBIT"
)

type WalletService struct {
	store  WalletStore
	logger *slog.Logger
	now    func() time.Time
}

func NewWalletService(store WalletStore, logger *slog.Logger) *WalletService {
	return &WalletService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

func (s *WalletService) Create(ctx context.Context, customerID string) (models.Wallet, error) {
	if strings.TrimSpace(customerID) == "" {
		return models.Wallet{}, ErrCustomerIDRequired
	}
	wallet := models.Wallet{
		ID:           uuid.NewString(),
		CustomerID:   customerID,
		BalancePence: 0,
	}
	if err := s.store.CreateWallet(ctx, wallet); err != nil {
		s.logger.Error("Create wallet failed",
			slog.String("wallet_id", wallet.ID),
			slog.String("customer_id", customerID),
			slog.Any("err", err),
		)
		return models.Wallet{}, err
	}
	s.logger.Info("Wallet created",
		slog.String("wallet_id", wallet.ID),
		slog.String("customer_id", customerID),
	)
	return wallet, nil
}

// FindByID is the authoritative balance read, used by the withdrawal
// pre-check as well as by external balance queries.
func (s *WalletService) FindByID(ctx context.Context, walletID string) (models.Wallet, error) {
	wallet, err := s.store.GetWallet(ctx, walletID)
	if err != nil {
		if errors.Is(err, repository.ErrWalletNotFound) {
			s.logger.Warn("FindByID: wallet not found",
				slog.String("wallet_id", walletID),
			)
			return models.Wallet{}, repository.ErrWalletNotFound
		}
		s.logger.Error("FindByID failed",
			slog.String("wallet_id", walletID),
			slog.Any("err", err),
		)
		return models.Wallet{}, err
	}
	return wallet, nil
}

func (s *WalletService) AddFunds(ctx context.Context, walletID string, amountPence int64) error {
	if amountPence < MinAddPence {
		s.rejected("AddFunds", walletID, amountPence, ErrAmountBelowMinimum)
		return ErrAmountBelowMinimum
	}
	if amountPence > MaxAdjustPence {
		s.rejected("AddFunds", walletID, amountPence, ErrAmountAboveMaximum)
		return ErrAmountAboveMaximum
	}
	return s.applyAtomic(ctx, walletID, amountPence, credit)
}

func (s *WalletService) Withdraw(ctx context.Context, walletID string, amountPence int64) error {
	if amountPence > MaxAdjustPence {
		s.rejected("Withdraw", walletID, amountPence, ErrWithdrawalAboveMaximum)
		return ErrWithdrawalAboveMaximum
	}
	if amountPence < 0 {
		s.rejected("Withdraw", walletID, amountPence, ErrNegativeWithdrawal)
		return ErrNegativeWithdrawal
	}
	if amountPence == 0 {
		s.rejected("Withdraw", walletID, amountPence, ErrZeroWithdrawal)
		return ErrZeroWithdrawal
	}

	// Advisory only: concurrent debits are caught by the conditional update.
	wallet, err := s.FindByID(ctx, walletID)
	if err != nil {
		return err
	}
	if wallet.BalancePence < amountPence {
		s.logger.Warn("Withdraw failed: insufficient funds",
			slog.String("wallet_id", walletID),
			slog.Int64("amount_pence", amountPence),
			slog.Int64("balance_pence", wallet.BalancePence),
		)
		return ErrInsufficientFunds
	}
	return s.applyAtomic(ctx, walletID, -amountPence, debit)
}

// applyAtomic moves the balance by delta and appends the matching ledger
// entry in one store transaction.
func (s *WalletService) applyAtomic(ctx context.Context, walletID string, delta int64, kind adjustment) error {
	var entry models.Transaction
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		affected, err := tx.AdjustBalance(ctx, walletID, delta)
		if errors.Is(err, repository.ErrNegativeBalance) {
			return ErrInsufficientFunds
		}
		if err != nil {
			return err
		}
		if affected == 0 {
			if kind == credit {
				return repository.ErrWalletNotFound
			}
			if _, err := tx.GetWallet(ctx, walletID); err != nil {
				if errors.Is(err, repository.ErrWalletNotFound) {
					return fmt.Errorf("%w: debit of %d matched no row for wallet %s",
						ErrInternalInconsistency, -delta, walletID)
				}
				return err
			}
			return ErrInsufficientFunds
		}

		entry, err = tx.AppendTransaction(ctx, models.Transaction{
			WalletID:    walletID,
			AmountPence: delta,
			Created:     s.now(),
		})
		return err
	})

	attrs := []any{
		slog.String("wallet_id", walletID),
		slog.String("kind", string(kind)),
		slog.Int64("amount_pence", delta),
	}
	switch {
	case err == nil:
		s.logger.Info("Balance adjusted", append(attrs, slog.Int64("transaction_id", entry.ID))...)
		return nil
	case errors.Is(err, repository.ErrWalletNotFound):
		s.logger.Warn("Adjustment failed: wallet not found", attrs...)
	case errors.Is(err, ErrInsufficientFunds):
		s.logger.Warn("Adjustment failed: insufficient funds", attrs...)
	case errors.Is(err, ErrInternalInconsistency):
		s.logger.Error("Adjustment failed: internal inconsistency", append(attrs, slog.Any("err", err))...)
	default:
		s.logger.Error("Adjustment failed: unknown error", append(attrs, slog.Any("err", err))...)
	}
	return err
}

func (s *WalletService) GetTransactions(
	ctx context.Context,
	walletID string,
	pageNumber, pageSize int,
) (models.TransactionsPage, error) {
	if pageNumber < 1 {
		return models.TransactionsPage{}, ErrInvalidPageNumber
	}
	if pageSize < 1 {
		return models.TransactionsPage{}, ErrInvalidPageSize
	}

	txns, total, err := s.store.ListTransactions(ctx, walletID, pageOffset(pageNumber, pageSize), int64(pageSize))
	if err != nil {
		s.logger.Error("GetTransactions failed",
			slog.String("wallet_id", walletID),
			slog.Int("page", pageNumber),
			slog.Int("size", pageSize),
			slog.Any("err", err),
		)
		return models.TransactionsPage{}, err
	}
	if txns == nil {
		txns = []models.Transaction{}
	}

	return models.TransactionsPage{
		WalletID:         walletID,
		TotalElements:    total,
		TotalPages:       totalPages(total, pageSize),
		PageNumber:       pageNumber,
		NumberOfElements: len(txns),
		Transactions:     txns,
	}, nil
}

// Reconcile compares the stored balance with the sum of the ledger. A mismatch
// is reported and logged, never repaired.
func (s *WalletService) Reconcile(ctx context.Context, walletID string) (models.Reconciliation, error) {
	balance, sum, err := s.store.SumTransactions(ctx, walletID)
	if err != nil {
		if errors.Is(err, repository.ErrWalletNotFound) {
			return models.Reconciliation{}, repository.ErrWalletNotFound
		}
		s.logger.Error("Reconcile failed",
			slog.String("wallet_id", walletID),
			slog.Any("err", err),
		)
		return models.Reconciliation{}, err
	}

	rec := models.Reconciliation{
		WalletID:       walletID,
		BalancePence:   balance,
		LedgerSumPence: sum,
		Consistent:     balance == sum,
	}
	if !rec.Consistent {
		s.logger.Error("Balance reconciliation failed",
			slog.String("wallet_id", walletID),
			slog.Int64("balance_pence", balance),
			slog.Int64("ledger_sum_pence", sum),
			slog.Int64("difference_pence", balance-sum),
		)
	}
	return rec, nil
}

func (s *WalletService) rejected(op, walletID string, amountPence int64, reason error) {
	s.logger.Warn(op+" rejected",
		slog.String("wallet_id", walletID),
		slog.Int64("amount_pence", amountPence),
		slog.String("reason", reason.Error()),
	)
}

// pageOffset saturates at math.MaxInt64 so that a page number far past the
// end still reads as an empty page instead of wrapping to a negative offset.
func pageOffset(pageNumber, pageSize int) int64 {
	skipped, size := int64(pageNumber-1), int64(pageSize)
	if skipped > math.MaxInt64/size {
		return math.MaxInt64
	}
	return skipped * size
}

func totalPages(total int64, pageSize int) int {
	size := int64(pageSize)
	return int((total + size - 1) / size)
}
