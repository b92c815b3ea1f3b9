package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"hub_wallet/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

type WalletPGRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewWalletPGRepository(pool *pgxpool.Pool, logger *slog.Logger) *WalletPGRepository {
	return &WalletPGRepository{
		pool:   pool,
		logger: logger,
	}
}

func (r *WalletPGRepository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, postgresSchema); err != nil {
		r.logger.Error("Failed to apply schema", slog.Any("err", err))
		return fmt.Errorf("apply postgres schema: %w", err)
	}
	return nil
}

func (r *WalletPGRepository) CreateWallet(ctx context.Context, wallet models.Wallet) error {
	_, err := r.pool.Exec(ctx,
		"INSERT INTO wallets (id, customer_id, balance_pence) VALUES ($1, $2, $3)",
		wallet.ID, wallet.CustomerID, wallet.BalancePence,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrWalletAlreadyExist
		}
		r.logger.Error("Failed to create wallet",
			slog.String("wallet_id", wallet.ID),
			slog.Any("err", err),
		)
		return err
	}
	return nil
}

func (r *WalletPGRepository) GetWallet(ctx context.Context, walletID string) (models.Wallet, error) {
	wallet, err := getWalletPG(ctx, r.pool, walletID)
	if err != nil && !errors.Is(err, ErrWalletNotFound) {
		r.logger.Error("Failed to get wallet",
			slog.String("wallet_id", walletID),
			slog.Any("err", err),
		)
	}
	return wallet, err
}

// WithinTx runs fn inside a read-committed transaction. The transaction is
// committed only when fn returns nil; every other exit path rolls it back.
func (r *WalletPGRepository) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		r.logger.Error("Failed to begin transaction", slog.Any("err", err))
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			r.logger.Error("Failed to rollback transaction", slog.Any("err", err))
		}
	}()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.Error("Failed to commit transaction", slog.Any("err", err))
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ListTransactions returns one window of the wallet's ledger ordered by id,
// together with the total number of entries. Both reads share a snapshot.
func (r *WalletPGRepository) ListTransactions(
	ctx context.Context,
	walletID string,
	offset, limit int64,
) ([]models.Transaction, int64, error) {
	var (
		total int64
		txns  []models.Transaction
	)
	err := r.readSnapshot(ctx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			"SELECT COUNT(*) FROM transactions WHERE wallet_id = $1", walletID,
		).Scan(&total); err != nil {
			return fmt.Errorf("count transactions: %w", err)
		}

		rows, err := tx.Query(ctx, `
			SELECT id, wallet_id, amount_pence, created
			FROM transactions
			WHERE wallet_id = $1
			ORDER BY id
			LIMIT $2 OFFSET $3`, walletID, limit, offset)
		if err != nil {
			return fmt.Errorf("select transactions: %w", err)
		}
		txns, err = pgx.CollectRows(rows, pgx.RowToStructByName[models.Transaction])
		if err != nil {
			return fmt.Errorf("scan transactions: %w", err)
		}
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to list transactions",
			slog.String("wallet_id", walletID),
			slog.Int64("offset", offset),
			slog.Int64("limit", limit),
			slog.Any("err", err),
		)
		return nil, 0, err
	}
	return txns, total, nil
}

// SumTransactions returns the stored balance of the wallet and the sum of its
// ledger amounts, read from the same snapshot.
func (r *WalletPGRepository) SumTransactions(ctx context.Context, walletID string) (int64, int64, error) {
	var balance, sum int64
	err := r.readSnapshot(ctx, func(tx pgx.Tx) error {
		wallet, err := getWalletPG(ctx, tx, walletID)
		if err != nil {
			return err
		}
		balance = wallet.BalancePence
		return tx.QueryRow(ctx,
			"SELECT COALESCE(SUM(amount_pence), 0)::BIGINT FROM transactions WHERE wallet_id = $1", walletID,
		).Scan(&sum)
	})
	if err != nil {
		if !errors.Is(err, ErrWalletNotFound) {
			r.logger.Error("Failed to sum transactions",
				slog.String("wallet_id", walletID),
				slog.Any("err", err),
			)
		}
		return 0, 0, err
	}
	return balance, sum, nil
}

func (r *WalletPGRepository) readSnapshot(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return fmt.Errorf("begin read transaction: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) GetWallet(ctx context.Context, walletID string) (models.Wallet, error) {
	return getWalletPG(ctx, t.tx, walletID)
}

func (t *pgTx) AdjustBalance(ctx context.Context, walletID string, delta int64) (int64, error) {
	tag, err := t.tx.Exec(ctx, `
		UPDATE wallets SET balance_pence = balance_pence + $2
		WHERE id = $1 AND balance_pence + $2 >= 0`, walletID, delta)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgCheckViolation {
			return 0, ErrNegativeBalance
		}
		return 0, fmt.Errorf("adjust balance: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (t *pgTx) AppendTransaction(ctx context.Context, txn models.Transaction) (models.Transaction, error) {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO transactions (wallet_id, amount_pence, created)
		VALUES ($1, $2, $3)
		RETURNING id, created`, txn.WalletID, txn.AmountPence, txn.Created,
	).Scan(&txn.ID, &txn.Created)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("append transaction: %w", err)
	}
	return txn, nil
}

type pgQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getWalletPG(ctx context.Context, q pgQuerier, walletID string) (models.Wallet, error) {
	var w models.Wallet
	err := q.QueryRow(ctx,
		"SELECT id, customer_id, balance_pence FROM wallets WHERE id = $1", walletID,
	).Scan(&w.ID, &w.CustomerID, &w.BalancePence)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Wallet{}, ErrWalletNotFound
	}
	if err != nil {
		return models.Wallet{}, fmt.Errorf("select wallet: %w", err)
	}
	return w, nil
}
