package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"hub_wallet/internal/models"

	"github.com/mattn/go-sqlite3"
)

// WalletSQLiteRepository is the single-node ledger store. The handle is
// expected to be limited to one open connection, so transactions serialize.
type WalletSQLiteRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewWalletSQLiteRepository(db *sql.DB, logger *slog.Logger) *WalletSQLiteRepository {
	return &WalletSQLiteRepository{
		db:     db,
		logger: logger,
	}
}

func (r *WalletSQLiteRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, sqliteSchema); err != nil {
		r.logger.Error("Failed to apply schema", slog.Any("err", err))
		return fmt.Errorf("apply sqlite schema: %w", err)
	}
	return nil
}

func (r *WalletSQLiteRepository) CreateWallet(ctx context.Context, wallet models.Wallet) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO wallets (id, customer_id, balance_pence) VALUES (?, ?, ?)",
		wallet.ID, wallet.CustomerID, wallet.BalancePence,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) &&
			(sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
				sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique) {
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

func (r *WalletSQLiteRepository) GetWallet(ctx context.Context, walletID string) (models.Wallet, error) {
	wallet, err := getWalletSQLite(ctx, r.db, walletID)
	if err != nil && !errors.Is(err, ErrWalletNotFound) {
		r.logger.Error("Failed to get wallet",
			slog.String("wallet_id", walletID),
			slog.Any("err", err),
		)
	}
	return wallet, err
}

func (r *WalletSQLiteRepository) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin transaction", slog.Any("err", err))
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			r.logger.Error("Failed to rollback transaction", slog.Any("err", err))
		}
	}()

	if err := fn(&sqliteTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Failed to commit transaction", slog.Any("err", err))
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *WalletSQLiteRepository) ListTransactions(
	ctx context.Context,
	walletID string,
	offset, limit int64,
) ([]models.Transaction, int64, error) {
	var (
		total int64
		txns  []models.Transaction
	)
	err := r.read(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM transactions WHERE wallet_id = ?", walletID,
		).Scan(&total); err != nil {
			return fmt.Errorf("count transactions: %w", err)
		}

		rows, err := tx.QueryContext(ctx, `
			SELECT id, wallet_id, amount_pence, created
			FROM transactions
			WHERE wallet_id = ?
			ORDER BY id
			LIMIT ? OFFSET ?`, walletID, limit, offset)
		if err != nil {
			return fmt.Errorf("select transactions: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				t       models.Transaction
				created string
			)
			if err := rows.Scan(&t.ID, &t.WalletID, &t.AmountPence, &created); err != nil {
				return fmt.Errorf("scan transaction: %w", err)
			}
			if t.Created, err = time.Parse(time.RFC3339Nano, created); err != nil {
				return fmt.Errorf("parse created %q: %w", created, err)
			}
			txns = append(txns, t)
		}
		return rows.Err()
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

func (r *WalletSQLiteRepository) SumTransactions(ctx context.Context, walletID string) (int64, int64, error) {
	var balance, sum int64
	err := r.read(ctx, func(tx *sql.Tx) error {
		wallet, err := getWalletSQLite(ctx, tx, walletID)
		if err != nil {
			return err
		}
		balance = wallet.BalancePence
		return tx.QueryRowContext(ctx,
			"SELECT COALESCE(SUM(amount_pence), 0) FROM transactions WHERE wallet_id = ?", walletID,
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

func (r *WalletSQLiteRepository) read(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin read transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) GetWallet(ctx context.Context, walletID string) (models.Wallet, error) {
	return getWalletSQLite(ctx, t.tx, walletID)
}

func (t *sqliteTx) AdjustBalance(ctx context.Context, walletID string, delta int64) (int64, error) {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE wallets SET balance_pence = balance_pence + ?2
		WHERE id = ?1 AND balance_pence + ?2 >= 0`, walletID, delta)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintCheck {
			return 0, ErrNegativeBalance
		}
		return 0, fmt.Errorf("adjust balance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("adjust balance: %w", err)
	}
	return affected, nil
}

func (t *sqliteTx) AppendTransaction(ctx context.Context, txn models.Transaction) (models.Transaction, error) {
	res, err := t.tx.ExecContext(ctx,
		"INSERT INTO transactions (wallet_id, amount_pence, created) VALUES (?, ?, ?)",
		txn.WalletID, txn.AmountPence, txn.Created.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("append transaction: %w", err)
	}
	if txn.ID, err = res.LastInsertId(); err != nil {
		return models.Transaction{}, fmt.Errorf("append transaction: %w", err)
	}
	return txn, nil
}

type sqlQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getWalletSQLite(ctx context.Context, q sqlQuerier, walletID string) (models.Wallet, error) {
	var w models.Wallet
	err := q.QueryRowContext(ctx,
		"SELECT id, customer_id, balance_pence FROM wallets WHERE id = ?", walletID,
	).Scan(&w.ID, &w.CustomerID, &w.BalancePence)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Wallet{}, ErrWalletNotFound
	}
	if err != nil {
		return models.Wallet{}, fmt.Errorf("select wallet: %w", err)
	}
	return w, nil
}
