package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Wallet struct {
	ID           string `db:"id" json:"id"`
	CustomerID   string `db:"customer_id" json:"customerId"`
	BalancePence int64  `db:"balance_pence" json:"balancePence"`
}

// Balance renders the balance in major currency units.
func (w Wallet) Balance() decimal.Decimal {
	return PenceToDecimal(w.BalancePence)
}

type Transaction struct {
	ID          int64     `db:"id" json:"id"`
	WalletID    string    `db:"wallet_id" json:"-"`
	AmountPence int64     `db:"amount_pence" json:"amountPence"`
	Created     time.Time `db:"created" json:"created"`
}

// TransactionsPage is one page of a wallet's ledger, ordered by transaction id.
// PageNumber is 1-based.
type TransactionsPage struct {
	WalletID         string        `json:"walletId"`
	TotalElements    int64         `json:"totalElements"`
	TotalPages       int           `json:"totalPages"`
	PageNumber       int           `json:"pageNumber"`
	NumberOfElements int           `json:"numberOfElements"`
	Transactions     []Transaction `json:"transactions"`
}

type Reconciliation struct {
	WalletID       string `json:"walletId"`
	BalancePence   int64  `json:"balancePence"`
	LedgerSumPence int64  `json:"ledgerSumPence"`
	Consistent     bool   `json:"consistent"`
}

func PenceToDecimal(pence int64) decimal.Decimal {
	return decimal.New(pence, -2)
}
