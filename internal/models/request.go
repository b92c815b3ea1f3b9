package models

type CreateWalletRequest struct {
	CustomerID string `json:"customerId" binding:"required"`
}

// AmountPence is a pointer so that an explicit zero is told apart from a missing field.
type BalanceAdjustmentRequest struct {
	AmountPence *int64 `json:"amountPence" binding:"required"`
}

type TransactionsQuery struct {
	Page *int `form:"page"`
	Size *int `form:"size"`
}
