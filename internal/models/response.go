package models

type WalletResponse struct {
	ID           string `json:"id"`
	CustomerID   string `json:"customerId"`
	BalancePence int64  `json:"balancePence"`
	Balance      string `json:"balance"`
}

func NewWalletResponse(w Wallet) WalletResponse {
	return WalletResponse{
		ID:           w.ID,
		CustomerID:   w.CustomerID,
		BalancePence: w.BalancePence,
		Balance:      w.Balance().StringFixed(2),
	}
}
