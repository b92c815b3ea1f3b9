package service

import "errors"

// ValidationError is a caller-input fault. It is always returned before any
// store mutation takes place.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

var (
	ErrAmountBelowMinimum     = &ValidationError{Reason: "amount is below minimum"}
	ErrAmountAboveMaximum     = &ValidationError{Reason: "amount is above maximum"}
	ErrWithdrawalAboveMaximum = &ValidationError{Reason: "amount is above withdrawal maximum"}
	ErrNegativeWithdrawal     = &ValidationError{Reason: "cannot withdraw negative amount"}
	ErrZeroWithdrawal         = &ValidationError{Reason: "cannot withdraw zero amount"}
	ErrInsufficientFunds      = &ValidationError{Reason: "withdrawal amount must not exceed balance"}
	ErrInvalidPageNumber      = &ValidationError{Reason: "minimum page number is 1"}
	ErrInvalidPageSize        = &ValidationError{Reason: "minimum page size is 1"}
	ErrCustomerIDRequired     = &ValidationError{Reason: "customer id is required"}
)

// ErrInternalInconsistency marks a debit whose balance update matched no row
// although the wallet was found moments earlier.
var ErrInternalInconsistency = errors.New("internal inconsistency")

func IsValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}
