package wallet

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInvalidReference    = errors.New("reference must not be empty")
)

// InsufficientBalanceError carries the shortfall so callers can prompt the
// user to top up by the exact missing amount. It unwraps to
// ErrInsufficientBalance for errors.Is checks.
type InsufficientBalanceError struct {
	BalanceKobo int64
	AmountKobo  int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: have %d kobo, need %d kobo", e.BalanceKobo, e.AmountKobo)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

func (e *InsufficientBalanceError) Shortfall() int64 {
	return e.AmountKobo - e.BalanceKobo
}
