package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAmount is thrown when requesting an operation for a null amount
	ErrInvalidAmount = errors.New("amount must be greater than zero")
	// ErrAmountBelowReserve is thrown when a full-balance request cannot cover the fee reserve
	ErrAmountBelowReserve = errors.New("requested amount does not cover the fee reserve")
	// ErrInvalidRecipient ...
	ErrInvalidRecipient = errors.New("recipient address must not be null")
	// ErrInsufficientGas is thrown when neither pool can cover the native gas for a token operation
	ErrInsufficientGas = errors.New("insufficient native balance to cover network fees")
	// ErrInvalidTransition is thrown on an illegal flow status change
	ErrInvalidTransition = errors.New("illegal flow status transition")
	// ErrAddressNotFound ...
	ErrAddressNotFound = errors.New("derived address not found")
)

// InsufficientFundsError is returned by Reconcile when the combined public and
// private balances cannot cover the requested amount. It carries the exact
// shortfall so callers can report it without re-deriving balances.
type InsufficientFundsError struct {
	Required  uint64
	Available uint64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf(
		"insufficient funds: required %d, available %d (short %d)",
		e.Required, e.Available, e.Shortfall(),
	)
}

// Shortfall returns the missing amount in base units, zero when the balances
// actually cover the request.
func (e *InsufficientFundsError) Shortfall() uint64 {
	if e.Available >= e.Required {
		return 0
	}
	return e.Required - e.Available
}
