package wallet

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrAllocationNotFound = errors.New("allocation not found")
	ErrNotDisbursed       = errors.New("allocation is not disbursed")
	ErrInsufficientFunds  = errors.New("insufficient allocation balance")
	ErrForbidden          = errors.New("not allowed to view this balance")
)

// InsufficientFundsError reports how much was available next to what the
// caller asked for. errors.Is(err, ErrInsufficientFunds) matches it.
type InsufficientFundsError struct {
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient allocation balance: available %s, requested %s", e.Available.String(), e.Requested.String())
}

func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}
