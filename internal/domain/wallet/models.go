package wallet

import "github.com/shopspring/decimal"

// Balance is a user's wallet, recomputed from source records on every read.
type Balance struct {
	UserID       string          `json:"userId"`
	Received     decimal.Decimal `json:"received"`
	Expenses     decimal.Decimal `json:"expenses"`
	Bills        decimal.Decimal `json:"bills"`
	LedgerOut    decimal.Decimal `json:"ledgerOut"`
	SubAllocated decimal.Decimal `json:"subAllocated"`
	Spent        decimal.Decimal `json:"spent"`
	Balance      decimal.Decimal `json:"balance"`
}

// AllocationBalance is the spend position of a single allocation.
type AllocationBalance struct {
	AllocationID string          `json:"allocationId"`
	Allocated    decimal.Decimal `json:"allocated"`
	Utilized     decimal.Decimal `json:"utilized"`
	Remaining    decimal.Decimal `json:"remaining"`
}

// Availability is the fail-closed answer to "can amount be spent from this
// allocation right now". Message values are stable.
type Availability struct {
	Available bool            `json:"available"`
	Balance   decimal.Decimal `json:"balance"`
	Message   string          `json:"message"`
}

const (
	MsgAvailable          = "available"
	MsgAllocationNotFound = "allocation not found"
	MsgNotDisbursed       = "allocation is not disbursed"
	MsgInsufficientFunds  = "insufficient allocation balance"
)
