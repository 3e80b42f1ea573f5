package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

type Entry struct {
	ID              string          `json:"id"`
	OrgID           string          `json:"orgId"`
	WorkerID        string          `json:"workerId"`
	SiteID          *string         `json:"siteId,omitempty"`
	Type            string          `json:"type"`
	Category        string          `json:"category"`
	Amount          decimal.Decimal `json:"amount"`
	Status          string          `json:"status"`
	AllocationID    *string         `json:"allocationId,omitempty"`
	LinkedAdvanceID *string         `json:"linkedAdvanceId,omitempty"`
	ContractID      *string         `json:"contractId,omitempty"`
	Description     string          `json:"description,omitempty"`
	EntryDate       time.Time       `json:"entryDate"`
	PaidDate        *time.Time      `json:"paidDate,omitempty"`
	CreatedBy       string          `json:"createdBy"`
	CreatedAt       time.Time       `json:"createdAt"`
}

type CreateInput struct {
	WorkerID     string          `json:"workerId"`
	SiteID       string          `json:"siteId"`
	Type         string          `json:"type"`
	Category     string          `json:"category"`
	Amount       decimal.Decimal `json:"amount"`
	AllocationID string          `json:"allocationId"`
	Description  string          `json:"description"`
	EntryDate    string          `json:"entryDate"`
}

type UpdateInput struct {
	Amount      *decimal.Decimal `json:"amount"`
	Description *string          `json:"description"`
	EntryDate   *string          `json:"entryDate"`
}

type ListFilter struct {
	WorkerID  string
	WorkerIDs []string
	SiteID    string
	Type      string
	Category  string
	Status    string
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// Scope narrows a settlement run to a site and/or date window.
type Scope struct {
	SiteID string
	From   *time.Time
	To     *time.Time
}

// Totals summarizes one worker's ledger. Balance counts cash that actually
// moved; accrued pending salary and undeducted advances ride alongside.
type Totals struct {
	WorkerID       string          `json:"workerId"`
	Credits        decimal.Decimal `json:"credits"`
	Debits         decimal.Decimal `json:"debits"`
	Balance        decimal.Decimal `json:"balance"`
	PendingSalary  decimal.Decimal `json:"pendingSalary"`
	UnpaidAdvances decimal.Decimal `json:"unpaidAdvances"`
}
