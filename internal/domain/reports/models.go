package reports

import (
	"time"

	"github.com/shopspring/decimal"
)

// RegisterRow is one line of an allocation's settlement register: every
// ledger entry that drew on or refunded the allocation.
type RegisterRow struct {
	EntryID    string          `json:"entryId"`
	WorkerID   string          `json:"workerId"`
	WorkerName string          `json:"workerName"`
	Type       string          `json:"type"`
	Category   string          `json:"category"`
	Amount     decimal.Decimal `json:"amount"`
	Status     string          `json:"status"`
	EntryDate  time.Time       `json:"entryDate"`
	PaidDate   *time.Time      `json:"paidDate,omitempty"`
}

// StatementRow is one line of a worker's ledger statement.
type StatementRow struct {
	EntryID     string          `json:"entryId"`
	Type        string          `json:"type"`
	Category    string          `json:"category"`
	Description string          `json:"description,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	EntryDate   time.Time       `json:"entryDate"`
}

// ReceiptData is everything a payment receipt PDF needs.
type ReceiptData struct {
	OrgName     string
	EntryID     string
	WorkerName  string
	WorkerEmail string
	Category    string
	Description string
	Amount      decimal.Decimal
	EntryDate   time.Time
	PaidDate    *time.Time
	CreatedBy   string
}
