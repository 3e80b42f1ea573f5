package settlement

import (
	"time"

	"github.com/shopspring/decimal"
)

// Options narrows which pending accruals a settlement run picks up.
type Options struct {
	SiteID string
	From   *time.Time
	To     *time.Time
}

// Summary reports what one worker's settlement did.
type Summary struct {
	WorkerID         string          `json:"workerId"`
	AllocationID     string          `json:"allocationId"`
	Gross            decimal.Decimal `json:"gross"`
	Advances         decimal.Decimal `json:"advances"`
	NetPaid          decimal.Decimal `json:"netPaid"`
	EntriesPaid      int             `json:"entriesPaid"`
	AdvancesDeducted int             `json:"advancesDeducted"`
	PaidEntryIDs     []string        `json:"paidEntryIds"`
	DeductionIDs     []string        `json:"deductionIds"`
	SalaryEntryID    *string         `json:"salaryEntryId,omitempty"`
	PaidDate         time.Time       `json:"paidDate"`
}

const (
	SkipOutsideSpan = "outside_span"
	SkipNotFound    = "not_found"
	SkipNotWorker   = "not_a_worker"
	SkipNoPending   = "no_pending_entries"
)

// Skip records a worker a bulk run passed over and why.
type Skip struct {
	WorkerID string `json:"workerId"`
	Reason   string `json:"reason"`
}

type BulkSummary struct {
	Settled       []Summary       `json:"settled"`
	Skipped       []Skip          `json:"skipped"`
	WorkersPaid   int             `json:"workersPaid"`
	TotalGross    decimal.Decimal `json:"totalGross"`
	TotalAdvances decimal.Decimal `json:"totalAdvances"`
	TotalNet      decimal.Decimal `json:"totalNet"`
}
