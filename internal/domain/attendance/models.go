package attendance

import (
	"time"

	"github.com/shopspring/decimal"
)

// Record is one worker's mark for one day. DayUnits is 1 for present, 0.5
// for a half day, 0 for absent; LedgerEntryID points at the pending salary
// accrual the mark produced, when it produced one.
type Record struct {
	ID            string          `json:"id"`
	OrgID         string          `json:"orgId"`
	WorkerID      string          `json:"workerId"`
	SiteID        string          `json:"siteId"`
	Date          time.Time       `json:"date"`
	DayUnits      decimal.Decimal `json:"dayUnits"`
	LedgerEntryID *string         `json:"ledgerEntryId,omitempty"`
	MarkedBy      string          `json:"markedBy"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

type MarkInput struct {
	WorkerID string          `json:"workerId"`
	SiteID   string          `json:"siteId"`
	Date     string          `json:"date"`
	DayUnits decimal.Decimal `json:"dayUnits"`
}

type ListFilter struct {
	WorkerID  string
	WorkerIDs []string
	SiteID    string
	From      *time.Time
	To        *time.Time
}

// Summary totals one worker's marks over a window.
type Summary struct {
	WorkerID   string          `json:"workerId"`
	TotalUnits decimal.Decimal `json:"totalUnits"`
	DaysMarked int             `json:"daysMarked"`
}
