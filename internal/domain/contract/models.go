package contract

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusActive     = "active"
	StatusCompleted  = "completed"
	StatusTerminated = "terminated"
)

func ValidStatus(status string) bool {
	switch status {
	case StatusActive, StatusCompleted, StatusTerminated:
		return true
	}
	return false
}

// CanTransition permits closing an active contract either way; closed
// contracts stay closed.
func CanTransition(from, to string) bool {
	return from == StatusActive && (to == StatusCompleted || to == StatusTerminated)
}

type Contract struct {
	ID         string          `json:"id"`
	OrgID      string          `json:"orgId"`
	WorkerID   string          `json:"workerId"`
	SiteID     *string         `json:"siteId,omitempty"`
	Title      string          `json:"title"`
	TotalValue decimal.Decimal `json:"totalValue"`
	Status     string          `json:"status"`
	CreatedBy  string          `json:"createdBy"`
	CreatedAt  time.Time       `json:"createdAt"`
}

type CreateInput struct {
	WorkerID   string          `json:"workerId"`
	SiteID     string          `json:"siteId"`
	Title      string          `json:"title"`
	TotalValue decimal.Decimal `json:"totalValue"`
}

type PaymentInput struct {
	AllocationID string          `json:"allocationId"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description"`
}

type ListFilter struct {
	WorkerID  string
	WorkerIDs []string
	SiteID    string
	Status    string
}

// Position is a contract plus how much of it has been paid out.
type Position struct {
	Contract  Contract        `json:"contract"`
	Paid      decimal.Decimal `json:"paid"`
	Remaining decimal.Decimal `json:"remaining"`
}
