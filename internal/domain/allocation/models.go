package allocation

import (
	"time"

	"github.com/shopspring/decimal"
)

// Allocation moves funds to a user. A nil FromUserID means the money comes
// from the organization's capital pool rather than another user's wallet.
type Allocation struct {
	ID          string          `json:"id"`
	OrgID       string          `json:"orgId"`
	FromUserID  *string         `json:"fromUserId,omitempty"`
	ToUserID    string          `json:"toUserId"`
	SiteID      *string         `json:"siteId,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Purpose     string          `json:"purpose,omitempty"`
	Status      string          `json:"status"`
	CreatedBy   string          `json:"createdBy"`
	DisbursedAt *time.Time      `json:"disbursedAt,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

type CreateInput struct {
	FromUserID string          `json:"fromUserId"`
	ToUserID   string          `json:"toUserId"`
	SiteID     string          `json:"siteId"`
	Amount     decimal.Decimal `json:"amount"`
	Purpose    string          `json:"purpose"`
	FromPool   bool            `json:"fromPool"`
}

type ListFilter struct {
	FromUserID string
	ToUserID   string
	SiteID     string
	Status     string
	FromPool   bool
}
