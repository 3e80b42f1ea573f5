package expense

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	CategoryMaterial  = "material"
	CategoryLabour    = "labour"
	CategoryTransport = "transport"
	CategoryEquipment = "equipment"
	CategoryRental    = "rental"
	CategoryFood      = "food"
	CategoryOther     = "other"
)

func ValidCategory(category string) bool {
	switch category {
	case CategoryMaterial, CategoryLabour, CategoryTransport, CategoryEquipment,
		CategoryRental, CategoryFood, CategoryOther:
		return true
	}
	return false
}

const StatusRecorded = "recorded"

type Expense struct {
	ID           string          `json:"id"`
	OrgID        string          `json:"orgId"`
	SiteID       *string         `json:"siteId,omitempty"`
	UserID       string          `json:"userId"`
	AllocationID *string         `json:"allocationId,omitempty"`
	Category     string          `json:"category"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description,omitempty"`
	ExpenseDate  time.Time       `json:"expenseDate"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"createdAt"`
}

type CreateInput struct {
	SiteID       string          `json:"siteId"`
	AllocationID string          `json:"allocationId"`
	Category     string          `json:"category"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description"`
	ExpenseDate  string          `json:"expenseDate"`
}

type ListFilter struct {
	UserID   string
	UserIDs  []string
	SiteID   string
	Category string
	From     *time.Time
	To       *time.Time
}
