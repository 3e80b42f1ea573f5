package identity

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID        string          `json:"id"`
	OrgID     string          `json:"orgId"`
	ParentID  *string         `json:"parentId,omitempty"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Phone     string          `json:"phone,omitempty"`
	Role      int             `json:"role"`
	RoleLabel string          `json:"roleLabel"`
	DailyWage decimal.Decimal `json:"dailyWage"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// UserContext is the authenticated caller as seen by services and handlers.
type UserContext struct {
	UserID string
	OrgID  string
	Role   int
}

type CreateUserInput struct {
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Phone     string          `json:"phone"`
	Password  string          `json:"password"`
	Role      int             `json:"role"`
	ParentID  string          `json:"parentId"`
	DailyWage decimal.Decimal `json:"dailyWage"`
}

type UpdateUserInput struct {
	Name      *string          `json:"name"`
	Phone     *string          `json:"phone"`
	ParentID  *string          `json:"parentId"`
	DailyWage *decimal.Decimal `json:"dailyWage"`
	Status    *string          `json:"status"`
}

type ListFilter struct {
	Role     int
	ParentID string
	Status   string
}
