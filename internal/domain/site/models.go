package site

import "time"

type Site struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"orgId"`
	Name      string    `json:"name"`
	Location  string    `json:"location,omitempty"`
	Status    string    `json:"status"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Member struct {
	UserID  string    `json:"userId"`
	Name    string    `json:"name"`
	Role    int       `json:"role"`
	AddedAt time.Time `json:"addedAt"`
}

const (
	StatusActive   = "active"
	StatusArchived = "archived"
)
