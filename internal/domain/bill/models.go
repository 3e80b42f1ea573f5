package bill

import (
	"time"

	"github.com/shopspring/decimal"
)

type Bill struct {
	ID            string          `json:"id"`
	OrgID         string          `json:"orgId"`
	SiteID        *string         `json:"siteId,omitempty"`
	UserID        string          `json:"userId"`
	VendorName    string          `json:"vendorName"`
	GSTIN         string          `json:"gstin,omitempty"`
	BillNumber    string          `json:"billNumber"`
	BillDate      time.Time       `json:"billDate"`
	TaxableAmount decimal.Decimal `json:"taxableAmount"`
	GSTRate       decimal.Decimal `json:"gstRate"`
	GSTAmount     decimal.Decimal `json:"gstAmount"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	AllocationID  *string         `json:"allocationId,omitempty"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type CreateInput struct {
	SiteID        string          `json:"siteId"`
	VendorName    string          `json:"vendorName"`
	GSTIN         string          `json:"gstin"`
	BillNumber    string          `json:"billNumber"`
	BillDate      string          `json:"billDate"`
	TaxableAmount decimal.Decimal `json:"taxableAmount"`
	GSTRate       *decimal.Decimal `json:"gstRate"`
	AllocationID  string          `json:"allocationId"`
	Status        string          `json:"status"`
}

type ListFilter struct {
	UserID  string
	UserIDs []string
	SiteID  string
	Status  string
	From    *time.Time
	To      *time.Time
}
