package bill

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"siteledger/internal/domain/identity"
	"siteledger/internal/domain/wallet"
)

const dateLayout = "2006-01-02"

type SiteChecker interface {
	Exists(ctx context.Context, orgID, siteID string) (bool, error)
}

type Service struct {
	Store       *Store
	Wallet      *wallet.Service
	Users       *identity.Service
	Sites       SiteChecker
	DefaultRate decimal.Decimal
}

func NewService(store *Store, walletSvc *wallet.Service, users *identity.Service, sites SiteChecker, defaultRate decimal.Decimal) *Service {
	return &Service{Store: store, Wallet: walletSvc, Users: users, Sites: sites, DefaultRate: defaultRate}
}

// Create records a GST bill for the caller. Tax figures are derived, never
// accepted from the client. A named allocation is gated on the bill total
// in the same transaction as the insert.
func (s *Service) Create(ctx context.Context, caller identity.UserContext, in CreateInput) (Bill, error) {
	if !identity.RoleAtLeast(caller.Role, identity.RoleSupervisor) {
		return Bill{}, ErrForbidden
	}
	if strings.TrimSpace(in.VendorName) == "" {
		return Bill{}, invalidError("vendor name is required")
	}
	if strings.TrimSpace(in.BillNumber) == "" {
		return Bill{}, invalidError("bill number is required")
	}
	if !in.TaxableAmount.IsPositive() {
		return Bill{}, invalidError("taxable amount must be positive")
	}

	rate := s.DefaultRate
	if in.GSTRate != nil {
		rate = *in.GSTRate
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return Bill{}, invalidError("gst rate must be between 0 and 100")
	}

	status := StatusDraft
	if trimmed := strings.TrimSpace(in.Status); trimmed != "" {
		if !ValidStatus(trimmed) {
			return Bill{}, invalidError("unknown bill status")
		}
		status = trimmed
	}

	billDate, err := parseDate(in.BillDate)
	if err != nil {
		return Bill{}, err
	}

	var siteID *string
	if trimmed := strings.TrimSpace(in.SiteID); trimmed != "" {
		ok, err := s.Sites.Exists(ctx, caller.OrgID, trimmed)
		if err != nil {
			return Bill{}, err
		}
		if !ok {
			return Bill{}, invalidError("site not found")
		}
		siteID = &trimmed
	}

	gst, total := ComputeGST(in.TaxableAmount, rate)
	b := Bill{
		OrgID:         caller.OrgID,
		SiteID:        siteID,
		UserID:        caller.UserID,
		VendorName:    strings.TrimSpace(in.VendorName),
		GSTIN:         strings.TrimSpace(in.GSTIN),
		BillNumber:    strings.TrimSpace(in.BillNumber),
		BillDate:      billDate,
		TaxableAmount: in.TaxableAmount,
		GSTRate:       rate,
		GSTAmount:     gst,
		TotalAmount:   total,
		Status:        status,
	}
	if trimmed := strings.TrimSpace(in.AllocationID); trimmed != "" {
		b.AllocationID = &trimmed
	}

	tx, err := s.Store.Begin(ctx)
	if err != nil {
		return Bill{}, err
	}
	defer tx.Rollback(ctx)

	if b.AllocationID != nil {
		if err := s.Wallet.RequireAvailableTx(ctx, tx, caller.OrgID, *b.AllocationID, b.TotalAmount); err != nil {
			return Bill{}, err
		}
	}

	created, err := s.Store.CreateTx(ctx, tx, b)
	if err != nil {
		return Bill{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Bill{}, err
	}
	return created, nil
}

// Transition moves a bill draft→credited→paid. The flip that first makes
// the bill count against balances re-runs the allocation gate under the
// bill row lock.
func (s *Service) Transition(ctx context.Context, caller identity.UserContext, id, target string) (Bill, error) {
	if !ValidStatus(target) || target == StatusDraft {
		return Bill{}, ErrInvalidTransition
	}

	tx, err := s.Store.Begin(ctx)
	if err != nil {
		return Bill{}, err
	}
	defer tx.Rollback(ctx)

	b, err := s.Store.GetForUpdateTx(ctx, tx, caller.OrgID, id)
	if err != nil {
		return Bill{}, err
	}
	if err := s.authorize(ctx, caller, b.UserID); err != nil {
		return Bill{}, err
	}
	if !CanTransition(b.Status, target) {
		return Bill{}, ErrInvalidTransition
	}

	if b.AllocationID != nil && !Counted(b.Status) && Counted(target) {
		if err := s.Wallet.RequireAvailableTx(ctx, tx, caller.OrgID, *b.AllocationID, b.TotalAmount); err != nil {
			return Bill{}, err
		}
	}

	updated, err := s.Store.UpdateStatusTx(ctx, tx, caller.OrgID, id, target)
	if err != nil {
		return Bill{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Bill{}, err
	}
	return updated, nil
}

func (s *Service) Get(ctx context.Context, caller identity.UserContext, id string) (Bill, error) {
	b, err := s.Store.Get(ctx, caller.OrgID, id)
	if err != nil {
		return Bill{}, err
	}
	if err := s.authorize(ctx, caller, b.UserID); err != nil {
		return Bill{}, err
	}
	return b, nil
}

func (s *Service) authorize(ctx context.Context, caller identity.UserContext, ownerID string) error {
	if ownerID == caller.UserID {
		return nil
	}
	allowed, err := s.Users.CanActOn(ctx, caller, ownerID)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrForbidden
	}
	return nil
}

func (s *Service) List(ctx context.Context, caller identity.UserContext, filter ListFilter) ([]Bill, error) {
	if caller.Role == identity.RoleDeveloper {
		return s.Store.List(ctx, caller.OrgID, filter)
	}
	if filter.UserID != "" {
		if err := s.authorize(ctx, caller, filter.UserID); err != nil {
			return nil, err
		}
		return s.Store.List(ctx, caller.OrgID, filter)
	}

	set, err := s.Users.SubordinateIDSet(ctx, caller.OrgID, caller.UserID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(set)+1)
	ids = append(ids, caller.UserID)
	for id := range set {
		ids = append(ids, id)
	}
	filter.UserIDs = ids
	return s.Store.List(ctx, caller.OrgID, filter)
}

// Delete removes draft bills only; credited and paid bills are part of the
// wallet history.
func (s *Service) Delete(ctx context.Context, caller identity.UserContext, id string) error {
	if caller.Role != identity.RoleDeveloper {
		return ErrForbidden
	}
	b, err := s.Store.Get(ctx, caller.OrgID, id)
	if err != nil {
		return err
	}
	if Counted(b.Status) {
		return ErrInvalidTransition
	}
	return s.Store.Delete(ctx, caller.OrgID, id)
}

func parseDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	parsed, err := time.Parse(dateLayout, trimmed)
	if err != nil {
		return time.Time{}, invalidError("bill date must be YYYY-MM-DD")
	}
	return parsed, nil
}
