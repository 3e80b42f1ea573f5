package expense

import (
	"context"
	"strings"
	"time"

	"siteledger/internal/domain/identity"
	"siteledger/internal/domain/wallet"
)

const dateLayout = "2006-01-02"

type SiteChecker interface {
	Exists(ctx context.Context, orgID, siteID string) (bool, error)
}

type Service struct {
	Store  *Store
	Wallet *wallet.Service
	Users  *identity.Service
	Sites  SiteChecker
}

func NewService(store *Store, walletSvc *wallet.Service, users *identity.Service, sites SiteChecker) *Service {
	return &Service{Store: store, Wallet: walletSvc, Users: users, Sites: sites}
}

// Create records an expense against the caller. Naming an allocation runs
// the availability gate and the insert in one transaction, so the check
// still holds when the row lands.
func (s *Service) Create(ctx context.Context, caller identity.UserContext, in CreateInput) (Expense, error) {
	if !in.Amount.IsPositive() {
		return Expense{}, invalidError("amount must be positive")
	}
	if !ValidCategory(in.Category) {
		return Expense{}, invalidError("unknown expense category")
	}

	expenseDate, err := parseDate(in.ExpenseDate)
	if err != nil {
		return Expense{}, err
	}

	var siteID *string
	if trimmed := strings.TrimSpace(in.SiteID); trimmed != "" {
		ok, err := s.Sites.Exists(ctx, caller.OrgID, trimmed)
		if err != nil {
			return Expense{}, err
		}
		if !ok {
			return Expense{}, invalidError("site not found")
		}
		siteID = &trimmed
	}

	e := Expense{
		OrgID:       caller.OrgID,
		SiteID:      siteID,
		UserID:      caller.UserID,
		Category:    in.Category,
		Amount:      in.Amount,
		Description: strings.TrimSpace(in.Description),
		ExpenseDate: expenseDate,
		Status:      StatusRecorded,
	}
	if trimmed := strings.TrimSpace(in.AllocationID); trimmed != "" {
		e.AllocationID = &trimmed
	}

	tx, err := s.Store.Begin(ctx)
	if err != nil {
		return Expense{}, err
	}
	defer tx.Rollback(ctx)

	if e.AllocationID != nil {
		if err := s.Wallet.RequireAvailableTx(ctx, tx, caller.OrgID, *e.AllocationID, in.Amount); err != nil {
			return Expense{}, err
		}
	}

	created, err := s.Store.CreateTx(ctx, tx, e)
	if err != nil {
		return Expense{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Expense{}, err
	}
	return created, nil
}

func (s *Service) Get(ctx context.Context, caller identity.UserContext, id string) (Expense, error) {
	e, err := s.Store.Get(ctx, caller.OrgID, id)
	if err != nil {
		return Expense{}, err
	}
	allowed, err := s.Users.CanActOn(ctx, caller, e.UserID)
	if err != nil {
		return Expense{}, err
	}
	if !allowed {
		return Expense{}, ErrForbidden
	}
	return e, nil
}

func (s *Service) List(ctx context.Context, caller identity.UserContext, filter ListFilter) ([]Expense, error) {
	if caller.Role == identity.RoleDeveloper {
		return s.Store.List(ctx, caller.OrgID, filter)
	}
	if filter.UserID != "" {
		allowed, err := s.Users.CanActOn(ctx, caller, filter.UserID)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, ErrForbidden
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

// Delete is a developer correction; the wallet and allocation aggregates
// recompute without the row on the next read.
func (s *Service) Delete(ctx context.Context, caller identity.UserContext, id string) error {
	if caller.Role != identity.RoleDeveloper {
		return ErrForbidden
	}
	if _, err := s.Store.Get(ctx, caller.OrgID, id); err != nil {
		return err
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
		return time.Time{}, invalidError("expense date must be YYYY-MM-DD")
	}
	return parsed, nil
}
