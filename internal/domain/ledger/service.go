package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"siteledger/internal/domain/identity"
	"siteledger/internal/domain/wallet"
)

const dateLayout = "2006-01-02"

// SiteChecker confirms a site id belongs to the org before an entry is
// pinned to it.
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

// Create writes a manual ledger entry for a worker in the caller's span.
// Credits that hand out money must name a disbursed allocation and pass
// the availability gate in the same transaction as the insert; debits
// against an allocation flow back into it without a gate.
func (s *Service) Create(ctx context.Context, caller identity.UserContext, in CreateInput) (Entry, error) {
	if in.Type != TypeCredit && in.Type != TypeDebit {
		return Entry{}, invalidError("entry type must be credit or debit")
	}
	if !ManualCategory(in.Category) {
		return Entry{}, invalidError("category cannot be written directly")
	}
	if !in.Amount.IsPositive() {
		return Entry{}, invalidError("amount must be positive")
	}

	entryDate, err := parseEntryDate(in.EntryDate)
	if err != nil {
		return Entry{}, err
	}

	workerID := strings.TrimSpace(in.WorkerID)
	if workerID == "" {
		return Entry{}, invalidError("worker is required")
	}
	if workerID == caller.UserID {
		return Entry{}, ErrForbidden
	}
	if !identity.RoleAtLeast(caller.Role, identity.RoleSupervisor) {
		return Entry{}, ErrForbidden
	}
	worker, err := s.Users.Store.GetByID(ctx, caller.OrgID, workerID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, err
	}
	if worker.Role != identity.RoleWorker {
		return Entry{}, invalidError("ledger entries are kept for workers only")
	}
	allowed, err := s.Users.CanActOn(ctx, caller, workerID)
	if err != nil {
		return Entry{}, err
	}
	if !allowed {
		return Entry{}, ErrForbidden
	}

	var siteID *string
	if trimmed := strings.TrimSpace(in.SiteID); trimmed != "" {
		ok, err := s.Sites.Exists(ctx, caller.OrgID, trimmed)
		if err != nil {
			return Entry{}, err
		}
		if !ok {
			return Entry{}, invalidError("site not found")
		}
		siteID = &trimmed
	}

	allocationID := strings.TrimSpace(in.AllocationID)
	if in.Type == TypeCredit && allocationID == "" && in.Category != CategoryOther {
		return Entry{}, invalidError("credit entries of this category require a funding allocation")
	}

	e := Entry{
		OrgID:       caller.OrgID,
		WorkerID:    workerID,
		SiteID:      siteID,
		Type:        in.Type,
		Category:    in.Category,
		Amount:      in.Amount,
		Status:      StatusPaid,
		Description: strings.TrimSpace(in.Description),
		EntryDate:   entryDate,
		PaidDate:    &entryDate,
		CreatedBy:   caller.UserID,
	}
	if allocationID != "" {
		e.AllocationID = &allocationID
	}

	tx, err := s.Store.Begin(ctx)
	if err != nil {
		return Entry{}, err
	}
	defer tx.Rollback(ctx)

	if allocationID != "" {
		if in.Type == TypeCredit {
			if err := s.Wallet.RequireAvailableTx(ctx, tx, caller.OrgID, allocationID, in.Amount); err != nil {
				return Entry{}, err
			}
		} else {
			// Refunds only land on allocations that actually disbursed.
			pos, err := s.Wallet.Store.AllocationPositionForUpdateTx(ctx, tx, caller.OrgID, allocationID)
			if err != nil {
				return Entry{}, err
			}
			if pos.Status != "disbursed" {
				return Entry{}, wallet.ErrNotDisbursed
			}
		}
	}

	created, err := s.Store.CreateTx(ctx, tx, e)
	if err != nil {
		return Entry{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Entry{}, err
	}
	return created, nil
}

func (s *Service) Get(ctx context.Context, caller identity.UserContext, id string) (Entry, error) {
	e, err := s.Store.Get(ctx, caller.OrgID, id)
	if err != nil {
		return Entry{}, err
	}
	if err := s.authorizeView(ctx, caller, e.WorkerID); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func (s *Service) authorizeView(ctx context.Context, caller identity.UserContext, workerID string) error {
	if workerID == caller.UserID {
		return nil
	}
	allowed, err := s.Users.CanActOn(ctx, caller, workerID)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrForbidden
	}
	return nil
}

// List returns ledger entries the caller may see: workers their own rows,
// everyone else their span, developers the whole org.
func (s *Service) List(ctx context.Context, caller identity.UserContext, filter ListFilter) ([]Entry, error) {
	if caller.Role == identity.RoleWorker {
		filter.WorkerID = caller.UserID
		filter.WorkerIDs = nil
		return s.Store.List(ctx, caller.OrgID, filter)
	}
	if filter.WorkerID != "" {
		if err := s.authorizeView(ctx, caller, filter.WorkerID); err != nil {
			return nil, err
		}
		return s.Store.List(ctx, caller.OrgID, filter)
	}
	if caller.Role != identity.RoleDeveloper {
		set, err := s.Users.SubordinateIDSet(ctx, caller.OrgID, caller.UserID)
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(set)+1)
		ids = append(ids, caller.UserID)
		for id := range set {
			ids = append(ids, id)
		}
		filter.WorkerIDs = ids
	}
	return s.Store.List(ctx, caller.OrgID, filter)
}

func (s *Service) Totals(ctx context.Context, caller identity.UserContext, workerID string) (Totals, error) {
	if workerID == "" {
		workerID = caller.UserID
	}
	if err := s.authorizeView(ctx, caller, workerID); err != nil {
		return Totals{}, err
	}
	return s.Store.WorkerTotals(ctx, caller.OrgID, workerID)
}

func (s *Service) UnpaidAdvances(ctx context.Context, caller identity.UserContext, workerID string) ([]Entry, error) {
	if workerID == "" {
		workerID = caller.UserID
	}
	if err := s.authorizeView(ctx, caller, workerID); err != nil {
		return nil, err
	}
	return s.Store.UnpaidAdvances(ctx, caller.OrgID, workerID)
}

func (s *Service) PendingSalary(ctx context.Context, caller identity.UserContext, workerID string, scope Scope) ([]Entry, error) {
	if workerID == "" {
		workerID = caller.UserID
	}
	if err := s.authorizeView(ctx, caller, workerID); err != nil {
		return nil, err
	}
	return s.Store.PendingSalaryEntries(ctx, caller.OrgID, workerID, scope)
}

// Update corrects an entry. Developer-only, and settled rows keep their
// linkage: paid accruals, settlement deductions, and advances that already
// have a deduction are immutable. Raising a gated credit re-runs the
// availability gate on the difference.
func (s *Service) Update(ctx context.Context, caller identity.UserContext, id string, in UpdateInput) (Entry, error) {
	if caller.Role != identity.RoleDeveloper {
		return Entry{}, ErrForbidden
	}

	tx, err := s.Store.Begin(ctx)
	if err != nil {
		return Entry{}, err
	}
	defer tx.Rollback(ctx)

	e, err := s.Store.GetForUpdateTx(ctx, tx, caller.OrgID, id)
	if err != nil {
		return Entry{}, err
	}
	if err := s.refuseSettled(ctx, e); err != nil {
		return Entry{}, err
	}

	original := e.Amount
	if in.Amount != nil {
		if !in.Amount.IsPositive() {
			return Entry{}, invalidError("amount must be positive")
		}
		e.Amount = *in.Amount
	}
	if in.Description != nil {
		e.Description = strings.TrimSpace(*in.Description)
	}
	if in.EntryDate != nil {
		parsed, err := parseEntryDate(*in.EntryDate)
		if err != nil {
			return Entry{}, err
		}
		e.EntryDate = parsed
	}

	if e.Type == TypeCredit && e.AllocationID != nil && e.Amount.GreaterThan(original) {
		delta := e.Amount.Sub(original)
		if err := s.Wallet.RequireAvailableTx(ctx, tx, caller.OrgID, *e.AllocationID, delta); err != nil {
			return Entry{}, err
		}
	}

	updated, err := s.Store.UpdateTx(ctx, tx, e)
	if err != nil {
		return Entry{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Entry{}, err
	}
	return updated, nil
}

// Delete removes an entry that settlement has not touched. A foreign key
// backs up the advance check in case a settlement lands between read and
// delete.
func (s *Service) Delete(ctx context.Context, caller identity.UserContext, id string) error {
	if caller.Role != identity.RoleDeveloper {
		return ErrForbidden
	}
	e, err := s.Store.Get(ctx, caller.OrgID, id)
	if err != nil {
		return err
	}
	if err := s.refuseSettled(ctx, e); err != nil {
		return err
	}
	return s.Store.Delete(ctx, caller.OrgID, id)
}

func (s *Service) refuseSettled(ctx context.Context, e Entry) error {
	if e.Category == CategoryPendingSalary && e.Status == StatusPaid {
		return ErrSettled
	}
	if e.Category == CategoryDeduction && e.LinkedAdvanceID != nil {
		return ErrSettled
	}
	if e.Category == CategoryAdvance {
		deducted, err := s.Store.DeductionExists(ctx, e.OrgID, e.ID)
		if err != nil {
			return err
		}
		if deducted {
			return ErrAlreadyDeducted
		}
	}
	return nil
}

func parseEntryDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	parsed, err := time.Parse(dateLayout, trimmed)
	if err != nil {
		return time.Time{}, invalidError("entry date must be YYYY-MM-DD")
	}
	return parsed, nil
}
