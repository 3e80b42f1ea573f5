package attendance

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"siteledger/internal/domain/identity"
	"siteledger/internal/domain/ledger"
)

const dateLayout = "2006-01-02"

type SiteChecker interface {
	Exists(ctx context.Context, orgID, siteID string) (bool, error)
}

type Service struct {
	Store  *Store
	Ledger *ledger.Store
	Users  *identity.Service
	Sites  SiteChecker
}

func NewService(store *Store, ledgerStore *ledger.Store, users *identity.Service, sites SiteChecker) *Service {
	return &Service{Store: store, Ledger: ledgerStore, Users: users, Sites: sites}
}

func validUnits(units decimal.Decimal) bool {
	return units.IsZero() ||
		units.Equal(decimal.NewFromFloat(0.5)) ||
		units.Equal(decimal.NewFromInt(1))
}

// Mark records a worker's day and accrues pending salary of daily wage
// times units in the same transaction. Marking a day again replaces the
// prior accrual while it is still pending; once a settlement has paid it
// the mark is frozen.
func (s *Service) Mark(ctx context.Context, caller identity.UserContext, in MarkInput) (Record, error) {
	if !identity.RoleAtLeast(caller.Role, identity.RoleSupervisor) {
		return Record{}, ErrForbidden
	}
	if !validUnits(in.DayUnits) {
		return Record{}, ErrInvalidUnits
	}

	date, err := parseDate(in.Date)
	if err != nil {
		return Record{}, err
	}

	workerID := strings.TrimSpace(in.WorkerID)
	if workerID == "" {
		return Record{}, invalidError("worker is required")
	}
	worker, err := s.Users.Store.GetByID(ctx, caller.OrgID, workerID)
	if err != nil {
		return Record{}, err
	}
	if worker.Role != identity.RoleWorker {
		return Record{}, invalidError("attendance is marked for workers only")
	}
	allowed, err := s.Users.CanActOn(ctx, caller, workerID)
	if err != nil {
		return Record{}, err
	}
	if !allowed {
		return Record{}, ErrForbidden
	}

	siteID := strings.TrimSpace(in.SiteID)
	if siteID == "" {
		return Record{}, invalidError("site is required")
	}
	ok, err := s.Sites.Exists(ctx, caller.OrgID, siteID)
	if err != nil {
		return Record{}, err
	}
	if !ok {
		return Record{}, invalidError("site not found")
	}

	tx, err := s.Store.Begin(ctx)
	if err != nil {
		return Record{}, err
	}
	defer tx.Rollback(ctx)

	existing, err := s.Store.GetForDateTx(ctx, tx, caller.OrgID, workerID, date)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Record{}, err
	}
	remarking := err == nil

	if remarking && existing.LedgerEntryID != nil {
		prior, err := s.Ledger.GetForUpdateTx(ctx, tx, caller.OrgID, *existing.LedgerEntryID)
		if err != nil && !errors.Is(err, ledger.ErrNotFound) {
			return Record{}, err
		}
		if err == nil {
			if prior.Status == ledger.StatusPaid {
				return Record{}, ErrSettled
			}
			if err := s.Ledger.DeleteTx(ctx, tx, caller.OrgID, prior.ID); err != nil {
				return Record{}, err
			}
		}
	}

	accrual := worker.DailyWage.Mul(in.DayUnits).Round(2)
	var entryID *string
	if accrual.IsPositive() {
		entry, err := s.Ledger.CreateTx(ctx, tx, ledger.Entry{
			OrgID:       caller.OrgID,
			WorkerID:    workerID,
			SiteID:      &siteID,
			Type:        ledger.TypeCredit,
			Category:    ledger.CategoryPendingSalary,
			Amount:      accrual,
			Status:      ledger.StatusPending,
			Description: "attendance accrual",
			EntryDate:   date,
			CreatedBy:   caller.UserID,
		})
		if err != nil {
			return Record{}, err
		}
		entryID = &entry.ID
	}

	record := Record{
		OrgID:         caller.OrgID,
		WorkerID:      workerID,
		SiteID:        siteID,
		Date:          date,
		DayUnits:      in.DayUnits,
		LedgerEntryID: entryID,
		MarkedBy:      caller.UserID,
	}
	var saved Record
	if remarking {
		record.ID = existing.ID
		saved, err = s.Store.UpdateTx(ctx, tx, record)
	} else {
		saved, err = s.Store.CreateTx(ctx, tx, record)
	}
	if err != nil {
		return Record{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Record{}, err
	}
	return saved, nil
}

func (s *Service) List(ctx context.Context, caller identity.UserContext, filter ListFilter) ([]Record, error) {
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

func (s *Service) Summary(ctx context.Context, caller identity.UserContext, workerID string, filter ListFilter) (Summary, error) {
	if workerID == "" {
		workerID = caller.UserID
	}
	if err := s.authorizeView(ctx, caller, workerID); err != nil {
		return Summary{}, err
	}
	return s.Store.WorkerSummary(ctx, caller.OrgID, workerID, filter)
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

func parseDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	parsed, err := time.Parse(dateLayout, trimmed)
	if err != nil {
		return time.Time{}, invalidError("date must be YYYY-MM-DD")
	}
	return parsed, nil
}
