package contract

import (
	"context"
	"strings"
	"time"

	"siteledger/internal/domain/identity"
	"siteledger/internal/domain/ledger"
	"siteledger/internal/domain/wallet"
)

type SiteChecker interface {
	Exists(ctx context.Context, orgID, siteID string) (bool, error)
}

type Service struct {
	Store  *Store
	Ledger *ledger.Store
	Wallet *wallet.Service
	Users  *identity.Service
	Sites  SiteChecker
}

func NewService(store *Store, ledgerStore *ledger.Store, walletSvc *wallet.Service, users *identity.Service, sites SiteChecker) *Service {
	return &Service{Store: store, Ledger: ledgerStore, Wallet: walletSvc, Users: users, Sites: sites}
}

func (s *Service) Create(ctx context.Context, caller identity.UserContext, in CreateInput) (Contract, error) {
	if !identity.RoleAtLeast(caller.Role, identity.RoleSupervisor) {
		return Contract{}, ErrForbidden
	}
	if strings.TrimSpace(in.Title) == "" {
		return Contract{}, invalidError("title is required")
	}
	if !in.TotalValue.IsPositive() {
		return Contract{}, invalidError("total value must be positive")
	}

	workerID := strings.TrimSpace(in.WorkerID)
	worker, err := s.Users.Store.GetByID(ctx, caller.OrgID, workerID)
	if err != nil {
		return Contract{}, err
	}
	if worker.Role != identity.RoleWorker {
		return Contract{}, invalidError("contracts are held by workers")
	}
	allowed, err := s.Users.CanActOn(ctx, caller, workerID)
	if err != nil {
		return Contract{}, err
	}
	if !allowed {
		return Contract{}, ErrForbidden
	}

	var siteID *string
	if trimmed := strings.TrimSpace(in.SiteID); trimmed != "" {
		ok, err := s.Sites.Exists(ctx, caller.OrgID, trimmed)
		if err != nil {
			return Contract{}, err
		}
		if !ok {
			return Contract{}, invalidError("site not found")
		}
		siteID = &trimmed
	}

	return s.Store.Create(ctx, Contract{
		OrgID:      caller.OrgID,
		WorkerID:   workerID,
		SiteID:     siteID,
		Title:      strings.TrimSpace(in.Title),
		TotalValue: in.TotalValue,
		Status:     StatusActive,
		CreatedBy:  caller.UserID,
	})
}

// Pay writes a contract_payment ledger credit. The contract row lock keeps
// the running total honest: payments serialize, the cap check sees every
// earlier payment, and a close racing a payment waits its turn.
func (s *Service) Pay(ctx context.Context, caller identity.UserContext, contractID string, in PaymentInput) (ledger.Entry, error) {
	if !identity.RoleAtLeast(caller.Role, identity.RoleSupervisor) {
		return ledger.Entry{}, ErrForbidden
	}
	if !in.Amount.IsPositive() {
		return ledger.Entry{}, invalidError("amount must be positive")
	}
	allocationID := strings.TrimSpace(in.AllocationID)
	if allocationID == "" {
		return ledger.Entry{}, invalidError("funding allocation is required")
	}

	tx, err := s.Store.Begin(ctx)
	if err != nil {
		return ledger.Entry{}, err
	}
	defer tx.Rollback(ctx)

	c, err := s.Store.GetForUpdateTx(ctx, tx, caller.OrgID, contractID)
	if err != nil {
		return ledger.Entry{}, err
	}
	allowed, err := s.Users.CanActOn(ctx, caller, c.WorkerID)
	if err != nil {
		return ledger.Entry{}, err
	}
	if !allowed {
		return ledger.Entry{}, ErrForbidden
	}
	if c.Status != StatusActive {
		return ledger.Entry{}, ErrNotActive
	}

	paid, err := s.Ledger.ContractPaidTotalTx(ctx, tx, caller.OrgID, contractID)
	if err != nil {
		return ledger.Entry{}, err
	}
	if paid.Add(in.Amount).GreaterThan(c.TotalValue) {
		return ledger.Entry{}, ErrExceedsValue
	}

	if err := s.Wallet.RequireAvailableTx(ctx, tx, caller.OrgID, allocationID, in.Amount); err != nil {
		return ledger.Entry{}, err
	}

	paidDate := today()
	entry, err := s.Ledger.CreateTx(ctx, tx, ledger.Entry{
		OrgID:        caller.OrgID,
		WorkerID:     c.WorkerID,
		SiteID:       c.SiteID,
		Type:         ledger.TypeCredit,
		Category:     ledger.CategoryContractPayment,
		Amount:       in.Amount,
		Status:       ledger.StatusPaid,
		AllocationID: &allocationID,
		ContractID:   &contractID,
		Description:  strings.TrimSpace(in.Description),
		EntryDate:    paidDate,
		PaidDate:     &paidDate,
		CreatedBy:    caller.UserID,
	})
	if err != nil {
		return ledger.Entry{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return ledger.Entry{}, err
	}
	return entry, nil
}

// Transition closes a contract. The row lock means an in-flight payment
// either lands before the close or not at all.
func (s *Service) Transition(ctx context.Context, caller identity.UserContext, id, target string) (Contract, error) {
	if !ValidStatus(target) || target == StatusActive {
		return Contract{}, ErrInvalidTransition
	}

	tx, err := s.Store.Begin(ctx)
	if err != nil {
		return Contract{}, err
	}
	defer tx.Rollback(ctx)

	c, err := s.Store.GetForUpdateTx(ctx, tx, caller.OrgID, id)
	if err != nil {
		return Contract{}, err
	}
	allowed, err := s.Users.CanActOn(ctx, caller, c.WorkerID)
	if err != nil {
		return Contract{}, err
	}
	if !allowed || !identity.RoleAtLeast(caller.Role, identity.RoleSupervisor) {
		return Contract{}, ErrForbidden
	}
	if !CanTransition(c.Status, target) {
		return Contract{}, ErrInvalidTransition
	}

	updated, err := s.Store.UpdateStatusTx(ctx, tx, caller.OrgID, id, target)
	if err != nil {
		return Contract{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Contract{}, err
	}
	return updated, nil
}

func (s *Service) Get(ctx context.Context, caller identity.UserContext, id string) (Position, error) {
	c, err := s.Store.Get(ctx, caller.OrgID, id)
	if err != nil {
		return Position{}, err
	}
	if err := s.authorizeView(ctx, caller, c.WorkerID); err != nil {
		return Position{}, err
	}

	paid, err := s.Ledger.ContractPaidTotal(ctx, caller.OrgID, id)
	if err != nil {
		return Position{}, err
	}
	return Position{
		Contract:  c,
		Paid:      paid,
		Remaining: c.TotalValue.Sub(paid),
	}, nil
}

func (s *Service) List(ctx context.Context, caller identity.UserContext, filter ListFilter) ([]Contract, error) {
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

func today() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
