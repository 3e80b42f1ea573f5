package allocation

import (
	"context"
	"strings"
	"time"

	"siteledger/internal/domain/identity"
	"siteledger/internal/domain/wallet"
)

// SiteChecker confirms a site id belongs to the org before money is pinned
// to it.
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

// Create records a transfer of funds to a user. Developers' allocations are
// disbursed immediately; everyone else's start pending. Wallet-funded
// allocations are gated on the funder's recomputed balance inside the same
// transaction that writes the row.
func (s *Service) Create(ctx context.Context, caller identity.UserContext, in CreateInput) (Allocation, error) {
	if !in.Amount.IsPositive() {
		return Allocation{}, invalidError("amount must be positive")
	}
	if strings.TrimSpace(in.ToUserID) == "" {
		return Allocation{}, invalidError("recipient is required")
	}

	if _, err := s.Users.Store.GetByID(ctx, caller.OrgID, in.ToUserID); err != nil {
		return Allocation{}, err
	}

	var siteID *string
	if trimmed := strings.TrimSpace(in.SiteID); trimmed != "" {
		ok, err := s.Sites.Exists(ctx, caller.OrgID, trimmed)
		if err != nil {
			return Allocation{}, err
		}
		if !ok {
			return Allocation{}, invalidError("site not found")
		}
		siteID = &trimmed
	}

	fromUserID, err := s.resolveFunder(ctx, caller, in)
	if err != nil {
		return Allocation{}, err
	}

	a := Allocation{
		OrgID:      caller.OrgID,
		FromUserID: fromUserID,
		ToUserID:   in.ToUserID,
		SiteID:     siteID,
		Amount:     in.Amount,
		Purpose:    strings.TrimSpace(in.Purpose),
		Status:     StatusPending,
		CreatedBy:  caller.UserID,
	}
	if caller.Role == identity.RoleDeveloper {
		now := time.Now()
		a.Status = StatusDisbursed
		a.DisbursedAt = &now
	}

	tx, err := s.Store.Begin(ctx)
	if err != nil {
		return Allocation{}, err
	}
	defer tx.Rollback(ctx)

	if a.FromUserID != nil {
		if err := s.Store.LockFunderTx(ctx, tx, caller.OrgID, *a.FromUserID); err != nil {
			return Allocation{}, err
		}
		funderBalance, err := s.Wallet.WalletBalanceTx(ctx, tx, caller.OrgID, *a.FromUserID)
		if err != nil {
			return Allocation{}, err
		}
		if funderBalance.Balance.LessThan(a.Amount) {
			return Allocation{}, &wallet.InsufficientFundsError{Available: funderBalance.Balance, Requested: a.Amount}
		}
	}

	created, err := s.Store.CreateTx(ctx, tx, a)
	if err != nil {
		return Allocation{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Allocation{}, err
	}
	return created, nil
}

func (s *Service) resolveFunder(ctx context.Context, caller identity.UserContext, in CreateInput) (*string, error) {
	if in.FromPool {
		if caller.Role != identity.RoleDeveloper {
			return nil, ErrForbidden
		}
		return nil, nil
	}

	from := strings.TrimSpace(in.FromUserID)
	if from == "" || from == caller.UserID {
		id := caller.UserID
		return &id, nil
	}
	// Funding out of someone else's wallet is a developer action.
	if caller.Role != identity.RoleDeveloper {
		return nil, ErrForbidden
	}
	if _, err := s.Users.Store.GetByID(ctx, caller.OrgID, from); err != nil {
		return nil, err
	}
	return &from, nil
}

// Transition moves an allocation along pending→approved→disbursed or
// pending→rejected. The funder approves or rejects; the recipient or a
// developer disburses; only a developer may jump pending→disbursed.
// Disbursement re-gates the funder's wallet under the row lock.
func (s *Service) Transition(ctx context.Context, caller identity.UserContext, id, target string) (Allocation, error) {
	if !ValidStatus(target) || target == StatusPending {
		return Allocation{}, ErrInvalidTransition
	}

	tx, err := s.Store.Begin(ctx)
	if err != nil {
		return Allocation{}, err
	}
	defer tx.Rollback(ctx)

	a, err := s.Store.GetForUpdateTx(ctx, tx, caller.OrgID, id)
	if err != nil {
		return Allocation{}, err
	}
	if !CanTransition(a.Status, target) {
		return Allocation{}, ErrInvalidTransition
	}
	if err := s.authorizeTransition(caller, a, target); err != nil {
		return Allocation{}, err
	}

	var disbursedAt *time.Time
	if target == StatusDisbursed {
		if a.FromUserID != nil {
			if err := s.Store.LockFunderTx(ctx, tx, caller.OrgID, *a.FromUserID); err != nil {
				return Allocation{}, err
			}
			funderBalance, err := s.Wallet.WalletBalanceTx(ctx, tx, caller.OrgID, *a.FromUserID)
			if err != nil {
				return Allocation{}, err
			}
			if funderBalance.Balance.LessThan(a.Amount) {
				return Allocation{}, &wallet.InsufficientFundsError{Available: funderBalance.Balance, Requested: a.Amount}
			}
		}
		now := time.Now()
		disbursedAt = &now
	}

	updated, err := s.Store.UpdateStatusTx(ctx, tx, caller.OrgID, id, target, disbursedAt)
	if err != nil {
		return Allocation{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Allocation{}, err
	}
	return updated, nil
}

func (s *Service) authorizeTransition(caller identity.UserContext, a Allocation, target string) error {
	if caller.Role == identity.RoleDeveloper {
		return nil
	}
	switch target {
	case StatusApproved, StatusRejected:
		if a.FromUserID != nil && *a.FromUserID == caller.UserID {
			return nil
		}
	case StatusDisbursed:
		// Non-developers may only collect an approved allocation of their own.
		if a.Status == StatusApproved && a.ToUserID == caller.UserID {
			return nil
		}
	}
	return ErrForbidden
}

func (s *Service) Get(ctx context.Context, caller identity.UserContext, id string) (Allocation, error) {
	a, err := s.Store.Get(ctx, caller.OrgID, id)
	if err != nil {
		return Allocation{}, err
	}
	allowed, err := s.visible(ctx, caller, a)
	if err != nil {
		return Allocation{}, err
	}
	if !allowed {
		return Allocation{}, ErrForbidden
	}
	return a, nil
}

func (s *Service) visible(ctx context.Context, caller identity.UserContext, a Allocation) (bool, error) {
	if caller.Role == identity.RoleDeveloper ||
		a.ToUserID == caller.UserID ||
		a.CreatedBy == caller.UserID ||
		(a.FromUserID != nil && *a.FromUserID == caller.UserID) {
		return true, nil
	}
	return s.Users.CanActOn(ctx, caller, a.ToUserID)
}

func (s *Service) List(ctx context.Context, caller identity.UserContext, filter ListFilter) ([]Allocation, error) {
	if caller.Role == identity.RoleDeveloper {
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
	allocations, err := s.Store.ListForUsers(ctx, caller.OrgID, ids)
	if err != nil {
		return nil, err
	}

	filtered := allocations[:0]
	for _, a := range allocations {
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.ToUserID != "" && a.ToUserID != filter.ToUserID {
			continue
		}
		if filter.FromPool && a.FromUserID != nil {
			continue
		}
		if filter.FromUserID != "" && (a.FromUserID == nil || *a.FromUserID != filter.FromUserID) {
			continue
		}
		if filter.SiteID != "" && (a.SiteID == nil || *a.SiteID != filter.SiteID) {
			continue
		}
		filtered = append(filtered, a)
	}
	return filtered, nil
}

// Delete removes an allocation nothing has spent against yet. Any
// referencing expense, bill, or ledger entry blocks it for good. The row
// lock keeps a concurrent gated write from racing the reference count.
func (s *Service) Delete(ctx context.Context, caller identity.UserContext, id string) error {
	if caller.Role != identity.RoleDeveloper {
		return ErrForbidden
	}

	tx, err := s.Store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := s.Store.GetForUpdateTx(ctx, tx, caller.OrgID, id); err != nil {
		return err
	}
	refs, err := s.Store.ReferenceCountTx(ctx, tx, caller.OrgID, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return ErrReferenced
	}
	if err := s.Store.DeleteTx(ctx, tx, caller.OrgID, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
