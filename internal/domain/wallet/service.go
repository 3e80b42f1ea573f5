package wallet

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"siteledger/internal/domain/identity"
)

// AccessChecker answers whether the caller may act on another user's
// records; identity.Service provides it.
type AccessChecker interface {
	CanActOn(ctx context.Context, caller identity.UserContext, targetID string) (bool, error)
}

type Service struct {
	Store  *Store
	Access AccessChecker
}

func NewService(store *Store, access AccessChecker) *Service {
	return &Service{Store: store, Access: access}
}

func (s *Service) WalletBalance(ctx context.Context, caller identity.UserContext, userID string) (Balance, error) {
	if userID == "" {
		userID = caller.UserID
	}
	allowed, err := s.Access.CanActOn(ctx, caller, userID)
	if err != nil {
		return Balance{}, err
	}
	if !allowed {
		return Balance{}, ErrForbidden
	}
	return s.Store.WalletBalance(ctx, caller.OrgID, userID)
}

// WalletBalanceTx recomputes a wallet inside the caller's transaction; used
// by writers that gate on the funder's balance.
func (s *Service) WalletBalanceTx(ctx context.Context, tx pgx.Tx, orgID, userID string) (Balance, error) {
	return s.Store.WalletBalanceTx(ctx, tx, orgID, userID)
}

func (s *Service) AllocationBalance(ctx context.Context, caller identity.UserContext, allocationID string) (AllocationBalance, error) {
	pos, err := s.Store.AllocationPosition(ctx, caller.OrgID, allocationID)
	if err != nil {
		return AllocationBalance{}, err
	}

	allowed := caller.Role == identity.RoleDeveloper ||
		pos.ToUserID == caller.UserID ||
		pos.CreatedBy == caller.UserID ||
		(pos.FromUserID != nil && *pos.FromUserID == caller.UserID)
	if !allowed {
		allowed, err = s.Access.CanActOn(ctx, caller, pos.ToUserID)
		if err != nil {
			return AllocationBalance{}, err
		}
	}
	if !allowed {
		return AllocationBalance{}, ErrForbidden
	}

	return AllocationBalance{
		AllocationID: allocationID,
		Allocated:    pos.Allocated,
		Utilized:     pos.Utilized(),
		Remaining:    pos.Remaining(),
	}, nil
}

// ValidateAvailability answers the spend question without locking; writers
// must use the Tx variant so the answer holds until commit.
func (s *Service) ValidateAvailability(ctx context.Context, orgID, allocationID string, amount decimal.Decimal) (Availability, error) {
	pos, err := s.Store.AllocationPosition(ctx, orgID, allocationID)
	return availabilityFrom(pos, err, amount)
}

func (s *Service) ValidateAvailabilityTx(ctx context.Context, tx pgx.Tx, orgID, allocationID string, amount decimal.Decimal) (Availability, error) {
	pos, err := s.Store.AllocationPositionForUpdateTx(ctx, tx, orgID, allocationID)
	return availabilityFrom(pos, err, amount)
}

// RequireAvailableTx is the gate every allocation-consuming write runs
// before inserting: row lock, recompute, fail closed with a typed error.
func (s *Service) RequireAvailableTx(ctx context.Context, tx pgx.Tx, orgID, allocationID string, amount decimal.Decimal) error {
	avail, err := s.ValidateAvailabilityTx(ctx, tx, orgID, allocationID, amount)
	if err != nil {
		return err
	}
	if avail.Available {
		return nil
	}
	switch avail.Message {
	case MsgAllocationNotFound:
		return ErrAllocationNotFound
	case MsgNotDisbursed:
		return ErrNotDisbursed
	default:
		return &InsufficientFundsError{Available: avail.Balance, Requested: amount}
	}
}

func availabilityFrom(pos Position, err error, amount decimal.Decimal) (Availability, error) {
	if errors.Is(err, ErrAllocationNotFound) {
		return Availability{Available: false, Message: MsgAllocationNotFound}, nil
	}
	if err != nil {
		return Availability{}, err
	}
	remaining := pos.Remaining()
	if pos.Status != "disbursed" {
		return Availability{Available: false, Balance: remaining, Message: MsgNotDisbursed}, nil
	}
	if remaining.LessThan(amount) {
		return Availability{Available: false, Balance: remaining, Message: MsgInsufficientFunds}, nil
	}
	return Availability{Available: true, Balance: remaining, Message: MsgAvailable}, nil
}
