package reports

import (
	"context"
	"errors"
	"time"

	"siteledger/internal/domain/identity"
	"siteledger/internal/domain/wallet"
)

var ErrForbidden = errors.New("not allowed to view this report")

type Service struct {
	Store  *Store
	Wallet *wallet.Service
	Users  *identity.Service
}

func NewService(store *Store, walletSvc *wallet.Service, users *identity.Service) *Service {
	return &Service{Store: store, Wallet: walletSvc, Users: users}
}

// Register returns an allocation's settlement register, visibility piggybacking
// on the allocation balance check.
func (s *Service) Register(ctx context.Context, caller identity.UserContext, allocationID string) ([]RegisterRow, error) {
	if _, err := s.Wallet.AllocationBalance(ctx, caller, allocationID); err != nil {
		return nil, err
	}
	return s.Store.RegisterRows(ctx, caller.OrgID, allocationID)
}

// ReceiptPDF renders one paid entry as a receipt.
func (s *Service) ReceiptPDF(ctx context.Context, caller identity.UserContext, entryID string) ([]byte, error) {
	workerID, err := s.Store.WorkerForEntry(ctx, caller.OrgID, entryID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeWorker(ctx, caller, workerID); err != nil {
		return nil, err
	}
	data, err := s.Store.Receipt(ctx, caller.OrgID, entryID)
	if err != nil {
		return nil, err
	}
	return renderReceiptPDF(data)
}

// StatementXLSX renders a worker's ledger as a spreadsheet with a running
// balance column.
func (s *Service) StatementXLSX(ctx context.Context, caller identity.UserContext, workerID string, from, to *time.Time) ([]byte, error) {
	if workerID == "" {
		workerID = caller.UserID
	}
	if err := s.authorizeWorker(ctx, caller, workerID); err != nil {
		return nil, err
	}
	name, err := s.Store.WorkerName(ctx, caller.OrgID, workerID)
	if err != nil {
		return nil, err
	}
	rows, err := s.Store.StatementRows(ctx, caller.OrgID, workerID, from, to)
	if err != nil {
		return nil, err
	}
	return renderStatementXLSX(name, rows)
}

func (s *Service) authorizeWorker(ctx context.Context, caller identity.UserContext, workerID string) error {
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
