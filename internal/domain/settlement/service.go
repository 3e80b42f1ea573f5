package settlement

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"siteledger/internal/domain/identity"
	"siteledger/internal/domain/ledger"
	"siteledger/internal/domain/wallet"
)

// Service settles worker salaries out of fund allocations. It owns no
// table: every settlement is ledger rows written under the allocation row
// lock, so a rerun or a concurrent run sees already-paid accruals and
// already-deducted advances and does nothing twice.
type Service struct {
	Ledger *ledger.Store
	Wallet *wallet.Service
	Users  *identity.Service
}

func NewService(ledgerStore *ledger.Store, walletSvc *wallet.Service, users *identity.Service) *Service {
	return &Service{Ledger: ledgerStore, Wallet: walletSvc, Users: users}
}

// PaySalary settles one worker: pending accruals flip to paid against the
// allocation, each unpaid advance gets a deduction, and one consolidated
// salary credit carries the net cash when it is positive. Everything runs
// in one transaction; the funds gate failing rolls all of it back.
func (s *Service) PaySalary(ctx context.Context, caller identity.UserContext, workerID, allocationID string, opts Options) (Summary, error) {
	if err := s.authorize(ctx, caller, workerID); err != nil {
		return Summary{}, err
	}

	tx, err := s.Ledger.Begin(ctx)
	if err != nil {
		return Summary{}, err
	}
	defer tx.Rollback(ctx)

	if err := s.lockAllocation(ctx, tx, caller.OrgID, allocationID); err != nil {
		return Summary{}, err
	}

	plan, err := s.stageWorker(ctx, tx, caller.OrgID, workerID, opts)
	if err != nil {
		return Summary{}, err
	}
	if len(plan.Pending) == 0 {
		return Summary{}, ErrNoPendingEntries
	}

	// The gate runs even when the payout floors at zero: an allocation
	// whose remaining balance has gone negative refuses settlement.
	if err := s.Wallet.RequireAvailableTx(ctx, tx, caller.OrgID, allocationID, plan.Payout); err != nil {
		return Summary{}, err
	}

	summary, err := s.apply(ctx, tx, caller, plan, allocationID)
	if err != nil {
		return Summary{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Summary{}, err
	}
	return summary, nil
}

// BulkPaySalary settles many workers from one allocation in one
// transaction. Workers outside the caller's span or with nothing pending
// are skipped, not failed; the funds gate runs once against the summed
// payout after staging, so a shortfall rolls back every worker.
func (s *Service) BulkPaySalary(ctx context.Context, caller identity.UserContext, workerIDs []string, allocationID string, opts Options) (BulkSummary, error) {
	if len(workerIDs) == 0 {
		return BulkSummary{}, ErrEmptySelection
	}
	if !identity.RoleAtLeast(caller.Role, identity.RoleSupervisor) {
		return BulkSummary{}, ErrForbidden
	}

	var span map[string]struct{}
	if caller.Role != identity.RoleDeveloper {
		var err error
		span, err = s.Users.SubordinateIDSet(ctx, caller.OrgID, caller.UserID)
		if err != nil {
			return BulkSummary{}, err
		}
	}
	workers, err := s.Users.Store.ListByIDs(ctx, caller.OrgID, workerIDs)
	if err != nil {
		return BulkSummary{}, err
	}
	byID := make(map[string]identity.User, len(workers))
	for _, w := range workers {
		byID[w.ID] = w
	}

	tx, err := s.Ledger.Begin(ctx)
	if err != nil {
		return BulkSummary{}, err
	}
	defer tx.Rollback(ctx)

	if err := s.lockAllocation(ctx, tx, caller.OrgID, allocationID); err != nil {
		return BulkSummary{}, err
	}

	result := BulkSummary{}
	var plans []Plan
	seen := make(map[string]struct{}, len(workerIDs))
	for _, id := range workerIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		w, ok := byID[id]
		if !ok {
			result.Skipped = append(result.Skipped, Skip{WorkerID: id, Reason: SkipNotFound})
			continue
		}
		if w.Role != identity.RoleWorker {
			result.Skipped = append(result.Skipped, Skip{WorkerID: id, Reason: SkipNotWorker})
			continue
		}
		if span != nil {
			if _, inSpan := span[id]; !inSpan {
				result.Skipped = append(result.Skipped, Skip{WorkerID: id, Reason: SkipOutsideSpan})
				continue
			}
		}

		plan, err := s.stageWorker(ctx, tx, caller.OrgID, id, opts)
		if err != nil {
			return BulkSummary{}, err
		}
		if len(plan.Pending) == 0 {
			result.Skipped = append(result.Skipped, Skip{WorkerID: id, Reason: SkipNoPending})
			continue
		}
		plans = append(plans, plan)
	}

	if len(plans) == 0 {
		return BulkSummary{}, ErrNoPendingEntries
	}

	if err := s.Wallet.RequireAvailableTx(ctx, tx, caller.OrgID, allocationID, TotalPayout(plans)); err != nil {
		return BulkSummary{}, err
	}

	result.TotalGross = decimal.Zero
	result.TotalAdvances = decimal.Zero
	result.TotalNet = decimal.Zero
	for _, plan := range plans {
		summary, err := s.apply(ctx, tx, caller, plan, allocationID)
		if err != nil {
			return BulkSummary{}, err
		}
		result.Settled = append(result.Settled, summary)
		result.TotalGross = result.TotalGross.Add(summary.Gross)
		result.TotalAdvances = result.TotalAdvances.Add(summary.Advances)
		result.TotalNet = result.TotalNet.Add(summary.NetPaid)
	}
	result.WorkersPaid = len(result.Settled)

	if err := tx.Commit(ctx); err != nil {
		return BulkSummary{}, err
	}
	return result, nil
}

func (s *Service) authorize(ctx context.Context, caller identity.UserContext, workerID string) error {
	if !identity.RoleAtLeast(caller.Role, identity.RoleSupervisor) {
		return ErrForbidden
	}
	worker, err := s.Users.Store.GetByID(ctx, caller.OrgID, workerID)
	if err != nil {
		return err
	}
	if worker.Role != identity.RoleWorker {
		return ErrNotWorker
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

// lockAllocation pins the funding allocation for the whole settlement and
// fails early when it is missing or not disbursed. Taking this lock before
// any entry locks keeps every money writer ordering allocation-first.
func (s *Service) lockAllocation(ctx context.Context, tx pgx.Tx, orgID, allocationID string) error {
	pos, err := s.Wallet.Store.AllocationPositionForUpdateTx(ctx, tx, orgID, allocationID)
	if err != nil {
		return err
	}
	if pos.Status != "disbursed" {
		return wallet.ErrNotDisbursed
	}
	return nil
}

func (s *Service) stageWorker(ctx context.Context, tx pgx.Tx, orgID, workerID string, opts Options) (Plan, error) {
	scope := ledger.Scope{SiteID: opts.SiteID, From: opts.From, To: opts.To}
	pending, err := s.Ledger.PendingSalaryEntriesTx(ctx, tx, orgID, workerID, scope)
	if err != nil {
		return Plan{}, err
	}
	if len(pending) == 0 {
		return Plan{WorkerID: workerID}, nil
	}
	advances, err := s.Ledger.UnpaidAdvancesTx(ctx, tx, orgID, workerID)
	if err != nil {
		return Plan{}, err
	}
	return BuildPlan(workerID, pending, advances), nil
}

// apply writes one staged plan: accruals paid, one deduction per advance,
// one salary credit for the positive net. The deductions carry no
// allocation id; the consolidated credit is what draws the cash. The
// unique index on linked_advance_id turns a raced double deduction into a
// rollback.
func (s *Service) apply(ctx context.Context, tx pgx.Tx, caller identity.UserContext, plan Plan, allocationID string) (Summary, error) {
	paidDate := today()

	entryIDs := plan.EntryIDs()
	affected, err := s.Ledger.MarkEntriesPaidTx(ctx, tx, caller.OrgID, entryIDs, allocationID, paidDate)
	if err != nil {
		return Summary{}, err
	}
	if affected != int64(len(entryIDs)) {
		return Summary{}, ErrEntriesChanged
	}

	summary := Summary{
		WorkerID:     plan.WorkerID,
		AllocationID: allocationID,
		Gross:        plan.Gross,
		Advances:     plan.Advance,
		NetPaid:      plan.Payout,
		EntriesPaid:  len(entryIDs),
		PaidEntryIDs: entryIDs,
		PaidDate:     paidDate,
	}

	for _, adv := range plan.Advances {
		advanceID := adv.ID
		deduction, err := s.Ledger.CreateTx(ctx, tx, ledger.Entry{
			OrgID:           caller.OrgID,
			WorkerID:        plan.WorkerID,
			Type:            ledger.TypeDebit,
			Category:        ledger.CategoryDeduction,
			Amount:          adv.Amount,
			Status:          ledger.StatusPaid,
			LinkedAdvanceID: &advanceID,
			Description:     "advance recovered at settlement",
			EntryDate:       paidDate,
			PaidDate:        &paidDate,
			CreatedBy:       caller.UserID,
		})
		if err != nil {
			return Summary{}, err
		}
		summary.DeductionIDs = append(summary.DeductionIDs, deduction.ID)
	}
	summary.AdvancesDeducted = len(summary.DeductionIDs)

	if plan.Payout.IsPositive() {
		salary, err := s.Ledger.CreateTx(ctx, tx, ledger.Entry{
			OrgID:        caller.OrgID,
			WorkerID:     plan.WorkerID,
			Type:         ledger.TypeCredit,
			Category:     ledger.CategorySalary,
			Amount:       plan.Payout,
			Status:       ledger.StatusPaid,
			AllocationID: &allocationID,
			Description:  "salary settlement",
			EntryDate:    paidDate,
			PaidDate:     &paidDate,
			CreatedBy:    caller.UserID,
		})
		if err != nil {
			return Summary{}, err
		}
		summary.SalaryEntryID = &salary.ID
	}

	return summary, nil
}

func today() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
