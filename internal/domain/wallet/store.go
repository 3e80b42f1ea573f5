package wallet

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

// querier lets the same aggregate SQL run on the pool or inside a caller's
// transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Position is the raw spend position of one allocation, including who holds
// it, so callers can decide visibility.
type Position struct {
	ToUserID   string
	FromUserID *string
	CreatedBy  string
	Status     string
	Allocated  decimal.Decimal
	Expenses   decimal.Decimal
	Bills      decimal.Decimal
	Ledger     decimal.Decimal
}

func (p Position) Utilized() decimal.Decimal {
	return p.Expenses.Add(p.Bills).Add(p.Ledger)
}

func (p Position) Remaining() decimal.Decimal {
	return p.Allocated.Sub(p.Utilized())
}

// Money received minus money consumed, all recomputed from source rows.
// The ledger term resolves entries through the allocations the user holds;
// pending_salary accruals stay out until settlement converts them to cash.
const walletBalanceQuery = `
	SELECT
		COALESCE((SELECT SUM(amount) FROM fund_allocations
			WHERE org_id = $1 AND to_user_id = $2 AND status = 'disbursed'
			AND (from_user_id IS NULL OR from_user_id <> to_user_id)), 0) AS received,
		COALESCE((SELECT SUM(amount) FROM expenses
			WHERE org_id = $1 AND user_id = $2), 0) AS expenses,
		COALESCE((SELECT SUM(total_amount) FROM gst_bills
			WHERE org_id = $1 AND user_id = $2 AND status IN ('credited', 'paid')), 0) AS bills,
		COALESCE((SELECT SUM(CASE WHEN e.entry_type = 'credit' THEN e.amount ELSE -e.amount END)
			FROM worker_ledger_entries e
			JOIN fund_allocations a ON e.allocation_id = a.id
			WHERE e.org_id = $1 AND a.to_user_id = $2 AND e.category <> 'pending_salary'), 0) AS ledger_out,
		COALESCE((SELECT SUM(amount) FROM fund_allocations
			WHERE org_id = $1 AND from_user_id = $2 AND status = 'disbursed'
			AND to_user_id <> from_user_id), 0) AS sub_allocated
`

func (s *Store) WalletBalance(ctx context.Context, orgID, userID string) (Balance, error) {
	return walletBalance(ctx, s.DB, orgID, userID)
}

func (s *Store) WalletBalanceTx(ctx context.Context, tx pgx.Tx, orgID, userID string) (Balance, error) {
	return walletBalance(ctx, tx, orgID, userID)
}

func walletBalance(ctx context.Context, q querier, orgID, userID string) (Balance, error) {
	var b Balance
	err := q.QueryRow(ctx, walletBalanceQuery, orgID, userID).
		Scan(&b.Received, &b.Expenses, &b.Bills, &b.LedgerOut, &b.SubAllocated)
	if err != nil {
		return Balance{}, err
	}
	b.UserID = userID
	b.Spent = b.Expenses.Add(b.Bills).Add(b.LedgerOut).Add(b.SubAllocated)
	b.Balance = b.Received.Sub(b.Spent)
	return b, nil
}

const allocationPositionQuery = `
	SELECT a.to_user_id, a.from_user_id, a.created_by, a.status, a.amount,
		COALESCE((SELECT SUM(amount) FROM expenses
			WHERE org_id = $1 AND allocation_id = $2), 0),
		COALESCE((SELECT SUM(total_amount) FROM gst_bills
			WHERE org_id = $1 AND allocation_id = $2 AND status IN ('credited', 'paid')), 0),
		COALESCE((SELECT SUM(CASE WHEN entry_type = 'credit' THEN amount ELSE -amount END)
			FROM worker_ledger_entries
			WHERE org_id = $1 AND allocation_id = $2 AND category <> 'pending_salary'), 0)
	FROM fund_allocations a
	WHERE a.org_id = $1 AND a.id = $2
`

func (s *Store) AllocationPosition(ctx context.Context, orgID, allocationID string) (Position, error) {
	return allocationPosition(ctx, s.DB, orgID, allocationID, false)
}

// AllocationPositionForUpdateTx locks the allocation row until the caller's
// transaction ends, so the remaining balance it reports cannot be consumed
// underneath a gated write.
func (s *Store) AllocationPositionForUpdateTx(ctx context.Context, tx pgx.Tx, orgID, allocationID string) (Position, error) {
	return allocationPosition(ctx, tx, orgID, allocationID, true)
}

func allocationPosition(ctx context.Context, q querier, orgID, allocationID string, forUpdate bool) (Position, error) {
	query := allocationPositionQuery
	if forUpdate {
		query += " FOR UPDATE OF a"
	}
	var p Position
	err := q.QueryRow(ctx, query, orgID, allocationID).
		Scan(&p.ToUserID, &p.FromUserID, &p.CreatedBy, &p.Status, &p.Allocated, &p.Expenses, &p.Bills, &p.Ledger)
	if errors.Is(err, pgx.ErrNoRows) {
		return Position{}, ErrAllocationNotFound
	}
	if err != nil {
		return Position{}, err
	}
	return p, nil
}
