package allocation

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	return s.DB.Begin(ctx)
}

const allocationColumns = "id, org_id, from_user_id, to_user_id, site_id, amount, COALESCE(purpose, ''), status, created_by, disbursed_at, created_at, updated_at"

func scanAllocation(row pgx.Row) (Allocation, error) {
	var a Allocation
	err := row.Scan(&a.ID, &a.OrgID, &a.FromUserID, &a.ToUserID, &a.SiteID, &a.Amount, &a.Purpose, &a.Status, &a.CreatedBy, &a.DisbursedAt, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Allocation{}, ErrNotFound
	}
	return a, err
}

func (s *Store) CreateTx(ctx context.Context, tx pgx.Tx, a Allocation) (Allocation, error) {
	row := tx.QueryRow(ctx, `
		INSERT INTO fund_allocations (org_id, from_user_id, to_user_id, site_id, amount, purpose, status, created_by, disbursed_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9)
		RETURNING `+allocationColumns,
		a.OrgID, a.FromUserID, a.ToUserID, a.SiteID, a.Amount, a.Purpose, a.Status, a.CreatedBy, a.DisbursedAt)
	return scanAllocation(row)
}

func (s *Store) Get(ctx context.Context, orgID, id string) (Allocation, error) {
	row := s.DB.QueryRow(ctx, "SELECT "+allocationColumns+" FROM fund_allocations WHERE org_id = $1 AND id = $2", orgID, id)
	return scanAllocation(row)
}

// GetForUpdateTx locks the allocation row for the rest of the transaction.
// Concurrent settlements and transitions against the same allocation
// serialize here.
func (s *Store) GetForUpdateTx(ctx context.Context, tx pgx.Tx, orgID, id string) (Allocation, error) {
	row := tx.QueryRow(ctx, "SELECT "+allocationColumns+" FROM fund_allocations WHERE org_id = $1 AND id = $2 FOR UPDATE", orgID, id)
	return scanAllocation(row)
}

func (s *Store) List(ctx context.Context, orgID string, filter ListFilter) ([]Allocation, error) {
	query := "SELECT " + allocationColumns + " FROM fund_allocations WHERE org_id = $1"
	args := []any{orgID}
	if filter.FromPool {
		query += " AND from_user_id IS NULL"
	} else if filter.FromUserID != "" {
		args = append(args, filter.FromUserID)
		query += " AND from_user_id = $" + strconv.Itoa(len(args))
	}
	if filter.ToUserID != "" {
		args = append(args, filter.ToUserID)
		query += " AND to_user_id = $" + strconv.Itoa(len(args))
	}
	if filter.SiteID != "" {
		args = append(args, filter.SiteID)
		query += " AND site_id = $" + strconv.Itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += " AND status = $" + strconv.Itoa(len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var allocations []Allocation
	for rows.Next() {
		var a Allocation
		if err := rows.Scan(&a.ID, &a.OrgID, &a.FromUserID, &a.ToUserID, &a.SiteID, &a.Amount, &a.Purpose, &a.Status, &a.CreatedBy, &a.DisbursedAt, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		allocations = append(allocations, a)
	}
	return allocations, rows.Err()
}

func (s *Store) ListForUsers(ctx context.Context, orgID string, userIDs []string) ([]Allocation, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT `+allocationColumns+`
		FROM fund_allocations
		WHERE org_id = $1 AND (to_user_id = ANY($2) OR from_user_id = ANY($2) OR created_by = ANY($2))
		ORDER BY created_at DESC
	`, orgID, userIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var allocations []Allocation
	for rows.Next() {
		var a Allocation
		if err := rows.Scan(&a.ID, &a.OrgID, &a.FromUserID, &a.ToUserID, &a.SiteID, &a.Amount, &a.Purpose, &a.Status, &a.CreatedBy, &a.DisbursedAt, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		allocations = append(allocations, a)
	}
	return allocations, rows.Err()
}

func (s *Store) UpdateStatusTx(ctx context.Context, tx pgx.Tx, orgID, id, status string, disbursedAt *time.Time) (Allocation, error) {
	row := tx.QueryRow(ctx, `
		UPDATE fund_allocations
		SET status = $3, disbursed_at = COALESCE($4, disbursed_at), updated_at = now()
		WHERE org_id = $1 AND id = $2
		RETURNING `+allocationColumns,
		orgID, id, status, disbursedAt)
	return scanAllocation(row)
}

// ReferenceCountTx counts spending records pointing at the allocation.
// A non-zero count blocks deletion. Callers hold the allocation row lock so
// no new reference can land while the count is read.
func (s *Store) ReferenceCountTx(ctx context.Context, tx pgx.Tx, orgID, id string) (int, error) {
	var count int
	err := tx.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(1) FROM expenses WHERE org_id = $1 AND allocation_id = $2) +
			(SELECT COUNT(1) FROM gst_bills WHERE org_id = $1 AND allocation_id = $2) +
			(SELECT COUNT(1) FROM worker_ledger_entries WHERE org_id = $1 AND allocation_id = $2)
	`, orgID, id).Scan(&count)
	return count, err
}

func (s *Store) DeleteTx(ctx context.Context, tx pgx.Tx, orgID, id string) error {
	tag, err := tx.Exec(ctx, "DELETE FROM fund_allocations WHERE org_id = $1 AND id = $2", orgID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// LockFunderTx takes the funding user's row lock so concurrent disbursements
// out of the same wallet serialize before the balance check.
func (s *Store) LockFunderTx(ctx context.Context, tx pgx.Tx, orgID, userID string) error {
	var id string
	err := tx.QueryRow(ctx, "SELECT id FROM users WHERE org_id = $1 AND id = $2 FOR UPDATE", orgID, userID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
