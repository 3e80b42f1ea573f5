package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
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

const entryColumns = "id, org_id, worker_id, site_id, entry_type, category, amount, status, allocation_id, linked_advance_id, contract_id, COALESCE(description, ''), entry_date, paid_date, created_by, created_at"

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.OrgID, &e.WorkerID, &e.SiteID, &e.Type, &e.Category, &e.Amount, &e.Status,
		&e.AllocationID, &e.LinkedAdvanceID, &e.ContractID, &e.Description, &e.EntryDate, &e.PaidDate, &e.CreatedBy, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return e, err
}

func collectEntries(rows pgx.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.OrgID, &e.WorkerID, &e.SiteID, &e.Type, &e.Category, &e.Amount, &e.Status,
			&e.AllocationID, &e.LinkedAdvanceID, &e.ContractID, &e.Description, &e.EntryDate, &e.PaidDate, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) CreateTx(ctx context.Context, tx pgx.Tx, e Entry) (Entry, error) {
	row := tx.QueryRow(ctx, `
		INSERT INTO worker_ledger_entries
			(org_id, worker_id, site_id, entry_type, category, amount, status, allocation_id, linked_advance_id, contract_id, description, entry_date, paid_date, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''), $12, $13, $14)
		RETURNING `+entryColumns,
		e.OrgID, e.WorkerID, e.SiteID, e.Type, e.Category, e.Amount, e.Status,
		e.AllocationID, e.LinkedAdvanceID, e.ContractID, e.Description, e.EntryDate, e.PaidDate, e.CreatedBy)
	return scanEntry(row)
}

func (s *Store) Get(ctx context.Context, orgID, id string) (Entry, error) {
	row := s.DB.QueryRow(ctx, "SELECT "+entryColumns+" FROM worker_ledger_entries WHERE org_id = $1 AND id = $2", orgID, id)
	return scanEntry(row)
}

func (s *Store) List(ctx context.Context, orgID string, filter ListFilter) ([]Entry, error) {
	query := "SELECT " + entryColumns + " FROM worker_ledger_entries WHERE org_id = $1"
	args := []any{orgID}
	if filter.WorkerID != "" {
		args = append(args, filter.WorkerID)
		query += fmt.Sprintf(" AND worker_id = $%d", len(args))
	} else if len(filter.WorkerIDs) > 0 {
		args = append(args, filter.WorkerIDs)
		query += fmt.Sprintf(" AND worker_id = ANY($%d)", len(args))
	}
	if filter.SiteID != "" {
		args = append(args, filter.SiteID)
		query += fmt.Sprintf(" AND site_id = $%d", len(args))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		query += fmt.Sprintf(" AND entry_type = $%d", len(args))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		query += fmt.Sprintf(" AND entry_date >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += fmt.Sprintf(" AND entry_date <= $%d", len(args))
	}
	query += " ORDER BY entry_date DESC, created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectEntries(rows)
}

const pendingSalaryWhere = ` FROM worker_ledger_entries e
	WHERE e.org_id = $1 AND e.worker_id = $2
	AND e.category = 'pending_salary' AND e.status = 'pending' AND e.entry_type = 'credit'`

func pendingSalaryQuery(scope Scope, args []any) (string, []any) {
	query := "SELECT " + prefixedEntryColumns("e.") + pendingSalaryWhere
	if scope.SiteID != "" {
		args = append(args, scope.SiteID)
		query += fmt.Sprintf(" AND e.site_id = $%d", len(args))
	}
	if scope.From != nil {
		args = append(args, *scope.From)
		query += fmt.Sprintf(" AND e.entry_date >= $%d", len(args))
	}
	if scope.To != nil {
		args = append(args, *scope.To)
		query += fmt.Sprintf(" AND e.entry_date <= $%d", len(args))
	}
	query += " ORDER BY e.entry_date, e.created_at"
	return query, args
}

func (s *Store) PendingSalaryEntries(ctx context.Context, orgID, workerID string, scope Scope) ([]Entry, error) {
	query, args := pendingSalaryQuery(scope, []any{orgID, workerID})
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEntries(rows)
}

// PendingSalaryEntriesTx locks the collected accrual rows. Under read
// committed a concurrent settlement that already paid them drops them from
// this result instead of double-paying.
func (s *Store) PendingSalaryEntriesTx(ctx context.Context, tx pgx.Tx, orgID, workerID string, scope Scope) ([]Entry, error) {
	query, args := pendingSalaryQuery(scope, []any{orgID, workerID})
	query += " FOR UPDATE OF e"
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEntries(rows)
}

const unpaidAdvancesQuery = `
	SELECT ` + "%s" + ` FROM worker_ledger_entries e
	WHERE e.org_id = $1 AND e.worker_id = $2
	AND e.category = 'advance' AND e.entry_type = 'credit'
	AND NOT EXISTS (
		SELECT 1 FROM worker_ledger_entries d WHERE d.linked_advance_id = e.id
	)
	ORDER BY e.entry_date, e.created_at`

func (s *Store) UnpaidAdvances(ctx context.Context, orgID, workerID string) ([]Entry, error) {
	rows, err := s.DB.Query(ctx, fmt.Sprintf(unpaidAdvancesQuery, prefixedEntryColumns("e.")), orgID, workerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEntries(rows)
}

func (s *Store) UnpaidAdvancesTx(ctx context.Context, tx pgx.Tx, orgID, workerID string) ([]Entry, error) {
	rows, err := tx.Query(ctx, fmt.Sprintf(unpaidAdvancesQuery, prefixedEntryColumns("e."))+" FOR UPDATE OF e", orgID, workerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEntries(rows)
}

// MarkEntriesPaidTx settles pending accruals: paid status, funding
// allocation stamped, paid date set. Returns how many rows flipped.
func (s *Store) MarkEntriesPaidTx(ctx context.Context, tx pgx.Tx, orgID string, entryIDs []string, allocationID string, paidDate time.Time) (int64, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE worker_ledger_entries
		SET status = 'paid', allocation_id = $3, paid_date = $4
		WHERE org_id = $1 AND id = ANY($2) AND status = 'pending'
	`, orgID, entryIDs, allocationID, paidDate)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) WorkerTotals(ctx context.Context, orgID, workerID string) (Totals, error) {
	var t Totals
	err := s.DB.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN entry_type = 'credit' AND status = 'paid' THEN amount END), 0),
			COALESCE(SUM(CASE WHEN entry_type = 'debit' THEN amount END), 0),
			COALESCE(SUM(CASE WHEN category = 'pending_salary' AND status = 'pending' THEN amount END), 0),
			COALESCE((SELECT SUM(a.amount)
				FROM worker_ledger_entries a
				WHERE a.org_id = $1 AND a.worker_id = $2
				AND a.category = 'advance' AND a.entry_type = 'credit'
				AND NOT EXISTS (SELECT 1 FROM worker_ledger_entries d WHERE d.linked_advance_id = a.id)), 0)
		FROM worker_ledger_entries
		WHERE org_id = $1 AND worker_id = $2
	`, orgID, workerID).Scan(&t.Credits, &t.Debits, &t.PendingSalary, &t.UnpaidAdvances)
	if err != nil {
		return Totals{}, err
	}
	t.WorkerID = workerID
	t.Balance = t.Credits.Sub(t.Debits)
	return t, nil
}

func (s *Store) GetForUpdateTx(ctx context.Context, tx pgx.Tx, orgID, id string) (Entry, error) {
	row := tx.QueryRow(ctx, "SELECT "+entryColumns+" FROM worker_ledger_entries WHERE org_id = $1 AND id = $2 FOR UPDATE", orgID, id)
	return scanEntry(row)
}

func (s *Store) UpdateTx(ctx context.Context, tx pgx.Tx, e Entry) (Entry, error) {
	row := tx.QueryRow(ctx, `
		UPDATE worker_ledger_entries
		SET amount = $3, description = NULLIF($4, ''), entry_date = $5
		WHERE org_id = $1 AND id = $2
		RETURNING `+entryColumns,
		e.OrgID, e.ID, e.Amount, e.Description, e.EntryDate)
	return scanEntry(row)
}

func (s *Store) Delete(ctx context.Context, orgID, id string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM worker_ledger_entries WHERE org_id = $1 AND id = $2", orgID, id)
	return deleteResult(tag, err)
}

func (s *Store) DeleteTx(ctx context.Context, tx pgx.Tx, orgID, id string) error {
	tag, err := tx.Exec(ctx, "DELETE FROM worker_ledger_entries WHERE org_id = $1 AND id = $2", orgID, id)
	return deleteResult(tag, err)
}

func deleteResult(tag pgconn.CommandTag, err error) error {
	if err != nil {
		var pgErr *pgconn.PgError
		// A deduction pointing at this advance restricts the delete.
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrAlreadyDeducted
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeductionExists(ctx context.Context, orgID, advanceID string) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM worker_ledger_entries
			WHERE org_id = $1 AND linked_advance_id = $2
		)
	`, orgID, advanceID).Scan(&exists)
	return exists, err
}

const contractPaidQuery = `
	SELECT COALESCE(SUM(CASE WHEN entry_type = 'credit' THEN amount ELSE -amount END), 0)
	FROM worker_ledger_entries
	WHERE org_id = $1 AND contract_id = $2`

func (s *Store) ContractPaidTotal(ctx context.Context, orgID, contractID string) (decimal.Decimal, error) {
	var paid decimal.Decimal
	err := s.DB.QueryRow(ctx, contractPaidQuery, orgID, contractID).Scan(&paid)
	return paid, err
}

// ContractPaidTotalTx is the same sum inside a transaction, so payment
// caps hold under concurrency.
func (s *Store) ContractPaidTotalTx(ctx context.Context, tx pgx.Tx, orgID, contractID string) (decimal.Decimal, error) {
	var paid decimal.Decimal
	err := tx.QueryRow(ctx, contractPaidQuery, orgID, contractID).Scan(&paid)
	return paid, err
}

func prefixedEntryColumns(prefix string) string {
	return prefix + "id, " + prefix + "org_id, " + prefix + "worker_id, " + prefix + "site_id, " +
		prefix + "entry_type, " + prefix + "category, " + prefix + "amount, " + prefix + "status, " +
		prefix + "allocation_id, " + prefix + "linked_advance_id, " + prefix + "contract_id, " +
		"COALESCE(" + prefix + "description, ''), " + prefix + "entry_date, " + prefix + "paid_date, " +
		prefix + "created_by, " + prefix + "created_at"
}
