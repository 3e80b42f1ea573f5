package attendance

import (
	"context"
	"errors"
	"fmt"
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

const recordColumns = "id, org_id, worker_id, site_id, att_date, day_units, ledger_entry_id, marked_by, created_at, updated_at"

func scanRecord(row pgx.Row) (Record, error) {
	var r Record
	err := row.Scan(&r.ID, &r.OrgID, &r.WorkerID, &r.SiteID, &r.Date, &r.DayUnits,
		&r.LedgerEntryID, &r.MarkedBy, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return r, err
}

// GetForDateTx locks the mark for one worker/day so a re-mark and a
// settlement cannot interleave on the accrual it points at.
func (s *Store) GetForDateTx(ctx context.Context, tx pgx.Tx, orgID, workerID string, date time.Time) (Record, error) {
	row := tx.QueryRow(ctx, "SELECT "+recordColumns+" FROM attendance_records WHERE org_id = $1 AND worker_id = $2 AND att_date = $3 FOR UPDATE",
		orgID, workerID, date)
	return scanRecord(row)
}

func (s *Store) CreateTx(ctx context.Context, tx pgx.Tx, r Record) (Record, error) {
	row := tx.QueryRow(ctx, `
		INSERT INTO attendance_records (org_id, worker_id, site_id, att_date, day_units, ledger_entry_id, marked_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+recordColumns,
		r.OrgID, r.WorkerID, r.SiteID, r.Date, r.DayUnits, r.LedgerEntryID, r.MarkedBy)
	return scanRecord(row)
}

func (s *Store) UpdateTx(ctx context.Context, tx pgx.Tx, r Record) (Record, error) {
	row := tx.QueryRow(ctx, `
		UPDATE attendance_records
		SET site_id = $3, day_units = $4, ledger_entry_id = $5, marked_by = $6, updated_at = now()
		WHERE org_id = $1 AND id = $2
		RETURNING `+recordColumns,
		r.OrgID, r.ID, r.SiteID, r.DayUnits, r.LedgerEntryID, r.MarkedBy)
	return scanRecord(row)
}

func (s *Store) List(ctx context.Context, orgID string, filter ListFilter) ([]Record, error) {
	query := "SELECT " + recordColumns + " FROM attendance_records WHERE org_id = $1"
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
	if filter.From != nil {
		args = append(args, *filter.From)
		query += fmt.Sprintf(" AND att_date >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += fmt.Sprintf(" AND att_date <= $%d", len(args))
	}
	query += " ORDER BY att_date DESC, created_at DESC"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.OrgID, &r.WorkerID, &r.SiteID, &r.Date, &r.DayUnits,
			&r.LedgerEntryID, &r.MarkedBy, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Store) WorkerSummary(ctx context.Context, orgID, workerID string, filter ListFilter) (Summary, error) {
	query := "SELECT COALESCE(SUM(day_units), 0), COUNT(*) FROM attendance_records WHERE org_id = $1 AND worker_id = $2"
	args := []any{orgID, workerID}
	if filter.SiteID != "" {
		args = append(args, filter.SiteID)
		query += fmt.Sprintf(" AND site_id = $%d", len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		query += fmt.Sprintf(" AND att_date >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += fmt.Sprintf(" AND att_date <= $%d", len(args))
	}

	var sum Summary
	if err := s.DB.QueryRow(ctx, query, args...).Scan(&sum.TotalUnits, &sum.DaysMarked); err != nil {
		return Summary{}, err
	}
	sum.WorkerID = workerID
	return sum, nil
}
