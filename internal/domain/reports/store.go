package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("report source not found")

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) RegisterRows(ctx context.Context, orgID, allocationID string) ([]RegisterRow, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT e.id, e.worker_id, u.name, e.entry_type, e.category, e.amount, e.status, e.entry_date, e.paid_date
		FROM worker_ledger_entries e
		JOIN users u ON e.worker_id = u.id
		WHERE e.org_id = $1 AND e.allocation_id = $2
		ORDER BY e.entry_date, e.created_at
	`, orgID, allocationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RegisterRow
	for rows.Next() {
		var r RegisterRow
		if err := rows.Scan(&r.EntryID, &r.WorkerID, &r.WorkerName, &r.Type, &r.Category, &r.Amount, &r.Status, &r.EntryDate, &r.PaidDate); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) StatementRows(ctx context.Context, orgID, workerID string, from, to *time.Time) ([]StatementRow, error) {
	query := `
		SELECT id, entry_type, category, COALESCE(description, ''), amount, status, entry_date
		FROM worker_ledger_entries
		WHERE org_id = $1 AND worker_id = $2`
	args := []any{orgID, workerID}
	if from != nil {
		args = append(args, *from)
		query += fmt.Sprintf(" AND entry_date >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += fmt.Sprintf(" AND entry_date <= $%d", len(args))
	}
	query += " ORDER BY entry_date, created_at"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StatementRow
	for rows.Next() {
		var r StatementRow
		if err := rows.Scan(&r.EntryID, &r.Type, &r.Category, &r.Description, &r.Amount, &r.Status, &r.EntryDate); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Receipt(ctx context.Context, orgID, entryID string) (ReceiptData, error) {
	var data ReceiptData
	err := s.DB.QueryRow(ctx, `
		SELECT o.name, e.id, u.name, u.email, e.category, COALESCE(e.description, ''),
		       e.amount, e.entry_date, e.paid_date, COALESCE(c.name, '')
		FROM worker_ledger_entries e
		JOIN users u ON e.worker_id = u.id
		JOIN organizations o ON e.org_id = o.id
		LEFT JOIN users c ON e.created_by = c.id
		WHERE e.org_id = $1 AND e.id = $2
	`, orgID, entryID).Scan(&data.OrgName, &data.EntryID, &data.WorkerName, &data.WorkerEmail,
		&data.Category, &data.Description, &data.Amount, &data.EntryDate, &data.PaidDate, &data.CreatedBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return ReceiptData{}, ErrNotFound
	}
	if err != nil {
		return ReceiptData{}, err
	}
	return data, nil
}

// WorkerForEntry resolves whose ledger an entry belongs to, for the
// visibility check before rendering.
func (s *Store) WorkerForEntry(ctx context.Context, orgID, entryID string) (string, error) {
	var workerID string
	err := s.DB.QueryRow(ctx, "SELECT worker_id FROM worker_ledger_entries WHERE org_id = $1 AND id = $2", orgID, entryID).Scan(&workerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return workerID, err
}

func (s *Store) WorkerName(ctx context.Context, orgID, workerID string) (string, error) {
	var name string
	err := s.DB.QueryRow(ctx, "SELECT name FROM users WHERE org_id = $1 AND id = $2", orgID, workerID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return name, err
}
