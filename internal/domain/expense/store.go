package expense

import (
	"context"
	"errors"
	"fmt"

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

const expenseColumns = "id, org_id, site_id, user_id, allocation_id, category, amount, COALESCE(description, ''), expense_date, status, created_at"

func scanExpense(row pgx.Row) (Expense, error) {
	var e Expense
	err := row.Scan(&e.ID, &e.OrgID, &e.SiteID, &e.UserID, &e.AllocationID, &e.Category,
		&e.Amount, &e.Description, &e.ExpenseDate, &e.Status, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Expense{}, ErrNotFound
	}
	return e, err
}

func (s *Store) CreateTx(ctx context.Context, tx pgx.Tx, e Expense) (Expense, error) {
	row := tx.QueryRow(ctx, `
		INSERT INTO expenses (org_id, site_id, user_id, allocation_id, category, amount, description, expense_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9)
		RETURNING `+expenseColumns,
		e.OrgID, e.SiteID, e.UserID, e.AllocationID, e.Category, e.Amount, e.Description, e.ExpenseDate, e.Status)
	return scanExpense(row)
}

func (s *Store) Get(ctx context.Context, orgID, id string) (Expense, error) {
	row := s.DB.QueryRow(ctx, "SELECT "+expenseColumns+" FROM expenses WHERE org_id = $1 AND id = $2", orgID, id)
	return scanExpense(row)
}

func (s *Store) List(ctx context.Context, orgID string, filter ListFilter) ([]Expense, error) {
	query := "SELECT " + expenseColumns + " FROM expenses WHERE org_id = $1"
	args := []any{orgID}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		query += fmt.Sprintf(" AND user_id = $%d", len(args))
	} else if len(filter.UserIDs) > 0 {
		args = append(args, filter.UserIDs)
		query += fmt.Sprintf(" AND user_id = ANY($%d)", len(args))
	}
	if filter.SiteID != "" {
		args = append(args, filter.SiteID)
		query += fmt.Sprintf(" AND site_id = $%d", len(args))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		query += fmt.Sprintf(" AND expense_date >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += fmt.Sprintf(" AND expense_date <= $%d", len(args))
	}
	query += " ORDER BY expense_date DESC, created_at DESC"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []Expense
	for rows.Next() {
		var e Expense
		if err := rows.Scan(&e.ID, &e.OrgID, &e.SiteID, &e.UserID, &e.AllocationID, &e.Category,
			&e.Amount, &e.Description, &e.ExpenseDate, &e.Status, &e.CreatedAt); err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (s *Store) Delete(ctx context.Context, orgID, id string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM expenses WHERE org_id = $1 AND id = $2", orgID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
