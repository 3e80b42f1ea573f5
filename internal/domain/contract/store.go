package contract

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

const contractColumns = "id, org_id, worker_id, site_id, title, total_value, status, created_by, created_at"

func scanContract(row pgx.Row) (Contract, error) {
	var c Contract
	err := row.Scan(&c.ID, &c.OrgID, &c.WorkerID, &c.SiteID, &c.Title, &c.TotalValue, &c.Status, &c.CreatedBy, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Contract{}, ErrNotFound
	}
	return c, err
}

func (s *Store) Create(ctx context.Context, c Contract) (Contract, error) {
	row := s.DB.QueryRow(ctx, `
		INSERT INTO contracts (org_id, worker_id, site_id, title, total_value, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+contractColumns,
		c.OrgID, c.WorkerID, c.SiteID, c.Title, c.TotalValue, c.Status, c.CreatedBy)
	return scanContract(row)
}

func (s *Store) Get(ctx context.Context, orgID, id string) (Contract, error) {
	row := s.DB.QueryRow(ctx, "SELECT "+contractColumns+" FROM contracts WHERE org_id = $1 AND id = $2", orgID, id)
	return scanContract(row)
}

// GetForUpdateTx serializes payments and status flips on one contract.
func (s *Store) GetForUpdateTx(ctx context.Context, tx pgx.Tx, orgID, id string) (Contract, error) {
	row := tx.QueryRow(ctx, "SELECT "+contractColumns+" FROM contracts WHERE org_id = $1 AND id = $2 FOR UPDATE", orgID, id)
	return scanContract(row)
}

func (s *Store) List(ctx context.Context, orgID string, filter ListFilter) ([]Contract, error) {
	query := "SELECT " + contractColumns + " FROM contracts WHERE org_id = $1"
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
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contracts []Contract
	for rows.Next() {
		var c Contract
		if err := rows.Scan(&c.ID, &c.OrgID, &c.WorkerID, &c.SiteID, &c.Title, &c.TotalValue, &c.Status, &c.CreatedBy, &c.CreatedAt); err != nil {
			return nil, err
		}
		contracts = append(contracts, c)
	}
	return contracts, rows.Err()
}

func (s *Store) UpdateStatusTx(ctx context.Context, tx pgx.Tx, orgID, id, status string) (Contract, error) {
	row := tx.QueryRow(ctx, `
		UPDATE contracts SET status = $3 WHERE org_id = $1 AND id = $2
		RETURNING `+contractColumns, orgID, id, status)
	return scanContract(row)
}
