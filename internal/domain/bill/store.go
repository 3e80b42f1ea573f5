package bill

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

const billColumns = "id, org_id, site_id, user_id, vendor_name, COALESCE(gstin, ''), bill_number, bill_date, taxable_amount, gst_rate, gst_amount, total_amount, allocation_id, status, created_at"

func scanBill(row pgx.Row) (Bill, error) {
	var b Bill
	err := row.Scan(&b.ID, &b.OrgID, &b.SiteID, &b.UserID, &b.VendorName, &b.GSTIN, &b.BillNumber,
		&b.BillDate, &b.TaxableAmount, &b.GSTRate, &b.GSTAmount, &b.TotalAmount, &b.AllocationID, &b.Status, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Bill{}, ErrNotFound
	}
	return b, err
}

func (s *Store) CreateTx(ctx context.Context, tx pgx.Tx, b Bill) (Bill, error) {
	row := tx.QueryRow(ctx, `
		INSERT INTO gst_bills
			(org_id, site_id, user_id, vendor_name, gstin, bill_number, bill_date, taxable_amount, gst_rate, gst_amount, total_amount, allocation_id, status)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+billColumns,
		b.OrgID, b.SiteID, b.UserID, b.VendorName, b.GSTIN, b.BillNumber, b.BillDate,
		b.TaxableAmount, b.GSTRate, b.GSTAmount, b.TotalAmount, b.AllocationID, b.Status)
	return scanBill(row)
}

func (s *Store) Get(ctx context.Context, orgID, id string) (Bill, error) {
	row := s.DB.QueryRow(ctx, "SELECT "+billColumns+" FROM gst_bills WHERE org_id = $1 AND id = $2", orgID, id)
	return scanBill(row)
}

func (s *Store) GetForUpdateTx(ctx context.Context, tx pgx.Tx, orgID, id string) (Bill, error) {
	row := tx.QueryRow(ctx, "SELECT "+billColumns+" FROM gst_bills WHERE org_id = $1 AND id = $2 FOR UPDATE", orgID, id)
	return scanBill(row)
}

func (s *Store) List(ctx context.Context, orgID string, filter ListFilter) ([]Bill, error) {
	query := "SELECT " + billColumns + " FROM gst_bills WHERE org_id = $1"
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
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		query += fmt.Sprintf(" AND bill_date >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += fmt.Sprintf(" AND bill_date <= $%d", len(args))
	}
	query += " ORDER BY bill_date DESC, created_at DESC"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bills []Bill
	for rows.Next() {
		var b Bill
		if err := rows.Scan(&b.ID, &b.OrgID, &b.SiteID, &b.UserID, &b.VendorName, &b.GSTIN, &b.BillNumber,
			&b.BillDate, &b.TaxableAmount, &b.GSTRate, &b.GSTAmount, &b.TotalAmount, &b.AllocationID, &b.Status, &b.CreatedAt); err != nil {
			return nil, err
		}
		bills = append(bills, b)
	}
	return bills, rows.Err()
}

func (s *Store) UpdateStatusTx(ctx context.Context, tx pgx.Tx, orgID, id, status string) (Bill, error) {
	row := tx.QueryRow(ctx, `
		UPDATE gst_bills SET status = $3 WHERE org_id = $1 AND id = $2
		RETURNING `+billColumns, orgID, id, status)
	return scanBill(row)
}

func (s *Store) Delete(ctx context.Context, orgID, id string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM gst_bills WHERE org_id = $1 AND id = $2", orgID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
