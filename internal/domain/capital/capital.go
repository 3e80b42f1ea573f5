package capital

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"siteledger/internal/domain/identity"
)

var (
	ErrNotFound     = errors.New("capital contribution not found")
	ErrForbidden    = errors.New("capital records are developer-only")
	ErrInvalidInput = errors.New("invalid capital input")
)

// invalidError carries a caller-fixable message. errors.Is(err, ErrInvalidInput)
// matches it.
type invalidError string

func (e invalidError) Error() string        { return string(e) }
func (e invalidError) Is(target error) bool { return target == ErrInvalidInput }

// Contribution is money a partner put into the organization's pool.
type Contribution struct {
	ID          string          `json:"id"`
	OrgID       string          `json:"orgId"`
	PartnerName string          `json:"partnerName"`
	Amount      decimal.Decimal `json:"amount"`
	Note        string          `json:"note,omitempty"`
	ReceivedOn  time.Time       `json:"receivedOn"`
	CreatedBy   string          `json:"createdBy"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type CreateInput struct {
	PartnerName string          `json:"partnerName"`
	Amount      decimal.Decimal `json:"amount"`
	Note        string          `json:"note"`
	ReceivedOn  string          `json:"receivedOn"`
}

// PoolBalance is what the org pool still holds: contributions in, pool
// allocations out.
type PoolBalance struct {
	Contributed decimal.Decimal `json:"contributed"`
	Disbursed   decimal.Decimal `json:"disbursed"`
	Balance     decimal.Decimal `json:"balance"`
}

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const contributionColumns = "id, org_id, partner_name, amount, COALESCE(note, ''), received_on, created_by, created_at"

func (s *Store) Create(ctx context.Context, c Contribution) (Contribution, error) {
	row := s.DB.QueryRow(ctx, `
		INSERT INTO capital_contributions (org_id, partner_name, amount, note, received_on, created_by)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
		RETURNING `+contributionColumns,
		c.OrgID, c.PartnerName, c.Amount, c.Note, c.ReceivedOn, c.CreatedBy)
	return scanContribution(row)
}

func scanContribution(row pgx.Row) (Contribution, error) {
	var c Contribution
	err := row.Scan(&c.ID, &c.OrgID, &c.PartnerName, &c.Amount, &c.Note, &c.ReceivedOn, &c.CreatedBy, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Contribution{}, ErrNotFound
	}
	return c, err
}

func (s *Store) List(ctx context.Context, orgID string) ([]Contribution, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+contributionColumns+" FROM capital_contributions WHERE org_id = $1 ORDER BY received_on DESC, created_at DESC", orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contributions []Contribution
	for rows.Next() {
		var c Contribution
		if err := rows.Scan(&c.ID, &c.OrgID, &c.PartnerName, &c.Amount, &c.Note, &c.ReceivedOn, &c.CreatedBy, &c.CreatedAt); err != nil {
			return nil, err
		}
		contributions = append(contributions, c)
	}
	return contributions, rows.Err()
}

func (s *Store) PoolBalance(ctx context.Context, orgID string) (PoolBalance, error) {
	var b PoolBalance
	err := s.DB.QueryRow(ctx, `
		SELECT
			COALESCE((SELECT SUM(amount) FROM capital_contributions WHERE org_id = $1), 0),
			COALESCE((SELECT SUM(amount) FROM fund_allocations
				WHERE org_id = $1 AND from_user_id IS NULL AND status = 'disbursed'), 0)
	`, orgID).Scan(&b.Contributed, &b.Disbursed)
	if err != nil {
		return PoolBalance{}, err
	}
	b.Balance = b.Contributed.Sub(b.Disbursed)
	return b, nil
}

type Service struct {
	Store *Store
}

func NewService(store *Store) *Service {
	return &Service{Store: store}
}

func (s *Service) Create(ctx context.Context, caller identity.UserContext, in CreateInput) (Contribution, error) {
	if caller.Role != identity.RoleDeveloper {
		return Contribution{}, ErrForbidden
	}
	if strings.TrimSpace(in.PartnerName) == "" {
		return Contribution{}, invalidError("partner name is required")
	}
	if !in.Amount.IsPositive() {
		return Contribution{}, invalidError("amount must be positive")
	}

	receivedOn, err := parseDate(in.ReceivedOn)
	if err != nil {
		return Contribution{}, err
	}

	return s.Store.Create(ctx, Contribution{
		OrgID:       caller.OrgID,
		PartnerName: strings.TrimSpace(in.PartnerName),
		Amount:      in.Amount,
		Note:        strings.TrimSpace(in.Note),
		ReceivedOn:  receivedOn,
		CreatedBy:   caller.UserID,
	})
}

func (s *Service) List(ctx context.Context, caller identity.UserContext) ([]Contribution, error) {
	if caller.Role != identity.RoleDeveloper {
		return nil, ErrForbidden
	}
	return s.Store.List(ctx, caller.OrgID)
}

// Balance reports the pool position. The pool is informational; pool
// allocations are not gated on it, so the balance can run negative and
// that is worth seeing.
func (s *Service) Balance(ctx context.Context, caller identity.UserContext) (PoolBalance, error) {
	if caller.Role != identity.RoleDeveloper {
		return PoolBalance{}, ErrForbidden
	}
	return s.Store.PoolBalance(ctx, caller.OrgID)
}

func parseDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	parsed, err := time.Parse("2006-01-02", trimmed)
	if err != nil {
		return time.Time{}, invalidError("received date must be YYYY-MM-DD")
	}
	return parsed, nil
}
