package identity

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const userColumns = "id, org_id, parent_id, name, email, COALESCE(phone, ''), role, daily_wage, status, created_at, updated_at"

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.OrgID, &u.ParentID, &u.Name, &u.Email, &u.Phone, &u.Role, &u.DailyWage, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	u.RoleLabel = RoleName(u.Role)
	return u, nil
}

func (s *Store) Create(ctx context.Context, u User, passwordHash string) (User, error) {
	row := s.DB.QueryRow(ctx, `
		INSERT INTO users (org_id, parent_id, name, email, phone, password_hash, role, daily_wage, status)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9)
		RETURNING `+userColumns,
		u.OrgID, u.ParentID, u.Name, u.Email, u.Phone, passwordHash, u.Role, u.DailyWage, u.Status)

	created, err := scanUser(row)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return User{}, ErrEmailTaken
	}
	return created, err
}

func (s *Store) GetByID(ctx context.Context, orgID, id string) (User, error) {
	row := s.DB.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE org_id = $1 AND id = $2", orgID, id)
	return scanUser(row)
}

// FindByEmail also returns the stored password hash for credential checks.
func (s *Store) FindByEmail(ctx context.Context, email string) (User, string, error) {
	var u User
	var hash string
	err := s.DB.QueryRow(ctx, `
		SELECT `+userColumns+`, password_hash
		FROM users
		WHERE email = $1
	`, email).Scan(&u.ID, &u.OrgID, &u.ParentID, &u.Name, &u.Email, &u.Phone, &u.Role, &u.DailyWage, &u.Status, &u.CreatedAt, &u.UpdatedAt, &hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, "", ErrNotFound
	}
	if err != nil {
		return User{}, "", err
	}
	u.RoleLabel = RoleName(u.Role)
	return u, hash, nil
}

func (s *Store) List(ctx context.Context, orgID string, filter ListFilter) ([]User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE org_id = $1"
	args := []any{orgID}
	if filter.Role != 0 {
		args = append(args, filter.Role)
		query += " AND role = $" + strconv.Itoa(len(args))
	}
	if filter.ParentID != "" {
		args = append(args, filter.ParentID)
		query += " AND parent_id = $" + strconv.Itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += " AND status = $" + strconv.Itoa(len(args))
	}
	query += " ORDER BY role, name"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectUsers(rows)
}

func (s *Store) ListByIDs(ctx context.Context, orgID string, ids []string) ([]User, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+userColumns+" FROM users WHERE org_id = $1 AND id = ANY($2) ORDER BY role, name", orgID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectUsers(rows)
}

func (s *Store) Update(ctx context.Context, u User) (User, error) {
	row := s.DB.QueryRow(ctx, `
		UPDATE users
		SET name = $3, phone = NULLIF($4, ''), parent_id = $5, daily_wage = $6, status = $7, updated_at = now()
		WHERE org_id = $1 AND id = $2
		RETURNING `+userColumns,
		u.OrgID, u.ID, u.Name, u.Phone, u.ParentID, u.DailyWage, u.Status)
	return scanUser(row)
}

// SubordinateIDs walks the reporting tree below userID. The set is computed
// fresh on every call; nothing caches it across requests.
func (s *Store) SubordinateIDs(ctx context.Context, orgID, userID string) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
		WITH RECURSIVE subordinates AS (
			SELECT id FROM users WHERE org_id = $1 AND parent_id = $2
			UNION ALL
			SELECT u.id
			FROM users u
			JOIN subordinates s ON u.parent_id = s.id
			WHERE u.org_id = $1
		)
		SELECT id FROM subordinates
	`, orgID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func collectUsers(rows pgx.Rows) ([]User, error) {
	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.OrgID, &u.ParentID, &u.Name, &u.Email, &u.Phone, &u.Role, &u.DailyWage, &u.Status, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		u.RoleLabel = RoleName(u.Role)
		users = append(users, u)
	}
	return users, rows.Err()
}
