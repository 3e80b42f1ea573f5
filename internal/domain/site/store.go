package site

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound     = errors.New("site not found")
	ErrInvalidInput = errors.New("invalid site input")
)

// invalidError carries a caller-fixable message. errors.Is(err, ErrInvalidInput)
// matches it.
type invalidError string

func (e invalidError) Error() string        { return string(e) }
func (e invalidError) Is(target error) bool { return target == ErrInvalidInput }

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const siteColumns = "id, org_id, name, COALESCE(location, ''), status, created_by, created_at, updated_at"

func scanSite(row pgx.Row) (Site, error) {
	var st Site
	err := row.Scan(&st.ID, &st.OrgID, &st.Name, &st.Location, &st.Status, &st.CreatedBy, &st.CreatedAt, &st.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Site{}, ErrNotFound
	}
	return st, err
}

func (s *Store) Create(ctx context.Context, st Site) (Site, error) {
	row := s.DB.QueryRow(ctx, `
		INSERT INTO sites (org_id, name, location, status, created_by)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5)
		RETURNING `+siteColumns,
		st.OrgID, st.Name, st.Location, st.Status, st.CreatedBy)
	return scanSite(row)
}

func (s *Store) Get(ctx context.Context, orgID, id string) (Site, error) {
	row := s.DB.QueryRow(ctx, "SELECT "+siteColumns+" FROM sites WHERE org_id = $1 AND id = $2", orgID, id)
	return scanSite(row)
}

func (s *Store) Exists(ctx context.Context, orgID, id string) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM sites WHERE org_id = $1 AND id = $2)", orgID, id).Scan(&exists)
	return exists, err
}

func (s *Store) List(ctx context.Context, orgID, status string) ([]Site, error) {
	query := "SELECT " + siteColumns + " FROM sites WHERE org_id = $1"
	args := []any{orgID}
	if status != "" {
		query += " AND status = $2"
		args = append(args, status)
	}
	query += " ORDER BY name"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sites []Site
	for rows.Next() {
		var st Site
		if err := rows.Scan(&st.ID, &st.OrgID, &st.Name, &st.Location, &st.Status, &st.CreatedBy, &st.CreatedAt, &st.UpdatedAt); err != nil {
			return nil, err
		}
		sites = append(sites, st)
	}
	return sites, rows.Err()
}

func (s *Store) Update(ctx context.Context, st Site) (Site, error) {
	row := s.DB.QueryRow(ctx, `
		UPDATE sites
		SET name = $3, location = NULLIF($4, ''), status = $5, updated_at = now()
		WHERE org_id = $1 AND id = $2
		RETURNING `+siteColumns,
		st.OrgID, st.ID, st.Name, st.Location, st.Status)
	return scanSite(row)
}

func (s *Store) AddMember(ctx context.Context, orgID, siteID, userID string) error {
	tag, err := s.DB.Exec(ctx, `
		INSERT INTO site_members (site_id, user_id)
		SELECT st.id, u.id
		FROM sites st, users u
		WHERE st.org_id = $1 AND st.id = $2 AND u.org_id = $1 AND u.id = $3
		ON CONFLICT DO NOTHING
	`, orgID, siteID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		err := s.DB.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM site_members WHERE site_id = $1 AND user_id = $2)",
			siteID, userID).Scan(&exists)
		if err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
	}
	return nil
}

func (s *Store) RemoveMember(ctx context.Context, orgID, siteID, userID string) error {
	_, err := s.DB.Exec(ctx, `
		DELETE FROM site_members sm
		USING sites st
		WHERE sm.site_id = st.id AND st.org_id = $1 AND sm.site_id = $2 AND sm.user_id = $3
	`, orgID, siteID, userID)
	return err
}

func (s *Store) Members(ctx context.Context, orgID, siteID string) ([]Member, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT sm.user_id, u.name, u.role, sm.added_at
		FROM site_members sm
		JOIN sites st ON sm.site_id = st.id
		JOIN users u ON sm.user_id = u.id
		WHERE st.org_id = $1 AND sm.site_id = $2
		ORDER BY u.role, u.name
	`, orgID, siteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.UserID, &m.Name, &m.Role, &m.AddedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// SiteIDsForUser lists sites the user is assigned to.
func (s *Store) SiteIDsForUser(ctx context.Context, orgID, userID string) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT sm.site_id
		FROM site_members sm
		JOIN sites st ON sm.site_id = st.id
		WHERE st.org_id = $1 AND sm.user_id = $2
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
