package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"siteledger/internal/auth"
	"siteledger/internal/domain/identity"
	"siteledger/internal/platform/config"
)

// Seed makes sure the configured organization and its owning developer
// account exist. It is safe to run on every boot.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	orgID, err := ensureOrganization(ctx, pool, cfg.SeedOrgName)
	if err != nil {
		return err
	}
	return ensureOwner(ctx, pool, orgID, cfg.SeedOwnerName, cfg.SeedOwnerEmail, cfg.SeedOwnerPassword)
}

func ensureOrganization(ctx context.Context, pool *pgxpool.Pool, name string) (string, error) {
	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM organizations WHERE name = $1", name).Scan(&id)
	if err == nil {
		return id, nil
	}

	err = pool.QueryRow(ctx, "INSERT INTO organizations (name) VALUES ($1) RETURNING id", name).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func ensureOwner(ctx context.Context, pool *pgxpool.Pool, orgID, name, email, password string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return nil
	}

	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM users WHERE org_id = $1 AND email = $2", orgID, email).Scan(&id)
	if err == nil {
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	err = pool.QueryRow(ctx,
		"INSERT INTO users (org_id, name, email, password_hash, role) VALUES ($1, $2, $3, $4, $5) RETURNING id",
		orgID, name, email, hash, identity.RoleDeveloper,
	).Scan(&id)
	return err
}
