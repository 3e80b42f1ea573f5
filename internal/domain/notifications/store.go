package notifications

import "github.com/jackc/pgx/v5/pgxpool"

// Store persists in-app notifications; the send path in service.go goes
// through StoreAPI so tests can swap it out.
type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}
