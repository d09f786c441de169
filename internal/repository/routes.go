package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// RoutesRepository persists the route ledger: one comma-joined id
// sequence per account, replaced whole on every write. Consumers read
// before mutating a subsequence; there are no partial updates.
type RoutesRepository interface {
	Read(ctx context.Context, accountID int64) (string, error)
	Write(ctx context.Context, accountID int64, sequence string) error
}

type routesRepo struct {
	db *sqlx.DB
}

func NewRoutesRepository(db *sqlx.DB) RoutesRepository {
	return &routesRepo{db: db}
}

// Read returns the persisted sequence. A missing row is an empty ledger.
func (r *routesRepo) Read(ctx context.Context, accountID int64) (string, error) {
	var seq string
	err := r.db.QueryRowxContext(ctx,
		`SELECT sequence FROM route_ledgers WHERE account_id = ?`, accountID,
	).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return seq, nil
}

func (r *routesRepo) Write(ctx context.Context, accountID int64, sequence string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO route_ledgers (account_id, sequence, updated_at)
		VALUES (?, ?, NOW())
		ON DUPLICATE KEY UPDATE sequence = VALUES(sequence), updated_at = VALUES(updated_at)
	`, accountID, sequence)
	return err
}
