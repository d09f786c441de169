package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// PricingCatalog answers the canonical per-customer price for a named
// service. The customer row's price field can drift from this list
// through independent edits; completion re-reads it here.
type PricingCatalog interface {
	// Lookup returns (price, true) when a catalog row exists, (0, false)
	// when the customer has no entry for the service.
	Lookup(ctx context.Context, customerID int64, service string) (int64, bool, error)
}

type pricingRepo struct {
	db *sqlx.DB
}

func NewPricingCatalog(db *sqlx.DB) PricingCatalog {
	return &pricingRepo{db: db}
}

func (r *pricingRepo) Lookup(ctx context.Context, customerID int64, service string) (int64, bool, error) {
	var price int64
	err := r.db.QueryRowxContext(ctx, `
		SELECT price FROM price_list
		 WHERE customer_id = ? AND service = ? LIMIT 1
	`, customerID, service).Scan(&price)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return price, true, nil
}
