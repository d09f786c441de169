package model

import (
	"time"

	"github.com/gwhitt/roundbook/internal/schedule"
)

// Customer is a recurring job site. Prices and balances are pence.
type Customer struct {
	ID          int64             `db:"id"`
	AccountID   int64             `db:"account_id"`
	Name        string            `db:"name"`
	Address     string            `db:"address"`
	Phone       string            `db:"phone"`
	Price       int64             `db:"price"`
	Outstanding int64             `db:"outstanding"`
	NextDue     schedule.NullDate `db:"next_due"` // unset until first scheduled
	Weeks       int               `db:"weeks"`    // recurrence interval, 0 = one-off
	RouteTag    string            `db:"route_tag"` // display grouping only, never ordering
	NextService string            `db:"next_service"`
	Notes       string            `db:"notes"`
	CreatedAt   time.Time         `db:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at"`
}
