package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/gwhitt/roundbook/internal/model"
	"github.com/gwhitt/roundbook/internal/schedule"
	"github.com/jmoiron/sqlx"
)

// CustomerUpdate is a partial update: only non-nil fields are written.
type CustomerUpdate struct {
	NextDue     *schedule.Date
	Outstanding *int64
	Price       *int64
	NextService *string
}

func (u CustomerUpdate) empty() bool {
	return u.NextDue == nil && u.Outstanding == nil && u.Price == nil && u.NextService == nil
}

type CustomersRepository interface {
	ListByAccount(ctx context.Context, accountID int64) ([]model.Customer, error)
	GetByID(ctx context.Context, accountID, id int64) (*model.Customer, error)
	Update(ctx context.Context, accountID, id int64, upd CustomerUpdate) error
}

type CustomersRepositoryImpl struct {
	db *sqlx.DB
}

func NewCustomersRepository(db *sqlx.DB) *CustomersRepositoryImpl {
	return &CustomersRepositoryImpl{db: db}
}

var _ CustomersRepository = (*CustomersRepositoryImpl)(nil)

const customerColumns = `id, account_id, name, address, phone, price, outstanding,
	next_due, weeks, route_tag, next_service, notes, created_at, updated_at`

func (r *CustomersRepositoryImpl) ListByAccount(ctx context.Context, accountID int64) ([]model.Customer, error) {
	var rows []model.Customer
	err := r.db.SelectContext(ctx, &rows, `
		SELECT `+customerColumns+`
		  FROM customers
		 WHERE account_id = ?
		 ORDER BY next_due IS NULL, next_due, id
	`, accountID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *CustomersRepositoryImpl) GetByID(ctx context.Context, accountID, id int64) (*model.Customer, error) {
	var c model.Customer
	err := r.db.GetContext(ctx, &c, `
		SELECT `+customerColumns+`
		  FROM customers
		 WHERE account_id = ? AND id = ? LIMIT 1
	`, accountID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Update writes only the fields set in upd. An empty update is a no-op.
func (r *CustomersRepositoryImpl) Update(ctx context.Context, accountID, id int64, upd CustomerUpdate) error {
	if upd.empty() {
		return nil
	}

	var sets []string
	var args []any
	if upd.NextDue != nil {
		sets = append(sets, "next_due = ?")
		args = append(args, upd.NextDue.String())
	}
	if upd.Outstanding != nil {
		sets = append(sets, "outstanding = ?")
		args = append(args, *upd.Outstanding)
	}
	if upd.Price != nil {
		sets = append(sets, "price = ?")
		args = append(args, *upd.Price)
	}
	if upd.NextService != nil {
		sets = append(sets, "next_service = ?")
		args = append(args, *upd.NextService)
	}
	sets = append(sets, "updated_at = NOW()")

	query := `UPDATE customers SET ` + strings.Join(sets, ", ") + ` WHERE account_id = ? AND id = ?`
	args = append(args, accountID, id)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// MySQL reports 0 for both "missing" and "unchanged"; re-check.
		c, gerr := r.GetByID(ctx, accountID, id)
		if gerr != nil {
			return gerr
		}
		if c == nil {
			return sql.ErrNoRows
		}
	}
	return nil
}
