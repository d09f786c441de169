package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gwhitt/roundbook/internal/model"
	"github.com/jmoiron/sqlx"
)

type TemplatesRepository interface {
	GetByID(ctx context.Context, accountID, id int64) (*model.Template, error)
}

type templatesRepo struct {
	db *sqlx.DB
}

func NewTemplatesRepository(db *sqlx.DB) TemplatesRepository {
	return &templatesRepo{db: db}
}

func (r *templatesRepo) GetByID(ctx context.Context, accountID, id int64) (*model.Template, error) {
	var t model.Template
	err := r.db.GetContext(ctx, &t, `
		SELECT id, account_id, title, body, include_price, created_at, updated_at
		  FROM templates
		 WHERE account_id = ? AND id = ? LIMIT 1
	`, accountID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
