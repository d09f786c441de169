package repository

import (
	"context"
	"strings"

	"github.com/gwhitt/roundbook/internal/model"
	"github.com/jmoiron/sqlx"
)

// HistoryRepository is the append-only job history on ClickHouse. The
// engine only needs Append; ListByCustomer backs the customer history
// view.
type HistoryRepository interface {
	Append(ctx context.Context, customerID int64, message string) error
	AppendBatch(ctx context.Context, entries []model.HistoryEntry) error
	ListByCustomer(ctx context.Context, customerID int64, limit, offset int) ([]model.HistoryEntry, error)
}

type historyRepo struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewHistoryRepository(ch *sqlx.DB) HistoryRepository {
	return &historyRepo{ch: ch}
}

func (r *historyRepo) Append(ctx context.Context, customerID int64, message string) error {
	_, err := r.ch.ExecContext(ctx, `
		INSERT INTO roundbook.history (customer_id, message, created_at)
		VALUES (?, ?, now())
	`, customerID, message)
	return err
}

func (r *historyRepo) AppendBatch(ctx context.Context, entries []model.HistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}

	var sb strings.Builder
	args := make([]any, 0, len(entries)*2)

	sb.WriteString(`INSERT INTO roundbook.history (customer_id, message, created_at) VALUES `)
	for i, e := range entries {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?, now())")
		args = append(args, e.CustomerID, e.Message)
	}

	_, err := r.ch.ExecContext(ctx, sb.String(), args...)
	return err
}

func (r *historyRepo) ListByCustomer(ctx context.Context, customerID int64, limit, offset int) ([]model.HistoryEntry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var rows []model.HistoryEntry
	err := r.ch.SelectContext(ctx, &rows, `
		SELECT customer_id, message, created_at
		FROM roundbook.history
		WHERE customer_id = ?
		ORDER BY created_at DESC LIMIT ? OFFSET ?
	`, customerID, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
