package model

import "time"

// HistoryEntry is one append-only line in a customer's job history.
type HistoryEntry struct {
	CustomerID int64     `db:"customer_id" json:"customer_id"`
	Message    string    `db:"message"     json:"message"`
	CreatedAt  time.Time `db:"created_at"  json:"created_at"`
}
