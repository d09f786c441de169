package model

import "time"

// Template is a reusable customer message body. When IncludePrice is set
// the first "£" in the body is expanded with the customer's outstanding
// balance at render time.
type Template struct {
	ID           int64     `db:"id"`
	AccountID    int64     `db:"account_id"`
	Title        string    `db:"title"`
	Body         string    `db:"body"`
	IncludePrice bool      `db:"include_price"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}
