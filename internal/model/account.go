package model

import "time"

// Account is one window-cleaning business using the service. The route
// ledger and all customers hang off it.
type Account struct {
	ID             int64     `db:"id"`
	Name           string    `db:"name"`
	APIKey         string    `db:"api_key"`
	Status         string    `db:"status"` // active|suspended
	RateLimitRPS   *int      `db:"rate_limit_rps"` // nullable
	DefaultService string    `db:"default_service"`
	MessageFooter  string    `db:"message_footer"`
	PayTemplateID  *int64    `db:"pay_template_id"` // payment notice template, nullable
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}
