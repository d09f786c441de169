package model

import "time"

type NotificationStatus string

const (
	NoticeQueued NotificationStatus = "queued"
	NoticeSent   NotificationStatus = "sent"
	NoticeFailed NotificationStatus = "failed"
)

func (s NotificationStatus) String() string {
	return string(s)
}

func (s NotificationStatus) Valid() bool {
	return s == NoticeQueued || s == NoticeSent || s == NoticeFailed
}

// Notification is the DB entity persisted in the notifications table.
type Notification struct {
	ID         string             `db:"id"` // ULID
	AccountID  int64              `db:"account_id"`
	CustomerID int64              `db:"customer_id"`
	Phone      string             `db:"phone"`
	Text       string             `db:"text"`
	Status     NotificationStatus `db:"status"`
	CreatedAt  time.Time          `db:"created_at"`
	UpdatedAt  time.Time          `db:"updated_at"`
}
