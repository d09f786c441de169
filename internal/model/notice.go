package model

// Notice is an assembled customer message ready for delivery.
type Notice struct {
	Phone string `json:"phone"`
	Text  string `json:"text"`
}

// Envelope is the payload published to Kafka (via the outbox relay).
type Envelope struct {
	ID         string `json:"id"` // notification ULID
	AccountID  int64  `json:"account_id"`
	CustomerID int64  `json:"customer_id"`
	Notice     Notice `json:"notice"`
}
