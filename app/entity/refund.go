package entity

import "time"

// Refunds settle synchronously in the simulation, so the only status a
// refund ever carries is processed.
const RefundStatusProcessed = "processed"

type Refund struct {
	ID         string
	PaymentID  string
	MerchantID string

	Amount   int64
	Currency string

	Status string
	Notes  map[string]string

	CreatedAt time.Time
}
