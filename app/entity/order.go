package entity

import "time"

const OrderStatusCreated = "created"

type Order struct {
	ID         string
	MerchantID string

	Amount   int64
	Currency string

	Receipt *string
	Notes   map[string]string

	Status string

	CreatedAt time.Time
}
