package entity

import "time"

type PaymentStatus string

const (
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusSuccess    PaymentStatus = "success"
	PaymentStatusFailed     PaymentStatus = "failed"
)

// Terminal reports whether no further state transition is permitted.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusSuccess || s == PaymentStatusFailed
}

type PaymentMethod string

const (
	PaymentMethodUPI  PaymentMethod = "upi"
	PaymentMethodCard PaymentMethod = "card"
)

type Payment struct {
	ID         string
	OrderID    string
	MerchantID string

	// Amount and Currency are copied from the order at creation and never
	// change afterwards.
	Amount   int64
	Currency string

	Method PaymentMethod

	// upi only
	VPA *string

	// card only; the PAN and CVV are never stored
	CardNetwork *string
	CardLast4   *string

	Status           PaymentStatus
	ErrorCode        *string
	ErrorDescription *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
