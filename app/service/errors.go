package service

import (
	"errors"
	"fmt"
)

var (
	ErrMerchantNotFound      = errors.New("merchant not found")
	ErrMerchantAlreadyExists = errors.New("merchant already exists")
	ErrOrderNotFound         = errors.New("order not found")
	ErrPaymentNotFound       = errors.New("payment not found")
	ErrPaymentNotRefundable  = errors.New("only successful payments can be refunded")
	ErrInsufficientBalance   = errors.New("refund amount exceeds available balance")
)

// ValidationError is a caller error with a machine-readable code. It is
// raised before any side effect, so a rejected request leaves no trace.
type ValidationError struct {
	Code        string
	Description string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

func validationError(code, description string) error {
	return &ValidationError{Code: code, Description: description}
}
