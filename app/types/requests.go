package types

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
)

type RegisterMerchantRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func NewRegisterMerchantRequestFromContext(ctx echo.Context) (*RegisterMerchantRequest, error) {
	var body RegisterMerchantRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Name = strings.TrimSpace(body.Name)
	body.Email = strings.ToLower(strings.TrimSpace(body.Email))

	return &body, nil
}

func (r *RegisterMerchantRequest) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	if r.Email == "" || !strings.Contains(r.Email, "@") {
		return errors.New("a valid email is required")
	}
	return nil
}

type UpdateMerchantRequest struct {
	WebhookURL *string `json:"webhook_url"`
}

func NewUpdateMerchantRequestFromContext(ctx echo.Context) (*UpdateMerchantRequest, error) {
	var body UpdateMerchantRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	if body.WebhookURL != nil {
		trimmed := strings.TrimSpace(*body.WebhookURL)
		body.WebhookURL = &trimmed
	}

	return &body, nil
}

func (r *UpdateMerchantRequest) Validate() error {
	if r.WebhookURL != nil && *r.WebhookURL != "" &&
		!strings.HasPrefix(*r.WebhookURL, "http://") && !strings.HasPrefix(*r.WebhookURL, "https://") {
		return errors.New("webhook_url must be an http(s) URL")
	}
	return nil
}

type CreateOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes"`
}

func NewCreateOrderRequestFromContext(ctx echo.Context) (*CreateOrderRequest, error) {
	var body CreateOrderRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Currency = strings.ToUpper(strings.TrimSpace(body.Currency))
	body.Receipt = strings.TrimSpace(body.Receipt)

	return &body, nil
}

func (r *CreateOrderRequest) Validate() error {
	if r.Amount < 100 {
		return errors.New("amount must be at least 100")
	}
	if r.Currency != "" && len(r.Currency) != 3 {
		return errors.New("currency must be 3 letters")
	}
	return nil
}

type CardDetails struct {
	Number      string `json:"number"`
	ExpiryMonth string `json:"expiry_month"`
	ExpiryYear  string `json:"expiry_year"`
	CVV         string `json:"cvv"`
	HolderName  string `json:"holder_name"`
}

type CreatePaymentRequest struct {
	OrderID string       `json:"order_id"`
	Method  string       `json:"method"`
	VPA     string       `json:"vpa"`
	Card    *CardDetails `json:"card"`
}

func NewCreatePaymentRequestFromContext(ctx echo.Context) (*CreatePaymentRequest, error) {
	var body CreatePaymentRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.OrderID = strings.TrimSpace(body.OrderID)
	body.Method = strings.ToLower(strings.TrimSpace(body.Method))
	body.VPA = strings.TrimSpace(body.VPA)
	if body.Card != nil {
		body.Card.Number = strings.TrimSpace(body.Card.Number)
		body.Card.ExpiryMonth = strings.TrimSpace(body.Card.ExpiryMonth)
		body.Card.ExpiryYear = strings.TrimSpace(body.Card.ExpiryYear)
		body.Card.CVV = strings.TrimSpace(body.Card.CVV)
		body.Card.HolderName = strings.TrimSpace(body.Card.HolderName)
	}

	return &body, nil
}

func (r *CreatePaymentRequest) Validate() error {
	if r.OrderID == "" {
		return errors.New("order_id is required")
	}
	if r.Method != "upi" && r.Method != "card" {
		return errors.New("method must be upi or card")
	}
	if r.Method == "upi" && r.VPA == "" {
		return errors.New("vpa is required for upi payments")
	}
	if r.Method == "card" && r.Card == nil {
		return errors.New("card details are required for card payments")
	}
	return nil
}

type CreateRefundRequest struct {
	PaymentID string            `json:"payment_id"`
	Amount    int64             `json:"amount"`
	Notes     map[string]string `json:"notes"`
}

func NewCreateRefundRequestFromContext(ctx echo.Context) (*CreateRefundRequest, error) {
	var body CreateRefundRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.PaymentID = strings.TrimSpace(body.PaymentID)

	return &body, nil
}

func (r *CreateRefundRequest) Validate() error {
	if r.PaymentID == "" {
		return errors.New("payment_id is required")
	}
	if r.Amount <= 0 {
		return errors.New("amount must be > 0")
	}
	return nil
}
