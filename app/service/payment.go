package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/A91A1214/Build-Payment-Gateway/app/entity"
	"github.com/A91A1214/Build-Payment-Gateway/app/factory"
	"github.com/A91A1214/Build-Payment-Gateway/app/gateway"
	"github.com/A91A1214/Build-Payment-Gateway/app/queue"
	"github.com/A91A1214/Build-Payment-Gateway/app/repository"
)

// Seeded test merchant, available without registration.
const (
	TestMerchantID     = "550e8400-e29b-41d4-a716-446655440000"
	TestMerchantEmail  = "test@example.com"
	testMerchantKey    = "key_test_abc123"
	testMerchantSecret = "secret_test_xyz789"
)

type merchantRepository interface {
	Create(ctx context.Context, merchant *entity.Merchant) error
	FindByID(ctx context.Context, id string) (*entity.Merchant, error)
	FindByEmail(ctx context.Context, email string) (*entity.Merchant, error)
	FindByAPIKey(ctx context.Context, apiKey string) (*entity.Merchant, error)
	UpdateWebhookURL(ctx context.Context, id string, webhookURL *string) (*entity.Merchant, error)
}

type orderRepository interface {
	Create(ctx context.Context, order *entity.Order) error
	FindByID(ctx context.Context, id string) (*entity.Order, error)
}

type paymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	FindByID(ctx context.Context, id string) (*entity.Payment, error)
	ListByMerchant(ctx context.Context, merchantID string) ([]*entity.Payment, error)
	MarkTerminal(ctx context.Context, id string, status entity.PaymentStatus, errorCode, errorDescription *string, now time.Time) (bool, error)
}

type refundRepository interface {
	Create(ctx context.Context, refund *entity.Refund) error
	ListByPayment(ctx context.Context, paymentID string) ([]*entity.Refund, error)
}

type jobEnqueuer interface {
	Enqueue(ctx context.Context, name string, payload interface{}) error
}

type PaymentService struct {
	merchantRepo merchantRepository
	orderRepo    orderRepository
	paymentRepo  paymentRepository
	refundRepo   refundRepository

	settlementQueue jobEnqueuer
	simulation      gateway.SimulationConfig

	logger logrus.FieldLogger
}

func NewPaymentService(
	merchantRepo merchantRepository,
	orderRepo orderRepository,
	paymentRepo paymentRepository,
	refundRepo refundRepository,
	settlementQueue jobEnqueuer,
	simulation gateway.SimulationConfig,
) *PaymentService {
	return &PaymentService{
		merchantRepo:    merchantRepo,
		orderRepo:       orderRepo,
		paymentRepo:     paymentRepo,
		refundRepo:      refundRepo,
		settlementQueue: settlementQueue,
		simulation:      simulation,
		logger:          factory.NewModuleLogger("payment-service"),
	}
}

// RegisterMerchant creates a merchant with freshly generated test-mode
// credentials.
func (s *PaymentService) RegisterMerchant(ctx context.Context, name, email string) (*entity.Merchant, error) {
	existing, err := s.merchantRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrMerchantAlreadyExists
	}

	now := time.Now().UTC()
	merchant := &entity.Merchant{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		APIKey:    "key_test_" + randomToken(12),
		APISecret: "secret_test_" + randomToken(12),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.merchantRepo.Create(ctx, merchant); err != nil {
		if errors.Is(err, repository.ErrMerchantAlreadyExists) {
			return nil, ErrMerchantAlreadyExists
		}
		return nil, err
	}
	return merchant, nil
}

// SeedTestMerchant ensures the well-known test merchant exists. Safe to call
// on every startup.
func (s *PaymentService) SeedTestMerchant(ctx context.Context) error {
	existing, err := s.merchantRepo.FindByEmail(ctx, TestMerchantEmail)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	now := time.Now().UTC()
	err = s.merchantRepo.Create(ctx, &entity.Merchant{
		ID:        TestMerchantID,
		Name:      "Test Merchant",
		Email:     TestMerchantEmail,
		APIKey:    testMerchantKey,
		APISecret: testMerchantSecret,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if errors.Is(err, repository.ErrMerchantAlreadyExists) {
		return nil
	}
	return err
}

func (s *PaymentService) GetMerchant(ctx context.Context, id string) (*entity.Merchant, error) {
	merchant, err := s.merchantRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if merchant == nil {
		return nil, ErrMerchantNotFound
	}
	return merchant, nil
}

// AuthenticateMerchant resolves API credentials to a merchant; both the key
// and the secret must match.
func (s *PaymentService) AuthenticateMerchant(ctx context.Context, apiKey, apiSecret string) (*entity.Merchant, error) {
	if apiKey == "" || apiSecret == "" {
		return nil, ErrMerchantNotFound
	}
	merchant, err := s.merchantRepo.FindByAPIKey(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	if merchant == nil || merchant.APISecret != apiSecret {
		return nil, ErrMerchantNotFound
	}
	return merchant, nil
}

func (s *PaymentService) UpdateWebhookURL(ctx context.Context, merchantID string, webhookURL *string) (*entity.Merchant, error) {
	merchant, err := s.merchantRepo.UpdateWebhookURL(ctx, merchantID, webhookURL)
	if err != nil {
		if errors.Is(err, repository.ErrMerchantNotFound) {
			return nil, ErrMerchantNotFound
		}
		return nil, err
	}
	return merchant, nil
}

type CreateOrderInput struct {
	Amount   int64
	Currency string
	Receipt  string
	Notes    map[string]string
}

func (s *PaymentService) CreateOrder(ctx context.Context, merchantID string, in CreateOrderInput) (*entity.Order, error) {
	if in.Amount < 100 {
		return nil, validationError("BAD_REQUEST_ERROR", "amount must be at least 100")
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = "INR"
	}

	order := &entity.Order{
		ID:         newToken("order"),
		MerchantID: merchantID,
		Amount:     in.Amount,
		Currency:   currency,
		Receipt:    optionalString(in.Receipt),
		Notes:      in.Notes,
		Status:     entity.OrderStatusCreated,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":    order.ID,
		"merchant_id": merchantID,
		"amount":      order.Amount,
	}).Info("Order created")

	return order, nil
}

// GetOrder fetches an order owned by the given merchant. A foreign-owned
// order is indistinguishable from a missing one.
func (s *PaymentService) GetOrder(ctx context.Context, merchantID, id string) (*entity.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil || order.MerchantID != merchantID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// GetPublicOrder serves the checkout page: no auth, no ownership check.
func (s *PaymentService) GetPublicOrder(ctx context.Context, id string) (*entity.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

type CardInput struct {
	Number      string
	ExpiryMonth string
	ExpiryYear  string
	CVV         string
	HolderName  string
}

type CreatePaymentInput struct {
	OrderID string
	Method  string
	VPA     string
	Card    *CardInput
}

// CreatePayment validates the instrument, writes the payment in processing
// state, and enqueues the settlement job. merchantID is empty on the public
// checkout path, which skips the ownership check.
func (s *PaymentService) CreatePayment(ctx context.Context, merchantID string, in CreatePaymentInput) (*entity.Payment, error) {
	order, err := s.orderRepo.FindByID(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil || (merchantID != "" && order.MerchantID != merchantID) {
		return nil, ErrOrderNotFound
	}

	now := time.Now().UTC()
	payment := &entity.Payment{
		ID:         newToken("pay"),
		OrderID:    order.ID,
		MerchantID: order.MerchantID,
		Amount:     order.Amount,
		Currency:   order.Currency,
		Status:     entity.PaymentStatusProcessing,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	switch entity.PaymentMethod(in.Method) {
	case entity.PaymentMethodUPI:
		if !ValidateVPA(in.VPA) {
			return nil, validationError("INVALID_VPA", "VPA format invalid")
		}
		payment.Method = entity.PaymentMethodUPI
		payment.VPA = optionalString(in.VPA)

	case entity.PaymentMethodCard:
		card := in.Card
		if card == nil || card.Number == "" || card.ExpiryMonth == "" || card.ExpiryYear == "" || card.CVV == "" || card.HolderName == "" {
			return nil, validationError("BAD_REQUEST_ERROR", "Missing card details")
		}
		if !ValidateLuhn(card.Number) {
			return nil, validationError("INVALID_CARD", "Card validation failed")
		}
		if !ValidateExpiry(card.ExpiryMonth, card.ExpiryYear, now) {
			return nil, validationError("EXPIRED_CARD", "Card expiry date invalid")
		}
		payment.Method = entity.PaymentMethodCard
		payment.CardNetwork = optionalString(DetectNetwork(card.Number))
		payment.CardLast4 = optionalString(lastFourDigits(card.Number))

	default:
		return nil, validationError("BAD_REQUEST_ERROR", "Invalid payment method")
	}

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, err
	}

	job := queue.ProcessPaymentJob{
		PaymentID:      payment.ID,
		Method:         string(payment.Method),
		SimulationMode: s.simulation.Enabled,
		ForcedOutcome:  s.simulation.ForcedSuccess,
		ForcedDelayMS:  s.simulation.ForcedDelay.Milliseconds(),
	}
	if err := s.settlementQueue.Enqueue(ctx, queue.JobProcessPayment, job); err != nil {
		s.logger.WithError(err).WithField("payment_id", payment.ID).Error("Failed to enqueue settlement job")
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"payment_id": payment.ID,
		"order_id":   order.ID,
		"method":     string(payment.Method),
	}).Info("Payment accepted for processing")

	return payment, nil
}

func (s *PaymentService) GetPayment(ctx context.Context, merchantID, id string) (*entity.Payment, error) {
	payment, err := s.paymentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment == nil || payment.MerchantID != merchantID {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

func (s *PaymentService) GetPublicPayment(ctx context.Context, id string) (*entity.Payment, error) {
	payment, err := s.paymentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

type CreateRefundInput struct {
	PaymentID string
	Amount    int64
	Notes     map[string]string
}

// CreateRefund creates a refund against a successful payment. The balance
// check and the insert are serialized per payment inside the repository, so
// concurrent refunds can never jointly exceed the payment amount.
func (s *PaymentService) CreateRefund(ctx context.Context, merchantID string, in CreateRefundInput) (*entity.Refund, error) {
	if in.Amount <= 0 {
		return nil, validationError("BAD_REQUEST_ERROR", "amount must be positive")
	}

	refund := &entity.Refund{
		ID:         newToken("ref"),
		PaymentID:  in.PaymentID,
		MerchantID: merchantID,
		Amount:     in.Amount,
		Status:     entity.RefundStatusProcessed,
		Notes:      in.Notes,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.refundRepo.Create(ctx, refund); err != nil {
		switch {
		case errors.Is(err, repository.ErrPaymentNotFound):
			return nil, ErrPaymentNotFound
		case errors.Is(err, repository.ErrPaymentNotRefundable):
			return nil, ErrPaymentNotRefundable
		case errors.Is(err, repository.ErrInsufficientRefundBalance):
			return nil, ErrInsufficientBalance
		default:
			return nil, err
		}
	}

	s.logger.WithFields(logrus.Fields{
		"refund_id":  refund.ID,
		"payment_id": refund.PaymentID,
		"amount":     refund.Amount,
	}).Info("Refund processed")

	return refund, nil
}

// ListRefunds returns the refunds against one of the merchant's payments.
func (s *PaymentService) ListRefunds(ctx context.Context, merchantID, paymentID string) ([]*entity.Refund, error) {
	payment, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil || payment.MerchantID != merchantID {
		return nil, ErrPaymentNotFound
	}
	return s.refundRepo.ListByPayment(ctx, paymentID)
}

type DashboardStats struct {
	TotalTransactions int
	TotalAmount       int64
	SuccessRate       string
}

func (s *PaymentService) GetDashboardStats(ctx context.Context, merchantID string) (*DashboardStats, error) {
	payments, err := s.paymentRepo.ListByMerchant(ctx, merchantID)
	if err != nil {
		return nil, err
	}

	var successCount int
	var totalAmount int64
	for _, payment := range payments {
		if payment.Status == entity.PaymentStatusSuccess {
			successCount++
			totalAmount += payment.Amount
		}
	}

	rate := 0.0
	if len(payments) > 0 {
		rate = float64(successCount) / float64(len(payments)) * 100
	}

	return &DashboardStats{
		TotalTransactions: len(payments),
		TotalAmount:       totalAmount,
		SuccessRate:       fmt.Sprintf("%d%%", int(math.Round(rate))),
	}, nil
}

func (s *PaymentService) ListTransactions(ctx context.Context, merchantID string) ([]*entity.Payment, error) {
	return s.paymentRepo.ListByMerchant(ctx, merchantID)
}

func newToken(prefix string) string {
	return prefix + "_" + randomToken(16)
}

func randomToken(length int) string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	if length < len(token) {
		token = token[:length]
	}
	return token
}

func optionalString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func lastFourDigits(number string) string {
	digits := nonDigitPattern.ReplaceAllString(number, "")
	if len(digits) <= 4 {
		return digits
	}
	return digits[len(digits)-4:]
}
