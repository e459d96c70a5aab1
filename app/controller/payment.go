package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/A91A1214/Build-Payment-Gateway/app/factory"
	"github.com/A91A1214/Build-Payment-Gateway/app/mapper"
	"github.com/A91A1214/Build-Payment-Gateway/app/service"
	"github.com/A91A1214/Build-Payment-Gateway/app/types"
)

// API error codes, stable across the whole surface.
const (
	CodeBadRequest          = "BAD_REQUEST_ERROR"
	CodeAuthentication      = "AUTHENTICATION_ERROR"
	CodeNotFound            = "NOT_FOUND_ERROR"
	CodeInternal            = "SERVER_ERROR"
	CodeInsufficientBalance = "INSUFFICIENT_REFUND_AMOUNT"
)

type PaymentController struct {
	paymentService *service.PaymentService
	logger         logrus.FieldLogger
}

func NewPaymentController(paymentService *service.PaymentService) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
		logger:         factory.NewModuleLogger("gateway-controller"),
	}
}

func (c *PaymentController) RegisterMerchant(ctx echo.Context) error {
	req, err := types.NewRegisterMerchantRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, CodeBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, CodeBadRequest, err.Error())
	}

	merchant, err := c.paymentService.RegisterMerchant(ctx.Request().Context(), req.Name, req.Email)
	if err != nil {
		if errors.Is(err, service.ErrMerchantAlreadyExists) {
			return c.writeError(ctx, http.StatusConflict, CodeBadRequest, "email already registered")
		}
		c.logger.WithError(err).Error("Register merchant failed")
		return c.writeInternalError(ctx)
	}

	return ctx.JSON(http.StatusCreated, mapper.MerchantToResponse(merchant, true))
}

// GetTestMerchant exposes the seeded sandbox credentials so integrators can
// start without registering.
func (c *PaymentController) GetTestMerchant(ctx echo.Context) error {
	merchant, err := c.paymentService.GetMerchant(ctx.Request().Context(), service.TestMerchantID)
	if err != nil {
		if errors.Is(err, service.ErrMerchantNotFound) {
			return c.writeError(ctx, http.StatusNotFound, CodeNotFound, "test merchant not seeded")
		}
		c.logger.WithError(err).Error("Get test merchant failed")
		return c.writeInternalError(ctx)
	}

	return ctx.JSON(http.StatusOK, mapper.MerchantToResponse(merchant, true))
}

func (c *PaymentController) UpdateMerchant(ctx echo.Context) error {
	merchant := MerchantFromContext(ctx)

	req, err := types.NewUpdateMerchantRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, CodeBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, CodeBadRequest, err.Error())
	}

	updated, err := c.paymentService.UpdateWebhookURL(ctx.Request().Context(), merchant.ID, req.WebhookURL)
	if err != nil {
		if errors.Is(err, service.ErrMerchantNotFound) {
			return c.writeError(ctx, http.StatusNotFound, CodeNotFound, "merchant not found")
		}
		c.logger.WithError(err).Error("Update merchant failed")
		return c.writeInternalError(ctx)
	}

	return ctx.JSON(http.StatusOK, mapper.MerchantToResponse(updated, false))
}

func (c *PaymentController) CreateOrder(ctx echo.Context) error {
	merchant := MerchantFromContext(ctx)

	req, err := types.NewCreateOrderRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, CodeBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, CodeBadRequest, err.Error())
	}

	order, err := c.paymentService.CreateOrder(ctx.Request().Context(), merchant.ID, service.CreateOrderInput{
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Notes:    req.Notes,
	})
	if err != nil {
		return c.writeServiceError(ctx, err, "Create order failed")
	}

	return ctx.JSON(http.StatusCreated, mapper.OrderToResponse(order))
}

func (c *PaymentController) GetOrder(ctx echo.Context) error {
	merchant := MerchantFromContext(ctx)

	order, err := c.paymentService.GetOrder(ctx.Request().Context(), merchant.ID, ctx.Param("id"))
	if err != nil {
		return c.writeServiceError(ctx, err, "Get order failed")
	}

	return ctx.JSON(http.StatusOK, mapper.OrderToResponse(order))
}

func (c *PaymentController) GetPublicOrder(ctx echo.Context) error {
	order, err := c.paymentService.GetPublicOrder(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return c.writeServiceError(ctx, err, "Get public order failed")
	}

	return ctx.JSON(http.StatusOK, mapper.OrderToResponse(order))
}

func (c *PaymentController) CreatePayment(ctx echo.Context) error {
	merchant := MerchantFromContext(ctx)
	return c.createPayment(ctx, merchant.ID)
}

// CreatePublicPayment serves the hosted checkout page; the order id acts as
// the capability, so there is no merchant auth and no ownership check.
func (c *PaymentController) CreatePublicPayment(ctx echo.Context) error {
	return c.createPayment(ctx, "")
}

func (c *PaymentController) createPayment(ctx echo.Context, merchantID string) error {
	req, err := types.NewCreatePaymentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, CodeBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, CodeBadRequest, err.Error())
	}

	in := service.CreatePaymentInput{
		OrderID: req.OrderID,
		Method:  req.Method,
		VPA:     req.VPA,
	}
	if req.Card != nil {
		in.Card = &service.CardInput{
			Number:      req.Card.Number,
			ExpiryMonth: req.Card.ExpiryMonth,
			ExpiryYear:  req.Card.ExpiryYear,
			CVV:         req.Card.CVV,
			HolderName:  req.Card.HolderName,
		}
	}

	payment, err := c.paymentService.CreatePayment(ctx.Request().Context(), merchantID, in)
	if err != nil {
		return c.writeServiceError(ctx, err, "Create payment failed")
	}

	return ctx.JSON(http.StatusCreated, mapper.PaymentToResponse(payment))
}

func (c *PaymentController) GetPayment(ctx echo.Context) error {
	merchant := MerchantFromContext(ctx)

	payment, err := c.paymentService.GetPayment(ctx.Request().Context(), merchant.ID, ctx.Param("id"))
	if err != nil {
		return c.writeServiceError(ctx, err, "Get payment failed")
	}

	return ctx.JSON(http.StatusOK, mapper.PaymentToResponse(payment))
}

func (c *PaymentController) GetPublicPayment(ctx echo.Context) error {
	payment, err := c.paymentService.GetPublicPayment(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return c.writeServiceError(ctx, err, "Get public payment failed")
	}

	return ctx.JSON(http.StatusOK, mapper.PaymentToResponse(payment))
}

func (c *PaymentController) CreateRefund(ctx echo.Context) error {
	merchant := MerchantFromContext(ctx)

	req, err := types.NewCreateRefundRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, CodeBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, CodeBadRequest, err.Error())
	}

	refund, err := c.paymentService.CreateRefund(ctx.Request().Context(), merchant.ID, service.CreateRefundInput{
		PaymentID: req.PaymentID,
		Amount:    req.Amount,
		Notes:     req.Notes,
	})
	if err != nil {
		return c.writeServiceError(ctx, err, "Create refund failed")
	}

	return ctx.JSON(http.StatusCreated, mapper.RefundToResponse(refund))
}

func (c *PaymentController) ListRefunds(ctx echo.Context) error {
	merchant := MerchantFromContext(ctx)

	refunds, err := c.paymentService.ListRefunds(ctx.Request().Context(), merchant.ID, ctx.Param("id"))
	if err != nil {
		return c.writeServiceError(ctx, err, "List refunds failed")
	}

	result := make([]*types.RefundResponse, 0, len(refunds))
	for _, refund := range refunds {
		result = append(result, mapper.RefundToResponse(refund))
	}
	return ctx.JSON(http.StatusOK, result)
}

func (c *PaymentController) DashboardStats(ctx echo.Context) error {
	merchant := MerchantFromContext(ctx)

	stats, err := c.paymentService.GetDashboardStats(ctx.Request().Context(), merchant.ID)
	if err != nil {
		c.logger.WithError(err).Error("Dashboard stats failed")
		return c.writeInternalError(ctx)
	}

	return ctx.JSON(http.StatusOK, &types.DashboardStatsResponse{
		TotalTransactions: stats.TotalTransactions,
		TotalAmount:       stats.TotalAmount,
		SuccessRate:       stats.SuccessRate,
	})
}

func (c *PaymentController) ListTransactions(ctx echo.Context) error {
	merchant := MerchantFromContext(ctx)

	payments, err := c.paymentService.ListTransactions(ctx.Request().Context(), merchant.ID)
	if err != nil {
		c.logger.WithError(err).Error("List transactions failed")
		return c.writeInternalError(ctx)
	}

	return ctx.JSON(http.StatusOK, &types.TransactionListResponse{
		Count:        len(payments),
		Transactions: mapper.PaymentsToResponse(payments),
	})
}

// writeServiceError maps service errors onto the API error taxonomy.
func (c *PaymentController) writeServiceError(ctx echo.Context, err error, logMessage string) error {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return c.writeError(ctx, http.StatusBadRequest, validationErr.Code, validationErr.Description)
	case errors.Is(err, service.ErrOrderNotFound):
		return c.writeError(ctx, http.StatusNotFound, CodeNotFound, "order not found")
	case errors.Is(err, service.ErrPaymentNotFound):
		return c.writeError(ctx, http.StatusNotFound, CodeNotFound, "payment not found")
	case errors.Is(err, service.ErrMerchantNotFound):
		return c.writeError(ctx, http.StatusNotFound, CodeNotFound, "merchant not found")
	case errors.Is(err, service.ErrPaymentNotRefundable):
		return c.writeError(ctx, http.StatusBadRequest, CodeBadRequest, "only successful payments can be refunded")
	case errors.Is(err, service.ErrInsufficientBalance):
		return c.writeError(ctx, http.StatusBadRequest, CodeInsufficientBalance, "refund amount exceeds available balance")
	default:
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error(logMessage)
		return c.writeInternalError(ctx)
	}
}

func (c *PaymentController) writeError(ctx echo.Context, statusCode int, code, description string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: types.ErrorBody{
		Code:        code,
		Description: description,
	}})
}

func (c *PaymentController) writeInternalError(ctx echo.Context) error {
	return c.writeError(ctx, http.StatusInternalServerError, CodeInternal, "internal server error")
}
