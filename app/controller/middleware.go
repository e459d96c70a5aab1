package controller

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/A91A1214/Build-Payment-Gateway/app/entity"
	"github.com/A91A1214/Build-Payment-Gateway/app/service"
	"github.com/A91A1214/Build-Payment-Gateway/app/types"
)

const merchantContextKey = "merchant"

// MerchantAuth resolves X-Api-Key/X-Api-Secret headers to a merchant and
// stashes it on the request context. Any failure is a uniform 401 so callers
// cannot probe which credential half was wrong.
func MerchantAuth(paymentService *service.PaymentService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			apiKey := ctx.Request().Header.Get("X-Api-Key")
			apiSecret := ctx.Request().Header.Get("X-Api-Secret")

			merchant, err := paymentService.AuthenticateMerchant(ctx.Request().Context(), apiKey, apiSecret)
			if err != nil || !merchant.IsActive {
				return ctx.JSON(http.StatusUnauthorized, &types.ErrorResponse{Error: types.ErrorBody{
					Code:        CodeAuthentication,
					Description: "invalid API credentials",
				}})
			}

			ctx.Set(merchantContextKey, merchant)
			return next(ctx)
		}
	}
}

// MerchantFromContext returns the merchant set by MerchantAuth. Handlers
// behind the middleware can rely on it being present.
func MerchantFromContext(ctx echo.Context) *entity.Merchant {
	merchant, _ := ctx.Get(merchantContextKey).(*entity.Merchant)
	return merchant
}
