package mapper

import (
	"time"

	"github.com/A91A1214/Build-Payment-Gateway/app/entity"
	"github.com/A91A1214/Build-Payment-Gateway/app/types"
)

func MerchantToResponse(item *entity.Merchant, includeSecret bool) *types.MerchantResponse {
	if item == nil {
		return nil
	}

	resp := &types.MerchantResponse{
		ID:         item.ID,
		Name:       item.Name,
		Email:      item.Email,
		APIKey:     item.APIKey,
		WebhookURL: item.WebhookURL,
		CreatedAt:  item.CreatedAt.UTC().Format(time.RFC3339),
	}
	if includeSecret {
		resp.APISecret = item.APISecret
	}
	return resp
}

func OrderToResponse(item *entity.Order) *types.OrderResponse {
	if item == nil {
		return nil
	}

	return &types.OrderResponse{
		ID:        item.ID,
		Amount:    item.Amount,
		Currency:  item.Currency,
		Receipt:   derefString(item.Receipt),
		Notes:     item.Notes,
		Status:    item.Status,
		CreatedAt: item.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func PaymentToResponse(item *entity.Payment) *types.PaymentResponse {
	if item == nil {
		return nil
	}

	return &types.PaymentResponse{
		ID:               item.ID,
		OrderID:          item.OrderID,
		Amount:           item.Amount,
		Currency:         item.Currency,
		Method:           string(item.Method),
		VPA:              derefString(item.VPA),
		CardNetwork:      derefString(item.CardNetwork),
		CardLast4:        derefString(item.CardLast4),
		Status:           string(item.Status),
		ErrorCode:        derefString(item.ErrorCode),
		ErrorDescription: derefString(item.ErrorDescription),
		CreatedAt:        item.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        item.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func PaymentsToResponse(items []*entity.Payment) []*types.PaymentResponse {
	result := make([]*types.PaymentResponse, 0, len(items))
	for _, item := range items {
		result = append(result, PaymentToResponse(item))
	}
	return result
}

func RefundToResponse(item *entity.Refund) *types.RefundResponse {
	if item == nil {
		return nil
	}

	return &types.RefundResponse{
		ID:        item.ID,
		PaymentID: item.PaymentID,
		Amount:    item.Amount,
		Currency:  item.Currency,
		Status:    item.Status,
		Notes:     item.Notes,
		CreatedAt: item.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
