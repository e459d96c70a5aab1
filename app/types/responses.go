package types

// ErrorResponse is the error body for every non-2xx answer:
// {"error":{"code":"...","description":"..."}}.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	Redis     string `json:"redis"`
	Timestamp string `json:"timestamp"`
}

type MerchantResponse struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	APIKey     string  `json:"api_key"`
	APISecret  string  `json:"api_secret,omitempty"`
	WebhookURL *string `json:"webhook_url"`
	CreatedAt  string  `json:"created_at"`
}

type OrderResponse struct {
	ID        string            `json:"id"`
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency"`
	Receipt   string            `json:"receipt,omitempty"`
	Notes     map[string]string `json:"notes,omitempty"`
	Status    string            `json:"status"`
	CreatedAt string            `json:"created_at"`
}

type PaymentResponse struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Method           string `json:"method"`
	VPA              string `json:"vpa,omitempty"`
	CardNetwork      string `json:"card_network,omitempty"`
	CardLast4        string `json:"card_last4,omitempty"`
	Status           string `json:"status"`
	ErrorCode        string `json:"error_code,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

type RefundResponse struct {
	ID        string            `json:"id"`
	PaymentID string            `json:"payment_id"`
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency"`
	Status    string            `json:"status"`
	Notes     map[string]string `json:"notes,omitempty"`
	CreatedAt string            `json:"created_at"`
}

type DashboardStatsResponse struct {
	TotalTransactions int    `json:"total_transactions"`
	TotalAmount       int64  `json:"total_amount"`
	SuccessRate       string `json:"success_rate"`
}

type TransactionListResponse struct {
	Count        int                `json:"count"`
	Transactions []*PaymentResponse `json:"transactions"`
}
