package queue

// Queue names mirror the broker topology: one queue per worker kind.
const (
	SettlementQueue = "payment-queue"
	WebhookQueue    = "webhook-queue"
)

// Job names carried in the envelope.
const (
	JobProcessPayment = "process-payment"
	JobDeliverWebhook = "send-webhook"
)

// ProcessPaymentJob asks the settlement worker to settle one payment. The
// simulation fields are filled by the producer from its injected
// SimulationConfig; the worker never reads ambient process state.
type ProcessPaymentJob struct {
	PaymentID string `json:"payment_id"`
	Method    string `json:"method"`

	SimulationMode bool  `json:"simulation_mode"`
	ForcedOutcome  bool  `json:"forced_outcome"`
	ForcedDelayMS  int64 `json:"forced_delay_ms"`
}

// WebhookEvent is the normalized envelope POSTed to a merchant's webhook
// endpoint.
type WebhookEvent struct {
	Event string           `json:"event"`
	Data  WebhookEventData `json:"data"`
}

type WebhookEventData struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// DeliverWebhookJob carries one outbound webhook call.
type DeliverWebhookJob struct {
	URL     string       `json:"url"`
	Payload WebhookEvent `json:"payload"`
}
