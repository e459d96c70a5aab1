//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/A91A1214/Build-Payment-Gateway/app/types"
)

const defaultGatewayHTTPBase = "http://localhost:8080"

// The server running under test must have SIMULATION_ENABLED=true with
// SIMULATION_FORCED_SUCCESS=true and a short forced delay, and the seeded
// test merchant in place.
const (
	testAPIKey    = "key_test_abc123"
	testAPISecret = "secret_test_xyz789"
)

type httpClient struct {
	baseURL string
	client  *http.Client
}

func newHTTPClient() *httpClient {
	baseURL := os.Getenv("GATEWAY_HTTP_BASE")
	if baseURL == "" {
		baseURL = defaultGatewayHTTPBase
	}
	return &httpClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *httpClient) doJSON(t *testing.T, method, path string, body any, authed bool) (*http.Response, []byte) {
	t.Helper()

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal failed: %v", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		t.Fatalf("new request failed: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("X-Api-Key", testAPIKey)
		req.Header.Set("X-Api-Secret", testAPISecret)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body failed: %v", err)
	}
	return resp, buf.Bytes()
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("unmarshal failed: %v body=%s", err, raw)
	}
	return v
}

func TestHealth(t *testing.T) {
	c := newHTTPClient()
	resp, raw := c.doJSON(t, http.MethodGet, "/health", nil, false)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	health := decode[types.HealthResponse](t, raw)
	if health.Database != "up" || health.Redis != "up" {
		t.Fatalf("dependencies not healthy: %+v", health)
	}
}

func TestOrderPaymentRefundFlow(t *testing.T) {
	c := newHTTPClient()

	resp, raw := c.doJSON(t, http.MethodPost, "/api/v1/orders", map[string]any{
		"amount":   50000,
		"currency": "INR",
		"receipt":  fmt.Sprintf("e2e-%d", time.Now().UnixNano()),
	}, true)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create order: expected 201, got %d body=%s", resp.StatusCode, raw)
	}
	order := decode[types.OrderResponse](t, raw)

	resp, raw = c.doJSON(t, http.MethodPost, "/api/v1/payments", map[string]any{
		"order_id": order.ID,
		"method":   "upi",
		"vpa":      "e2e@upi",
	}, true)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create payment: expected 201, got %d body=%s", resp.StatusCode, raw)
	}
	payment := decode[types.PaymentResponse](t, raw)
	if payment.Status != "processing" {
		t.Fatalf("expected processing, got %q", payment.Status)
	}

	// Forced-success simulation settles quickly; poll until terminal.
	deadline := time.Now().Add(30 * time.Second)
	for {
		resp, raw = c.doJSON(t, http.MethodGet, "/api/v1/payments/"+payment.ID, nil, true)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("get payment: expected 200, got %d body=%s", resp.StatusCode, raw)
		}
		payment = decode[types.PaymentResponse](t, raw)
		if payment.Status != "processing" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("payment never settled")
		}
		time.Sleep(500 * time.Millisecond)
	}
	if payment.Status != "success" {
		t.Fatalf("expected success under forced simulation, got %q", payment.Status)
	}

	resp, raw = c.doJSON(t, http.MethodPost, "/api/v1/refunds", map[string]any{
		"payment_id": payment.ID,
		"amount":     30000,
	}, true)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create refund: expected 201, got %d body=%s", resp.StatusCode, raw)
	}
	refund := decode[types.RefundResponse](t, raw)
	if refund.Status != "processed" {
		t.Fatalf("unexpected refund status %q", refund.Status)
	}

	// Remaining balance is 20000; anything above must be rejected.
	resp, raw = c.doJSON(t, http.MethodPost, "/api/v1/refunds", map[string]any{
		"payment_id": payment.ID,
		"amount":     20001,
	}, true)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("excess refund: expected 400, got %d body=%s", resp.StatusCode, raw)
	}
	errBody := decode[types.ErrorResponse](t, raw)
	if errBody.Error.Code != "INSUFFICIENT_REFUND_AMOUNT" {
		t.Fatalf("unexpected error code %q", errBody.Error.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	c := newHTTPClient()
	resp, raw := c.doJSON(t, http.MethodPost, "/api/v1/orders", map[string]any{"amount": 50000}, false)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", resp.StatusCode, raw)
	}
	errBody := decode[types.ErrorResponse](t, raw)
	if errBody.Error.Code != "AUTHENTICATION_ERROR" {
		t.Fatalf("unexpected error code %q", errBody.Error.Code)
	}
}

func TestPublicCheckoutFlow(t *testing.T) {
	c := newHTTPClient()

	resp, raw := c.doJSON(t, http.MethodPost, "/api/v1/orders", map[string]any{
		"amount": 25000,
	}, true)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create order: expected 201, got %d body=%s", resp.StatusCode, raw)
	}
	order := decode[types.OrderResponse](t, raw)

	// Checkout page reads the order and pays without credentials.
	resp, raw = c.doJSON(t, http.MethodGet, "/api/v1/orders/"+order.ID+"/public", nil, false)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("public order: expected 200, got %d body=%s", resp.StatusCode, raw)
	}

	resp, raw = c.doJSON(t, http.MethodPost, "/api/v1/payments/public", map[string]any{
		"order_id": order.ID,
		"method":   "card",
		"card": map[string]string{
			"number":       "4111111111111111",
			"expiry_month": "12",
			"expiry_year":  "2033",
			"cvv":          "123",
			"holder_name":  "E2E Buyer",
		},
	}, false)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("public payment: expected 201, got %d body=%s", resp.StatusCode, raw)
	}
	payment := decode[types.PaymentResponse](t, raw)
	if payment.CardNetwork != "visa" || payment.CardLast4 != "1111" {
		t.Fatalf("unexpected card fields %+v", payment)
	}

	resp, raw = c.doJSON(t, http.MethodGet, "/api/v1/payments/"+payment.ID+"/public", nil, false)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("public payment lookup: expected 200, got %d body=%s", resp.StatusCode, raw)
	}
}
