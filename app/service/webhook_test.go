package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"github.com/A91A1214/Build-Payment-Gateway/app/queue"
)

func newWebhookQueueForTest(t *testing.T, maxAttempts int) (*queue.Redis, *redis.Client) {
	t.Helper()
	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(server.Close)

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return queue.NewRedis(client, queue.WebhookQueue, queue.BackoffPolicy{
		Type:        queue.BackoffFixed,
		Delay:       0,
		MaxAttempts: maxAttempts,
	}), client
}

func webhookTestEvent() queue.WebhookEvent {
	return queue.WebhookEvent{
		Event: "payment.captured",
		Data: queue.WebhookEventData{
			ID:       "pay_1",
			OrderID:  "order_1",
			Status:   "success",
			Amount:   50000,
			Currency: "INR",
		},
	}
}

func TestWebhookDeliverySuccess(t *testing.T) {
	var received atomic.Value
	endpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received.Store(string(body))
		w.WriteHeader(http.StatusOK)
	}))
	defer endpoint.Close()

	webhookQueue, client := newWebhookQueueForTest(t, 3)
	worker := NewWebhookDeliveryWorker(webhookQueue, time.Second)

	ctx := context.Background()
	err := webhookQueue.Enqueue(ctx, queue.JobDeliverWebhook, queue.DeliverWebhookJob{
		URL:     endpoint.URL,
		Payload: webhookTestEvent(),
	})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	worker.process(ctx, consumeOne(t, webhookQueue))

	raw, _ := received.Load().(string)
	if raw == "" {
		t.Fatal("endpoint never received the webhook")
	}
	var event queue.WebhookEvent
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if event.Event != "payment.captured" || event.Data.ID != "pay_1" {
		t.Fatalf("unexpected event %+v", event)
	}

	if n := client.LLen(ctx, "queue:webhook-queue:active").Val(); n != 0 {
		t.Fatalf("delivered job should be acked, active=%d", n)
	}
}

func TestWebhookDeliveryRetriesUntilSuccess(t *testing.T) {
	var calls int32
	endpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer endpoint.Close()

	webhookQueue, client := newWebhookQueueForTest(t, 5)
	worker := NewWebhookDeliveryWorker(webhookQueue, time.Second)

	ctx := context.Background()
	err := webhookQueue.Enqueue(ctx, queue.JobDeliverWebhook, queue.DeliverWebhookJob{
		URL:     endpoint.URL,
		Payload: webhookTestEvent(),
	})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	for i := 0; i < 4; i++ {
		worker.process(ctx, consumeOne(t, webhookQueue))
	}

	if got := atomic.LoadInt32(&calls); got != 4 {
		t.Fatalf("expected 4 endpoint calls, got %d", got)
	}
	for _, key := range []string{"waiting", "active", "delayed", "dead"} {
		if n := client.Exists(ctx, "queue:webhook-queue:"+key).Val(); n != 0 {
			t.Fatalf("queue should be empty after eventual success, %s still set", key)
		}
	}
}

func TestWebhookDeliveryDeadLettersAfterExhaustion(t *testing.T) {
	endpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer endpoint.Close()

	webhookQueue, _ := newWebhookQueueForTest(t, 3)
	worker := NewWebhookDeliveryWorker(webhookQueue, time.Second)

	ctx := context.Background()
	err := webhookQueue.Enqueue(ctx, queue.JobDeliverWebhook, queue.DeliverWebhookJob{
		URL:     endpoint.URL,
		Payload: webhookTestEvent(),
	})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		worker.process(ctx, consumeOne(t, webhookQueue))
	}

	dead, err := webhookQueue.DeadLetters(ctx)
	if err != nil {
		t.Fatalf("dead letters failed: %v", err)
	}
	if len(dead) != 1 {
		t.Fatalf("expected 1 dead-lettered webhook, got %d", len(dead))
	}
	if dead[0].Attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", dead[0].Attempts)
	}
}

func TestWebhookDeliveryConnectionErrorNacks(t *testing.T) {
	// A closed server yields a connection error rather than a status code.
	endpoint := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := endpoint.URL
	endpoint.Close()

	webhookQueue, client := newWebhookQueueForTest(t, 3)
	worker := NewWebhookDeliveryWorker(webhookQueue, time.Second)

	ctx := context.Background()
	err := webhookQueue.Enqueue(ctx, queue.JobDeliverWebhook, queue.DeliverWebhookJob{
		URL:     url,
		Payload: webhookTestEvent(),
	})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	worker.process(ctx, consumeOne(t, webhookQueue))

	if n := client.LLen(ctx, "queue:webhook-queue:active").Val(); n != 0 {
		t.Fatalf("failed delivery should be released, active=%d", n)
	}
	redelivered := consumeOne(t, webhookQueue)
	if redelivered.Job.Attempts != 2 {
		t.Fatalf("expected attempt 2, got %d", redelivered.Job.Attempts)
	}
}
