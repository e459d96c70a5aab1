package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

type testPayload struct {
	Value string `json:"value"`
}

func newQueueForTest(t *testing.T, policy BackoffPolicy) (*Redis, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(server.Close)

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedis(client, "test-queue", policy), server, client
}

func TestEnqueueConsumeAck(t *testing.T) {
	q, _, client := newQueueForTest(t, BackoffPolicy{Type: BackoffFixed, Delay: time.Second, MaxAttempts: 3})
	ctx := context.Background()

	if err := q.Enqueue(ctx, "test-job", testPayload{Value: "hello"}); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	delivery, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("consume failed: %v", err)
	}
	if delivery.Job.Name != "test-job" {
		t.Fatalf("unexpected job name %q", delivery.Job.Name)
	}
	if delivery.Job.Attempts != 1 {
		t.Fatalf("expected first delivery attempt 1, got %d", delivery.Job.Attempts)
	}
	if delivery.Job.ID == "" {
		t.Fatal("expected a job id")
	}

	var payload testPayload
	if err := delivery.Unmarshal(&payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if payload.Value != "hello" {
		t.Fatalf("unexpected payload %+v", payload)
	}

	// Consuming claims the job durably.
	if n := client.LLen(ctx, "queue:test-queue:active").Val(); n != 1 {
		t.Fatalf("expected 1 active job, got %d", n)
	}

	if err := q.Ack(ctx, delivery); err != nil {
		t.Fatalf("ack failed: %v", err)
	}
	if n := client.LLen(ctx, "queue:test-queue:active").Val(); n != 0 {
		t.Fatalf("ack should clear active list, got %d", n)
	}
}

func TestNackSchedulesRedelivery(t *testing.T) {
	q, _, client := newQueueForTest(t, BackoffPolicy{Type: BackoffFixed, Delay: 0, MaxAttempts: 3})
	ctx := context.Background()

	if err := q.Enqueue(ctx, "test-job", testPayload{Value: "retry"}); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	first, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("consume failed: %v", err)
	}
	if err := q.Nack(ctx, first); err != nil {
		t.Fatalf("nack failed: %v", err)
	}
	if n := client.LLen(ctx, "queue:test-queue:active").Val(); n != 0 {
		t.Fatalf("nack should clear active list, got %d", n)
	}

	// Zero backoff delay: the job is due immediately and the next consume
	// promotes it.
	second, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("redelivery consume failed: %v", err)
	}
	if second.Job.ID != first.Job.ID {
		t.Fatalf("expected same job back, got %q vs %q", second.Job.ID, first.Job.ID)
	}
	if second.Job.Attempts != 2 {
		t.Fatalf("expected attempt 2 on redelivery, got %d", second.Job.Attempts)
	}
}

func TestNackRespectsBackoffDelay(t *testing.T) {
	q, _, client := newQueueForTest(t, BackoffPolicy{Type: BackoffFixed, Delay: time.Minute, MaxAttempts: 3})
	ctx := context.Background()

	if err := q.Enqueue(ctx, "test-job", testPayload{}); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	delivery, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("consume failed: %v", err)
	}
	if err := q.Nack(ctx, delivery); err != nil {
		t.Fatalf("nack failed: %v", err)
	}

	if n := client.ZCard(ctx, "queue:test-queue:delayed").Val(); n != 1 {
		t.Fatalf("expected 1 delayed job, got %d", n)
	}

	// Not due yet: promotion must leave it parked.
	if err := q.promoteDelayed(ctx); err != nil {
		t.Fatalf("promoteDelayed failed: %v", err)
	}
	if n := client.LLen(ctx, "queue:test-queue:waiting").Val(); n != 0 {
		t.Fatalf("job promoted before its backoff elapsed, waiting=%d", n)
	}

	// Fast-forward the queue clock past the delay.
	q.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if err := q.promoteDelayed(ctx); err != nil {
		t.Fatalf("promoteDelayed failed: %v", err)
	}
	if n := client.LLen(ctx, "queue:test-queue:waiting").Val(); n != 1 {
		t.Fatalf("expected promoted job on waiting, got %d", n)
	}
}

func TestNackDeadLettersAfterMaxAttempts(t *testing.T) {
	q, _, client := newQueueForTest(t, BackoffPolicy{Type: BackoffFixed, Delay: 0, MaxAttempts: 2})
	ctx := context.Background()

	if err := q.Enqueue(ctx, "test-job", testPayload{Value: "doomed"}); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	for attempt := 1; attempt <= 2; attempt++ {
		delivery, err := q.Consume(ctx)
		if err != nil {
			t.Fatalf("consume attempt %d failed: %v", attempt, err)
		}
		if delivery.Job.Attempts != attempt {
			t.Fatalf("expected attempt %d, got %d", attempt, delivery.Job.Attempts)
		}
		if err := q.Nack(ctx, delivery); err != nil {
			t.Fatalf("nack attempt %d failed: %v", attempt, err)
		}
	}

	dead, err := q.DeadLetters(ctx)
	if err != nil {
		t.Fatalf("dead letters failed: %v", err)
	}
	if len(dead) != 1 {
		t.Fatalf("expected 1 dead job, got %d", len(dead))
	}
	if dead[0].Attempts != 2 {
		t.Fatalf("expected 2 attempts recorded, got %d", dead[0].Attempts)
	}
	for _, key := range []string{"waiting", "active", "delayed"} {
		if n := client.Exists(ctx, "queue:test-queue:"+key).Val(); n != 0 {
			t.Fatalf("dead-lettered job still present on %s", key)
		}
	}
}

func TestRequeueOrphans(t *testing.T) {
	q, _, client := newQueueForTest(t, BackoffPolicy{Type: BackoffFixed, Delay: time.Second, MaxAttempts: 3})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := q.Enqueue(ctx, "test-job", testPayload{}); err != nil {
			t.Fatalf("enqueue failed: %v", err)
		}
		if _, err := q.Consume(ctx); err != nil {
			t.Fatalf("consume failed: %v", err)
		}
	}
	// Three claimed-but-unacked jobs simulate a consumer crash.
	if n := client.LLen(ctx, "queue:test-queue:active").Val(); n != 3 {
		t.Fatalf("expected 3 orphans, got %d", n)
	}

	moved, err := q.RequeueOrphans(ctx)
	if err != nil {
		t.Fatalf("requeue failed: %v", err)
	}
	if moved != 3 {
		t.Fatalf("expected 3 requeued, got %d", moved)
	}
	if n := client.LLen(ctx, "queue:test-queue:waiting").Val(); n != 3 {
		t.Fatalf("expected 3 waiting, got %d", n)
	}
	if n := client.LLen(ctx, "queue:test-queue:active").Val(); n != 0 {
		t.Fatalf("expected empty active list, got %d", n)
	}
}

func TestConsumeDeadLettersUnparseableEnvelope(t *testing.T) {
	q, server, _ := newQueueForTest(t, BackoffPolicy{Type: BackoffFixed, Delay: time.Second, MaxAttempts: 3})
	ctx := context.Background()

	server.Lpush("queue:test-queue:waiting", "{not json")
	if err := q.Enqueue(ctx, "test-job", testPayload{Value: "good"}); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	delivery, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("consume failed: %v", err)
	}
	if delivery.Job.Name != "test-job" {
		t.Fatalf("expected the parseable job, got %q", delivery.Job.Name)
	}

	raws, err := q.client.LRange(ctx, "queue:test-queue:dead", 0, -1).Result()
	if err != nil {
		t.Fatalf("lrange failed: %v", err)
	}
	if len(raws) != 1 || raws[0] != "{not json" {
		t.Fatalf("expected the broken envelope on dead, got %v", raws)
	}
}

func TestConsumeReturnsOnCanceledContext(t *testing.T) {
	q, _, _ := newQueueForTest(t, BackoffPolicy{Type: BackoffFixed, Delay: time.Second, MaxAttempts: 3})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := q.Consume(ctx); err == nil {
		t.Fatal("expected error from canceled context")
	}
}

func TestBackoffPolicyNextDelay(t *testing.T) {
	fixed := BackoffPolicy{Type: BackoffFixed, Delay: time.Second, MaxAttempts: 5}
	for attempts := 1; attempts <= 4; attempts++ {
		if got := fixed.NextDelay(attempts); got != time.Second {
			t.Fatalf("fixed delay after %d attempts = %v", attempts, got)
		}
	}

	exp := BackoffPolicy{Type: BackoffExponential, Delay: 5 * time.Second, MaxAttempts: 5}
	cases := map[int]time.Duration{
		1: 5 * time.Second,
		2: 10 * time.Second,
		3: 20 * time.Second,
		4: 40 * time.Second,
	}
	for attempts, want := range cases {
		if got := exp.NextDelay(attempts); got != want {
			t.Fatalf("exponential delay after %d attempts = %v, want %v", attempts, got, want)
		}
	}
}
