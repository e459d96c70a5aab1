// Package queue provides the durable, at-least-once work queues connecting
// the API-facing payment path to the settlement and webhook-delivery
// workers. Jobs are owned by the queue until acknowledged; a negatively
// acknowledged job is rescheduled per the queue's backoff policy until its
// attempt budget is exhausted, after which it is dead-lettered for operator
// inspection rather than dropped.
package queue

import (
	"context"
	"encoding/json"
	"time"
)

const (
	BackoffFixed       = "fixed"
	BackoffExponential = "exponential"
)

// BackoffPolicy controls redelivery of negatively acknowledged jobs.
type BackoffPolicy struct {
	// Type is either BackoffFixed or BackoffExponential.
	Type string
	// Delay is the base delay before the first redelivery.
	Delay time.Duration
	// MaxAttempts bounds total deliveries, the initial one included.
	MaxAttempts int
}

// NextDelay returns how long to wait before the given delivery attempt
// (1-based count of attempts already made).
func (p BackoffPolicy) NextDelay(attempts int) time.Duration {
	if p.Type != BackoffExponential || attempts <= 1 {
		return p.Delay
	}
	delay := p.Delay
	for i := 1; i < attempts; i++ {
		delay *= 2
	}
	return delay
}

// Job is the immutable envelope the queue owns until acknowledgment.
type Job struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`

	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Delivery is a claimed job. The raw envelope bytes double as the
// acknowledgment token: Ack and Nack remove exactly the claimed entry.
type Delivery struct {
	Job Job

	raw string
}

func (d *Delivery) Unmarshal(v interface{}) error {
	return json.Unmarshal(d.Job.Payload, v)
}

// Queue is a durable at-least-once work queue. Consume blocks until a job is
// available or the context is done. A consumed job must be either Acked
// (success, discard) or Nacked (failure, reschedule per backoff policy).
type Queue interface {
	Enqueue(ctx context.Context, name string, payload interface{}) error
	Consume(ctx context.Context) (*Delivery, error)
	Ack(ctx context.Context, delivery *Delivery) error
	Nack(ctx context.Context, delivery *Delivery) error
}
