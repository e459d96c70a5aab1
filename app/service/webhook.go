package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/A91A1214/Build-Payment-Gateway/app/factory"
	"github.com/A91A1214/Build-Payment-Gateway/app/queue"
)

// WebhookDeliveryWorker drains the webhook queue, POSTing each event to the
// merchant's endpoint. A non-2xx answer or transport error sends the job
// back for redelivery; the queue's backoff policy decides when it gives up.
// Payment state is never touched from here.
type WebhookDeliveryWorker struct {
	webhookQueue queue.Queue
	client       *http.Client
	logger       logrus.FieldLogger
}

func NewWebhookDeliveryWorker(webhookQueue queue.Queue, timeout time.Duration) *WebhookDeliveryWorker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookDeliveryWorker{
		webhookQueue: webhookQueue,
		client:       &http.Client{Timeout: timeout},
		logger:       factory.NewModuleLogger("webhook-worker"),
	}
}

// Run consumes until ctx is canceled.
func (w *WebhookDeliveryWorker) Run(ctx context.Context) {
	for {
		delivery, err := w.webhookQueue.Consume(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.WithError(err).Error("Failed to consume webhook job")
			continue
		}
		w.process(ctx, delivery)
	}
}

func (w *WebhookDeliveryWorker) process(ctx context.Context, delivery *queue.Delivery) {
	logger := w.logger.WithFields(logrus.Fields{
		"job_id":  delivery.Job.ID,
		"attempt": delivery.Job.Attempts,
	})

	var job queue.DeliverWebhookJob
	if err := delivery.Unmarshal(&job); err != nil {
		logger.WithError(err).Error("Malformed webhook payload")
		w.nack(ctx, delivery, logger)
		return
	}
	logger = logger.WithField("webhook_url", job.URL)

	if err := w.deliver(ctx, job); err != nil {
		logger.WithError(err).Warn("Webhook delivery failed")
		w.nack(ctx, delivery, logger)
		return
	}

	logger.Info("Webhook delivered")
	if err := w.webhookQueue.Ack(ctx, delivery); err != nil {
		logger.WithError(err).Error("Failed to ack webhook job")
	}
}

func (w *WebhookDeliveryWorker) deliver(ctx context.Context, job queue.DeliverWebhookJob) error {
	body, err := json.Marshal(job.Payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, job.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("endpoint answered %d", resp.StatusCode)
	}
	return nil
}

func (w *WebhookDeliveryWorker) nack(ctx context.Context, delivery *queue.Delivery, logger logrus.FieldLogger) {
	if err := w.webhookQueue.Nack(ctx, delivery); err != nil {
		logger.WithError(err).Error("Failed to nack webhook job")
	}
}
