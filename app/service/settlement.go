package service

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/A91A1214/Build-Payment-Gateway/app/entity"
	"github.com/A91A1214/Build-Payment-Gateway/app/factory"
	"github.com/A91A1214/Build-Payment-Gateway/app/gateway"
	"github.com/A91A1214/Build-Payment-Gateway/app/queue"
)

type settlementPaymentRepository interface {
	FindByID(ctx context.Context, id string) (*entity.Payment, error)
	MarkTerminal(ctx context.Context, id string, status entity.PaymentStatus, errorCode, errorDescription *string, now time.Time) (bool, error)
}

type settlementMerchantRepository interface {
	FindByID(ctx context.Context, id string) (*entity.Merchant, error)
}

// SettlementWorker drains the payment queue: it simulates the gateway round
// trip, writes the terminal payment status exactly once, and hands the
// resulting event to the webhook queue.
type SettlementWorker struct {
	paymentRepo  settlementPaymentRepository
	merchantRepo settlementMerchantRepository

	settlementQueue queue.Queue
	webhookQueue    jobEnqueuer
	simulator       *gateway.Simulator

	slots  int
	logger logrus.FieldLogger
}

func NewSettlementWorker(
	paymentRepo settlementPaymentRepository,
	merchantRepo settlementMerchantRepository,
	settlementQueue queue.Queue,
	webhookQueue jobEnqueuer,
	simulator *gateway.Simulator,
	slots int,
) *SettlementWorker {
	if slots <= 0 {
		slots = 1
	}
	return &SettlementWorker{
		paymentRepo:     paymentRepo,
		merchantRepo:    merchantRepo,
		settlementQueue: settlementQueue,
		webhookQueue:    webhookQueue,
		simulator:       simulator,
		slots:           slots,
		logger:          factory.NewModuleLogger("settlement-worker"),
	}
}

// Run consumes until ctx is canceled. It blocks, so callers run it in its
// own goroutine; cancellation drains in-flight jobs before returning.
func (w *SettlementWorker) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for slot := 0; slot < w.slots; slot++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			w.consume(ctx, slot)
		}(slot)
	}
	wg.Wait()
}

func (w *SettlementWorker) consume(ctx context.Context, slot int) {
	logger := w.logger.WithField("slot", slot)
	for {
		delivery, err := w.settlementQueue.Consume(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.WithError(err).Error("Failed to consume settlement job")
			continue
		}
		w.process(ctx, delivery, logger)
	}
}

func (w *SettlementWorker) process(ctx context.Context, delivery *queue.Delivery, logger logrus.FieldLogger) {
	var job queue.ProcessPaymentJob
	if err := delivery.Unmarshal(&job); err != nil {
		logger.WithError(err).WithField("job_id", delivery.Job.ID).Error("Malformed settlement payload")
		w.nack(ctx, delivery, logger)
		return
	}

	logger = logger.WithField("payment_id", job.PaymentID)
	logger.Info("Processing payment")

	if !w.wait(ctx, w.settleDelay(job)) {
		// Shutting down; leave the job claimed for orphan requeue.
		return
	}

	outcome := w.settleOutcome(job)
	status := entity.PaymentStatusSuccess
	var errorCode, errorDescription *string
	if !outcome.Success {
		status = entity.PaymentStatusFailed
		errorCode = &outcome.ErrorCode
		errorDescription = &outcome.ErrorDescription
	}

	applied, err := w.paymentRepo.MarkTerminal(ctx, job.PaymentID, status, errorCode, errorDescription, time.Now().UTC())
	if err != nil {
		// Store trouble is transient; the job goes back for redelivery
		// rather than being turned into a failed payment.
		logger.WithError(err).Error("Failed to persist settlement outcome")
		w.nack(ctx, delivery, logger)
		return
	}
	if !applied {
		logger.Info("Payment already settled, skipping duplicate delivery")
		w.ack(ctx, delivery, logger)
		return
	}

	logger.WithField("status", string(status)).Info("Payment settled")

	w.enqueueWebhook(ctx, job.PaymentID, logger)
	w.ack(ctx, delivery, logger)
}

// enqueueWebhook hands the settled payment to the webhook queue. The status
// write already happened, so failures here are an accepted at-least-once gap:
// logged, never retried against the payment.
func (w *SettlementWorker) enqueueWebhook(ctx context.Context, paymentID string, logger logrus.FieldLogger) {
	payment, err := w.paymentRepo.FindByID(ctx, paymentID)
	if err != nil || payment == nil {
		logger.WithError(err).Error("Failed to reload payment for webhook dispatch")
		return
	}
	merchant, err := w.merchantRepo.FindByID(ctx, payment.MerchantID)
	if err != nil {
		logger.WithError(err).Error("Failed to load merchant for webhook dispatch")
		return
	}
	if merchant == nil || merchant.WebhookURL == nil || *merchant.WebhookURL == "" {
		return
	}

	job := queue.DeliverWebhookJob{
		URL: *merchant.WebhookURL,
		Payload: queue.WebhookEvent{
			Event: "payment.captured",
			Data: queue.WebhookEventData{
				ID:       payment.ID,
				OrderID:  payment.OrderID,
				Status:   string(payment.Status),
				Amount:   payment.Amount,
				Currency: payment.Currency,
			},
		},
	}
	if err := w.webhookQueue.Enqueue(ctx, queue.JobDeliverWebhook, job); err != nil {
		logger.WithError(err).WithField("webhook_url", job.URL).Error("Failed to enqueue webhook delivery")
	}
}

func (w *SettlementWorker) settleDelay(job queue.ProcessPaymentJob) time.Duration {
	if job.SimulationMode {
		return time.Duration(job.ForcedDelayMS) * time.Millisecond
	}
	return w.simulator.Delay()
}

func (w *SettlementWorker) settleOutcome(job queue.ProcessPaymentJob) gateway.Outcome {
	if job.SimulationMode {
		if job.ForcedOutcome {
			return gateway.Outcome{Success: true}
		}
		return gateway.Outcome{
			Success:          false,
			ErrorCode:        gateway.FailureCode,
			ErrorDescription: gateway.FailureDescription,
		}
	}
	return w.simulator.Settle(entity.PaymentMethod(job.Method))
}

func (w *SettlementWorker) wait(ctx context.Context, delay time.Duration) bool {
	if delay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (w *SettlementWorker) ack(ctx context.Context, delivery *queue.Delivery, logger logrus.FieldLogger) {
	if err := w.settlementQueue.Ack(ctx, delivery); err != nil {
		logger.WithError(err).WithField("job_id", delivery.Job.ID).Error("Failed to ack settlement job")
	}
}

func (w *SettlementWorker) nack(ctx context.Context, delivery *queue.Delivery, logger logrus.FieldLogger) {
	if err := w.settlementQueue.Nack(ctx, delivery); err != nil {
		logger.WithError(err).WithField("job_id", delivery.Job.ID).Error("Failed to nack settlement job")
	}
}
