package cmd

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/A91A1214/Build-Payment-Gateway/app/service"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the settlement and webhook delivery workers",
	Long:  "Consume the payment queue to settle payments and the webhook queue to deliver merchant notifications.",
	Run:   runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(_ *cobra.Command, _ []string) {
	app, cleanup := mustBootstrap()
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Jobs claimed by a previous worker that died mid-flight go back to
	// waiting before consumption starts.
	for _, q := range []interface {
		RequeueOrphans(ctx context.Context) (int, error)
	}{app.settlementQueue, app.webhookQueue} {
		requeued, err := q.RequeueOrphans(ctx)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to requeue orphaned jobs")
		}
		if requeued > 0 {
			logrus.WithField("count", requeued).Info("Requeued orphaned jobs")
		}
	}

	settlementWorker := service.NewSettlementWorker(
		app.paymentRepo,
		app.merchantRepo,
		app.settlementQueue,
		app.webhookQueue,
		app.simulator,
		app.cfg.Settlement.Slots,
	)
	webhookWorker := service.NewWebhookDeliveryWorker(app.webhookQueue, app.cfg.Webhook.HTTPTimeout)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		settlementWorker.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		webhookWorker.Run(ctx)
	}()

	logrus.WithField("slots", app.cfg.Settlement.Slots).Info("Workers started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Worker shutdown requested")

	cancel()
	wg.Wait()

	logrus.Info("Workers stopped")
}
