package cmd

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/A91A1214/Build-Payment-Gateway/app/service"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the well-known test merchant",
	Run: func(_ *cobra.Command, _ []string) {
		app, cleanup := mustBootstrap()
		defer cleanup()

		if err := app.paymentService.SeedTestMerchant(context.Background()); err != nil {
			logrus.WithError(err).Fatal("Failed to seed test merchant")
		}
		logrus.WithField("merchant_id", service.TestMerchantID).Info("Test merchant ready")
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
