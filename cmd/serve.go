package cmd

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/A91A1214/Build-Payment-Gateway/app/controller"
	"github.com/A91A1214/Build-Payment-Gateway/app/gateway"
	"github.com/A91A1214/Build-Payment-Gateway/app/queue"
	"github.com/A91A1214/Build-Payment-Gateway/app/repository"
	"github.com/A91A1214/Build-Payment-Gateway/app/service"
	"github.com/A91A1214/Build-Payment-Gateway/config"

	"github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  "Start the HTTP (Echo) server for the payment gateway API.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// application bundles everything both the API server and the workers need.
type application struct {
	cfg             *config.Config
	db              *sql.DB
	redisClient     *redis.Client
	merchantRepo    *repository.MerchantRepository
	paymentRepo     *repository.PaymentRepository
	settlementQueue *queue.Redis
	webhookQueue    *queue.Redis
	paymentService  *service.PaymentService
	simulator       *gateway.Simulator
}

func runServe(_ *cobra.Command, _ []string) {
	app, cleanup := mustBootstrap()
	defer cleanup()

	if err := app.paymentService.SeedTestMerchant(context.Background()); err != nil {
		logrus.WithError(err).Fatal("Failed to seed test merchant")
	}

	paymentController := controller.NewPaymentController(app.paymentService)
	healthController := controller.NewHealthController(app.db, app.redisClient)

	e := setupHTTPServer(app, paymentController, healthController)

	go func() {
		httpAddr := net.JoinHostPort(app.cfg.HTTP.Host, app.cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}

	logrus.Info("Server stopped")
}

func setupHTTPServer(
	app *application,
	paymentController *controller.PaymentController,
	healthController *controller.HealthController,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	e.GET("/health", healthController.Health)

	v1 := e.Group("/api/v1")

	v1.POST("/merchants/register", paymentController.RegisterMerchant)
	v1.GET("/test/merchant", paymentController.GetTestMerchant)
	v1.GET("/orders/:id/public", paymentController.GetPublicOrder)
	v1.POST("/payments/public", paymentController.CreatePublicPayment)
	v1.GET("/payments/:id/public", paymentController.GetPublicPayment)

	authed := v1.Group("", controller.MerchantAuth(app.paymentService))
	authed.PATCH("/merchants/me", paymentController.UpdateMerchant)
	authed.POST("/orders", paymentController.CreateOrder)
	authed.GET("/orders/:id", paymentController.GetOrder)
	authed.POST("/payments", paymentController.CreatePayment)
	authed.GET("/payments/:id", paymentController.GetPayment)
	authed.POST("/refunds", paymentController.CreateRefund)
	authed.GET("/payments/:id/refunds", paymentController.ListRefunds)
	authed.GET("/dashboard/stats", paymentController.DashboardStats)
	authed.GET("/dashboard/transactions", paymentController.ListTransactions)

	return e
}

func mustBootstrap() (*application, func()) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping redis")
	}

	merchantRepo := repository.NewMerchantRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	refundRepo := repository.NewRefundRepository(db)

	settlementQueue := queue.NewRedis(redisClient, queue.SettlementQueue, queue.BackoffPolicy{
		Type:        queue.BackoffFixed,
		Delay:       cfg.Settlement.RetryDelay,
		MaxAttempts: cfg.Settlement.MaxAttempts,
	})
	webhookQueue := queue.NewRedis(redisClient, queue.WebhookQueue, queue.BackoffPolicy{
		Type:        cfg.Webhook.BackoffType,
		Delay:       cfg.Webhook.BackoffDelay,
		MaxAttempts: cfg.Webhook.MaxAttempts,
	})

	simulation := gateway.SimulationConfig{
		Enabled:       cfg.Simulation.Enabled,
		ForcedSuccess: cfg.Simulation.ForcedSuccess,
		ForcedDelay:   cfg.Simulation.ForcedDelay,
	}
	simulator := gateway.NewSimulator(gateway.Config{
		Simulation:      simulation,
		MinDelay:        cfg.Settlement.MinDelay,
		MaxDelay:        cfg.Settlement.MaxDelay,
		UPISuccessRate:  cfg.Settlement.UPISuccessRate,
		CardSuccessRate: cfg.Settlement.CardSuccessRate,
	})

	paymentService := service.NewPaymentService(
		merchantRepo,
		orderRepo,
		paymentRepo,
		refundRepo,
		settlementQueue,
		simulation,
	)

	app := &application{
		cfg:             cfg,
		db:              db,
		redisClient:     redisClient,
		merchantRepo:    merchantRepo,
		paymentRepo:     paymentRepo,
		settlementQueue: settlementQueue,
		webhookQueue:    webhookQueue,
		paymentService:  paymentService,
		simulator:       simulator,
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
		if err := redisClient.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close redis client")
		}
	}

	return app, cleanup
}
