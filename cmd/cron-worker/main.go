package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luccasmf/pixkeys-backend/internal/cron"
	"github.com/luccasmf/pixkeys-backend/internal/fulfillment"
	"github.com/luccasmf/pixkeys-backend/internal/notify"
	"github.com/luccasmf/pixkeys-backend/internal/orders"
	"github.com/luccasmf/pixkeys-backend/internal/payments"
	"github.com/luccasmf/pixkeys-backend/internal/products"
	"github.com/luccasmf/pixkeys-backend/internal/reconcile"
	"github.com/luccasmf/pixkeys-backend/internal/resellers"
	"github.com/luccasmf/pixkeys-backend/internal/stock"
	"github.com/luccasmf/pixkeys-backend/internal/wallet"
	"github.com/luccasmf/pixkeys-backend/pkg/config"
	"github.com/luccasmf/pixkeys-backend/pkg/db"
	"github.com/luccasmf/pixkeys-backend/pkg/logger"
	"github.com/luccasmf/pixkeys-backend/pkg/metrics"
	"github.com/luccasmf/pixkeys-backend/pkg/migrate"
	"github.com/luccasmf/pixkeys-backend/pkg/redis"
)

const webhookGuardTTL = 48 * time.Hour

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.NewClient(context.Background(), db.Options{
		DSN:             cfg.DB.DSN,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gdb := dbClient.Gorm()
	orderRepo := orders.NewRepository(gdb)
	stockRepo := stock.NewRepository(gdb)
	productRepo := products.NewRepository(gdb)
	resellerRepo := resellers.NewRepository(gdb)
	walletRepo := wallet.NewRepository(gdb)

	walletService, err := wallet.NewService(walletRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	var emailSender notify.EmailSender
	if cfg.SMTP.Configured() {
		emailSender = notify.NewSMTPEmailSender(cfg.SMTP)
	} else {
		logg.Warn(context.Background(), "smtp not configured, delivery emails disabled")
	}

	fulfillmentMetrics := metrics.NewFulfillmentMetrics(prometheus.DefaultRegisterer)
	fulfillmentService, err := fulfillment.NewService(
		dbClient, orderRepo, stockRepo, productRepo, walletService, resellerRepo, emailSender, logg, fulfillmentMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create fulfillment service", err)
		os.Exit(1)
	}

	gateways := payments.NewRegistry(
		payments.NewAbacatePay(cfg.AbacatePay),
		payments.NewPagSeguro(cfg.PagSeguro),
	)

	webhookGuard, err := reconcile.NewIdempotencyGuard(redisClient, webhookGuardTTL, "webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	reconcileService, err := reconcile.NewService(orderRepo, gateways, fulfillmentService, webhookGuard, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconcile service", err)
		os.Exit(1)
	}

	cronMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)

	pollJob, err := cron.NewPaymentPollJob(cron.PaymentPollJobParams{
		Logger: logg,
		Poller: reconcileService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment poll job", err)
		os.Exit(1)
	}
	expiryJob, err := cron.NewOrderExpiryJob(cron.OrderExpiryJobParams{
		Logger: logg,
		Orders: orderRepo,
		TTL:    cfg.Fulfillment.PendingOrderTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order expiry job", err)
		os.Exit(1)
	}

	pollService, err := newCronService(logg, redisClient, cronMetrics, cfg.App.Env, "payment-poll", cfg.Fulfillment.PaymentPollInterval, pollJob)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment poll runner", err)
		os.Exit(1)
	}
	expiryService, err := newCronService(logg, redisClient, cronMetrics, cfg.App.Env, "order-expiry", cfg.Fulfillment.ExpirySweepInterval, expiryJob)
	if err != nil {
		logg.Error(context.Background(), "failed to create order expiry runner", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	// The two sweeps run on different cadences, so each gets its own loop
	// and its own lock.
	errCh := make(chan error, 2)
	go func() { errCh <- pollService.Run(ctx) }()
	go func() { errCh <- expiryService.Run(ctx) }()

	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "cron runner stopped unexpectedly", err)
			stop()
		}
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func newCronService(
	logg *logger.Logger,
	redisClient *redis.Client,
	cronMetrics *metrics.CronJobMetrics,
	env, name string,
	interval time.Duration,
	job cron.Job,
) (*cron.Service, error) {
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName(env, name)), 0)
	if err != nil {
		return nil, err
	}
	return cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(job),
		Lock:     lock,
		Metrics:  cronMetrics,
		Interval: interval,
	})
}

func lockName(env, name string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("%s:%s", env, name)
}
