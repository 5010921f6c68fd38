package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/luccasmf/pixkeys-backend/api/routes"
	"github.com/luccasmf/pixkeys-backend/internal/auth"
	"github.com/luccasmf/pixkeys-backend/internal/fulfillment"
	"github.com/luccasmf/pixkeys-backend/internal/notify"
	"github.com/luccasmf/pixkeys-backend/internal/orders"
	"github.com/luccasmf/pixkeys-backend/internal/payments"
	"github.com/luccasmf/pixkeys-backend/internal/products"
	"github.com/luccasmf/pixkeys-backend/internal/reconcile"
	"github.com/luccasmf/pixkeys-backend/internal/resellers"
	"github.com/luccasmf/pixkeys-backend/internal/stock"
	"github.com/luccasmf/pixkeys-backend/internal/wallet"
	"github.com/luccasmf/pixkeys-backend/internal/withdrawals"
	"github.com/luccasmf/pixkeys-backend/pkg/auth/session"
	"github.com/luccasmf/pixkeys-backend/pkg/config"
	"github.com/luccasmf/pixkeys-backend/pkg/db"
	"github.com/luccasmf/pixkeys-backend/pkg/logger"
	"github.com/luccasmf/pixkeys-backend/pkg/metrics"
	"github.com/luccasmf/pixkeys-backend/pkg/migrate"
	"github.com/luccasmf/pixkeys-backend/pkg/redis"

	"github.com/prometheus/client_golang/prometheus"
)

const webhookGuardTTL = 48 * time.Hour

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	gdb := dbClient.Gorm()
	resellerRepo := resellers.NewRepository(gdb)
	productRepo := products.NewRepository(gdb)
	stockRepo := stock.NewRepository(gdb)
	orderRepo := orders.NewRepository(gdb)
	walletRepo := wallet.NewRepository(gdb)
	withdrawalRepo := withdrawals.NewRepository(gdb)

	authService, err := auth.NewService(auth.ServiceParams{
		ResellerRepo:   resellerRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}
	registerService, err := auth.NewRegisterService(dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create register service", err)
		os.Exit(1)
	}

	productService, err := products.NewService(productRepo, stockRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	gateways := payments.NewRegistry(
		payments.NewAbacatePay(cfg.AbacatePay),
		payments.NewPagSeguro(cfg.PagSeguro),
	)

	orderService, err := orders.NewService(orderRepo, productRepo, stockRepo, gateways, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

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

	feeRate, err := decimal.NewFromString(cfg.Fulfillment.WithdrawalFeeRate)
	if err != nil {
		logg.Error(context.Background(), "invalid withdrawal fee rate", err)
		os.Exit(1)
	}
	withdrawalService, err := withdrawals.NewService(dbClient, withdrawalRepo, walletService, resellerRepo, feeRate)
	if err != nil {
		logg.Error(context.Background(), "failed to create withdrawal service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg, logg, dbClient, redisClient, sessionManager,
			authService, registerService,
			productService, orderService, reconcileService,
			walletService, withdrawalService,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(drainCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "api server shut down")
}
