package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/luccasmf/pixkeys-backend/api/controllers"
	webhookcontrollers "github.com/luccasmf/pixkeys-backend/api/controllers/webhooks"
	"github.com/luccasmf/pixkeys-backend/api/middleware"
	authsvc "github.com/luccasmf/pixkeys-backend/internal/auth"
	ordersvc "github.com/luccasmf/pixkeys-backend/internal/orders"
	productsvc "github.com/luccasmf/pixkeys-backend/internal/products"
	"github.com/luccasmf/pixkeys-backend/internal/reconcile"
	walletsvc "github.com/luccasmf/pixkeys-backend/internal/wallet"
	withdrawalsvc "github.com/luccasmf/pixkeys-backend/internal/withdrawals"
	"github.com/luccasmf/pixkeys-backend/pkg/auth/session"
	"github.com/luccasmf/pixkeys-backend/pkg/config"
	"github.com/luccasmf/pixkeys-backend/pkg/db"
	"github.com/luccasmf/pixkeys-backend/pkg/enums"
	"github.com/luccasmf/pixkeys-backend/pkg/logger"
	"github.com/luccasmf/pixkeys-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	sessionChecker session.AccessSessionChecker,
	authService authsvc.Service,
	registerService authsvc.RegisterService,
	productService productsvc.Service,
	orderService ordersvc.Service,
	reconcileService reconcile.Service,
	walletService walletsvc.Service,
	withdrawalService withdrawalsvc.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbClient, redisClient))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/api/public/ping", controllers.PublicPing())

	// Public surface: checkout pages and provider callbacks. No account, no
	// bearer token.
	r.Route("/api/v1", func(r chi.Router) {
		r.With(middleware.Idempotency(redisClient, logg)).
			Post("/checkout", controllers.Checkout(orderService, logg))
		r.Get("/orders/{orderID}/status", controllers.OrderStatus(orderService, logg))
		r.Get("/products/{productID}", controllers.PublicProduct(productService, logg))
		r.Post("/webhooks/{provider}", webhookcontrollers.PaymentWebhook(reconcileService, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).
			Post("/login", controllers.AuthLogin(authService, logg))
		r.With(
			middleware.AuthRateLimit(registerPolicy, redisClient, logg),
			middleware.Idempotency(redisClient, logg),
		).Post("/register", controllers.AuthRegister(registerService, logg))
		r.Post("/refresh", controllers.AuthRefresh(authService, logg))
		r.With(middleware.Auth(cfg.JWT, sessionChecker, logg)).
			Post("/logout", controllers.AuthLogout(authService, logg))
	})

	r.Route("/api/v1/vendor", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionChecker, logg))
		r.Use(middleware.RequireRole(string(enums.ActorRoleReseller), logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/ping", controllers.VendorPing())

		r.Post("/products", controllers.VendorCreateProduct(productService, logg))
		r.Get("/products", controllers.VendorListProducts(productService, logg))
		r.Get("/products/{productID}", controllers.VendorGetProduct(productService, logg))
		r.Patch("/products/{productID}", controllers.VendorUpdateProduct(productService, logg))
		r.Delete("/products/{productID}", controllers.VendorDeleteProduct(productService, logg))
		r.Get("/products/{productID}/stock", controllers.VendorRenderStock(productService, logg))
		r.Put("/products/{productID}/stock", controllers.VendorReplaceStock(productService, logg))
		r.Post("/products/{productID}/stock", controllers.VendorAppendStock(productService, logg))

		r.Get("/orders", controllers.VendorListOrders(orderService, logg))
		r.Get("/orders/{orderID}", controllers.VendorGetOrder(orderService, logg))
		r.Post("/orders/{orderID}/approve", controllers.VendorApproveOrder(reconcileService, logg))

		r.Get("/wallet", controllers.VendorWalletBalance(walletService, logg))
		r.Get("/wallet/entries", controllers.VendorWalletEntries(walletService, logg))

		r.Post("/withdrawals", controllers.VendorRequestWithdrawal(withdrawalService, logg))
		r.Get("/withdrawals", controllers.VendorListWithdrawals(withdrawalService, logg))
	})

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionChecker, logg))
		r.Use(middleware.RequireRole(string(enums.ActorRoleAdmin), logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/ping", controllers.AdminPing())
		r.Post("/orders/{orderID}/approve", controllers.AdminApproveOrder(reconcileService, logg))

		r.Get("/withdrawals/pending", controllers.AdminListPendingWithdrawals(withdrawalService, logg))
		r.Post("/withdrawals/{withdrawalID}/approve", controllers.AdminApproveWithdrawal(withdrawalService, logg))
		r.Post("/withdrawals/{withdrawalID}/reject", controllers.AdminRejectWithdrawal(withdrawalService, logg))
	})

	return r
}
