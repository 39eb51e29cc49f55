package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/swifteats/swifteats-backend/api/controllers"
	webhookcontrollers "github.com/swifteats/swifteats-backend/api/controllers/webhooks"
	"github.com/swifteats/swifteats-backend/api/middleware"
	"github.com/swifteats/swifteats-backend/internal/auth"
	"github.com/swifteats/swifteats-backend/internal/notifications"
	"github.com/swifteats/swifteats-backend/internal/orders"
	"github.com/swifteats/swifteats-backend/internal/payouts"
	productsvc "github.com/swifteats/swifteats-backend/internal/products"
	"github.com/swifteats/swifteats-backend/internal/reviews"
	"github.com/swifteats/swifteats-backend/internal/riders"
	"github.com/swifteats/swifteats-backend/internal/vendors"
	"github.com/swifteats/swifteats-backend/internal/wallet"
	paystackwebhook "github.com/swifteats/swifteats-backend/internal/webhooks/paystack"
	"github.com/swifteats/swifteats-backend/pkg/auth/session"
	"github.com/swifteats/swifteats-backend/pkg/config"
	"github.com/swifteats/swifteats-backend/pkg/db"
	"github.com/swifteats/swifteats-backend/pkg/logger"
	"github.com/swifteats/swifteats-backend/pkg/paystack"
	"github.com/swifteats/swifteats-backend/pkg/redis"
)

// Deps carries everything the HTTP surface needs. Optional entries are
// documented on their fields.
type Deps struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             db.Pinger
	Redis          *redis.Client
	Sessions       session.AccessSessionChecker
	AuthService    auth.Service
	Register       auth.RegisterService
	Wallets        wallet.Service
	Orders         orders.Service
	Reviews        reviews.Service
	Payouts        payouts.Service
	Notifications  notifications.Service
	Products       productsvc.Service
	Vendors        vendors.Service
	Riders         riders.Service
	PaystackClient *paystack.Client
	// Webhook wiring is optional; the route is only mounted when all
	// three pieces are present.
	WebhookService *paystackwebhook.Service
	WebhookGuard   *paystackwebhook.IdempotencyGuard
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

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
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	if deps.WebhookService != nil && deps.PaystackClient != nil && deps.WebhookGuard != nil {
		r.Post("/api/v1/webhooks/paystack", webhookcontrollers.PaystackWebhook(deps.WebhookService, deps.PaystackClient, deps.WebhookGuard, logg))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(
			middleware.AuthRateLimit(registerPolicy, deps.Redis, logg),
			middleware.Idempotency(deps.Redis, logg),
		).Post("/register", controllers.Register(deps.Register, deps.AuthService, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.Login(deps.AuthService, logg))
		r.Post("/refresh", controllers.Refresh(deps.AuthService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
			r.Post("/logout", controllers.Logout(deps.AuthService, logg))
			r.Post("/device-token", controllers.RegisterDevice(deps.AuthService, logg))
		})
	})

	// Public marketplace browsing.
	r.Route("/api/v1/vendors", func(r chi.Router) {
		r.Get("/", controllers.ListVendors(deps.Vendors, logg))
		r.Get("/{vendorId}", controllers.GetVendor(deps.Vendors, logg))
		r.Get("/{vendorId}/products", controllers.ListVendorProducts(deps.Products, logg))
		r.Get("/{vendorId}/reviews", controllers.ListVendorReviews(deps.Reviews, logg))
	})
	r.Get("/api/v1/products/{productId}", controllers.GetProduct(deps.Products, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/", controllers.WalletBalance(deps.Wallets, logg))
			r.Post("/topup/verify", controllers.WalletTopupVerify(deps.Wallets, logg))
			r.Get("/transactions", controllers.WalletTransactions(deps.Wallets, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.With(middleware.RequireRole("customer", logg)).Post("/", controllers.CreateOrder(deps.Orders, logg))
			r.Get("/", controllers.ListOrders(deps.Orders, logg))
			r.Get("/{orderId}", controllers.GetOrder(deps.Orders, logg))
			r.Post("/{orderId}/status", controllers.TransitionOrderStatus(deps.Orders, logg))
			r.With(middleware.RequireRole("rider", logg)).Post("/{orderId}/location", controllers.UpdateOrderRiderLocation(deps.Orders, logg))
		})

		r.With(middleware.RequireRole("customer", logg)).Post("/reviews", controllers.SubmitReview(deps.Reviews, logg))

		r.Route("/payouts", func(r chi.Router) {
			r.With(middleware.RequireAnyRole(logg, "vendor", "rider")).Post("/", controllers.CreatePayout(deps.Payouts, logg))
			r.Get("/", controllers.ListPayouts(deps.Payouts, logg))
			r.Get("/{payoutId}", controllers.GetPayout(deps.Payouts, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Get("/unread-count", controllers.UnreadNotificationsCount(deps.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
		})

		r.Route("/vendor", func(r chi.Router) {
			r.Use(middleware.RequireRole("vendor", logg))
			r.Get("/me", controllers.MyVendorProfile(deps.Vendors, logg))
			r.Patch("/me", controllers.UpdateVendorProfile(deps.Vendors, logg))
			r.Post("/open", controllers.SetVendorOpen(deps.Vendors, logg))
			r.Post("/products", controllers.VendorCreateProduct(deps.Products, deps.Vendors, logg))
			r.Patch("/products/{productId}", controllers.VendorUpdateProduct(deps.Products, deps.Vendors, logg))
			r.Delete("/products/{productId}", controllers.VendorDeleteProduct(deps.Products, deps.Vendors, logg))
		})

		r.Route("/rider", func(r chi.Router) {
			r.Use(middleware.RequireRole("rider", logg))
			r.Get("/me", controllers.MyRiderProfile(deps.Riders, logg))
			r.Post("/availability", controllers.SetRiderAvailability(deps.Riders, logg))
			r.Post("/location", controllers.UpdateRiderPosition(deps.Riders, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole("admin", logg))
			r.Post("/users/{userId}/active", controllers.AdminSetUserActive(deps.AuthService, logg))
			r.Get("/riders", controllers.ListAvailableRiders(deps.Riders, logg))
			r.Route("/payouts", func(r chi.Router) {
				r.Get("/", controllers.ListPayouts(deps.Payouts, logg))
				r.Post("/{payoutId}/decision", controllers.DecidePayout(deps.Payouts, logg))
				r.Post("/{payoutId}/process", controllers.ProcessPayout(deps.Payouts, logg))
			})
		})
	})

	return r
}
