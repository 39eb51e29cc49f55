package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/swifteats/swifteats-backend/api/routes"
	"github.com/swifteats/swifteats-backend/internal/auth"
	"github.com/swifteats/swifteats-backend/internal/notifications"
	"github.com/swifteats/swifteats-backend/internal/orders"
	"github.com/swifteats/swifteats-backend/internal/payouts"
	"github.com/swifteats/swifteats-backend/internal/products"
	"github.com/swifteats/swifteats-backend/internal/reviews"
	"github.com/swifteats/swifteats-backend/internal/riders"
	"github.com/swifteats/swifteats-backend/internal/users"
	"github.com/swifteats/swifteats-backend/internal/vendors"
	"github.com/swifteats/swifteats-backend/internal/wallet"
	paystackwebhook "github.com/swifteats/swifteats-backend/internal/webhooks/paystack"
	"github.com/swifteats/swifteats-backend/pkg/auth/session"
	"github.com/swifteats/swifteats-backend/pkg/config"
	"github.com/swifteats/swifteats-backend/pkg/db"
	"github.com/swifteats/swifteats-backend/pkg/fcm"
	"github.com/swifteats/swifteats-backend/pkg/logger"
	"github.com/swifteats/swifteats-backend/pkg/migrate"
	"github.com/swifteats/swifteats-backend/pkg/paystack"
	"github.com/swifteats/swifteats-backend/pkg/redis"
)

const webhookReplayTTL = 7 * 24 * time.Hour

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

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
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

	userRepo := users.NewRepository(dbClient.DB())

	var push fcm.Sender
	if cfg.Firebase.CredentialsFile != "" {
		fcmClient, err := fcm.NewClient(context.Background(), cfg.Firebase)
		if err != nil {
			logg.Error(context.Background(), "failed to create fcm client", err)
			os.Exit(1)
		}
		push = fcmClient
	} else {
		logg.Warn(context.Background(), "firebase credentials not configured, push delivery disabled")
	}

	notificationService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()), userRepo, push, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	var paystackClient *paystack.Client
	if cfg.Paystack.SecretKey != "" {
		opts := []paystack.Option{}
		if cfg.Paystack.BaseURL != "" {
			opts = append(opts, paystack.WithBaseURL(cfg.Paystack.BaseURL))
		}
		paystackClient, err = paystack.NewClient(cfg.Paystack.SecretKey, cfg.Paystack.WebhookSecret, cfg.Paystack.Timeout, opts...)
		if err != nil {
			logg.Error(context.Background(), "failed to create paystack client", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "paystack secret key not configured, topup verification disabled")
	}

	walletRepo := wallet.NewRepository(dbClient.DB())
	var walletService wallet.Service
	if paystackClient != nil {
		walletService, err = wallet.NewService(walletRepo, dbClient, paystackClient, notificationService, logg)
	} else {
		walletService, err = wallet.NewService(walletRepo, dbClient, nil, notificationService, logg)
	}
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	productService, err := products.NewService(products.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create products service", err)
		os.Exit(1)
	}

	vendorRepo := vendors.NewRepository(dbClient.DB())
	vendorService, err := vendors.NewService(vendorRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create vendors service", err)
		os.Exit(1)
	}

	riderRepo := riders.NewRepository(dbClient.DB())
	riderService, err := riders.NewService(riderRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create riders service", err)
		os.Exit(1)
	}

	deliveryFee, err := decimal.NewFromString(cfg.Delivery.BaseFee)
	if err != nil {
		logg.Error(context.Background(), "invalid delivery base fee", err)
		os.Exit(1)
	}

	orderRepo := orders.NewRepository(dbClient.DB())
	orderService, err := orders.NewService(orders.Deps{
		Repo:        orderRepo,
		Tx:          dbClient,
		Wallets:     walletService,
		Products:    products.NewRepository(dbClient.DB()),
		Vendors:     vendorRepo,
		Riders:      riderRepo,
		Dispatcher:  notificationService,
		Logger:      logg,
		DeliveryFee: deliveryFee,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	reviewService, err := reviews.NewService(reviews.NewRepository(dbClient.DB()), orderRepo, vendorRepo, riderRepo, notificationService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create reviews service", err)
		os.Exit(1)
	}

	payoutService, err := payouts.NewService(payouts.NewRepository(dbClient.DB()), dbClient, walletService, notificationService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payouts service", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		TxRunner:       dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create register service", err)
		os.Exit(1)
	}

	var webhookService *paystackwebhook.Service
	var webhookGuard *paystackwebhook.IdempotencyGuard
	if paystackClient != nil {
		webhookService, err = paystackwebhook.NewService(paystackwebhook.ServiceParams{
			Users:   userRepo,
			Wallets: walletService,
			Logger:  logg,
		})
		if err != nil {
			logg.Error(context.Background(), "failed to create paystack webhook service", err)
			os.Exit(1)
		}
		webhookGuard, err = paystackwebhook.NewIdempotencyGuard(redisClient, webhookReplayTTL, "paystack-webhook")
		if err != nil {
			logg.Error(context.Background(), "failed to create paystack webhook guard", err)
			os.Exit(1)
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:         cfg,
			Logger:         logg,
			DB:             dbClient,
			Redis:          redisClient,
			Sessions:       sessionManager,
			AuthService:    authService,
			Register:       registerService,
			Wallets:        walletService,
			Orders:         orderService,
			Reviews:        reviewService,
			Payouts:        payoutService,
			Notifications:  notificationService,
			Products:       productService,
			Vendors:        vendorService,
			Riders:         riderService,
			PaystackClient: paystackClient,
			WebhookService: webhookService,
			WebhookGuard:   webhookGuard,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
