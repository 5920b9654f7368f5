package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	config "github.com/anjiri1684/liquidity/configs"
	"github.com/anjiri1684/liquidity/database"
	"github.com/anjiri1684/liquidity/handlers"
	"github.com/anjiri1684/liquidity/jobs"
	"github.com/anjiri1684/liquidity/models"
	"github.com/anjiri1684/liquidity/notifications"
	"github.com/anjiri1684/liquidity/payments"
	"github.com/anjiri1684/liquidity/routes"
	"github.com/anjiri1684/liquidity/services"
	"github.com/anjiri1684/liquidity/utils"
	"github.com/anjiri1684/liquidity/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := utils.NewLogger(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	db, err := database.ConnectDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("database migration failed", zap.Error(err))
	}
	if err := database.SeedCurrencyProducts(db, log); err != nil {
		log.Fatal("seeding currencies failed", zap.Error(err))
	}
	if err := database.SeedAdmin(db, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminFullName, log); err != nil {
		log.Fatal("seeding admin failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mpesa := payments.NewMpesaClient(cfg.Mpesa, payments.NewTokenCache(cfg.RedisURL, log), log)
	mailer := notifications.NewBrevoService(cfg.Email, log)
	hub := websocket.NewHub(log)

	walletSvc := services.NewWalletService(db, log)
	paymentSvc := services.NewPaymentService(db)
	rentalSvc := services.NewRentalService(db, walletSvc, cfg.Rental, log)
	referralSvc := services.NewReferralService(db, walletSvc, log)
	withdrawalSvc := services.NewWithdrawalService(db, walletSvc, cfg.WithdrawalEscalateAfter, log)
	authSvc := services.NewAuthService(db, walletSvc, referralSvc, cfg.JWTSecret, cfg.TokenTTL, log)
	catalogSvc := services.NewCatalogService(db, log)
	adminSvc := services.NewAdminService(db, log)
	topUpSvc := services.NewTopUpService(db, paymentSvc, mpesa, log)
	callbackSvc := services.NewCallbackService(db, walletSvc, paymentSvc, rentalSvc, referralSvc, log)
	rateSvc := services.NewExchangeRateService(cfg.ExchangeRateKey, log)

	callbackSvc.OnTopUp(func(ev services.TopUpEvent) {
		hub.NotifyWallet(ev.User.ID, ev.Balance, ev.Payment.Amount, models.ReasonTopUp)
		if ev.ReferrerID != nil && ev.ReferralReward.IsPositive() {
			hub.NotifyWallet(*ev.ReferrerID, ev.ReferrerBal, ev.ReferralReward, models.ReasonReferralReward)
		}
		subject, body := notifications.TopUpEmail(&ev.User, &ev.Payment, &ev.Rental, ev.Balance)
		mailer.SendAsync(ev.User.FullName, ev.User.Email, subject, body)
	})
	if cfg.CloudinaryURL != "" {
		certificates := services.NewCertificateService(cfg.CloudinaryURL, rentalSvc, log)
		callbackSvc.OnTopUp(certificates.IssueAsync)
	}

	go hub.Run(ctx)

	scheduler := cron.New()
	if err := jobs.Schedule(ctx, scheduler, rentalSvc, withdrawalSvc, log); err != nil {
		log.Fatal("failed to schedule jobs", zap.Error(err))
	}
	scheduler.Start()
	log.Info("background jobs scheduled")

	app := fiber.New(fiber.Config{
		Prefork:       false,
		AppName:       "Liquidity",
		CaseSensitive: true,
		StrictRouting: true,
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  30 * time.Second,
		IdleTimeout:   60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}

			log.Error("unhandled request error",
				zap.Error(err),
				zap.String("path", c.Path()),
				zap.String("method", c.Method()))
			return c.Status(code).JSON(fiber.Map{
				"status":  "error",
				"code":    code,
				"message": err.Error(),
			})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Authorization",
		MaxAge:        86400,
	}))
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Africa/Nairobi",
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "success",
			"message": "Welcome to Liquidity API",
		})
	})

	routes.Setup(app, routes.Handlers{
		Auth:       handlers.NewAuthHandler(authSvc, mailer, log),
		Google:     handlers.NewGoogleAuthHandler(authSvc, cfg.Google, cfg.FrontendBaseURL, log),
		Payment:    handlers.NewPaymentHandler(topUpSvc, callbackSvc, paymentSvc, catalogSvc, rateSvc, log),
		Wallet:     handlers.NewWalletHandler(walletSvc, rentalSvc, referralSvc, authSvc, log),
		Withdrawal: handlers.NewWithdrawalHandler(withdrawalSvc, walletSvc, hub, mailer, log),
		Admin:      handlers.NewAdminHandler(adminSvc, paymentSvc, catalogSvc, log),
		Upload:     handlers.NewUploadHandler(cfg.CloudinaryURL, log),
		Hub:        hub,
	}, cfg.JWTSecret, authSvc.SessionActive)

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		<-scheduler.Stop().Done()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("server shutdown failed", zap.Error(err))
		}
	}()

	log.Info("server starting", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal("server failed to start", zap.Error(err))
	}
}
