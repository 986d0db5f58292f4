package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"apexmind_backend/internal/billing"
	"apexmind_backend/internal/controller"
	"apexmind_backend/internal/middleware"
	"apexmind_backend/internal/model"
	"apexmind_backend/internal/repository"
	"apexmind_backend/pkg/clock"
	"apexmind_backend/pkg/config"
	"apexmind_backend/pkg/cron"
	"apexmind_backend/pkg/database"
	"apexmind_backend/pkg/email"
	"apexmind_backend/pkg/entitlement"
	"apexmind_backend/pkg/logger"
	"apexmind_backend/pkg/seed"
	"apexmind_backend/pkg/subscription"
	"apexmind_backend/pkg/trial"
	"apexmind_backend/pkg/utils/cloudflare"
	"apexmind_backend/pkg/utils/jwt"
)

func setupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Auth Routes
	auth := api.Group("/auth")
	auth.Post("/register", controller.Register)
	auth.Post("/login", controller.Login)

	// Stripe webhook
	api.Post("/webhook", controller.HandleStripeWebhook)

	// Public plan catalogue
	api.Get("/subscriptions/plans", controller.ListPlans)

	// Protected Routes
	protected := api.Group("/", middleware.AuthMiddleware())
	protected.Get("/me", controller.GetMe)

	// Entitlement status
	user := protected.Group("/user")
	user.Get("/trial-status", controller.GetTrialStatus)
	user.Get("/subscription-status", controller.GetSubscriptionStatus)
	user.Get("/access", controller.GetAccess)

	// Workspace routes behind access guards
	folders := protected.Group("/folders")
	folders.Get("/", middleware.RequireAccess(), controller.ListFolders)
	folders.Post("/", middleware.RequireWriteAccess(), controller.CreateFolder)

	// Feature probes for the client's gates
	features := protected.Group("/features")
	features.Get("/export", middleware.CheckFeatureAccess(subscription.Export), controller.GetAccess)
	features.Get("/automation", middleware.CheckFeatureAccess(subscription.TaskAutomation), controller.GetAccess)

	// Settings routes
	settings := protected.Group("/settings")
	settings.Get("/profile", controller.GetProfile)
	settings.Put("/profile", controller.UpdateProfile)
	settings.Post("/avatar", controller.UploadAvatar)

	// Subscription routes
	subscriptions := protected.Group("/subscriptions")
	subscriptions.Post("/create-checkout-session", controller.CreateCheckoutSession)
	subscriptions.Post("/cancel-subscription", controller.CancelSubscription)
	subscriptions.Get("/my", controller.GetMySubscription)
}

func main() {
	cfg := config.Load()
	logger.Init(cfg.Log)
	jwt.Init(cfg.JWT)

	if err := database.InitDB(cfg.Database); err != nil {
		logger.Fatal("could not connect to database", "error", err)
	}

	err := database.MigrateDatabase(
		database.DB,
		&model.Account{},
		&model.Folder{},
		&model.SubscriptionRecord{},
		&model.LoginHistory{},
	)
	if err != nil {
		logger.Warn("migration warning", "error", err)
	}

	clk := clock.System()
	policy := trial.NewPolicy(cfg.Trial.LengthDays)

	accounts := repository.NewAccountRepository(database.DB,
		repository.NewBreaker("accounts", cfg.Breaker, cfg.Database.QueryTimeout, logger.WithComponent("breaker")))
	subscriptions := repository.NewSubscriptionRepository(database.DB,
		repository.NewBreaker("subscriptions", cfg.Breaker, cfg.Database.QueryTimeout, logger.WithComponent("breaker")))
	resolver := entitlement.NewResolver(subscriptions, accounts, policy, logger.Get())

	transport, err := email.NewTransport(cfg.Email)
	if err != nil {
		logger.Warn("email disabled", "error", err)
	} else if err := email.InitEmailService(transport, cfg.Server.AppURL); err != nil {
		logger.Fatal("could not initialize email service", "error", err)
	}

	catalog := controller.NewPriceCatalog(cfg.Stripe)
	processor := billing.NewProcessor(subscriptions, accounts, catalog, email.GlobalEmailService, clk, logger.Get())

	controller.InitStores(accounts, subscriptions, resolver, clk)
	controller.InitSubscriptionController(cfg.Stripe, catalog, processor)
	middleware.InitAccessMiddleware(resolver, clk)

	if uploader, err := cloudflare.NewUploader(context.Background(), cfg.Storage); err != nil {
		logger.Warn("avatar uploads disabled", "error", err)
	} else {
		controller.InitSettingsController(uploader)
	}

	if cfg.SeedDemo {
		if err := seed.SeedDemoAccount(context.Background(), accounts, subscriptions, policy, clk); err != nil {
			logger.Error("demo seed failed", "error", err)
		}
	}

	locker, err := cron.NewLocker(cfg.Redis)
	if err != nil {
		logger.Fatal("could not configure job lock", "error", err)
	}
	scheduler := cron.NewScheduler(locker, logger.Get())
	if email.GlobalEmailService != nil {
		trialJob := cron.NewTrialReminderJob(accounts, resolver, policy, email.GlobalEmailService, clk, logger.Get())
		if err := scheduler.Add(cfg.Cron.TrialReminderSpec, trialJob); err != nil {
			logger.Fatal("could not schedule trial reminders", "error", err)
		}
		renewalJob := cron.NewRenewalReminderJob(subscriptions, email.GlobalEmailService, clk, logger.Get())
		if err := scheduler.Add(cfg.Cron.RenewalReminderSpec, renewalJob); err != nil {
			logger.Fatal("could not schedule renewal reminders", "error", err)
		}
	}
	scheduler.Start()

	app := fiber.New(fiber.Config{
		ErrorHandler: controller.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New())

	setupRoutes(app)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit

		logger.Info("shutting down")
		scheduler.Stop()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}()

	logger.Info("server is running", "port", cfg.Server.Port)
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		logger.Fatal("server stopped", "error", err)
	}
}
