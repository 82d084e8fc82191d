package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/01moynul/ai-humanizer/internal/auth"
	"github.com/01moynul/ai-humanizer/internal/billing"
	"github.com/01moynul/ai-humanizer/internal/config"
	"github.com/01moynul/ai-humanizer/internal/credits"
	"github.com/01moynul/ai-humanizer/internal/database"
	"github.com/01moynul/ai-humanizer/internal/detect"
	"github.com/01moynul/ai-humanizer/internal/handlers"
	"github.com/01moynul/ai-humanizer/internal/humanize"
	"github.com/01moynul/ai-humanizer/internal/logger"
	"github.com/01moynul/ai-humanizer/internal/notifications"
	"github.com/01moynul/ai-humanizer/internal/routes"
	"github.com/gin-gonic/gin"
)

func main() {
	// 0. --- Load Configuration (.env + configs/config.yaml + env) ---
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.NewStructured("info", "console")
		bootLog.Error("Failed to load configuration", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)
	defer log.Sync()
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. --- Main Database Connection ---
	db, err := database.OpenDB(ctx, cfg.Database)
	if err != nil {
		log.Error("Failed to connect to database", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.Error("Failed to apply schema", map[string]interface{}{"error": err.Error()})
			os.Exit(1)
		}
	}

	// 2. --- Redis (balance cache, session deny list, webhook dedupe) ---
	rdb := database.NewRedis(cfg.Redis)
	defer rdb.Close()
	if err := rdb.Ping(ctx); err != nil {
		log.Warn("Redis unavailable, continuing without cache", map[string]interface{}{"error": err.Error()})
	}

	// 3. --- Domain Services ---
	ledger := credits.NewLedger(credits.NewMySQLStore(db), rdb, log.WithFields(map[string]interface{}{"component": "credits"}))
	notifier := notifications.NewStore(db)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	authService := auth.NewService(db, tokens, rdb, log.WithFields(map[string]interface{}{"component": "auth"}))
	if cfg.Auth.SignupBonus > 0 {
		authService = authService.WithSignupBonus(ledger, cfg.Auth.SignupBonus)
	}

	tracker := humanize.NewTracker(
		humanize.NewClient(cfg.Humanizer.BaseURL, cfg.Humanizer.APIKey, cfg.Humanizer.RequestTimeout),
		humanize.Settings{
			Strength:     cfg.Humanizer.Strength,
			Model:        cfg.Humanizer.Model,
			MinLength:    cfg.Humanizer.MinLength,
			PollInterval: cfg.Humanizer.PollInterval,
			MaxPolls:     cfg.Humanizer.MaxPolls,
		},
		ledger,
		notifier,
		log.WithFields(map[string]interface{}{"component": "humanize"}),
	)

	subscriptions := billing.NewSubscriptionStore(db)
	checkout := billing.NewStripeCheckout(billing.StripeOptions{
		SecretKey:    cfg.Billing.StripeSecretKey,
		PriceIDs:     cfg.Billing.PriceIDs,
		SuccessURL:   cfg.Billing.SuccessURL,
		CancelURL:    cfg.Billing.CancelURL,
		ContactEmail: cfg.Billing.ContactEmail,
	})
	webhook := billing.NewWebhookProcessor(cfg.Billing.StripeWebhookSecret, subscriptions, ledger, notifier, rdb,
		log.WithFields(map[string]interface{}{"component": "billing"}))

	// --- Application Setup ---
	app := &handlers.Handlers{
		Auth:          authService,
		Users:         authService,
		Credits:       ledger,
		Jobs:          tracker,
		Detector:      detect.NewClient(cfg.Detector.URL, cfg.Humanizer.MinLength, cfg.Detector.Timeout),
		Checkout:      checkout,
		Webhook:       webhook,
		Notifications: notifier,
		Subscriptions: subscriptions,
		Log:           log,
		ContactEmail:  cfg.Billing.ContactEmail,
	}

	// --- 4. Background Workers ---
	// Drops resolved humanize jobs once their retention has passed.
	go func() {
		ticker := time.NewTicker(cfg.Jobs.PruneInterval)
		defer ticker.Stop()

		log.Info("Background worker started: pruning resolved humanize jobs", map[string]interface{}{
			"interval":  cfg.Jobs.PruneInterval.String(),
			"retention": cfg.Jobs.Retention.String(),
		})

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tracker.Prune(cfg.Jobs.Retention)
			}
		}
	}()

	// --- Router Setup ---
	router := routes.SetupRouter(app, cfg.Server.AllowedOrigins, log)
	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// --- Start Server ---
	go func() {
		log.Info("Starting AI Humanizer API server", map[string]interface{}{"address": cfg.Server.Address})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", map[string]interface{}{"error": err.Error()})
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown failed", map[string]interface{}{"error": err.Error()})
	}
	// running jobs are cancelled and refunded before the database closes
	if err := tracker.Shutdown(shutdownCtx); err != nil {
		log.Error("Humanize jobs did not stop in time", map[string]interface{}{"error": err.Error()})
	}
}
