package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"bookpay/internal/account"
	"bookpay/internal/bootstrap"
	"bookpay/internal/cache"
	"bookpay/internal/config"
	cronpkg "bookpay/internal/cron"
	"bookpay/internal/handler"
	"bookpay/internal/notify"
	"bookpay/internal/payment"
	"bookpay/internal/reconcile"
	"bookpay/internal/repository"
	"bookpay/internal/router"
)

func main() {
	_ = godotenv.Load()

	// --- Logger ---
	logger, err := newLogger(os.Getenv("APP_ENV"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if hasArg("--bootstrap-db") {
		if err := runDBBootstrap(logger); err != nil {
			logger.Fatal("Database bootstrap failed", zap.Error(err))
		}
		logger.Info("Database bootstrap completed")
		return
	}

	// --- Config ---
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}
	if cfg.Paystack.SecretKey == "" {
		logger.Fatal("PAYSTACK_SECRET_KEY is required")
	}

	// --- Database ---
	db, err := config.NewDatabase(&cfg.Database, cfg.Server.IsDevelopment())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	logger.Info("Database connection established", zap.Int("max_open_conns", cfg.Database.MaxOpenConns))
	if err := bootstrap.MigrateAndSeed(db); err != nil {
		logger.Fatal("Failed to bootstrap database schema", zap.Error(err))
	}
	store := repository.NewStore(db)

	// --- Finalized reference cache (Redis with in-memory fallback) ---
	refs, cacheErr := cache.New(cfg.Redis.Addr, cfg.Redis.Pass, cfg.Redis.DB, cfg.Redis.FinalizedTTL)
	if cacheErr != nil {
		logger.Warn("Redis unavailable for reference cache, using in-memory fallback", zap.Error(cacheErr))
	}

	// --- Payment gateway ---
	gateway := payment.NewPaystack(
		payment.NewPaystackClient(cfg.Paystack.BaseURL, cfg.Paystack.SecretKey),
		cfg.Paystack.WebhookSecret,
		logger,
	)

	// --- Notifications ---
	dispatcher := notify.NewDispatcher(newMailer(cfg, logger), newReporter(cfg, logger), logger)

	// --- Reconciliation ---
	identities := account.NewProvisioner(store, logger)
	engine := reconcile.New(store, gateway, identities, refs, dispatcher, cfg.Reconcile.Timeout, logger)

	// --- Echo ---
	e := echo.New()
	e.HideBanner = true

	router.Setup(e, router.Handlers{
		Bookings: handler.NewBookingHandler(store, identities, logger),
		Payments: handler.NewPaymentHandler(store, gateway, engine, handler.PaymentOptions{
			CallbackURL:     cfg.CallbackURL(),
			ReferencePrefix: cfg.Paystack.ReferencePrefix,
		}, logger),
		Signature: gateway,
	}, cfg.Server.URL, logger)

	// --- Cron Scheduler ---
	scheduler := cronpkg.New(cfg.Cron, store, engine, dispatcher, logger)
	if err := scheduler.Start(); err != nil {
		logger.Fatal("Failed to start cron scheduler", zap.Error(err))
	}

	// --- Start Server ---
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	go func() {
		logger.Info("Starting booking server", zap.String("addr", addr), zap.String("env", cfg.Server.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server stopped", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	// Stop cron
	ctx := scheduler.Stop()
	<-ctx.Done()

	// Stop HTTP server
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// Drain queued confirmation emails
	dispatcher.Wait()

	logger.Info("Server exited")
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newMailer(cfg *config.Config, logger *zap.Logger) notify.Mailer {
	if cfg.Mail.Host == "" {
		logger.Warn("SMTP_HOST not set, emails will only be logged")
		return notify.NewLogMailer(func(email notify.Email) {
			logger.Info("Email (not sent)", zap.String("to", email.To), zap.String("subject", email.Subject))
		})
	}
	return notify.NewSMTPMailer(notify.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
		FromName: cfg.Mail.FromName,
	})
}

// newReporter returns nil when Telegram reporting is not configured.
func newReporter(cfg *config.Config, logger *zap.Logger) notify.Reporter {
	if cfg.Telegram.Token == "" || cfg.Telegram.ReportChatID == 0 {
		return nil
	}
	reporter, err := notify.NewTelegramReporter(cfg.Telegram.Token, cfg.Telegram.ReportChatID)
	if err != nil {
		logger.Warn("Telegram reporter disabled", zap.Error(err))
		return nil
	}
	return reporter
}

func hasArg(name string) bool {
	for _, arg := range os.Args[1:] {
		if arg == name {
			return true
		}
	}
	return false
}

func runDBBootstrap(logger *zap.Logger) error {
	dbCfg, err := config.LoadDatabaseOnly()
	if err != nil {
		return err
	}
	db, err := config.NewDatabase(dbCfg, false)
	if err != nil {
		return err
	}
	if err := bootstrap.MigrateAndSeed(db); err != nil {
		return err
	}
	logger.Info("Schema migration and default seed completed")
	return nil
}
