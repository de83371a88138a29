/**
 * @description
 * This is the main entry point for the rent service. It is a long-running
 * process with two faces: a cron scheduler that executes the daily rent
 * cycle, and an HTTP server for lease management, payment recording, and
 * WhatsApp delivery callbacks. It initializes the configuration, database
 * pool, external clients and the engine, then runs both until a shutdown
 * signal arrives.
 */
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rently/rent-service/internal/api"
	"github.com/rently/rent-service/internal/app"
	"github.com/rently/rent-service/internal/config"
	"github.com/rently/rent-service/internal/store"
	"github.com/rently/rent-service/pkg/docrender"
	"github.com/rently/rent-service/pkg/interacclient"
	"github.com/rently/rent-service/pkg/rabbitmq"
	"github.com/rently/rent-service/pkg/whatsappclient"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Load .env file for local development.
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using environment variables")
	}

	// Load application configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warn("invalid timezone, defaulting to UTC", "timezone", cfg.Timezone)
		loc = time.UTC
	}

	ctx := context.Background()

	// Establish database connection with connection pool configuration
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Error("unable to parse database URL", "error", err)
		os.Exit(1)
	}

	poolConfig.MaxConns = 20
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()
	logger.Info("database connection established")

	// Repositories
	leaseRepo := store.NewLeaseRepository(dbpool)
	obligationRepo := store.NewObligationRepository(dbpool)
	notificationRepo := store.NewNotificationRepository(dbpool)
	tenantRepo := store.NewTenantRepository(dbpool)

	// External collaborators
	transport := whatsappclient.NewClient(cfg.WhatsAppAPIURL, cfg.WhatsAppAccessToken, cfg.WhatsAppPhoneNumberID)
	renderer := docrender.NewClient(cfg.DocRenderURL)

	var linker app.PaymentLinker
	if cfg.InteracAPIURL != "" {
		linker = interacclient.NewClient(cfg.InteracAPIURL, cfg.InteracAPIKey)
	} else {
		logger.Warn("INTERAC_API_URL not set, payment request links disabled")
	}

	var publisher app.EventPublisher
	if cfg.RabbitMQURL != "" {
		producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL)
		if err != nil {
			logger.Error("failed to connect to RabbitMQ", "error", err)
			os.Exit(1)
		}
		defer producer.Close()
		publisher = producer
		logger.Info("RabbitMQ producer connected")
	} else {
		logger.Warn("RABBITMQ_URL not set, event publishing disabled")
	}

	// Engine and scheduler
	dispatcher := app.NewDispatcher(notificationRepo, transport, renderer, tenantRepo, logger)
	engine := app.NewEngine(
		leaseRepo,
		obligationRepo,
		notificationRepo,
		dispatcher,
		tenantRepo,
		linker,
		publisher,
		logger,
		cfg.N4ThresholdDays,
		cfg.L1ThresholdDays,
	)
	jobs := app.NewJobs(engine, logger, loc)
	scheduler := app.NewScheduler(jobs, logger, *cfg)

	scheduler.Start()
	logger.Info("scheduler started")

	// HTTP server
	handlers := api.NewHandlers(engine, leaseRepo, obligationRepo, loc)
	webhook := api.NewWebhookHandler(notificationRepo, cfg.WhatsAppWebhookSecret, cfg.WhatsAppVerifyToken)
	router := api.NewRouter(handlers, webhook, cfg.JWTSecret)

	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		logger.Info("server starting", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("could not start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for termination signal to gracefully shut down
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	stopCtx := scheduler.Stop()
	<-stopCtx.Done() // Wait for scheduler to fully stop
	logger.Info("service stopped gracefully")
}
