package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"marketplace/internal/app/checkout"
	"marketplace/internal/app/ledger"
	"marketplace/internal/app/payouts"
	"marketplace/internal/app/resources"
	"marketplace/internal/app/sweeper"
	"marketplace/internal/app/webhooks"
	"marketplace/internal/auth"
	"marketplace/internal/config"
	marketplace_http "marketplace/internal/handler/http/marketplace"
	kafka_handler "marketplace/internal/handler/kafka"
	"marketplace/internal/infrastructure/cache"
	"marketplace/internal/infrastructure/database"
	kafka_infra "marketplace/internal/infrastructure/kafka"
	"marketplace/internal/infrastructure/stripe"
	"marketplace/internal/outbox"
	"marketplace/internal/repository/outbox_repo"
	"marketplace/internal/repository/payments_repo"
	"marketplace/internal/repository/resources_repo"
	"marketplace/internal/repository/sellers_repo"
	"marketplace/internal/repository/tokens_repo"
	tokens_postgres "marketplace/internal/repository/tokens_repo/postgres"
	tokens_redis "marketplace/internal/repository/tokens_repo/redis"
	"marketplace/internal/repository/users_repo"
	"marketplace/internal/webhook"
)

func newLogger() (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.EncoderConfig.TimeKey = "timestamp"
	return zapConfig.Build()
}

func runMigrations(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Running database migrations...")
	m, err := migrate.New(cfg.MigrationsPath, cfg.GetDBMigrationConnectionString())
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	logger.Info("Database migrations completed successfully (or no new migrations).")
	return nil
}

func newTokenSource(ctx context.Context, cfg *config.Config, pgSource *tokens_postgres.TokenSource, logger *zap.Logger) (tokens_repo.TokenSource, func(), error) {
	if cfg.TokenStore != config.TokenStoreRedis {
		return pgSource, func() {}, nil
	}
	client, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Token registry backed by Redis", zap.String("key", cfg.RedisTokensKey))
	return tokens_redis.NewTokenSource(client, cfg.RedisTokensKey), func() {
		if err := client.Close(); err != nil {
			logger.Error("Error closing Redis client", zap.Error(err))
		}
	}, nil
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	appLogger, err := newLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create zap logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()
	appLogger.Info("Marketplace service starting...", zap.String("env", cfg.AppEnv))

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer startupCancel()

	appLogger.Info("Waiting for database to be available...")
	db, err := database.ConnectWithRetry(startupCtx, database.DBConfig{
		Host:     cfg.DBConfig.Host,
		Port:     cfg.DBConfig.Port,
		User:     cfg.DBConfig.User,
		Password: cfg.DBConfig.Password,
		DBName:   cfg.DBConfig.Name,
		SSLMode:  cfg.DBConfig.SSLMode,
	}, 10, 5*time.Second, appLogger)
	if err != nil {
		appLogger.Fatal("Could not connect to database after multiple retries. Exiting.", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			appLogger.Error("Error closing database connection", zap.Error(err))
		} else {
			appLogger.Info("Database connection closed.")
		}
	}()

	if err := runMigrations(cfg, appLogger); err != nil {
		appLogger.Fatal("Database migrations failed", zap.Error(err))
	}

	kafkaBrokers := cfg.GetKafkaBrokers()
	if err := kafka_infra.EnsureTopics(startupCtx, kafkaBrokers, []string{
		cfg.KafkaPaymentEventsTopic,
		cfg.KafkaSellerAccountsTopic,
	}, appLogger); err != nil {
		appLogger.Fatal("Failed to ensure Kafka topics", zap.Error(err))
	}

	paymentRepository := payments_repo.NewPaymentRepository()
	outboxRepository := outbox_repo.NewOutboxRepository()
	resourceRepository := resources_repo.NewResourceRepository()
	sellerRepository := sellers_repo.NewSellerRepository()
	userRepository := users_repo.NewUserRepository()

	tokenSource, closeTokenSource, err := newTokenSource(startupCtx, cfg, tokens_postgres.NewTokenSource(db), appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect token store", zap.Error(err))
	}
	defer closeTokenSource()

	registry := auth.NewRegistry(tokenSource, appLogger.With(zap.String("component", "TokenRegistry")))
	if err := registry.Refresh(startupCtx); err != nil {
		appLogger.Fatal("Failed to load tokens", zap.Error(err))
	}
	if cfg.IsProduction() {
		registry.ClearDevTokens()
	} else if cfg.DevTokensFile != "" {
		if err := registry.LoadDevTokens(cfg.DevTokensFile); err != nil {
			appLogger.Warn("Developer tokens not loaded", zap.String("path", cfg.DevTokensFile), zap.Error(err))
		}
	}

	processorClient := stripe.NewClient(
		cfg.Stripe.APIURL,
		cfg.Stripe.SecretKey,
		cfg.ProcessorTimeout,
		appLogger.With(zap.String("component", "ProcessorClient")),
	)

	ledgerService := ledger.NewService(
		db,
		paymentRepository,
		outboxRepository,
		cfg.KafkaPaymentEventsTopic,
		appLogger.With(zap.String("component", "PaymentLedger")),
	)
	resourceService := resources.NewService(db, resourceRepository, appLogger.With(zap.String("component", "ResourceCatalog")))
	payoutService := payouts.NewService(
		db,
		sellerRepository,
		ledgerService,
		processorClient,
		cfg.ProcessorTimeout,
		appLogger.With(zap.String("component", "PayoutGateway")),
	)
	checkoutService := checkout.NewService(ledgerService, resourceService, payoutService, processorClient, checkout.Options{
		Currency:           cfg.Currency,
		SuccessURL:         cfg.CheckoutSuccessURL,
		CancelURL:          cfg.CheckoutCancelURL,
		PlatformFeePercent: cfg.PlatformFeePercent,
		ProcessorTimeout:   cfg.ProcessorTimeout,
	}, appLogger.With(zap.String("component", "CheckoutOrchestrator")))
	dispatcher := webhooks.NewDispatcher(ledgerService, appLogger.With(zap.String("component", "WebhookDispatcher")))
	appLogger.Info("Marketplace services initialized.")

	guard := auth.NewGuard(
		registry,
		auth.NewStorePrincipalLoader(db, userRepository),
		resourceService,
		appLogger.With(zap.String("component", "AuthGuard")),
	)
	router := marketplace_http.NewRouter(marketplace_http.Services{
		Checkout:  checkoutService,
		Payouts:   payoutService,
		Resources: resourceService,
		Verifier:  webhook.NewVerifier(cfg.Stripe.WebhookSecret, cfg.Stripe.WebhookTolerance),
		Webhooks:  dispatcher,
	}, guard, cfg.CORSAllowedOrigins, appLogger.With(zap.String("component", "HTTPHandler")))

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	kafkaProducer := kafka_infra.NewProducer(kafkaBrokers, appLogger.With(zap.String("component", "KafkaProducer")))
	defer func() {
		if err := kafkaProducer.Close(); err != nil {
			appLogger.Error("Error closing Kafka producer", zap.Error(err))
		} else {
			appLogger.Info("Kafka producer closed.")
		}
	}()

	outboxProcessor := outbox.NewProcessor(db, outboxRepository, kafkaProducer, outbox.Options{
		PollInterval: cfg.OutboxPollInterval,
		PollTimeout:  cfg.OutboxPollTimeout,
		BatchSize:    cfg.OutboxBatchSize,
		MaxAttempts:  cfg.OutboxMaxAttempts,
	}, appLogger.With(zap.String("component", "OutboxProcessor")))

	sellerAccountsConsumer := kafka_infra.NewConsumer(
		kafkaBrokers,
		cfg.KafkaConsumerGroup,
		cfg.KafkaSellerAccountsTopic,
		appLogger.With(zap.String("component", "SellerAccountsConsumer")),
	)
	sellerAccountHandler := kafka_handler.SellerAccountLinkedMessageHandler(
		payoutService,
		appLogger.With(zap.String("component", "SellerAccountHandler")),
	)

	pendingSweeper := sweeper.New(
		ledgerService,
		cfg.PendingExpiryHorizon,
		cfg.PendingSweepInterval,
		appLogger.With(zap.String("component", "PendingSweeper")),
	)

	ctxMain, cancelMain := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	go func() {
		appLogger.Info("Starting HTTP server", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	outboxProcessor.Start(ctxMain)

	workers.Add(3)
	go func() {
		defer workers.Done()
		registry.Run(ctxMain, cfg.TokenRefreshInterval)
	}()
	go func() {
		defer workers.Done()
		pendingSweeper.Run(ctxMain)
	}()
	go func() {
		defer workers.Done()
		if err := sellerAccountsConsumer.Start(ctxMain, sellerAccountHandler); err != nil {
			appLogger.Error("Seller accounts consumer failed", zap.Error(err))
		}
		appLogger.Info("Seller accounts consumer stopped.")
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	appLogger.Info("Shutting down application...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP server graceful shutdown failed", zap.Error(err))
	} else {
		appLogger.Info("HTTP server gracefully shut down.")
	}

	cancelMain()
	sellerAccountsConsumer.Stop()
	outboxProcessor.Stop()

	done := make(chan struct{})
	go func() {
		workers.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		appLogger.Warn("Background workers did not stop before the shutdown deadline.")
	}

	appLogger.Info("Application gracefully shut down.")
}
