package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/mailroom-service/internal/api/http"
	"github.com/spec-kit/mailroom-service/internal/api/http/handlers"
	"github.com/spec-kit/mailroom-service/internal/auth"
	"github.com/spec-kit/mailroom-service/internal/config"
	"github.com/spec-kit/mailroom-service/internal/events"
	"github.com/spec-kit/mailroom-service/internal/observability"
	"github.com/spec-kit/mailroom-service/internal/persistence"
	"github.com/spec-kit/mailroom-service/internal/repository"
	"github.com/spec-kit/mailroom-service/internal/service"
	"github.com/spec-kit/mailroom-service/internal/tracking"
	"github.com/spec-kit/mailroom-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	packageRepo := repository.NewPackageRepository(pool)
	recipientRepo := repository.NewRecipientRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	uspsClient := tracking.NewUSPSClient(cfg.USPS, logger)
	if !uspsClient.IsConfigured() {
		logger.Warn("USPS credentials not configured; tracking enrichment disabled")
	}

	authService := service.NewAuthService(*cfg, userRepo)
	packageService := service.NewPackageService(service.PackageDependencies{
		PackageRepo:   packageRepo,
		RecipientRepo: recipientRepo,
		CarrierClient: uspsClient,
		Dispatcher:    dispatcher,
		Metrics:       metrics,
		Logger:        logger,
	})
	recipientService := service.NewRecipientService(recipientRepo)
	trackingService := service.NewTrackingService(uspsClient, redis.Client, cfg.USPS.CacheTTL(), logger)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Packages:       handlers.NewPackagesHandler(packageService),
		Recipients:     handlers.NewRecipientsHandler(recipientService),
		Tracking:       handlers.NewTrackingHandler(trackingService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
