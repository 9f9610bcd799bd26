package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/kaclira/kaclira-backend/internal/alerts"
	"github.com/kaclira/kaclira-backend/internal/favorites"
	"github.com/kaclira/kaclira-backend/internal/notifications"
	"github.com/kaclira/kaclira-backend/internal/products"
	"github.com/kaclira/kaclira-backend/internal/sellers"
	"github.com/kaclira/kaclira-backend/internal/users"
	"github.com/kaclira/kaclira-backend/pkg/config"
	"github.com/kaclira/kaclira-backend/pkg/db"
	"github.com/kaclira/kaclira-backend/pkg/logger"
	"github.com/kaclira/kaclira-backend/pkg/migrate"
	"github.com/kaclira/kaclira-backend/pkg/outbox/idempotency"
	"github.com/kaclira/kaclira-backend/pkg/pubsub"
	"github.com/kaclira/kaclira-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "alert-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "alert-worker"

	logg = logger.New(logger.Options{
		ServiceName: "alert-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags, logg)
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

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub client", err)
		}
	}()

	sellersService, err := sellers.NewService(sellers.ServiceParams{
		Repo:   sellers.NewRepository(dbClient.DB()),
		Config: cfg.Sellers,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create seller service", err)
		os.Exit(1)
	}

	productsService, err := products.NewService(products.ServiceParams{
		Repo: products.NewRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notification service", err)
		os.Exit(1)
	}

	favoritesService, err := favorites.NewService(favorites.NewRepository(dbClient.DB()), productsService)
	if err != nil {
		logg.Error(context.Background(), "failed to create favorites service", err)
		os.Exit(1)
	}

	usersService, err := users.NewService(users.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create user service", err)
		os.Exit(1)
	}

	dispatcher, err := alerts.NewDispatcher(alerts.DispatcherParams{
		Notifications: notificationsService,
		Watchers:      favoritesService,
		Admins:        usersService,
		Sellers:       sellersService,
		Config:        cfg.Pricing,
		Logger:        logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create alert dispatcher", err)
		os.Exit(1)
	}

	idempotencyManager, err := idempotency.NewManager(redisClient, cfg.Eventing.IdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency manager", err)
		os.Exit(1)
	}

	consumer, err := alerts.NewConsumer(dispatcher, pubsubClient.AlertsSubscription(), idempotencyManager, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create alert consumer", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"serviceKind":  cfg.Service.Kind,
		"subscription": cfg.PubSub.AlertsSubscription,
	})
	logg.Info(ctx, "starting alert worker")

	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "alert worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "alert worker shutting down gracefully")
}
