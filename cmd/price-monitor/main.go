// One-shot runner for the price drop monitoring sweep. Supports a
// --dry-run mode that logs flagged drops without notifying admins.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/kaclira/kaclira-backend/internal/cron"
	"github.com/kaclira/kaclira-backend/internal/notifications"
	"github.com/kaclira/kaclira-backend/internal/pricing"
	"github.com/kaclira/kaclira-backend/internal/products"
	"github.com/kaclira/kaclira-backend/internal/sellers"
	"github.com/kaclira/kaclira-backend/internal/users"
	"github.com/kaclira/kaclira-backend/pkg/config"
	"github.com/kaclira/kaclira-backend/pkg/db"
	"github.com/kaclira/kaclira-backend/pkg/logger"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "price-monitor"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	hours := flag.Int("hours", 0, "lookback window in hours (0 uses configured default)")
	threshold := flag.Float64("threshold", 0, "drop percentage threshold (0 uses configured default)")
	dryRun := flag.Bool("dry-run", false, "log flagged drops without creating notifications")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "price-monitor",
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

	usersService, err := users.NewService(users.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create user service", err)
		os.Exit(1)
	}

	pricingService, err := pricing.NewService(pricing.ServiceParams{
		DB:       dbClient,
		Repo:     pricing.NewRepository(dbClient.DB()),
		Sellers:  sellersService,
		Products: productsService,
		Config:   cfg.Pricing,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing service", err)
		os.Exit(1)
	}

	lookback := cfg.Monitor.LookbackHours
	if *hours > 0 {
		lookback = *hours
	}
	thresholdPct := cfg.Monitor.ThresholdPercent
	if *threshold > 0 {
		thresholdPct = *threshold
	}

	job, err := cron.NewPriceMonitorJob(cron.PriceMonitorJobParams{
		Logger:        logg,
		Pricing:       pricingService,
		Admins:        usersService,
		Notifications: notificationsService,
		Lookback:      lookback,
		Threshold:     thresholdPct,
		DryRun:        *dryRun,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create monitor job", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":            cfg.App.Env,
		"lookback_hours": lookback,
		"threshold":      thresholdPct,
		"dry_run":        *dryRun,
	})
	logg.Info(ctx, "running price drop monitor")

	if err := job.Run(ctx); err != nil {
		logg.Error(ctx, "price drop monitor failed", err)
		os.Exit(1)
	}
}
