// One-shot runner for the price history retention sweep. Useful for
// backfills and for verifying a retention change with --dry-run before
// the cron worker picks it up.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/kaclira/kaclira-backend/internal/cron"
	"github.com/kaclira/kaclira-backend/internal/pricing"
	"github.com/kaclira/kaclira-backend/internal/products"
	"github.com/kaclira/kaclira-backend/internal/sellers"
	"github.com/kaclira/kaclira-backend/pkg/config"
	"github.com/kaclira/kaclira-backend/pkg/db"
	"github.com/kaclira/kaclira-backend/pkg/logger"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "history-retention"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	days := flag.Int("days", 0, "retention window in days (0 uses configured default)")
	batch := flag.Int("batch", 0, "delete batch size (0 uses configured default)")
	dryRun := flag.Bool("dry-run", false, "count matching rows without deleting")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "history-retention",
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

	retentionDays := cfg.Retention.HistoryDays
	if *days > 0 {
		retentionDays = *days
	}
	batchSize := cfg.Retention.BatchSize
	if *batch > 0 {
		batchSize = *batch
	}

	job, err := cron.NewHistoryRetentionJob(cron.HistoryRetentionJobParams{
		Logger:     logg,
		Pricing:    pricingService,
		Retention:  retentionDays,
		BatchSize:  batchSize,
		BatchDelay: time.Duration(cfg.Retention.BatchDelayMS) * time.Millisecond,
		DryRun:     *dryRun,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create retention job", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":            cfg.App.Env,
		"retention_days": retentionDays,
		"dry_run":        *dryRun,
	})
	logg.Info(ctx, "running price history retention")

	if err := job.Run(ctx); err != nil {
		logg.Error(ctx, "price history retention failed", err)
		os.Exit(1)
	}
}
