package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kaclira/kaclira-backend/internal/notifications"
	"github.com/kaclira/kaclira-backend/internal/pricing"
	"github.com/kaclira/kaclira-backend/pkg/db/models"
	"github.com/kaclira/kaclira-backend/pkg/enums"
	"github.com/kaclira/kaclira-backend/pkg/logger"
)

const (
	monitorLookbackHours = 1
	monitorThresholdPct  = 5.0
)

type dropLister interface {
	RecentDrops(ctx context.Context, since time.Time, limit int) ([]pricing.HistoryWithPrice, error)
}

type adminLister interface {
	ListAdmins(ctx context.Context) ([]models.User, error)
}

// PriceMonitorJobParams configures the price drop safety sweep.
type PriceMonitorJobParams struct {
	Logger        *logger.Logger
	Pricing       dropLister
	Admins        adminLister
	Notifications notifications.Service
	Lookback      int
	Threshold     float64
	DryRun        bool
}

// NewPriceMonitorJob re-derives the drop percentage for every recent
// price-lowering audit row and surfaces those over the threshold to
// administrators. It is a backstop for the transactional alert path.
func NewPriceMonitorJob(params PriceMonitorJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Pricing == nil {
		return nil, fmt.Errorf("pricing service required")
	}
	if params.Admins == nil {
		return nil, fmt.Errorf("admin lister required")
	}
	if params.Notifications == nil {
		return nil, fmt.Errorf("notification service required")
	}
	lookback := params.Lookback
	if lookback <= 0 {
		lookback = monitorLookbackHours
	}
	threshold := params.Threshold
	if threshold <= 0 {
		threshold = monitorThresholdPct
	}
	return &priceMonitorJob{
		logg:          params.Logger,
		pricing:       params.Pricing,
		admins:        params.Admins,
		notifications: params.Notifications,
		lookback:      lookback,
		threshold:     decimal.NewFromFloat(threshold),
		dryRun:        params.DryRun,
		now:           time.Now,
	}, nil
}

type priceMonitorJob struct {
	logg          *logger.Logger
	pricing       dropLister
	admins        adminLister
	notifications notifications.Service
	lookback      int
	threshold     decimal.Decimal
	dryRun        bool
	now           func() time.Time
}

func (j *priceMonitorJob) Name() string { return "price-monitor" }

func (j *priceMonitorJob) Run(ctx context.Context) error {
	since := j.now().UTC().Add(-time.Duration(j.lookback) * time.Hour)
	rows, err := j.pricing.RecentDrops(ctx, since, 0)
	if err != nil {
		return fmt.Errorf("price monitor: %w", err)
	}

	hits := 0
	for _, row := range rows {
		if row.OldPrice == nil {
			continue
		}
		drop := pricing.PercentDrop(*row.OldPrice, row.NewPrice)
		if drop.LessThan(j.threshold) {
			continue
		}
		hits++
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"product_id":   row.ProductID.String(),
			"seller_id":    row.SellerID.String(),
			"old_price":    row.OldPrice.String(),
			"new_price":    row.NewPrice.String(),
			"percent_drop": drop.String(),
			"dry_run":      j.dryRun,
		})
		j.logg.Info(logCtx, "significant price drop found")
		if j.dryRun {
			continue
		}
		if err := j.notifyAdmins(ctx, row, drop); err != nil {
			j.logg.Error(logCtx, "failed to surface drop to admins", err)
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"since":          since,
		"lookback_hours": j.lookback,
		"threshold":      j.threshold.String(),
		"rows_scanned":   len(rows),
		"hits":           hits,
		"dry_run":        j.dryRun,
	})
	j.logg.Info(logCtx, "price monitor sweep complete")
	return nil
}

func (j *priceMonitorJob) notifyAdmins(ctx context.Context, row pricing.HistoryWithPrice, drop decimal.Decimal) error {
	admins, err := j.admins.ListAdmins(ctx)
	if err != nil {
		return err
	}
	link := fmt.Sprintf("/products/%s", row.ProductID)
	message := fmt.Sprintf("Monitoring found a %s%% drop by seller %s (from %s to %s).",
		drop, row.SellerID, row.OldPrice.StringFixed(2), row.NewPrice.StringFixed(2))
	for _, admin := range admins {
		err := j.notifications.Create(ctx, notifications.CreateParams{
			UserID:  admin.ID,
			Type:    enums.NotificationTypeAdminPriceDrop,
			Title:   "Price drop flagged by monitoring",
			Message: message,
			Link:    &link,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
