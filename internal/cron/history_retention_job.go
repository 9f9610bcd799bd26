package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/kaclira/kaclira-backend/pkg/logger"
)

const (
	historyRetentionDays  = 365
	historyRetentionBatch = 1000
)

type historyPurger interface {
	CountHistoryBefore(ctx context.Context, cutoff time.Time) (int64, error)
	PurgeHistoryBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
}

// HistoryRetentionJobParams configures the audit-trail retention sweep.
type HistoryRetentionJobParams struct {
	Logger     *logger.Logger
	Pricing    historyPurger
	Retention  int
	BatchSize  int
	BatchDelay time.Duration
	DryRun     bool
}

// NewHistoryRetentionJob deletes price history older than the retention
// window in bounded batches. The sweep is idempotent: rerunning after a
// partial failure simply resumes where the previous run stopped.
func NewHistoryRetentionJob(params HistoryRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Pricing == nil {
		return nil, fmt.Errorf("pricing service required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = historyRetentionDays
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = historyRetentionBatch
	}
	return &historyRetentionJob{
		logg:       params.Logger,
		pricing:    params.Pricing,
		retention:  retention,
		batchSize:  batchSize,
		batchDelay: params.BatchDelay,
		dryRun:     params.DryRun,
		now:        time.Now,
	}, nil
}

type historyRetentionJob struct {
	logg       *logger.Logger
	pricing    historyPurger
	retention  int
	batchSize  int
	batchDelay time.Duration
	dryRun     bool
	now        func() time.Time
}

func (j *historyRetentionJob) Name() string { return "price-history-retention" }

func (j *historyRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)

	if j.dryRun {
		count, err := j.pricing.CountHistoryBefore(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("history retention dry run: %w", err)
		}
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"cutoff":         cutoff,
			"retention_days": j.retention,
			"rows_matched":   count,
			"dry_run":        true,
		})
		j.logg.Info(logCtx, "price history retention dry run complete")
		return nil
	}

	var total int64
	for {
		deleted, err := j.pricing.PurgeHistoryBefore(ctx, cutoff, j.batchSize)
		if err != nil {
			return fmt.Errorf("history retention: %w", err)
		}
		total += deleted
		if deleted < int64(j.batchSize) {
			break
		}
		if j.batchDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(j.batchDelay):
			}
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"batch_size":     j.batchSize,
		"rows_deleted":   total,
	})
	j.logg.Info(logCtx, "price history retention complete")
	return nil
}
