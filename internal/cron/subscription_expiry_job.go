package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/kaclira/kaclira-backend/pkg/db/models"
	"github.com/kaclira/kaclira-backend/pkg/enums"
	"github.com/kaclira/kaclira-backend/pkg/logger"
	"github.com/kaclira/kaclira-backend/pkg/outbox"
	"github.com/kaclira/kaclira-backend/pkg/outbox/payloads"
)

const subscriptionExpiryPageSize = 200

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type expiringLister interface {
	ExpiringSubscriptions(ctx context.Context, now time.Time, limit int) ([]models.Seller, error)
}

type eventEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// SubscriptionExpiryJobParams configures the subscription warning sweep.
type SubscriptionExpiryJobParams struct {
	Logger  *logger.Logger
	DB      txRunner
	Sellers expiringLister
	Emitter eventEmitter
}

// NewSubscriptionExpiryJob queues a warning event for every seller whose
// subscription ends inside the warning window. The outbox dedupe keeps daily
// reruns from spamming the same seller.
func NewSubscriptionExpiryJob(params SubscriptionExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Sellers == nil {
		return nil, fmt.Errorf("seller service required")
	}
	if params.Emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &subscriptionExpiryJob{
		logg:    params.Logger,
		db:      params.DB,
		sellers: params.Sellers,
		emitter: params.Emitter,
		now:     time.Now,
	}, nil
}

type subscriptionExpiryJob struct {
	logg    *logger.Logger
	db      txRunner
	sellers expiringLister
	emitter eventEmitter
	now     func() time.Time
}

func (j *subscriptionExpiryJob) Name() string { return "subscription-expiry" }

func (j *subscriptionExpiryJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	rows, err := j.sellers.ExpiringSubscriptions(ctx, now, subscriptionExpiryPageSize)
	if err != nil {
		return fmt.Errorf("subscription expiry: %w", err)
	}

	queued := 0
	for _, seller := range rows {
		if seller.SubscriptionEnds == nil {
			continue
		}
		daysLeft := int(time.Until(*seller.SubscriptionEnds).Hours() / 24)
		event := outbox.DomainEvent{
			EventType:     enums.EventSubscriptionExpiringSoon,
			AggregateType: enums.AggregateSeller,
			AggregateID:   seller.ID,
			Data: payloads.SubscriptionExpiringSoonEvent{
				SellerID:            seller.ID,
				SubscriptionTier:    seller.SubscriptionTier.String(),
				ExpiresAt:           *seller.SubscriptionEnds,
				DaysUntilExpiration: daysLeft,
			},
			Version: 1,
		}
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			return j.emitter.EmitIfNotExists(ctx, tx, event)
		})
		if err != nil {
			return fmt.Errorf("queue expiry warning for seller %s: %w", seller.ID, err)
		}
		queued++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"sellers_found": len(rows),
		"events_queued": queued,
	})
	j.logg.Info(logCtx, "subscription expiry sweep complete")
	return nil
}
