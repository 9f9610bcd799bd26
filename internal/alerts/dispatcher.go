package alerts

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kaclira/kaclira-backend/internal/notifications"
	"github.com/kaclira/kaclira-backend/internal/sellers"
	"github.com/kaclira/kaclira-backend/pkg/config"
	"github.com/kaclira/kaclira-backend/pkg/db/models"
	"github.com/kaclira/kaclira-backend/pkg/enums"
	pkgerrors "github.com/kaclira/kaclira-backend/pkg/errors"
	"github.com/kaclira/kaclira-backend/pkg/logger"
	"github.com/kaclira/kaclira-backend/pkg/outbox/payloads"
)

// WatcherLister resolves which users follow a product.
type WatcherLister interface {
	WatcherIDs(ctx context.Context, productID uuid.UUID) ([]uuid.UUID, error)
}

// AdminLister resolves the platform administrators.
type AdminLister interface {
	ListAdmins(ctx context.Context) ([]models.User, error)
}

// SellerReader resolves the seller a subscription alert belongs to.
type SellerReader interface {
	GetSeller(ctx context.Context, id uuid.UUID) (sellers.SellerDTO, error)
}

// DispatcherParams groups dependencies for the alert dispatcher.
type DispatcherParams struct {
	Notifications notifications.Service
	Watchers      WatcherLister
	Admins        AdminLister
	Sellers       SellerReader
	Config        config.PricingConfig
	Logger        *logger.Logger
}

// Dispatcher turns domain events into in-app notifications. Price drops of
// at least the user threshold notify every watcher; drops of at least the
// admin threshold additionally notify administrators.
type Dispatcher struct {
	notifications notifications.Service
	watchers      WatcherLister
	admins        AdminLister
	sellers       SellerReader
	userPct       decimal.Decimal
	adminPct      decimal.Decimal
	logg          *logger.Logger
}

// NewDispatcher wires the alert dispatcher dependencies.
func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Notifications == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notification service required")
	}
	if params.Watchers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "watcher lister required")
	}
	if params.Admins == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "admin lister required")
	}
	userPct := params.Config.UserAlertPercent
	if userPct <= 0 {
		userPct = 5.0
	}
	adminPct := params.Config.AdminAlertPercent
	if adminPct <= 0 {
		adminPct = 20.0
	}
	return &Dispatcher{
		notifications: params.Notifications,
		watchers:      params.Watchers,
		admins:        params.Admins,
		sellers:       params.Sellers,
		userPct:       decimal.NewFromFloat(userPct),
		adminPct:      decimal.NewFromFloat(adminPct),
		logg:          params.Logger,
	}, nil
}

// DispatchPriceDrop fans a drop event out to watchers and, for large drops,
// administrators. Delivery is best effort per recipient: one failed insert
// does not block the rest.
func (d *Dispatcher) DispatchPriceDrop(ctx context.Context, event payloads.PriceDropEvent) error {
	if event.PercentDrop.LessThan(d.userPct) {
		return nil
	}

	watcherIDs, err := d.watchers.WatcherIDs(ctx, event.ProductID)
	if err != nil {
		return err
	}

	link := fmt.Sprintf("/products/%s", event.ProductID)
	message := fmt.Sprintf("Price fell from %s to %s (%s%% drop).",
		event.OldPrice.StringFixed(2), event.NewPrice.StringFixed(2), event.PercentDrop)

	failed := 0
	for _, userID := range watcherIDs {
		err := d.notifications.Create(ctx, notifications.CreateParams{
			UserID:  userID,
			Type:    enums.NotificationTypePriceDrop,
			Title:   "Price drop on a product you follow",
			Message: message,
			Link:    &link,
			Data:    event,
		})
		if err != nil {
			failed++
			if d.logg != nil {
				d.logg.Error(ctx, "failed to notify watcher", err)
			}
		}
	}

	if event.PercentDrop.GreaterThanOrEqual(d.adminPct) {
		if err := d.notifyAdmins(ctx, event, link); err != nil {
			return err
		}
	}

	if d.logg != nil {
		logCtx := d.logg.WithFields(ctx, map[string]any{
			"product_id":   event.ProductID.String(),
			"seller_id":    event.SellerID.String(),
			"percent_drop": event.PercentDrop.String(),
			"watchers":     len(watcherIDs),
			"failed":       failed,
		})
		d.logg.Info(logCtx, "price drop dispatched")
	}
	return nil
}

func (d *Dispatcher) notifyAdmins(ctx context.Context, event payloads.PriceDropEvent, link string) error {
	admins, err := d.admins.ListAdmins(ctx)
	if err != nil {
		return err
	}
	message := fmt.Sprintf("Seller %s lowered a price by %s%%, review for pricing abuse.",
		event.SellerID, event.PercentDrop)
	for _, admin := range admins {
		err := d.notifications.Create(ctx, notifications.CreateParams{
			UserID:  admin.ID,
			Type:    enums.NotificationTypeAdminPriceDrop,
			Title:   "Large price drop detected",
			Message: message,
			Link:    &link,
			Data:    event,
		})
		if err != nil && d.logg != nil {
			d.logg.Error(ctx, "failed to notify admin", err)
		}
	}
	return nil
}

// DispatchSubscriptionExpiry warns the seller's owner that the subscription
// window is closing.
func (d *Dispatcher) DispatchSubscriptionExpiry(ctx context.Context, event payloads.SubscriptionExpiringSoonEvent) error {
	if d.sellers == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "seller reader required")
	}
	seller, err := d.sellers.GetSeller(ctx, event.SellerID)
	if err != nil {
		return err
	}
	message := fmt.Sprintf("Your %s subscription ends on %s (%d days left). Renew to keep your listings active.",
		event.SubscriptionTier, event.ExpiresAt.Format("2006-01-02"), event.DaysUntilExpiration)
	link := "/seller/subscription"
	return d.notifications.Create(ctx, notifications.CreateParams{
		UserID:  seller.OwnerUserID,
		Type:    enums.NotificationTypeSubscriptionExpiry,
		Title:   "Subscription expiring soon",
		Message: message,
		Link:    &link,
		Data:    event,
	})
}
