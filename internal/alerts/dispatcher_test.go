package alerts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kaclira/kaclira-backend/internal/notifications"
	"github.com/kaclira/kaclira-backend/internal/sellers"
	"github.com/kaclira/kaclira-backend/pkg/config"
	"github.com/kaclira/kaclira-backend/pkg/db/models"
	"github.com/kaclira/kaclira-backend/pkg/enums"
	"github.com/kaclira/kaclira-backend/pkg/outbox/payloads"
	"github.com/shopspring/decimal"
)

type fakeNotifier struct {
	created []notifications.CreateParams
}

func (f *fakeNotifier) Create(ctx context.Context, input notifications.CreateParams) error {
	f.created = append(f.created, input)
	return nil
}

func (f *fakeNotifier) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	return &notifications.ListResult{}, nil
}

func (f *fakeNotifier) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return nil
}

func (f *fakeNotifier) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

type fakeWatchers struct {
	ids []uuid.UUID
}

func (f fakeWatchers) WatcherIDs(ctx context.Context, productID uuid.UUID) ([]uuid.UUID, error) {
	return f.ids, nil
}

type fakeAdmins struct {
	admins []models.User
}

func (f fakeAdmins) ListAdmins(ctx context.Context) ([]models.User, error) {
	return f.admins, nil
}

type fakeSellerReader struct {
	ownerID uuid.UUID
}

func (f fakeSellerReader) GetSeller(ctx context.Context, id uuid.UUID) (sellers.SellerDTO, error) {
	return sellers.SellerDTO{ID: id, OwnerUserID: f.ownerID}, nil
}

func newDispatcher(t *testing.T, notifier *fakeNotifier, watchers fakeWatchers, admins fakeAdmins) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(DispatcherParams{
		Notifications: notifier,
		Watchers:      watchers,
		Admins:        admins,
		Sellers:       fakeSellerReader{ownerID: uuid.New()},
		Config:        config.PricingConfig{UserAlertPercent: 5.0, AdminAlertPercent: 20.0},
	})
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	return d
}

func dropEvent(percent string) payloads.PriceDropEvent {
	return payloads.PriceDropEvent{
		ProductID:   uuid.New(),
		SellerID:    uuid.New(),
		OldPrice:    decimal.RequireFromString("100.00"),
		NewPrice:    decimal.RequireFromString("90.00"),
		PercentDrop: decimal.RequireFromString(percent),
		OccurredAt:  time.Now(),
	}
}

func countByType(created []notifications.CreateParams, wanted enums.NotificationType) int {
	count := 0
	for _, params := range created {
		if params.Type == wanted {
			count++
		}
	}
	return count
}

func TestDispatchPriceDrop_BelowUserThreshold(t *testing.T) {
	notifier := &fakeNotifier{}
	d := newDispatcher(t, notifier, fakeWatchers{ids: []uuid.UUID{uuid.New()}}, fakeAdmins{})

	if err := d.DispatchPriceDrop(context.Background(), dropEvent("4")); err != nil {
		t.Fatalf("DispatchPriceDrop: %v", err)
	}
	if len(notifier.created) != 0 {
		t.Fatalf("4%% drop must stay quiet, created %d", len(notifier.created))
	}
}

func TestDispatchPriceDrop_UserThresholdOnly(t *testing.T) {
	notifier := &fakeNotifier{}
	watchers := fakeWatchers{ids: []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}}
	admins := fakeAdmins{admins: []models.User{{ID: uuid.New(), Role: enums.UserRoleAdmin}}}
	d := newDispatcher(t, notifier, watchers, admins)

	if err := d.DispatchPriceDrop(context.Background(), dropEvent("6")); err != nil {
		t.Fatalf("DispatchPriceDrop: %v", err)
	}
	if got := countByType(notifier.created, enums.NotificationTypePriceDrop); got != 3 {
		t.Fatalf("expected 3 watcher notifications, got %d", got)
	}
	if got := countByType(notifier.created, enums.NotificationTypeAdminPriceDrop); got != 0 {
		t.Fatalf("6%% drop must not notify admins, got %d", got)
	}
}

func TestDispatchPriceDrop_AdminThreshold(t *testing.T) {
	notifier := &fakeNotifier{}
	watchers := fakeWatchers{ids: []uuid.UUID{uuid.New()}}
	admins := fakeAdmins{admins: []models.User{
		{ID: uuid.New(), Role: enums.UserRoleAdmin},
		{ID: uuid.New(), Role: enums.UserRoleAdmin},
	}}
	d := newDispatcher(t, notifier, watchers, admins)

	if err := d.DispatchPriceDrop(context.Background(), dropEvent("25")); err != nil {
		t.Fatalf("DispatchPriceDrop: %v", err)
	}
	if got := countByType(notifier.created, enums.NotificationTypePriceDrop); got != 1 {
		t.Fatalf("expected 1 watcher notification, got %d", got)
	}
	if got := countByType(notifier.created, enums.NotificationTypeAdminPriceDrop); got != 2 {
		t.Fatalf("expected 2 admin notifications, got %d", got)
	}
}

func TestDispatchPriceDrop_ExactBoundaries(t *testing.T) {
	notifier := &fakeNotifier{}
	watchers := fakeWatchers{ids: []uuid.UUID{uuid.New()}}
	admins := fakeAdmins{admins: []models.User{{ID: uuid.New(), Role: enums.UserRoleAdmin}}}
	d := newDispatcher(t, notifier, watchers, admins)

	if err := d.DispatchPriceDrop(context.Background(), dropEvent("5")); err != nil {
		t.Fatalf("DispatchPriceDrop: %v", err)
	}
	if got := countByType(notifier.created, enums.NotificationTypePriceDrop); got != 1 {
		t.Fatalf("5%% drop is inclusive for users, got %d", got)
	}

	notifier.created = nil
	if err := d.DispatchPriceDrop(context.Background(), dropEvent("20")); err != nil {
		t.Fatalf("DispatchPriceDrop: %v", err)
	}
	if got := countByType(notifier.created, enums.NotificationTypeAdminPriceDrop); got != 1 {
		t.Fatalf("20%% drop is inclusive for admins, got %d", got)
	}
}

func TestDispatchSubscriptionExpiry_NotifiesOwner(t *testing.T) {
	notifier := &fakeNotifier{}
	ownerID := uuid.New()
	d, err := NewDispatcher(DispatcherParams{
		Notifications: notifier,
		Watchers:      fakeWatchers{},
		Admins:        fakeAdmins{},
		Sellers:       fakeSellerReader{ownerID: ownerID},
		Config:        config.PricingConfig{UserAlertPercent: 5.0, AdminAlertPercent: 20.0},
	})
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}

	event := payloads.SubscriptionExpiringSoonEvent{
		SellerID:            uuid.New(),
		SubscriptionTier:    "premium",
		ExpiresAt:           time.Now().AddDate(0, 0, 7),
		DaysUntilExpiration: 7,
	}
	if err := d.DispatchSubscriptionExpiry(context.Background(), event); err != nil {
		t.Fatalf("DispatchSubscriptionExpiry: %v", err)
	}
	if len(notifier.created) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.created))
	}
	if notifier.created[0].UserID != ownerID {
		t.Fatal("expected the seller owner to be notified")
	}
	if notifier.created[0].Type != enums.NotificationTypeSubscriptionExpiry {
		t.Fatalf("unexpected type %s", notifier.created[0].Type)
	}
}
