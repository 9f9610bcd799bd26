package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kaclira/kaclira-backend/internal/favorites"
	"github.com/kaclira/kaclira-backend/internal/notifications"
	"github.com/kaclira/kaclira-backend/internal/pricing"
	"github.com/kaclira/kaclira-backend/internal/sellers"
	"github.com/kaclira/kaclira-backend/internal/stats"
	pkgauth "github.com/kaclira/kaclira-backend/pkg/auth"
	"github.com/kaclira/kaclira-backend/pkg/config"
	"github.com/kaclira/kaclira-backend/pkg/db/models"
	"github.com/kaclira/kaclira-backend/pkg/enums"
	"github.com/kaclira/kaclira-backend/pkg/logger"
)

type stubSellersService struct{}

func (stubSellersService) GetSeller(ctx context.Context, id uuid.UUID) (sellers.SellerDTO, error) {
	return sellers.SellerDTO{ID: id}, nil
}

func (stubSellersService) HasPermission(ctx context.Context, sellerID uuid.UUID, permission enums.Permission) (bool, error) {
	return true, nil
}

func (stubSellersService) EnsurePermission(ctx context.Context, sellerID uuid.UUID, permission enums.Permission) error {
	return nil
}

func (stubSellersService) GrantPermissions(ctx context.Context, parentID, subSellerID uuid.UUID, input sellers.GrantPermissionsInput) (sellers.SellerDTO, error) {
	return sellers.SellerDTO{}, nil
}

func (stubSellersService) CanCreateSubSeller(ctx context.Context, sellerID uuid.UUID) (bool, error) {
	return true, nil
}

func (stubSellersService) CreateSubSeller(ctx context.Context, parentID uuid.UUID, input sellers.CreateSubSellerInput) (sellers.SellerDTO, error) {
	return sellers.SellerDTO{}, nil
}

func (stubSellersService) ListSubSellers(ctx context.Context, parentID uuid.UUID, cursor string, limit int) (sellers.SubSellerPage, error) {
	return sellers.SubSellerPage{Items: []sellers.SellerDTO{}}, nil
}

func (stubSellersService) UpdateStatus(ctx context.Context, sellerID uuid.UUID, status enums.SellerStatus) error {
	return nil
}

func (stubSellersService) ExpiringSubscriptions(ctx context.Context, now time.Time, limit int) ([]models.Seller, error) {
	return nil, nil
}

type stubPricingService struct{}

func (stubPricingService) SetPrice(ctx context.Context, sellerID, productID uuid.UUID, input pricing.SetPriceInput) (pricing.PriceDTO, error) {
	return pricing.PriceDTO{}, nil
}

func (stubPricingService) BulkSetPrices(ctx context.Context, sellerID uuid.UUID, input pricing.BulkSetPricesInput) (pricing.BulkResult, error) {
	return pricing.BulkResult{}, nil
}

func (stubPricingService) GetHistory(ctx context.Context, sellerID, productID uuid.UUID, days int) ([]pricing.HistoryEntryDTO, error) {
	return nil, nil
}

func (stubPricingService) GetSummary(ctx context.Context, productID uuid.UUID) (pricing.PriceSummaryDTO, error) {
	return pricing.PriceSummaryDTO{ProductID: productID}, nil
}

func (stubPricingService) LowestActivePrice(ctx context.Context, productID uuid.UUID) (*decimal.Decimal, error) {
	return nil, nil
}

func (stubPricingService) IsInStock(ctx context.Context, productID uuid.UUID) (bool, error) {
	return false, nil
}

func (stubPricingService) PriceRange(ctx context.Context, productID uuid.UUID) (*decimal.Decimal, *decimal.Decimal, error) {
	return nil, nil, nil
}

func (stubPricingService) Deactivate(ctx context.Context, sellerID, productID uuid.UUID) error {
	return nil
}

func (stubPricingService) RecentDrops(ctx context.Context, since time.Time, limit int) ([]pricing.HistoryWithPrice, error) {
	return nil, nil
}

func (stubPricingService) CountHistoryBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (stubPricingService) PurgeHistoryBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	return 0, nil
}

type stubFavoritesService struct{}

func (stubFavoritesService) Add(ctx context.Context, userID, productID uuid.UUID) error {
	return nil
}

func (stubFavoritesService) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	return nil
}

func (stubFavoritesService) List(ctx context.Context, params favorites.ListParams) (*favorites.ListResult, error) {
	return &favorites.ListResult{Items: []favorites.FavoriteDTO{}}, nil
}

func (stubFavoritesService) WatcherIDs(ctx context.Context, productID uuid.UUID) ([]uuid.UUID, error) {
	return nil, nil
}

type stubNotificationsService struct{}

func (stubNotificationsService) Create(ctx context.Context, input notifications.CreateParams) error {
	return nil
}

func (stubNotificationsService) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	return &notifications.ListResult{}, nil
}

func (stubNotificationsService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return nil
}

func (stubNotificationsService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

type stubStatsService struct{}

func (stubStatsService) SellerStats(ctx context.Context, sellerID uuid.UUID) (stats.SellerStatsDTO, error) {
	return stats.SellerStatsDTO{SellerID: sellerID}, nil
}

func (stubStatsService) InvalidateSeller(ctx context.Context, sellerID uuid.UUID) {}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Output: io.Discard})
	return NewRouter(RouterParams{
		Config:        cfg,
		Logger:        logg,
		Sellers:       stubSellersService{},
		Pricing:       stubPricingService{},
		Favorites:     stubFavoritesService{},
		Notifications: stubNotificationsService{},
		Stats:         stubStatsService{},
	})
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole, sellerID *uuid.UUID) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID:   uuid.New(),
		SellerID: sellerID,
		Role:     role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestPublicSummaryNeedsNoToken(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/"+uuid.NewString()+"/price-summary", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for public summary got %d", resp.Code)
	}
}

func TestSellerGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/seller/me", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestSellerGroupRejectsBuyerToken(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/seller/me", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleBuyer, nil))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without seller binding got %d", resp.Code)
	}
}

func TestSellerGroupAcceptsSellerToken(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	sellerID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/seller/me", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleSeller, &sellerID))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for seller profile got %d", resp.Code)
	}
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	target := "/api/admin/v1/sellers/" + uuid.NewString() + "/"

	nonAdmin := httptest.NewRequest(http.MethodGet, target, nil)
	sellerID := uuid.New()
	nonAdmin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleSeller, &sellerID))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, nonAdmin)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodGet, target, nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleAdmin, nil))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
}

func TestFavoritesRequireAuth(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/favorites/", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}

	authed := httptest.NewRequest(http.MethodGet, "/api/v1/favorites/", nil)
	authed.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleBuyer, nil))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, authed)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for authed favorites got %d", resp.Code)
	}
}
