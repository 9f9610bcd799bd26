package stats

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kaclira/kaclira-backend/pkg/config"
)

type fakeRepository struct {
	calls int
	row   AggregateRow
}

func (f *fakeRepository) SellerAggregate(ctx context.Context, sellerID uuid.UUID) (*AggregateRow, error) {
	f.calls++
	row := f.row
	return &row, nil
}

type fakeCache struct {
	values map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: map[string]string{}}
}

func (f *fakeCache) Get(ctx context.Context, key string) (string, error) {
	return f.values[key], nil
}

func (f *fakeCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	f.values[key] = value.(string)
	return nil
}

func (f *fakeCache) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func (f *fakeCache) CacheKey(parts ...string) string {
	key := "kac:cache"
	for _, part := range parts {
		key += ":" + part
	}
	return key
}

func newStatsService(t *testing.T, repo Repository, cache Cache) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:   repo,
		Cache:  cache,
		Config: config.StatsConfig{CacheTTL: time.Minute},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestSellerStats_CachesSecondRead(t *testing.T) {
	repo := &fakeRepository{row: AggregateRow{
		TotalListings:  5,
		ActiveListings: 4,
		InStockCount:   3,
		TotalStock:     120,
		AveragePrice:   decimal.NewNullDecimal(decimal.RequireFromString("49.90")),
	}}
	cache := newFakeCache()
	svc := newStatsService(t, repo, cache)
	sellerID := uuid.New()

	first, err := svc.SellerStats(context.Background(), sellerID)
	if err != nil {
		t.Fatalf("SellerStats: %v", err)
	}
	if first.ActiveListings != 4 || first.TotalStock != 120 {
		t.Fatalf("unexpected aggregate %+v", first)
	}
	if first.AveragePrice == nil || !first.AveragePrice.Equal(decimal.RequireFromString("49.90")) {
		t.Fatalf("unexpected average %v", first.AveragePrice)
	}

	second, err := svc.SellerStats(context.Background(), sellerID)
	if err != nil {
		t.Fatalf("SellerStats: %v", err)
	}
	if repo.calls != 1 {
		t.Fatalf("second read must hit the cache, repo called %d times", repo.calls)
	}
	if second.ActiveListings != first.ActiveListings {
		t.Fatal("cached read must match the original aggregate")
	}
}

func TestInvalidateSeller_ForcesRecompute(t *testing.T) {
	repo := &fakeRepository{row: AggregateRow{TotalListings: 2}}
	cache := newFakeCache()
	svc := newStatsService(t, repo, cache)
	sellerID := uuid.New()

	if _, err := svc.SellerStats(context.Background(), sellerID); err != nil {
		t.Fatalf("SellerStats: %v", err)
	}
	svc.InvalidateSeller(context.Background(), sellerID)
	if _, err := svc.SellerStats(context.Background(), sellerID); err != nil {
		t.Fatalf("SellerStats: %v", err)
	}
	if repo.calls != 2 {
		t.Fatalf("invalidation must force a recompute, repo called %d times", repo.calls)
	}
}
