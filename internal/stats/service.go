package stats

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kaclira/kaclira-backend/pkg/config"
	pkgerrors "github.com/kaclira/kaclira-backend/pkg/errors"
	"github.com/kaclira/kaclira-backend/pkg/logger"
)

const cacheScope = "seller_stats"

// Cache is the slice of the redis client the stats service needs.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CacheKey(parts ...string) string
}

// ServiceParams groups dependencies for the seller stats service.
type ServiceParams struct {
	Repo   Repository
	Cache  Cache
	Config config.StatsConfig
	Logger *logger.Logger
}

// Service serves cached seller dashboards. Reads go through redis with a
// short TTL; ledger mutations invalidate explicitly.
type Service interface {
	SellerStats(ctx context.Context, sellerID uuid.UUID) (SellerStatsDTO, error)
	InvalidateSeller(ctx context.Context, sellerID uuid.UUID)
}

// SellerStatsDTO is the dashboard aggregate for one seller.
type SellerStatsDTO struct {
	SellerID       uuid.UUID        `json:"sellerId"`
	TotalListings  int64            `json:"totalListings"`
	ActiveListings int64            `json:"activeListings"`
	InStockCount   int64            `json:"inStockCount"`
	TotalStock     int64            `json:"totalStock"`
	AveragePrice   *decimal.Decimal `json:"averagePrice,omitempty"`
	LowestPrice    *decimal.Decimal `json:"lowestPrice,omitempty"`
	HighestPrice   *decimal.Decimal `json:"highestPrice,omitempty"`
	ComputedAt     time.Time        `json:"computedAt"`
}

type service struct {
	repo  Repository
	cache Cache
	ttl   time.Duration
	logg  *logger.Logger
}

// NewService wires the stats dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "stats repository required")
	}
	ttl := params.Config.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &service{
		repo:  params.Repo,
		cache: params.Cache,
		ttl:   ttl,
		logg:  params.Logger,
	}, nil
}

func (s *service) SellerStats(ctx context.Context, sellerID uuid.UUID) (SellerStatsDTO, error) {
	if sellerID == uuid.Nil {
		return SellerStatsDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}

	if cached, ok := s.fromCache(ctx, sellerID); ok {
		return cached, nil
	}

	row, err := s.repo.SellerAggregate(ctx, sellerID)
	if err != nil {
		return SellerStatsDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate seller stats")
	}

	dto := SellerStatsDTO{
		SellerID:       sellerID,
		TotalListings:  row.TotalListings,
		ActiveListings: row.ActiveListings,
		InStockCount:   row.InStockCount,
		TotalStock:     row.TotalStock,
		ComputedAt:     time.Now().UTC(),
	}
	if row.AveragePrice.Valid {
		avg := row.AveragePrice.Decimal.Round(2)
		dto.AveragePrice = &avg
	}
	if row.LowestPrice.Valid {
		low := row.LowestPrice.Decimal
		dto.LowestPrice = &low
	}
	if row.HighestPrice.Valid {
		high := row.HighestPrice.Decimal
		dto.HighestPrice = &high
	}

	s.toCache(ctx, sellerID, dto)
	return dto, nil
}

// InvalidateSeller drops the cached dashboard after a ledger mutation.
// Failures are logged, not returned; a stale entry ages out via TTL.
func (s *service) InvalidateSeller(ctx context.Context, sellerID uuid.UUID) {
	if s.cache == nil || sellerID == uuid.Nil {
		return
	}
	key := s.cache.CacheKey(cacheScope, sellerID.String())
	if err := s.cache.Del(ctx, key); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "failed to invalidate stats cache: "+err.Error())
	}
}

func (s *service) fromCache(ctx context.Context, sellerID uuid.UUID) (SellerStatsDTO, bool) {
	if s.cache == nil {
		return SellerStatsDTO{}, false
	}
	key := s.cache.CacheKey(cacheScope, sellerID.String())
	raw, err := s.cache.Get(ctx, key)
	if err != nil || raw == "" {
		return SellerStatsDTO{}, false
	}
	var dto SellerStatsDTO
	if err := json.Unmarshal([]byte(raw), &dto); err != nil {
		return SellerStatsDTO{}, false
	}
	return dto, true
}

func (s *service) toCache(ctx context.Context, sellerID uuid.UUID, dto SellerStatsDTO) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(dto)
	if err != nil {
		return
	}
	key := s.cache.CacheKey(cacheScope, sellerID.String())
	if err := s.cache.Set(ctx, key, string(payload), s.ttl); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "failed to cache seller stats: "+err.Error())
	}
}
