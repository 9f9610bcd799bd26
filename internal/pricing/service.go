package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kaclira/kaclira-backend/pkg/config"
	"github.com/kaclira/kaclira-backend/pkg/db/models"
	"github.com/kaclira/kaclira-backend/pkg/enums"
	pkgerrors "github.com/kaclira/kaclira-backend/pkg/errors"
	"github.com/kaclira/kaclira-backend/pkg/logger"
	"github.com/kaclira/kaclira-backend/pkg/outbox"
	"github.com/kaclira/kaclira-backend/pkg/outbox/payloads"
)

const (
	maxStock         = 999999
	bulkProgressTTL  = time.Hour
	defaultChunkSize = 50
)

var maxPrice = decimal.RequireFromString("999999.99")

// TxRunner executes a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// PermissionGuard is the slice of the seller registry the ledger needs.
type PermissionGuard interface {
	EnsurePermission(ctx context.Context, sellerID uuid.UUID, permission enums.Permission) error
}

// CatalogReader is the slice of the product catalog the ledger needs.
type CatalogReader interface {
	EnsureListed(ctx context.Context, id uuid.UUID) error
	IsCreator(ctx context.Context, productID, sellerID uuid.UUID) (bool, error)
}

// Emitter queues domain events inside the business transaction.
type Emitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ProgressStore tracks bulk update progress for polling clients.
type ProgressStore interface {
	BulkProgressKey(sellerID, batchID string) string
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// CacheInvalidator drops cached read models after a ledger mutation.
type CacheInvalidator interface {
	InvalidateSeller(ctx context.Context, sellerID uuid.UUID)
}

// ServiceParams groups dependencies for the pricing ledger service.
type ServiceParams struct {
	DB       TxRunner
	Repo     Repository
	Sellers  PermissionGuard
	Products CatalogReader
	Emitter  Emitter
	Progress ProgressStore
	Cache    CacheInvalidator
	Config   config.PricingConfig
	Logger   *logger.Logger
}

// Service owns the pricing ledger: one row per (product, seller) pair and an
// append-only audit trail of every mutation.
type Service interface {
	SetPrice(ctx context.Context, sellerID, productID uuid.UUID, input SetPriceInput) (PriceDTO, error)
	BulkSetPrices(ctx context.Context, sellerID uuid.UUID, input BulkSetPricesInput) (BulkResult, error)
	GetHistory(ctx context.Context, sellerID, productID uuid.UUID, days int) ([]HistoryEntryDTO, error)
	GetSummary(ctx context.Context, productID uuid.UUID) (PriceSummaryDTO, error)
	LowestActivePrice(ctx context.Context, productID uuid.UUID) (*decimal.Decimal, error)
	IsInStock(ctx context.Context, productID uuid.UUID) (bool, error)
	PriceRange(ctx context.Context, productID uuid.UUID) (*decimal.Decimal, *decimal.Decimal, error)
	Deactivate(ctx context.Context, sellerID, productID uuid.UUID) error
	RecentDrops(ctx context.Context, since time.Time, limit int) ([]HistoryWithPrice, error)
	CountHistoryBefore(ctx context.Context, cutoff time.Time) (int64, error)
	PurgeHistoryBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
}

type service struct {
	db       TxRunner
	repo     Repository
	sellers  PermissionGuard
	products CatalogReader
	emitter  Emitter
	progress ProgressStore
	cache    CacheInvalidator
	cfg      config.PricingConfig
	logg     *logger.Logger
}

// NewService wires the pricing ledger dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "pricing repository required")
	}
	if params.Sellers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "seller service required")
	}
	if params.Products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "product service required")
	}
	return &service{
		db:       params.DB,
		repo:     params.Repo,
		sellers:  params.Sellers,
		products: params.Products,
		emitter:  params.Emitter,
		progress: params.Progress,
		cache:    params.Cache,
		cfg:      params.Config,
		logg:     params.Logger,
	}, nil
}

// SetPrice upserts the caller's listing for a product. The row is locked for
// the duration of the transaction so concurrent updates serialize, and every
// successful write lands in the audit trail within the same transaction,
// including writes that change nothing.
func (s *service) SetPrice(ctx context.Context, sellerID, productID uuid.UUID, input SetPriceInput) (PriceDTO, error) {
	if err := s.sellers.EnsurePermission(ctx, sellerID, enums.PermissionManagePrices); err != nil {
		return PriceDTO{}, err
	}
	price, changeType, err := s.applyPrice(ctx, sellerID, productID, input)
	if err != nil {
		return PriceDTO{}, err
	}
	s.invalidate(ctx, sellerID)
	if s.logg != nil && changeType != enums.PriceChangeNone {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"seller_id":   sellerID.String(),
			"product_id":  productID.String(),
			"change_type": changeType,
		})
		s.logg.Info(logCtx, "price updated")
	}
	return toPriceDTO(price), nil
}

// BulkSetPrices applies up to the configured maximum of ledger mutations.
// The size cap is enforced before any write. Entries are processed in chunks
// and each entry commits independently, so partial success is expected and
// reported per item.
func (s *service) BulkSetPrices(ctx context.Context, sellerID uuid.UUID, input BulkSetPricesInput) (BulkResult, error) {
	if err := s.sellers.EnsurePermission(ctx, sellerID, enums.PermissionManagePrices); err != nil {
		return BulkResult{}, err
	}
	total := len(input.Items)
	if total == 0 {
		return BulkResult{}, pkgerrors.New(pkgerrors.CodeValidation, "at least one item required")
	}
	maxItems := s.cfg.BulkMaxItems
	if maxItems <= 0 {
		maxItems = 100
	}
	if total > maxItems {
		return BulkResult{}, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("bulk update limited to %d items per request", maxItems))
	}

	batchID := input.BatchID
	if batchID == "" {
		batchID = uuid.NewString()
	}
	chunkSize := s.cfg.BulkChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	chunkDelay := time.Duration(s.cfg.BulkChunkDelayMS) * time.Millisecond

	result := BulkResult{Errors: []BulkItemError{}}
	for start := 0; start < total; start += chunkSize {
		if start > 0 && chunkDelay > 0 {
			select {
			case <-ctx.Done():
				return result, pkgerrors.Wrap(pkgerrors.CodeDependency, ctx.Err(), "bulk update interrupted")
			case <-time.After(chunkDelay):
			}
		}
		end := start + chunkSize
		if end > total {
			end = total
		}
		for i := start; i < end; i++ {
			item := input.Items[i]
			if err := s.applyBulkItem(ctx, sellerID, item); err != nil {
				result.ErrorCount++
				result.Errors = append(result.Errors, bulkError(i, item.ProductID, err))
				continue
			}
			result.SuccessCount++
		}
		s.recordProgress(ctx, sellerID, batchID, start+chunkSize, total)
	}

	s.invalidate(ctx, sellerID)
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"seller_id": sellerID.String(),
			"batch_id":  batchID,
			"succeeded": result.SuccessCount,
			"failed":    result.ErrorCount,
		})
		s.logg.Info(logCtx, "bulk price update finished")
	}
	return result, nil
}

// GetHistory returns the caller's audit trail for one listing, newest first.
func (s *service) GetHistory(ctx context.Context, sellerID, productID uuid.UUID, days int) ([]HistoryEntryDTO, error) {
	if days <= 0 {
		days = 30
	}
	if days > 365 {
		days = 365
	}
	price, err := s.repo.FindBySellerProduct(ctx, productID, sellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "no listing for this product")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	since := time.Now().AddDate(0, 0, -days)
	rows, err := s.repo.ListHistory(ctx, price.ID, since, 0)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list price history")
	}
	out := make([]HistoryEntryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toHistoryDTO(row))
	}
	return out, nil
}

// GetSummary aggregates a product's active listings for the public page.
func (s *service) GetSummary(ctx context.Context, productID uuid.UUID) (PriceSummaryDTO, error) {
	if err := s.products.EnsureListed(ctx, productID); err != nil {
		return PriceSummaryDTO{}, err
	}
	row, err := s.repo.Summary(ctx, productID)
	if err != nil {
		return PriceSummaryDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate prices")
	}
	summary := PriceSummaryDTO{
		ProductID:    productID,
		SellerCount:  row.SellerCount,
		InStockCount: row.InStockCount,
	}
	if row.LowestPrice.Valid {
		low := row.LowestPrice.Decimal
		summary.LowestPrice = &low
	}
	if row.HighestPrice.Valid {
		high := row.HighestPrice.Decimal
		summary.HighestPrice = &high
	}
	return summary, nil
}

// LowestActivePrice returns the cheapest active offer for the product, or
// nil when no seller currently lists it.
func (s *service) LowestActivePrice(ctx context.Context, productID uuid.UUID) (*decimal.Decimal, error) {
	summary, err := s.GetSummary(ctx, productID)
	if err != nil {
		return nil, err
	}
	return summary.LowestPrice, nil
}

// IsInStock reports whether any active listing for the product has stock.
func (s *service) IsInStock(ctx context.Context, productID uuid.UUID) (bool, error) {
	summary, err := s.GetSummary(ctx, productID)
	if err != nil {
		return false, err
	}
	return summary.InStockCount > 0, nil
}

// PriceRange returns the min and max active prices, both nil when the
// product has no active listings.
func (s *service) PriceRange(ctx context.Context, productID uuid.UUID) (*decimal.Decimal, *decimal.Decimal, error) {
	summary, err := s.GetSummary(ctx, productID)
	if err != nil {
		return nil, nil, err
	}
	return summary.LowestPrice, summary.HighestPrice, nil
}

// Deactivate hides the caller's listing without deleting the row, preserving
// the audit trail.
func (s *service) Deactivate(ctx context.Context, sellerID, productID uuid.UUID) error {
	if err := s.sellers.EnsurePermission(ctx, sellerID, enums.PermissionManagePrices); err != nil {
		return err
	}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		price, err := repo.FindForUpdate(tx, productID, sellerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "no listing for this product")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock listing")
		}
		if !price.IsActive {
			return nil
		}
		price.IsActive = false
		if err := repo.Update(tx, price); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate listing")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, sellerID)
	return nil
}

// RecentDrops lists price-lowering audit rows since the given time, used by
// the monitoring sweep.
func (s *service) RecentDrops(ctx context.Context, since time.Time, limit int) ([]HistoryWithPrice, error) {
	types := []enums.PriceChangeType{enums.PriceChangeDecrease, enums.PriceChangeBoth}
	rows, err := s.repo.RecentChanges(ctx, since, types, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list recent price drops")
	}
	return rows, nil
}

func (s *service) CountHistoryBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	count, err := s.repo.CountHistoryBefore(ctx, cutoff)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count old history rows")
	}
	return count, nil
}

// PurgeHistoryBefore deletes one batch of audit rows older than cutoff and
// reports how many went. Callers loop until zero.
func (s *service) PurgeHistoryBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	deleted, err := s.repo.DeleteHistoryBatch(ctx, cutoff, batchSize)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete old history rows")
	}
	return deleted, nil
}

// applyPrice runs the locked upsert and returns the resulting row and the
// classified change.
func (s *service) applyPrice(ctx context.Context, sellerID, productID uuid.UUID, input SetPriceInput) (models.ProductPrice, enums.PriceChangeType, error) {
	if err := validatePriceInput(input); err != nil {
		return models.ProductPrice{}, enums.PriceChangeNone, err
	}
	if err := s.products.EnsureListed(ctx, productID); err != nil {
		return models.ProductPrice{}, enums.PriceChangeNone, err
	}

	var (
		result     models.ProductPrice
		changeType enums.PriceChangeType
	)
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindForUpdate(tx, productID, sellerID)
		switch {
		case err == nil:
			oldPrice := existing.Price
			oldStock := existing.Stock
			changeType = ClassifyChange(&oldPrice, input.Price, &oldStock, input.Stock)
			existing.Price = input.Price
			if input.Stock != nil {
				existing.Stock = *input.Stock
			}
			existing.IsActive = input.IsActive == nil || *input.IsActive
			if err := repo.Update(tx, existing); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update listing")
			}
			if err := s.recordHistory(ctx, tx, repo, existing, &oldPrice, &oldStock, input.Stock, changeType); err != nil {
				return err
			}
			result = *existing
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			creator, err := s.products.IsCreator(ctx, productID, sellerID)
			if err != nil {
				return err
			}
			if !creator {
				return pkgerrors.New(pkgerrors.CodeForbidden, "seller has no listing for this product")
			}
			row := models.ProductPrice{
				ProductID: productID,
				SellerID:  sellerID,
				Price:     input.Price,
				IsActive:  input.IsActive == nil || *input.IsActive,
			}
			if input.Stock != nil {
				row.Stock = *input.Stock
			}
			if err := repo.Create(tx, &row); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create listing")
			}
			changeType = ClassifyChange(nil, input.Price, nil, input.Stock)
			if err := s.recordHistory(ctx, tx, repo, &row, nil, nil, input.Stock, changeType); err != nil {
				return err
			}
			result = row
			return nil
		default:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock listing")
		}
	})
	if err != nil {
		return models.ProductPrice{}, enums.PriceChangeNone, err
	}
	return result, changeType, nil
}

// recordHistory appends the audit row and queues a drop alert when the fall
// crosses the user threshold. Both ride the business transaction.
func (s *service) recordHistory(ctx context.Context, tx *gorm.DB, repo Repository, price *models.ProductPrice, oldPrice *decimal.Decimal, oldStock, newStock *int, changeType enums.PriceChangeType) error {
	row := models.PriceHistory{
		ProductPriceID: price.ID,
		OldPrice:       oldPrice,
		NewPrice:       price.Price,
		OldStock:       oldStock,
		NewStock:       newStock,
		ChangeType:     changeType,
	}
	if err := repo.InsertHistory(tx, &row); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append price history")
	}

	if s.emitter == nil || oldPrice == nil || !changeType.IsDecrease() {
		return nil
	}
	drop := PercentDrop(*oldPrice, price.Price)
	threshold := decimal.NewFromFloat(s.cfg.UserAlertPercent)
	if threshold.IsPositive() && drop.LessThan(threshold) {
		return nil
	}
	event := outbox.DomainEvent{
		EventType:     enums.EventPriceDropped,
		AggregateType: enums.AggregateProductPrice,
		AggregateID:   price.ID,
		Data: payloads.PriceDropEvent{
			ProductID:   price.ProductID,
			SellerID:    price.SellerID,
			OldPrice:    *oldPrice,
			NewPrice:    price.Price,
			PercentDrop: drop,
			OccurredAt:  time.Now(),
		},
		Version: 1,
	}
	if err := s.emitter.EmitIfNotExists(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue price drop event")
	}
	return nil
}

func (s *service) applyBulkItem(ctx context.Context, sellerID uuid.UUID, item BulkItem) error {
	productID, err := uuid.Parse(item.ProductID)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id must be a valid uuid")
	}
	_, _, err = s.applyPrice(ctx, sellerID, productID, SetPriceInput{Price: item.Price, Stock: item.Stock})
	return err
}

func (s *service) recordProgress(ctx context.Context, sellerID uuid.UUID, batchID string, processed, total int) {
	if s.progress == nil {
		return
	}
	if processed > total {
		processed = total
	}
	key := s.progress.BulkProgressKey(sellerID.String(), batchID)
	value := fmt.Sprintf("%d/%d", processed, total)
	if err := s.progress.Set(ctx, key, value, bulkProgressTTL); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "failed to record bulk progress: "+err.Error())
	}
}

func (s *service) invalidate(ctx context.Context, sellerID uuid.UUID) {
	if s.cache == nil {
		return
	}
	s.cache.InvalidateSeller(ctx, sellerID)
}

func validatePriceInput(input SetPriceInput) error {
	if !input.Price.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be greater than zero")
	}
	if input.Price.GreaterThan(maxPrice) {
		return pkgerrors.New(pkgerrors.CodeValidation, "price exceeds the maximum of 999999.99")
	}
	if input.Stock != nil && (*input.Stock < 0 || *input.Stock > maxStock) {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock must be between 0 and 999999")
	}
	return nil
}

func bulkError(index int, productID string, err error) BulkItemError {
	item := BulkItemError{Index: index, ProductID: productID}
	if typed := pkgerrors.As(err); typed != nil {
		item.Code = string(typed.Code())
		item.Message = typed.Message()
		return item
	}
	item.Code = string(pkgerrors.CodeInternal)
	item.Message = err.Error()
	return item
}
