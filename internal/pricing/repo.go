package pricing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kaclira/kaclira-backend/pkg/db/models"
	"github.com/kaclira/kaclira-backend/pkg/enums"
)

// Repository exposes persistence helpers for the pricing ledger and its
// audit trail.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindBySellerProduct(ctx context.Context, productID, sellerID uuid.UUID) (*models.ProductPrice, error)
	FindForUpdate(tx *gorm.DB, productID, sellerID uuid.UUID) (*models.ProductPrice, error)
	Create(tx *gorm.DB, price *models.ProductPrice) error
	Update(tx *gorm.DB, price *models.ProductPrice) error
	InsertHistory(tx *gorm.DB, row *models.PriceHistory) error
	ListHistory(ctx context.Context, productPriceID uuid.UUID, since time.Time, limit int) ([]models.PriceHistory, error)
	Summary(ctx context.Context, productID uuid.UUID) (*SummaryRow, error)
	ListSellerPrices(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.ProductPrice, error)
	RecentChanges(ctx context.Context, since time.Time, types []enums.PriceChangeType, limit int) ([]HistoryWithPrice, error)
	DeleteHistoryBatch(ctx context.Context, cutoff time.Time, limit int) (int64, error)
	CountHistoryBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a pricing repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

// SummaryRow is the public aggregate over a product's active listings.
type SummaryRow struct {
	SellerCount  int64
	InStockCount int64
	LowestPrice  decimal.NullDecimal
	HighestPrice decimal.NullDecimal
}

// HistoryWithPrice joins an audit row to its ledger entry so sweeps can
// attribute the change to a product and seller.
type HistoryWithPrice struct {
	models.PriceHistory
	ProductID uuid.UUID `gorm:"column:product_id"`
	SellerID  uuid.UUID `gorm:"column:seller_id"`
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) FindBySellerProduct(ctx context.Context, productID, sellerID uuid.UUID) (*models.ProductPrice, error) {
	var price models.ProductPrice
	err := r.db.WithContext(ctx).
		First(&price, "product_id = ? AND seller_id = ?", productID, sellerID).Error
	if err != nil {
		return nil, err
	}
	return &price, nil
}

// FindForUpdate locks the ledger row for the duration of the transaction so
// concurrent writers serialize instead of clobbering each other.
func (r *repositoryImpl) FindForUpdate(tx *gorm.DB, productID, sellerID uuid.UUID) (*models.ProductPrice, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	var price models.ProductPrice
	err := tx.
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		First(&price, "product_id = ? AND seller_id = ?", productID, sellerID).Error
	if err != nil {
		return nil, err
	}
	return &price, nil
}

func (r *repositoryImpl) Create(tx *gorm.DB, price *models.ProductPrice) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	if price.ID == uuid.Nil {
		price.ID = uuid.New()
	}
	// GORM drops zero-value fields that carry a column default, which would
	// turn an is_active=false insert into an active row. Write every field.
	return tx.Select("*").Create(price).Error
}

func (r *repositoryImpl) Update(tx *gorm.DB, price *models.ProductPrice) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	return tx.Model(&models.ProductPrice{}).
		Where("id = ?", price.ID).
		Updates(map[string]any{
			"price":     price.Price,
			"stock":     price.Stock,
			"is_active": price.IsActive,
		}).Error
}

func (r *repositoryImpl) InsertHistory(tx *gorm.DB, row *models.PriceHistory) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	return tx.Create(row).Error
}

func (r *repositoryImpl) ListHistory(ctx context.Context, productPriceID uuid.UUID, since time.Time, limit int) ([]models.PriceHistory, error) {
	if limit <= 0 {
		limit = 500
	}
	var rows []models.PriceHistory
	err := r.db.WithContext(ctx).
		Where("product_price_id = ? AND created_at >= ?", productPriceID, since).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) Summary(ctx context.Context, productID uuid.UUID) (*SummaryRow, error) {
	var row SummaryRow
	err := r.db.WithContext(ctx).
		Model(&models.ProductPrice{}).
		Select(
			"COUNT(*) AS seller_count, "+
				"COUNT(*) FILTER (WHERE stock > 0) AS in_stock_count, "+
				"MIN(price) AS lowest_price, "+
				"MAX(price) AS highest_price",
		).
		Where("product_id = ? AND is_active", productID).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repositoryImpl) ListSellerPrices(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.ProductPrice, error) {
	if limit <= 0 {
		limit = 1000
	}
	var rows []models.ProductPrice
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("updated_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) RecentChanges(ctx context.Context, since time.Time, types []enums.PriceChangeType, limit int) ([]HistoryWithPrice, error) {
	if limit <= 0 {
		limit = 1000
	}
	var rows []HistoryWithPrice
	err := r.db.WithContext(ctx).
		Model(&models.PriceHistory{}).
		Select("price_history.*, product_prices.product_id, product_prices.seller_id").
		Joins("JOIN product_prices ON product_prices.id = price_history.product_price_id").
		Where("price_history.created_at >= ?", since).
		Where("price_history.change_type IN ?", types).
		Order("price_history.created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// DeleteHistoryBatch removes at most limit audit rows older than cutoff.
// Postgres cannot LIMIT a DELETE directly, so the ids are selected first.
func (r *repositoryImpl) DeleteHistoryBatch(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	if limit <= 0 {
		limit = 1000
	}
	result := r.db.WithContext(ctx).Exec(
		`DELETE FROM price_history
		 WHERE id IN (
		   SELECT id FROM price_history
		   WHERE created_at < ?
		   ORDER BY created_at ASC
		   LIMIT ?
		 )`,
		cutoff, limit,
	)
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) CountHistoryBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PriceHistory{}).
		Where("created_at < ?", cutoff).
		Count(&count).Error
	return count, err
}
