package stats

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kaclira/kaclira-backend/pkg/db/models"
)

// Repository aggregates ledger rows into seller statistics.
type Repository interface {
	SellerAggregate(ctx context.Context, sellerID uuid.UUID) (*AggregateRow, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a stats repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

// AggregateRow is the raw aggregate over a seller's listings.
type AggregateRow struct {
	TotalListings  int64
	ActiveListings int64
	InStockCount   int64
	TotalStock     int64
	AveragePrice   decimal.NullDecimal
	LowestPrice    decimal.NullDecimal
	HighestPrice   decimal.NullDecimal
}

func (r *repositoryImpl) SellerAggregate(ctx context.Context, sellerID uuid.UUID) (*AggregateRow, error) {
	var row AggregateRow
	err := r.db.WithContext(ctx).
		Model(&models.ProductPrice{}).
		Select(
			"COUNT(*) AS total_listings, "+
				"COUNT(*) FILTER (WHERE is_active) AS active_listings, "+
				"COUNT(*) FILTER (WHERE is_active AND stock > 0) AS in_stock_count, "+
				"COALESCE(SUM(stock) FILTER (WHERE is_active), 0) AS total_stock, "+
				"AVG(price) FILTER (WHERE is_active) AS average_price, "+
				"MIN(price) FILTER (WHERE is_active) AS lowest_price, "+
				"MAX(price) FILTER (WHERE is_active) AS highest_price",
		).
		Where("seller_id = ?", sellerID).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}
