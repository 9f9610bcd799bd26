package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductPrice is the pricing ledger entry: exactly one row per
// (product, seller) pair. Sellers leaving a product keep the row with
// IsActive false instead of deleting it.
type ProductPrice struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index:product_prices_product_idx;uniqueIndex:product_prices_product_seller_key"`
	SellerID  uuid.UUID       `gorm:"column:seller_id;type:uuid;not null;index:product_prices_seller_idx;uniqueIndex:product_prices_product_seller_key"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	Stock     int             `gorm:"column:stock;not null;default:0"`
	IsActive  bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
