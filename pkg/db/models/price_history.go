package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kaclira/kaclira-backend/pkg/enums"
)

// PriceHistory is the append-only audit trail of ledger mutations. Rows are
// never updated; the retention sweep is the only deleter.
type PriceHistory struct {
	ID             uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductPriceID uuid.UUID             `gorm:"column:product_price_id;type:uuid;not null;index:price_history_price_idx"`
	OldPrice       *decimal.Decimal      `gorm:"column:old_price;type:numeric(10,2)"`
	NewPrice       decimal.Decimal       `gorm:"column:new_price;type:numeric(10,2);not null"`
	OldStock       *int                  `gorm:"column:old_stock"`
	NewStock       *int                  `gorm:"column:new_stock"`
	ChangeType     enums.PriceChangeType `gorm:"column:change_type;type:price_change_type;not null"`
	CreatedAt      time.Time             `gorm:"column:created_at;autoCreateTime;index:price_history_created_idx"`
}

// TableName keeps gorm from pluralizing to price_histories.
func (PriceHistory) TableName() string {
	return "price_history"
}
