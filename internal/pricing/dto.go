package pricing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kaclira/kaclira-backend/pkg/db/models"
	"github.com/kaclira/kaclira-backend/pkg/enums"
)

// SetPriceInput carries a single ledger mutation. Stock and IsActive are
// optional: a nil Stock leaves the stored quantity untouched, and a nil
// IsActive reactivates the listing (writing a price implies a live offer).
type SetPriceInput struct {
	Price    decimal.Decimal `json:"price" validate:"required"`
	Stock    *int            `json:"stock" validate:"omitempty,gte=0"`
	IsActive *bool           `json:"isActive"`
}

// PriceDTO is the API shape of a ledger entry.
type PriceDTO struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"productId"`
	SellerID  uuid.UUID       `json:"sellerId"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	IsActive  bool            `json:"isActive"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// BulkItem is one entry of a bulk price update.
type BulkItem struct {
	ProductID string          `json:"productId" validate:"required,uuid4"`
	Price     decimal.Decimal `json:"price" validate:"required"`
	Stock     *int            `json:"stock" validate:"omitempty,gte=0"`
}

// BulkSetPricesInput carries a bulk price update request.
type BulkSetPricesInput struct {
	BatchID string     `json:"batchId"`
	Items   []BulkItem `json:"items" validate:"required,min=1"`
}

// BulkItemError reports a single failed entry of a bulk update.
type BulkItemError struct {
	Index     int    `json:"index"`
	ProductID string `json:"productId"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// BulkResult summarizes a bulk update run. Successful entries are committed
// even when other entries fail.
type BulkResult struct {
	SuccessCount int             `json:"successCount"`
	ErrorCount   int             `json:"errorCount"`
	Errors       []BulkItemError `json:"errors"`
}

// HistoryEntryDTO is one audit row of a listing.
type HistoryEntryDTO struct {
	ID         uuid.UUID             `json:"id"`
	OldPrice   *decimal.Decimal      `json:"oldPrice,omitempty"`
	NewPrice   decimal.Decimal       `json:"newPrice"`
	OldStock   *int                  `json:"oldStock,omitempty"`
	NewStock   *int                  `json:"newStock,omitempty"`
	ChangeType enums.PriceChangeType `json:"changeType"`
	CreatedAt  time.Time             `json:"createdAt"`
}

// PriceSummaryDTO is the public aggregate shoppers see on a product page.
type PriceSummaryDTO struct {
	ProductID    uuid.UUID        `json:"productId"`
	SellerCount  int64            `json:"sellerCount"`
	InStockCount int64            `json:"inStockCount"`
	LowestPrice  *decimal.Decimal `json:"lowestPrice,omitempty"`
	HighestPrice *decimal.Decimal `json:"highestPrice,omitempty"`
}

func toPriceDTO(price models.ProductPrice) PriceDTO {
	return PriceDTO{
		ID:        price.ID,
		ProductID: price.ProductID,
		SellerID:  price.SellerID,
		Price:     price.Price,
		Stock:     price.Stock,
		IsActive:  price.IsActive,
		UpdatedAt: price.UpdatedAt,
	}
}

func toHistoryDTO(row models.PriceHistory) HistoryEntryDTO {
	return HistoryEntryDTO{
		ID:         row.ID,
		OldPrice:   row.OldPrice,
		NewPrice:   row.NewPrice,
		OldStock:   row.OldStock,
		NewStock:   row.NewStock,
		ChangeType: row.ChangeType,
		CreatedAt:  row.CreatedAt,
	}
}
