package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/kaclira/kaclira-backend/pkg/enums"
)

// ClassifyChange decides the audit row type for a ledger mutation. A nil
// side of either comparison counts as unchanged, so a first-time listing
// (no old values) and an omitted stock both classify without it.
func ClassifyChange(oldPrice *decimal.Decimal, newPrice decimal.Decimal, oldStock, newStock *int) enums.PriceChangeType {
	priceChanged := oldPrice != nil && !oldPrice.Equal(newPrice)
	stockChanged := oldStock != nil && newStock != nil && *oldStock != *newStock

	switch {
	case priceChanged && stockChanged:
		return enums.PriceChangeBoth
	case priceChanged && newPrice.GreaterThan(*oldPrice):
		return enums.PriceChangeIncrease
	case priceChanged:
		return enums.PriceChangeDecrease
	case stockChanged:
		return enums.PriceChangeStockChange
	default:
		return enums.PriceChangeNone
	}
}

// PercentDrop returns how far the price fell, as a percentage of the old
// price. Zero when the price did not fall or the old price is not positive.
func PercentDrop(oldPrice, newPrice decimal.Decimal) decimal.Decimal {
	if !oldPrice.IsPositive() || newPrice.GreaterThanOrEqual(oldPrice) {
		return decimal.Zero
	}
	return oldPrice.Sub(newPrice).
		Div(oldPrice).
		Mul(decimal.NewFromInt(100)).
		Round(2)
}
