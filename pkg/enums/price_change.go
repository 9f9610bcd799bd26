package enums

import "fmt"

// PriceChangeType maps to the price_change_type enum in Postgres.
type PriceChangeType string

const (
	PriceChangeIncrease    PriceChangeType = "price_increase"
	PriceChangeDecrease    PriceChangeType = "price_decrease"
	PriceChangeStockChange PriceChangeType = "stock_change"
	PriceChangeBoth        PriceChangeType = "both"
	PriceChangeNone        PriceChangeType = "no_change"
)

var validPriceChangeTypes = []PriceChangeType{
	PriceChangeIncrease,
	PriceChangeDecrease,
	PriceChangeStockChange,
	PriceChangeBoth,
	PriceChangeNone,
}

// String implements fmt.Stringer.
func (p PriceChangeType) String() string {
	return string(p)
}

// IsValid reports whether the value matches the canonical enum.
func (p PriceChangeType) IsValid() bool {
	for _, candidate := range validPriceChangeTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsDecrease reports whether the change can carry a price-drop alert.
func (p PriceChangeType) IsDecrease() bool {
	return p == PriceChangeDecrease || p == PriceChangeBoth
}

// ParsePriceChangeType converts raw input into a PriceChangeType.
func ParsePriceChangeType(value string) (PriceChangeType, error) {
	for _, candidate := range validPriceChangeTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid price change type %q", value)
}
