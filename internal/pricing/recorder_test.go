package pricing

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/kaclira/kaclira-backend/pkg/enums"
)

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func TestClassifyChange(t *testing.T) {
	oldPrice := dec("100.00")
	oldStock := 10

	sameStock := 10
	lowStock := 3

	cases := []struct {
		name     string
		oldPrice *decimal.Decimal
		newPrice decimal.Decimal
		oldStock *int
		newStock *int
		want     enums.PriceChangeType
	}{
		{"first listing", nil, dec("100.00"), nil, &sameStock, enums.PriceChangeNone},
		{"price up", &oldPrice, dec("120.00"), &oldStock, &sameStock, enums.PriceChangeIncrease},
		{"price down", &oldPrice, dec("80.00"), &oldStock, &sameStock, enums.PriceChangeDecrease},
		{"price down stock omitted", &oldPrice, dec("80.00"), &oldStock, nil, enums.PriceChangeDecrease},
		{"stock only", &oldPrice, dec("100.00"), &oldStock, &lowStock, enums.PriceChangeStockChange},
		{"stock omitted", &oldPrice, dec("100.00"), &oldStock, nil, enums.PriceChangeNone},
		{"price and stock", &oldPrice, dec("90.00"), &oldStock, &lowStock, enums.PriceChangeBoth},
		{"no change", &oldPrice, dec("100.00"), &oldStock, &sameStock, enums.PriceChangeNone},
		{"equal value different scale", &oldPrice, dec("100"), &oldStock, &sameStock, enums.PriceChangeNone},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ClassifyChange(tc.oldPrice, tc.newPrice, tc.oldStock, tc.newStock)
			if got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestPercentDrop(t *testing.T) {
	cases := []struct {
		name     string
		oldPrice decimal.Decimal
		newPrice decimal.Decimal
		want     string
	}{
		{"twenty percent", dec("100.00"), dec("80.00"), "20"},
		{"five percent", dec("100.00"), dec("95.00"), "5"},
		{"rounded", dec("29.99"), dec("27.50"), "8.3"},
		{"increase yields zero", dec("80.00"), dec("100.00"), "0"},
		{"same price yields zero", dec("50.00"), dec("50.00"), "0"},
		{"zero old price yields zero", dec("0"), dec("10.00"), "0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := PercentDrop(tc.oldPrice, tc.newPrice)
			if !got.Equal(dec(tc.want)) {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}
