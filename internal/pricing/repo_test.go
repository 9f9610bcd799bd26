package pricing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kaclira/kaclira-backend/pkg/db/models"
	"github.com/kaclira/kaclira-backend/pkg/enums"
)

func setupPricingTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:pricing_repo_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	productPrices := `
CREATE TABLE IF NOT EXISTS product_prices (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  price NUMERIC NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (product_id, seller_id)
);`
	priceHistory := `
CREATE TABLE IF NOT EXISTS price_history (
  id TEXT PRIMARY KEY,
  product_price_id TEXT NOT NULL,
  old_price NUMERIC,
  new_price NUMERIC NOT NULL,
  old_stock INTEGER,
  new_stock INTEGER,
  change_type TEXT NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, conn.Exec(productPrices).Error)
	require.NoError(t, conn.Exec(priceHistory).Error)
	return conn
}

func insertListing(t *testing.T, conn *gorm.DB, productID, sellerID uuid.UUID, price string, stock int, active bool) models.ProductPrice {
	t.Helper()
	row := models.ProductPrice{
		ID:        uuid.New(),
		ProductID: productID,
		SellerID:  sellerID,
		Price:     decimal.RequireFromString(price),
		Stock:     stock,
		IsActive:  active,
	}
	// Explicit column map so an inactive fixture is not silently flipped to
	// the column default by the model's zero-value handling.
	require.NoError(t, conn.Model(&models.ProductPrice{}).Create(map[string]any{
		"id":         row.ID,
		"product_id": row.ProductID,
		"seller_id":  row.SellerID,
		"price":      row.Price,
		"stock":      row.Stock,
		"is_active":  row.IsActive,
		"created_at": time.Now().UTC(),
		"updated_at": time.Now().UTC(),
	}).Error)
	return row
}

func insertHistoryRow(t *testing.T, conn *gorm.DB, priceID uuid.UUID, newPrice string, changeType enums.PriceChangeType, createdAt time.Time) models.PriceHistory {
	t.Helper()
	row := models.PriceHistory{
		ID:             uuid.New(),
		ProductPriceID: priceID,
		NewPrice:       decimal.RequireFromString(newPrice),
		ChangeType:     changeType,
		CreatedAt:      createdAt,
	}
	require.NoError(t, conn.Create(&row).Error)
	return row
}

func TestRepositoryFindBySellerProduct(t *testing.T) {
	conn := setupPricingTestDB(t)
	repo := NewRepository(conn)

	productID := uuid.New()
	sellerID := uuid.New()
	seeded := insertListing(t, conn, productID, sellerID, "19.90", 5, true)

	found, err := repo.FindBySellerProduct(context.Background(), productID, sellerID)
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, found.ID)
	assert.True(t, found.Price.Equal(decimal.RequireFromString("19.90")))

	_, err = repo.FindBySellerProduct(context.Background(), uuid.New(), sellerID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryCreatePersistsInactive(t *testing.T) {
	conn := setupPricingTestDB(t)
	repo := NewRepository(conn)

	row := models.ProductPrice{
		ProductID: uuid.New(),
		SellerID:  uuid.New(),
		Price:     decimal.RequireFromString("7.00"),
		IsActive:  false,
	}
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		return repo.Create(tx, &row)
	}))
	require.NotEqual(t, uuid.Nil, row.ID)

	stored, err := repo.FindBySellerProduct(context.Background(), row.ProductID, row.SellerID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
}

func TestRepositorySummaryIgnoresInactiveListings(t *testing.T) {
	conn := setupPricingTestDB(t)
	repo := NewRepository(conn)

	productID := uuid.New()
	insertListing(t, conn, productID, uuid.New(), "10.00", 3, true)
	insertListing(t, conn, productID, uuid.New(), "12.50", 0, true)
	insertListing(t, conn, productID, uuid.New(), "5.00", 9, false)

	summary, err := repo.Summary(context.Background(), productID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.SellerCount)
	assert.Equal(t, int64(1), summary.InStockCount)
	require.True(t, summary.LowestPrice.Valid)
	assert.True(t, summary.LowestPrice.Decimal.Equal(decimal.RequireFromString("10.00")))
	require.True(t, summary.HighestPrice.Valid)
	assert.True(t, summary.HighestPrice.Decimal.Equal(decimal.RequireFromString("12.50")))
}

func TestRepositoryRecentChangesJoinsLedger(t *testing.T) {
	conn := setupPricingTestDB(t)
	repo := NewRepository(conn)

	productID := uuid.New()
	sellerID := uuid.New()
	listing := insertListing(t, conn, productID, sellerID, "30.00", 1, true)

	now := time.Now().UTC()
	insertHistoryRow(t, conn, listing.ID, "25.00", enums.PriceChangeDecrease, now.Add(-10*time.Minute))
	insertHistoryRow(t, conn, listing.ID, "28.00", enums.PriceChangeIncrease, now.Add(-5*time.Minute))
	insertHistoryRow(t, conn, listing.ID, "20.00", enums.PriceChangeDecrease, now.Add(-48*time.Hour))

	rows, err := repo.RecentChanges(
		context.Background(),
		now.Add(-time.Hour),
		[]enums.PriceChangeType{enums.PriceChangeDecrease},
		0,
	)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, productID, rows[0].ProductID)
	assert.Equal(t, sellerID, rows[0].SellerID)
	assert.True(t, rows[0].NewPrice.Equal(decimal.RequireFromString("25.00")))
}

func TestRepositoryDeleteHistoryBatchRespectsLimit(t *testing.T) {
	conn := setupPricingTestDB(t)
	repo := NewRepository(conn)

	listing := insertListing(t, conn, uuid.New(), uuid.New(), "9.99", 1, true)
	old := time.Now().UTC().Add(-400 * 24 * time.Hour)
	for i := 0; i < 5; i++ {
		insertHistoryRow(t, conn, listing.ID, "9.99", enums.PriceChangeIncrease, old.Add(time.Duration(i)*time.Minute))
	}
	insertHistoryRow(t, conn, listing.ID, "8.00", enums.PriceChangeDecrease, time.Now().UTC())

	cutoff := time.Now().UTC().Add(-365 * 24 * time.Hour)

	count, err := repo.CountHistoryBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)

	deleted, err := repo.DeleteHistoryBatch(context.Background(), cutoff, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	deleted, err = repo.DeleteHistoryBatch(context.Background(), cutoff, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	remaining, err := repo.CountHistoryBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Zero(t, remaining)

	fresh, err := repo.ListHistory(context.Background(), listing.ID, time.Time{}, 0)
	require.NoError(t, err)
	assert.Len(t, fresh, 1)
}
