package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceDropEvent is emitted when a price update lowers an existing price.
// PercentDrop is the drop relative to the old price, rounded to two decimals.
type PriceDropEvent struct {
	ProductID   uuid.UUID       `json:"productId"`
	SellerID    uuid.UUID       `json:"sellerId"`
	OldPrice    decimal.Decimal `json:"oldPrice"`
	NewPrice    decimal.Decimal `json:"newPrice"`
	PercentDrop decimal.Decimal `json:"percentDrop"`
	OccurredAt  time.Time       `json:"occurredAt"`
}

// SubscriptionExpiringSoonEvent warns that a seller subscription is near its end.
type SubscriptionExpiringSoonEvent struct {
	SellerID            uuid.UUID `json:"sellerId"`
	SubscriptionTier    string    `json:"subscriptionTier"`
	ExpiresAt           time.Time `json:"expiresAt"`
	DaysUntilExpiration int       `json:"daysUntilExpiration"`
}
