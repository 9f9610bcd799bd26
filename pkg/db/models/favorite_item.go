package models

import (
	"time"

	"github.com/google/uuid"
)

// FavoriteItem links a user to a product they watch for price drops.
type FavoriteItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index:favorite_items_user_idx;uniqueIndex:favorite_items_user_product_key"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;index:favorite_items_product_idx;uniqueIndex:favorite_items_user_product_key"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
