package models

import (
	"time"

	"github.com/google/uuid"
)

// Product mirrors the external catalog's listing. The pricing core only
// reads it for existence and ownership; the catalog service owns the rest.
type Product struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title     string     `gorm:"column:title;not null"`
	Brand     *string    `gorm:"column:brand"`
	CreatedBy *uuid.UUID `gorm:"column:created_by;type:uuid"`
	IsActive  bool       `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
