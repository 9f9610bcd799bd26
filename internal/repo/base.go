// Package repo holds the shared persistence plumbing that the per-domain
// repositories embed.
package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base carries the GORM handle every domain repository embeds.
type Base struct {
	db *gorm.DB
}

// NewBase wraps the given GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the connection scoped to ctx so cancellation and deadlines
// propagate into queries. A nil ctx yields the raw handle.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}
