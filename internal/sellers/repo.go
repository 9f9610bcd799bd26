package sellers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kaclira/kaclira-backend/pkg/db/models"
	"github.com/kaclira/kaclira-backend/pkg/enums"
	"github.com/kaclira/kaclira-backend/pkg/pagination"
)

// Repository exposes persistence helpers for the seller registry.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Seller, error)
	FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*models.Seller, error)
	Create(ctx context.Context, seller *models.Seller) error
	CountChildren(ctx context.Context, parentID uuid.UUID) (int64, error)
	ListChildren(ctx context.Context, params ListChildrenParams) ([]models.Seller, *pagination.Cursor, error)
	ReplacePermissions(ctx context.Context, sellerID uuid.UUID, permissions []string, expectedVersion int) (bool, error)
	UpdateStatus(ctx context.Context, sellerID uuid.UUID, status enums.SellerStatus) (int64, error)
	ListExpiringSubscriptions(ctx context.Context, before time.Time, limit int) ([]models.Seller, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a seller repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

// ListChildrenParams configures the sub-seller listing query.
type ListChildrenParams struct {
	ParentID uuid.UUID
	Limit    int
	Cursor   *pagination.Cursor
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Seller, error) {
	var seller models.Seller
	if err := r.db.WithContext(ctx).First(&seller, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &seller, nil
}

// FindByIDForUpdate locks the seller row for the duration of the transaction.
func (r *repositoryImpl) FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*models.Seller, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	var seller models.Seller
	err := tx.
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		First(&seller, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &seller, nil
}

func (r *repositoryImpl) Create(ctx context.Context, seller *models.Seller) error {
	return r.db.WithContext(ctx).Create(seller).Error
}

func (r *repositoryImpl) CountChildren(ctx context.Context, parentID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Seller{}).
		Where("parent_seller_id = ?", parentID).
		Count(&count).Error
	return count, err
}

func (r *repositoryImpl) ListChildren(ctx context.Context, params ListChildrenParams) ([]models.Seller, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Model(&models.Seller{}).
		Where("parent_seller_id = ?", params.ParentID)
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.Seller
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	if len(rows) > normalized {
		next := rows[normalized]
		rows = rows[:normalized]
		return rows, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return rows, nil, nil
}

// ReplacePermissions swaps the permission set using an optimistic version
// check. Returns false when another writer won the race.
func (r *repositoryImpl) ReplacePermissions(ctx context.Context, sellerID uuid.UUID, permissions []string, expectedVersion int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Seller{}).
		Where("id = ? AND version = ?", sellerID, expectedVersion).
		Updates(map[string]any{
			"permissions": pq.StringArray(permissions),
			"version":     gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) UpdateStatus(ctx context.Context, sellerID uuid.UUID, status enums.SellerStatus) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Seller{}).
		Where("id = ?", sellerID).
		Updates(map[string]any{
			"status":  status,
			"version": gorm.Expr("version + 1"),
		})
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) ListExpiringSubscriptions(ctx context.Context, before time.Time, limit int) ([]models.Seller, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.Seller
	err := r.db.WithContext(ctx).
		Where("subscription_ends_at IS NOT NULL AND subscription_ends_at > now() AND subscription_ends_at <= ?", before).
		Where("status = ?", enums.SellerStatusActive).
		Order("subscription_ends_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
