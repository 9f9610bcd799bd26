package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/kaclira/kaclira-backend/pkg/enums"
)

// Seller represents the canonical tenant model. A seller without a parent is
// a root seller; a seller with ParentSellerID set is a sub-seller whose
// rights come from its granted permission set.
type Seller struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CompanyName      string                 `gorm:"column:company_name;not null"`
	ContactEmail     string                 `gorm:"column:contact_email;not null"`
	ContactPhone     *string                `gorm:"column:contact_phone"`
	Status           enums.SellerStatus     `gorm:"column:status;type:seller_status;not null;default:'pending'"`
	ParentSellerID   *uuid.UUID             `gorm:"column:parent_seller_id;type:uuid;index:sellers_parent_idx"`
	CommissionRate   decimal.Decimal        `gorm:"column:commission_rate;type:numeric(5,2);not null;default:0"`
	SubscriptionTier enums.SubscriptionTier `gorm:"column:subscription_tier;type:subscription_tier"`
	SubscriptionEnds *time.Time             `gorm:"column:subscription_ends_at"`
	Permissions      pq.StringArray         `gorm:"column:permissions;type:text[];not null;default:ARRAY[]::text[]"`
	OwnerUserID      uuid.UUID              `gorm:"column:owner_user_id;type:uuid;not null"`
	Version          int                    `gorm:"column:version;not null;default:0"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// IsRoot reports whether the seller sits at the top of its hierarchy.
func (s Seller) IsRoot() bool {
	return s.ParentSellerID == nil
}

// PermissionSet converts the persisted permission strings into the typed set.
// Unknown values are skipped; they cannot grant anything.
func (s Seller) PermissionSet() enums.PermissionSet {
	set := make(enums.PermissionSet, 0, len(s.Permissions))
	for _, raw := range s.Permissions {
		p := enums.Permission(raw)
		if p.IsValid() && !set.Contains(p) {
			set = append(set, p)
		}
	}
	return set
}
