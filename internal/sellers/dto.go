package sellers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kaclira/kaclira-backend/pkg/db/models"
	"github.com/kaclira/kaclira-backend/pkg/enums"
)

// SellerDTO is the API shape of a seller record.
type SellerDTO struct {
	ID               uuid.UUID               `json:"id"`
	CompanyName      string                  `json:"companyName"`
	ContactEmail     string                  `json:"contactEmail"`
	ContactPhone     *string                 `json:"contactPhone,omitempty"`
	Status           enums.SellerStatus      `json:"status"`
	ParentSellerID   *uuid.UUID              `json:"parentSellerId,omitempty"`
	CommissionRate   decimal.Decimal         `json:"commissionRate"`
	SubscriptionTier *enums.SubscriptionTier `json:"subscriptionTier,omitempty"`
	SubscriptionEnds *time.Time              `json:"subscriptionEndsAt,omitempty"`
	Permissions      []string                `json:"permissions"`
	OwnerUserID      uuid.UUID               `json:"ownerUserId"`
	Version          int                     `json:"version"`
	CreatedAt        time.Time               `json:"createdAt"`
	UpdatedAt        time.Time               `json:"updatedAt"`
}

// CreateSubSellerInput carries the delegated-creation request.
type CreateSubSellerInput struct {
	CompanyName  string   `json:"companyName" validate:"required,min=2,max=200"`
	ContactEmail string   `json:"contactEmail" validate:"required,email"`
	ContactPhone *string  `json:"contactPhone,omitempty" validate:"omitempty,max=32"`
	OwnerUserID  string   `json:"ownerUserId" validate:"required,uuid4"`
	Permissions  []string `json:"permissions" validate:"max=16"`
}

// GrantPermissionsInput is the full-replace permission grant request.
type GrantPermissionsInput struct {
	Permissions []string `json:"permissions" validate:"required,max=16"`
}

// SubSellerPage wraps a cursor page of sub-sellers.
type SubSellerPage struct {
	Items  []SellerDTO `json:"items"`
	Cursor string      `json:"cursor"`
}

func toDTO(seller models.Seller) SellerDTO {
	dto := SellerDTO{
		ID:               seller.ID,
		CompanyName:      seller.CompanyName,
		ContactEmail:     seller.ContactEmail,
		ContactPhone:     seller.ContactPhone,
		Status:           seller.Status,
		ParentSellerID:   seller.ParentSellerID,
		CommissionRate:   seller.CommissionRate,
		SubscriptionEnds: seller.SubscriptionEnds,
		Permissions:      []string(seller.Permissions),
		OwnerUserID:      seller.OwnerUserID,
		Version:          seller.Version,
		CreatedAt:        seller.CreatedAt,
		UpdatedAt:        seller.UpdatedAt,
	}
	if seller.SubscriptionTier != "" {
		tier := seller.SubscriptionTier
		dto.SubscriptionTier = &tier
	}
	if dto.Permissions == nil {
		dto.Permissions = []string{}
	}
	return dto
}
