package products

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kaclira/kaclira-backend/pkg/db/models"
	pkgerrors "github.com/kaclira/kaclira-backend/pkg/errors"
)

// ServiceParams groups dependencies for the catalog reader.
type ServiceParams struct {
	Repo Repository
}

// Service is the read-side of the shared product catalog.
type Service interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	EnsureListed(ctx context.Context, id uuid.UUID) error
	IsCreator(ctx context.Context, productID, sellerID uuid.UUID) (bool, error)
}

type service struct {
	repo Repository
}

// NewService wires the catalog reader dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "product repository required")
	}
	return &service{repo: params.Repo}, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

// EnsureListed verifies the product exists and has not been delisted.
func (s *service) EnsureListed(ctx context.Context, id uuid.UUID) error {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if !product.IsActive {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product is not listed")
	}
	return nil
}

// IsCreator reports whether the seller originally added the product to the
// catalog. Creators may price a product even without an existing listing.
func (s *service) IsCreator(ctx context.Context, productID, sellerID uuid.UUID) (bool, error) {
	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		return false, err
	}
	return product.CreatedBy != nil && *product.CreatedBy == sellerID, nil
}
