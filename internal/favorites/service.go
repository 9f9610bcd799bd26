package favorites

import (
	"context"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/kaclira/kaclira-backend/pkg/errors"
	"github.com/kaclira/kaclira-backend/pkg/pagination"
)

// CatalogReader is the slice of the product catalog favorites needs.
type CatalogReader interface {
	EnsureListed(ctx context.Context, id uuid.UUID) error
}

// Service defines favorite add/remove/list operations.
type Service interface {
	Add(ctx context.Context, userID, productID uuid.UUID) error
	Remove(ctx context.Context, userID, productID uuid.UUID) error
	List(ctx context.Context, params ListParams) (*ListResult, error)
	WatcherIDs(ctx context.Context, productID uuid.UUID) ([]uuid.UUID, error)
}

type service struct {
	repo     Repository
	products CatalogReader
}

// ListParams configures pagination for favorites.
type ListParams struct {
	UserID uuid.UUID
	Limit  int
	Cursor string
}

// FavoriteDTO is the API shape of a favorite entry.
type FavoriteDTO struct {
	ProductID uuid.UUID `json:"productId"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListResult wraps returned favorites and the cursor for the next page.
type ListResult struct {
	Items  []FavoriteDTO `json:"items"`
	Cursor string        `json:"cursor"`
}

// NewService wires favorites dependencies.
func NewService(repo Repository, products CatalogReader) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "favorites repository required")
	}
	if products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "product service required")
	}
	return &service{repo: repo, products: products}, nil
}

func (s *service) Add(ctx context.Context, userID, productID uuid.UUID) error {
	if userID == uuid.Nil || productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id and product id required")
	}
	if err := s.products.EnsureListed(ctx, productID); err != nil {
		return err
	}
	if err := s.repo.AddItem(ctx, userID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add favorite")
	}
	return nil
}

func (s *service) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	if userID == uuid.Nil || productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id and product id required")
	}
	if err := s.repo.RemoveItem(ctx, userID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove favorite")
	}
	return nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	query := listItemsParams{UserID: params.UserID, Limit: params.Limit}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.ListItems(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list favorites")
	}

	result := &ListResult{Items: make([]FavoriteDTO, 0, len(rows))}
	for _, row := range rows {
		result.Items = append(result.Items, FavoriteDTO{ProductID: row.ProductID, CreatedAt: row.CreatedAt})
	}
	if next != nil {
		result.Cursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

// WatcherIDs lists the users to notify about a price drop on the product.
func (s *service) WatcherIDs(ctx context.Context, productID uuid.UUID) ([]uuid.UUID, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	ids, err := s.repo.ListWatcherIDs(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list watchers")
	}
	return ids, nil
}
