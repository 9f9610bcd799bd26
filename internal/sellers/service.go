package sellers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/kaclira/kaclira-backend/pkg/config"
	"github.com/kaclira/kaclira-backend/pkg/db/models"
	"github.com/kaclira/kaclira-backend/pkg/enums"
	pkgerrors "github.com/kaclira/kaclira-backend/pkg/errors"
	"github.com/kaclira/kaclira-backend/pkg/logger"
	"github.com/kaclira/kaclira-backend/pkg/pagination"
)

// ServiceParams groups dependencies for the seller registry service.
type ServiceParams struct {
	Repo   Repository
	Config config.SellersConfig
	Logger *logger.Logger
}

// Service exposes the seller registry and permission evaluator.
type Service interface {
	GetSeller(ctx context.Context, id uuid.UUID) (SellerDTO, error)
	HasPermission(ctx context.Context, sellerID uuid.UUID, permission enums.Permission) (bool, error)
	EnsurePermission(ctx context.Context, sellerID uuid.UUID, permission enums.Permission) error
	GrantPermissions(ctx context.Context, parentID, subSellerID uuid.UUID, input GrantPermissionsInput) (SellerDTO, error)
	CanCreateSubSeller(ctx context.Context, sellerID uuid.UUID) (bool, error)
	CreateSubSeller(ctx context.Context, parentID uuid.UUID, input CreateSubSellerInput) (SellerDTO, error)
	ListSubSellers(ctx context.Context, parentID uuid.UUID, cursor string, limit int) (SubSellerPage, error)
	UpdateStatus(ctx context.Context, sellerID uuid.UUID, status enums.SellerStatus) error
	ExpiringSubscriptions(ctx context.Context, now time.Time, limit int) ([]models.Seller, error)
}

type service struct {
	repo     Repository
	cfg      config.SellersConfig
	logg     *logger.Logger
	maxDepth int
}

// NewService wires the seller registry dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "seller repository required")
	}
	maxDepth := params.Config.MaxHierarchyDepth
	if maxDepth <= 0 {
		maxDepth = 10
	}
	return &service{
		repo:     params.Repo,
		cfg:      params.Config,
		logg:     params.Logger,
		maxDepth: maxDepth,
	}, nil
}

func (s *service) GetSeller(ctx context.Context, id uuid.UUID) (SellerDTO, error) {
	seller, err := s.loadSeller(ctx, id)
	if err != nil {
		return SellerDTO{}, err
	}
	return toDTO(*seller), nil
}

// HasPermission evaluates the delegation model: a root seller holds every
// permission implicitly, a sub-seller only what its parent granted.
func (s *service) HasPermission(ctx context.Context, sellerID uuid.UUID, permission enums.Permission) (bool, error) {
	if !permission.IsValid() {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "unknown permission name")
	}
	seller, err := s.loadSeller(ctx, sellerID)
	if err != nil {
		return false, err
	}
	return evaluate(*seller, permission), nil
}

// EnsurePermission turns a failed evaluation into a forbidden error.
func (s *service) EnsurePermission(ctx context.Context, sellerID uuid.UUID, permission enums.Permission) error {
	ok, err := s.HasPermission(ctx, sellerID, permission)
	if err != nil {
		return err
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeForbidden, "seller lacks permission "+permission.String())
	}
	return nil
}

// GrantPermissions replaces a sub-seller's permission set. The requested set
// must be a subset of what the parent itself holds; a seller can never
// delegate authority it does not have.
func (s *service) GrantPermissions(ctx context.Context, parentID, subSellerID uuid.UUID, input GrantPermissionsInput) (SellerDTO, error) {
	requested, err := enums.ParsePermissionSet(input.Permissions)
	if err != nil {
		return SellerDTO{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid permission set")
	}

	parent, err := s.loadSeller(ctx, parentID)
	if err != nil {
		return SellerDTO{}, err
	}
	sub, err := s.loadSeller(ctx, subSellerID)
	if err != nil {
		return SellerDTO{}, err
	}

	if sub.ParentSellerID == nil || *sub.ParentSellerID != parent.ID {
		return SellerDTO{}, pkgerrors.New(pkgerrors.CodeForbidden, "seller is not a sub-seller of the caller")
	}
	if !requested.SubsetOf(effectivePermissions(*parent)) {
		return SellerDTO{}, pkgerrors.New(pkgerrors.CodeForbidden, "cannot delegate permissions the parent does not hold")
	}

	updated, err := s.repo.ReplacePermissions(ctx, sub.ID, requested.Strings(), sub.Version)
	if err != nil {
		return SellerDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace permissions")
	}
	if !updated {
		return SellerDTO{}, pkgerrors.New(pkgerrors.CodeConflict, "seller was modified concurrently, retry with fresh data")
	}

	refreshed, err := s.loadSeller(ctx, sub.ID)
	if err != nil {
		return SellerDTO{}, err
	}
	return toDTO(*refreshed), nil
}

// CanCreateSubSeller checks the delegation permission and the tier quota.
func (s *service) CanCreateSubSeller(ctx context.Context, sellerID uuid.UUID) (bool, error) {
	seller, err := s.loadSeller(ctx, sellerID)
	if err != nil {
		return false, err
	}
	if !evaluate(*seller, enums.PermissionManageSubSellers) {
		return false, nil
	}
	count, err := s.repo.CountChildren(ctx, seller.ID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count sub-sellers")
	}
	return count < int64(seller.SubscriptionTier.SubSellerLimit()), nil
}

// CreateSubSeller registers a delegated seller under the caller. The new
// seller starts active; the registration review flow only applies to roots.
func (s *service) CreateSubSeller(ctx context.Context, parentID uuid.UUID, input CreateSubSellerInput) (SellerDTO, error) {
	parent, err := s.loadSeller(ctx, parentID)
	if err != nil {
		return SellerDTO{}, err
	}

	allowed, err := s.CanCreateSubSeller(ctx, parentID)
	if err != nil {
		return SellerDTO{}, err
	}
	if !allowed {
		return SellerDTO{}, pkgerrors.New(pkgerrors.CodeForbidden, "sub-seller limit reached or permission missing")
	}

	if err := s.ensureDepthAllowed(ctx, parent); err != nil {
		return SellerDTO{}, err
	}

	requested, err := enums.ParsePermissionSet(input.Permissions)
	if err != nil {
		return SellerDTO{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid permission set")
	}
	if !requested.SubsetOf(effectivePermissions(*parent)) {
		return SellerDTO{}, pkgerrors.New(pkgerrors.CodeForbidden, "cannot delegate permissions the parent does not hold")
	}

	ownerID, err := uuid.Parse(strings.TrimSpace(input.OwnerUserID))
	if err != nil {
		return SellerDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "owner user id must be a valid uuid")
	}

	parentRef := parent.ID
	seller := models.Seller{
		CompanyName:    strings.TrimSpace(input.CompanyName),
		ContactEmail:   strings.TrimSpace(input.ContactEmail),
		ContactPhone:   input.ContactPhone,
		Status:         enums.SellerStatusActive,
		ParentSellerID: &parentRef,
		Permissions:    pq.StringArray(requested.Strings()),
		OwnerUserID:    ownerID,
	}
	if err := s.repo.Create(ctx, &seller); err != nil {
		return SellerDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create sub-seller")
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"parent_seller_id": parent.ID.String(),
			"sub_seller_id":    seller.ID.String(),
		})
		s.logg.Info(logCtx, "sub-seller created")
	}
	return toDTO(seller), nil
}

func (s *service) ListSubSellers(ctx context.Context, parentID uuid.UUID, cursor string, limit int) (SubSellerPage, error) {
	if parentID == uuid.Nil {
		return SubSellerPage{}, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}

	params := ListChildrenParams{ParentID: parentID, Limit: limit}
	if cursor != "" {
		decoded, err := pagination.ParseCursor(cursor)
		if err != nil {
			return SubSellerPage{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		params.Cursor = decoded
	}

	rows, next, err := s.repo.ListChildren(ctx, params)
	if err != nil {
		return SubSellerPage{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sub-sellers")
	}

	page := SubSellerPage{Items: make([]SellerDTO, 0, len(rows))}
	for _, row := range rows {
		page.Items = append(page.Items, toDTO(row))
	}
	if next != nil {
		page.Cursor = pagination.EncodeCursor(*next)
	}
	return page, nil
}

// UpdateStatus applies the pending→active→suspended lifecycle.
func (s *service) UpdateStatus(ctx context.Context, sellerID uuid.UUID, status enums.SellerStatus) error {
	if !status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown seller status")
	}
	seller, err := s.loadSeller(ctx, sellerID)
	if err != nil {
		return err
	}
	if !seller.Status.CanTransitionTo(status) {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid status transition").
			WithDetails(map[string]any{"from": seller.Status, "to": status})
	}
	affected, err := s.repo.UpdateStatus(ctx, sellerID, status)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update seller status")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "seller not found")
	}
	return nil
}

// ensureDepthAllowed walks the ancestor chain before adding a new level. The
// walk is bounded and revisiting an id means the stored tree has a cycle.
func (s *service) ensureDepthAllowed(ctx context.Context, parent *models.Seller) error {
	visited := map[uuid.UUID]struct{}{parent.ID: {}}
	depth := 1
	current := parent
	for current.ParentSellerID != nil {
		depth++
		if depth > s.maxDepth {
			return pkgerrors.New(pkgerrors.CodeValidation, "seller hierarchy exceeds maximum depth")
		}
		next, err := s.loadSeller(ctx, *current.ParentSellerID)
		if err != nil {
			return err
		}
		if _, seen := visited[next.ID]; seen {
			return pkgerrors.New(pkgerrors.CodeValidation, "seller hierarchy contains a cycle")
		}
		visited[next.ID] = struct{}{}
		current = next
	}
	return nil
}

func (s *service) loadSeller(ctx context.Context, id uuid.UUID) (*models.Seller, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	seller, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "seller not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller")
	}
	return seller, nil
}

// evaluate is the pure permission decision. Inactive sellers hold nothing.
func evaluate(seller models.Seller, permission enums.Permission) bool {
	if seller.Status != enums.SellerStatusActive {
		return false
	}
	if seller.IsRoot() {
		return true
	}
	return seller.PermissionSet().Contains(permission)
}

func effectivePermissions(seller models.Seller) enums.PermissionSet {
	if seller.IsRoot() {
		return enums.AllPermissions()
	}
	return seller.PermissionSet()
}

// ExpiringSubscriptions lists active sellers whose subscription ends inside
// the warning window. Consumed by the subscription-expiry sweep.
func (s *service) ExpiringSubscriptions(ctx context.Context, now time.Time, limit int) ([]models.Seller, error) {
	warning := s.cfg.ExpiryWarningDays
	if warning <= 0 {
		warning = 30
	}
	cutoff := now.Add(time.Duration(warning) * 24 * time.Hour)
	rows, err := s.repo.ListExpiringSubscriptions(ctx, cutoff, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expiring subscriptions")
	}
	return rows, nil
}
