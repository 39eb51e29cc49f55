package products

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/swifteats/swifteats-backend/pkg/db/models"
	pkgerrors "github.com/swifteats/swifteats-backend/pkg/errors"
	"github.com/swifteats/swifteats-backend/pkg/pagination"
)

// Service defines catalog operations. Mutations are scoped to the owning
// vendor; reads are public.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Product, error)
	Get(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	Update(ctx context.Context, input UpdateInput) (*models.Product, error)
	Delete(ctx context.Context, vendorID, productID uuid.UUID) error
	ListByVendor(ctx context.Context, params ListParams) (*ListResult, error)
}

type service struct {
	repo Repository
}

// CreateInput carries a new catalog entry.
type CreateInput struct {
	VendorID    uuid.UUID
	Name        string
	Description *string
	Category    string
	Price       decimal.Decimal
	ImageURL    *string
}

// UpdateInput mutates an existing entry. Nil fields are left unchanged.
type UpdateInput struct {
	VendorID    uuid.UUID
	ProductID   uuid.UUID
	Name        *string
	Description *string
	Category    *string
	Price       *decimal.Decimal
	ImageURL    *string
	Available   *bool
}

// ListParams configures a vendor catalog listing.
type ListParams struct {
	VendorID      uuid.UUID
	AvailableOnly bool
	Category      string
	Limit         int
	Cursor        string
}

// ListResult wraps catalog rows and the cursor for the next page.
type ListResult struct {
	Items  []models.Product `json:"items"`
	Cursor string           `json:"cursor"`
}

// NewService wires the products service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "products repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Product, error) {
	if input.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	if input.Name == "" || input.Category == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name and category required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}

	product := &models.Product{
		VendorID:    input.VendorID,
		Name:        input.Name,
		Description: input.Description,
		Category:    input.Category,
		Price:       input.Price,
		ImageURL:    input.ImageURL,
		Available:   true,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return product, nil
}

func (s *service) Get(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*models.Product, error) {
	product, err := s.Get(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	if product.VendorID != input.VendorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "product belongs to another vendor")
	}

	updates := map[string]any{}
	if input.Name != nil {
		if *input.Name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name cannot be empty")
		}
		updates["name"] = *input.Name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Category != nil {
		if *input.Category == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "category cannot be empty")
		}
		updates["category"] = *input.Category
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
		}
		updates["price"] = *input.Price
	}
	if input.ImageURL != nil {
		updates["image_url"] = *input.ImageURL
	}
	if input.Available != nil {
		updates["available"] = *input.Available
	}
	if len(updates) == 0 {
		return product, nil
	}

	if err := s.repo.Update(ctx, product.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return s.repo.FindByID(ctx, product.ID)
}

func (s *service) Delete(ctx context.Context, vendorID, productID uuid.UUID) error {
	product, err := s.Get(ctx, productID)
	if err != nil {
		return err
	}
	if product.VendorID != vendorID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "product belongs to another vendor")
	}

	affected, err := s.repo.Delete(ctx, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

func (s *service) ListByVendor(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}

	query := listProductsParams{
		VendorID:      params.VendorID,
		AvailableOnly: params.AvailableOnly,
		Category:      params.Category,
		Limit:         params.Limit,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.ListByVendor(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	result := &ListResult{Items: rows}
	if next != nil {
		result.Cursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}
