package vendors

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swifteats/swifteats-backend/pkg/db/models"
	pkgerrors "github.com/swifteats/swifteats-backend/pkg/errors"
	"github.com/swifteats/swifteats-backend/pkg/pagination"
)

// Service defines vendor profile operations.
type Service interface {
	Get(ctx context.Context, vendorID uuid.UUID) (*models.Vendor, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Vendor, error)
	UpdateProfile(ctx context.Context, input UpdateProfileInput) (*models.Vendor, error)
	SetOpen(ctx context.Context, userID uuid.UUID, open bool) error
	List(ctx context.Context, params ListParams) (*ListResult, error)
}

type service struct {
	repo Repository
}

// UpdateProfileInput carries the mutable vendor profile fields. Nil fields
// are left unchanged.
type UpdateProfileInput struct {
	UserID       uuid.UUID
	BusinessName *string
	Description  *string
	Address      *string
	Phone        *string
	LogoURL      *string
}

// ListParams configures the public vendor listing.
type ListParams struct {
	OpenOnly bool
	Limit    int
	Cursor   string
}

// ListResult wraps vendors and the cursor for the next page.
type ListResult struct {
	Items  []models.Vendor `json:"items"`
	Cursor string          `json:"cursor"`
}

// NewService wires the vendors service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "vendors repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, vendorID uuid.UUID) (*models.Vendor, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	vendor, err := s.repo.FindByID(ctx, vendorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
	}
	return vendor, nil
}

func (s *service) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Vendor, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	vendor, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor profile")
	}
	return vendor, nil
}

func (s *service) UpdateProfile(ctx context.Context, input UpdateProfileInput) (*models.Vendor, error) {
	vendor, err := s.GetByUserID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.BusinessName != nil {
		if *input.BusinessName == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "business name cannot be empty")
		}
		updates["business_name"] = *input.BusinessName
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Address != nil {
		if *input.Address == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "address cannot be empty")
		}
		updates["address"] = *input.Address
	}
	if input.Phone != nil {
		updates["phone"] = *input.Phone
	}
	if input.LogoURL != nil {
		updates["logo_url"] = *input.LogoURL
	}
	if len(updates) == 0 {
		return vendor, nil
	}

	if err := s.repo.Update(ctx, vendor.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update vendor profile")
	}
	return s.repo.FindByID(ctx, vendor.ID)
}

func (s *service) SetOpen(ctx context.Context, userID uuid.UUID, open bool) error {
	vendor, err := s.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.repo.Update(ctx, vendor.ID, map[string]any{"open": open}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update vendor open state")
	}
	return nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	query := listVendorsParams{OpenOnly: params.OpenOnly, Limit: params.Limit}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendors")
	}

	result := &ListResult{Items: rows}
	if next != nil {
		result.Cursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}
