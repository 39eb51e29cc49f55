package vendors

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swifteats/swifteats-backend/pkg/db/models"
	"github.com/swifteats/swifteats-backend/pkg/pagination"
)

// Repository exposes persistence helpers for vendor profiles.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, vendor *models.Vendor) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Vendor, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	UpdateRating(ctx context.Context, id uuid.UUID, rating float64, reviewCount int) error
	List(ctx context.Context, params listVendorsParams) ([]models.Vendor, *pagination.Cursor, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a vendors repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listVendorsParams struct {
	OpenOnly bool
	Limit    int
	Cursor   *pagination.Cursor
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, vendor *models.Vendor) error {
	return r.db.WithContext(ctx).Create(vendor).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).First(&vendor, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *repositoryImpl) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&vendor).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *repositoryImpl) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Vendor{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repositoryImpl) UpdateRating(ctx context.Context, id uuid.UUID, rating float64, reviewCount int) error {
	return r.db.WithContext(ctx).
		Model(&models.Vendor{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{"rating": rating, "review_count": reviewCount}).Error
}

func (r *repositoryImpl) List(ctx context.Context, params listVendorsParams) ([]models.Vendor, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Vendor{})
	if params.OpenOnly {
		query = query.Where("open = true")
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var vendors []models.Vendor
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&vendors).Error; err != nil {
		return nil, nil, err
	}

	if len(vendors) > normalized {
		next := vendors[normalized]
		vendors = vendors[:normalized]
		return vendors, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return vendors, nil, nil
}
