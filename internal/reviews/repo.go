package reviews

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swifteats/swifteats-backend/pkg/db/models"
	"github.com/swifteats/swifteats-backend/pkg/pagination"
)

// Repository persists reviews and serves the full-scan reads the rating
// aggregator depends on.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, review *models.Review) error
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Review, error)
	ListByVendor(ctx context.Context, vendorID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Review, *pagination.Cursor, error)
	VendorRatings(ctx context.Context, vendorID uuid.UUID) ([]int, error)
	RiderRatings(ctx context.Context, riderID uuid.UUID) ([]int, error)
	DistinctVendorIDs(ctx context.Context) ([]uuid.UUID, error)
	DistinctRiderIDs(ctx context.Context) ([]uuid.UUID, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *repositoryImpl) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Review, error) {
	var review models.Review
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&review).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *repositoryImpl) ListByVendor(ctx context.Context, vendorID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Review, *pagination.Cursor, error) {
	limit = pagination.NormalizeLimit(limit)

	query := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("vendor_id = ?", vendorID).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(limit))
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Review
	if err := query.Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	var next *pagination.Cursor
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return rows, next, nil
}

func (r *repositoryImpl) VendorRatings(ctx context.Context, vendorID uuid.UUID) ([]int, error) {
	var ratings []int
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("vendor_id = ?", vendorID).
		Pluck("vendor_rating", &ratings).Error
	if err != nil {
		return nil, err
	}
	return ratings, nil
}

func (r *repositoryImpl) RiderRatings(ctx context.Context, riderID uuid.UUID) ([]int, error) {
	var ratings []int
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("rider_id = ? AND rider_rating IS NOT NULL", riderID).
		Pluck("rider_rating", &ratings).Error
	if err != nil {
		return nil, err
	}
	return ratings, nil
}

func (r *repositoryImpl) DistinctVendorIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Distinct("vendor_id").
		Pluck("vendor_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repositoryImpl) DistinctRiderIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("rider_id IS NOT NULL").
		Distinct("rider_id").
		Pluck("rider_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
