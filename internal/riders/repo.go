package riders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swifteats/swifteats-backend/pkg/db/models"
)

// Repository exposes persistence helpers for rider profiles.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, rider *models.Rider) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Rider, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Rider, error)
	SetAvailability(ctx context.Context, id uuid.UUID, available bool) error
	UpdateLocation(ctx context.Context, id uuid.UUID, lat, lng float64) error
	UpdateRating(ctx context.Context, id uuid.UUID, rating float64, reviewCount int) error
	ListAvailable(ctx context.Context) ([]models.Rider, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a riders repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, rider *models.Rider) error {
	return r.db.WithContext(ctx).Create(rider).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Rider, error) {
	var rider models.Rider
	if err := r.db.WithContext(ctx).First(&rider, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rider, nil
}

func (r *repositoryImpl) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Rider, error) {
	var rider models.Rider
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&rider).Error; err != nil {
		return nil, err
	}
	return &rider, nil
}

func (r *repositoryImpl) SetAvailability(ctx context.Context, id uuid.UUID, available bool) error {
	return r.db.WithContext(ctx).
		Model(&models.Rider{}).
		Where("id = ?", id).
		UpdateColumn("available", available).Error
}

func (r *repositoryImpl) UpdateLocation(ctx context.Context, id uuid.UUID, lat, lng float64) error {
	return r.db.WithContext(ctx).
		Model(&models.Rider{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{"current_lat": lat, "current_lng": lng}).Error
}

func (r *repositoryImpl) UpdateRating(ctx context.Context, id uuid.UUID, rating float64, reviewCount int) error {
	return r.db.WithContext(ctx).
		Model(&models.Rider{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{"rating": rating, "review_count": reviewCount}).Error
}

func (r *repositoryImpl) ListAvailable(ctx context.Context) ([]models.Rider, error) {
	var riders []models.Rider
	if err := r.db.WithContext(ctx).
		Where("available = true").
		Order("rating DESC").
		Find(&riders).Error; err != nil {
		return nil, err
	}
	return riders, nil
}
