package payouts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swifteats/swifteats-backend/pkg/db/models"
	"github.com/swifteats/swifteats-backend/pkg/enums"
	"github.com/swifteats/swifteats-backend/pkg/pagination"
)

// Repository persists payout requests. Status moves go through UpdateStatus
// so concurrent admin decisions resolve at the database.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payout *models.PayoutRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PayoutRequest, error)
	// UpdateStatus performs a compare-and-set on the status column; zero
	// rows affected means another decision won.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.PayoutStatus, extra map[string]any) (int64, error)
	List(ctx context.Context, params listPayoutsParams) ([]models.PayoutRequest, *pagination.Cursor, error)
}

type listPayoutsParams struct {
	UserID *uuid.UUID
	Status *enums.PayoutStatus
	Limit  int
	Cursor *pagination.Cursor
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

func (r *repositoryImpl) Create(ctx context.Context, payout *models.PayoutRequest) error {
	return r.db.WithContext(ctx).Create(payout).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.PayoutRequest, error) {
	var payout models.PayoutRequest
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&payout).Error
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *repositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.PayoutStatus, extra map[string]any) (int64, error) {
	updates := map[string]any{"status": to}
	for column, value := range extra {
		updates[column] = value
	}

	result := r.db.WithContext(ctx).
		Model(&models.PayoutRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) List(ctx context.Context, params listPayoutsParams) ([]models.PayoutRequest, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Model(&models.PayoutRequest{}).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(limit))
	if params.UserID != nil {
		query = query.Where("user_id = ?", *params.UserID)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.PayoutRequest
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
