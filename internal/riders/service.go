package riders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swifteats/swifteats-backend/pkg/db/models"
	pkgerrors "github.com/swifteats/swifteats-backend/pkg/errors"
)

// Service defines rider profile operations.
type Service interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Rider, error)
	SetAvailability(ctx context.Context, userID uuid.UUID, available bool) error
	UpdateLocation(ctx context.Context, input UpdateLocationInput) error
	ListAvailable(ctx context.Context) ([]models.Rider, error)
}

type service struct {
	repo Repository
}

// UpdateLocationInput carries a rider's current position.
type UpdateLocationInput struct {
	UserID uuid.UUID
	Lat    float64
	Lng    float64
}

// NewService wires the riders service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "riders repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Rider, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	rider, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "rider profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rider profile")
	}
	return rider, nil
}

func (s *service) SetAvailability(ctx context.Context, userID uuid.UUID, available bool) error {
	rider, err := s.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.repo.SetAvailability(ctx, rider.ID, available); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update rider availability")
	}
	return nil
}

func (s *service) UpdateLocation(ctx context.Context, input UpdateLocationInput) error {
	if input.Lat < -90 || input.Lat > 90 || input.Lng < -180 || input.Lng > 180 {
		return pkgerrors.New(pkgerrors.CodeValidation, "coordinates out of range")
	}
	rider, err := s.GetByUserID(ctx, input.UserID)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateLocation(ctx, rider.ID, input.Lat, input.Lng); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update rider location")
	}
	return nil
}

func (s *service) ListAvailable(ctx context.Context) ([]models.Rider, error) {
	riders, err := s.repo.ListAvailable(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list available riders")
	}
	return riders, nil
}
