package auth

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/swifteats/swifteats-backend/internal/riders"
	"github.com/swifteats/swifteats-backend/internal/users"
	"github.com/swifteats/swifteats-backend/internal/vendors"
	"github.com/swifteats/swifteats-backend/pkg/config"
	"github.com/swifteats/swifteats-backend/pkg/db/models"
	"github.com/swifteats/swifteats-backend/pkg/enums"
	pkgerrors "github.com/swifteats/swifteats-backend/pkg/errors"
	"github.com/swifteats/swifteats-backend/pkg/security"
)

// RegisterService handles the onboarding transaction. The user row and the
// role profile row commit together or not at all.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type registerUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
}

type registerVendorRepository interface {
	Create(ctx context.Context, vendor *models.Vendor) error
}

type registerRiderRepository interface {
	Create(ctx context.Context, rider *models.Rider) error
}

// RegisterServiceParams packages the dependencies for the registration flow.
// The repo factories receive the active transaction so every row shares it.
type RegisterServiceParams struct {
	TxRunner          txRunner
	UserRepoFactory   func(tx *gorm.DB) registerUserRepository
	VendorRepoFactory func(tx *gorm.DB) registerVendorRepository
	RiderRepoFactory  func(tx *gorm.DB) registerRiderRepository
	PasswordConfig    config.PasswordConfig
}

type registerService struct {
	tx          txRunner
	userRepo    func(tx *gorm.DB) registerUserRepository
	vendorRepo  func(tx *gorm.DB) registerVendorRepository
	riderRepo   func(tx *gorm.DB) registerRiderRepository
	passwordCfg config.PasswordConfig
}

// NewRegisterService builds a registration service with the provided dependencies.
// Factories left nil fall back to the real repositories.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.TxRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if params.UserRepoFactory == nil {
		params.UserRepoFactory = func(tx *gorm.DB) registerUserRepository {
			return users.NewRepository(tx)
		}
	}
	if params.VendorRepoFactory == nil {
		params.VendorRepoFactory = func(tx *gorm.DB) registerVendorRepository {
			return vendors.NewRepository(tx)
		}
	}
	if params.RiderRepoFactory == nil {
		params.RiderRepoFactory = func(tx *gorm.DB) registerRiderRepository {
			return riders.NewRepository(tx)
		}
	}
	return &registerService{
		tx:          params.TxRunner,
		userRepo:    params.UserRepoFactory,
		vendorRepo:  params.VendorRepoFactory,
		riderRepo:   params.RiderRepoFactory,
		passwordCfg: params.PasswordConfig,
	}, nil
}

func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if strings.TrimSpace(req.FullName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "full name is required")
	}
	if !req.Role.IsValid() || req.Role == enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}
	if err := validateProfileFields(req); err != nil {
		return nil, err
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var created *models.User
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := s.userRepo(tx)

		if _, err := userRepo.FindByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		}

		user, err := userRepo.Create(ctx, users.CreateUserDTO{
			Email:        email,
			PasswordHash: passwordHash,
			FullName:     strings.TrimSpace(req.FullName),
			Phone:        req.Phone,
			Role:         req.Role,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}

		switch req.Role {
		case enums.UserRoleVendor:
			vendor := &models.Vendor{
				UserID:       user.ID,
				BusinessName: strings.TrimSpace(*req.BusinessName),
				Description:  req.Description,
				Address:      strings.TrimSpace(*req.Address),
				Open:         false,
			}
			if err := s.vendorRepo(tx).Create(ctx, vendor); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create vendor profile")
			}
		case enums.UserRoleRider:
			rider := &models.Rider{
				UserID:      user.ID,
				VehicleType: strings.TrimSpace(*req.VehicleType),
				Available:   false,
			}
			if err := s.riderRepo(tx).Create(ctx, rider); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create rider profile")
			}
		}

		created = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users.FromModel(created), nil
}

func validateProfileFields(req RegisterRequest) error {
	switch req.Role {
	case enums.UserRoleVendor:
		if req.BusinessName == nil || strings.TrimSpace(*req.BusinessName) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "business name is required for vendors")
		}
		if req.Address == nil || strings.TrimSpace(*req.Address) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "address is required for vendors")
		}
	case enums.UserRoleRider:
		if req.VehicleType == nil || strings.TrimSpace(*req.VehicleType) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "vehicle type is required for riders")
		}
	}
	return nil
}
