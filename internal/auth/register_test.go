package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swifteats/swifteats-backend/internal/users"
	"github.com/swifteats/swifteats-backend/pkg/config"
	pkgmodels "github.com/swifteats/swifteats-backend/pkg/db/models"
	"github.com/swifteats/swifteats-backend/pkg/enums"
	pkgerrors "github.com/swifteats/swifteats-backend/pkg/errors"
)

type stubTxRunner struct{}

func (s stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubUserRepository struct {
	data    map[string]*pkgmodels.User
	created *pkgmodels.User
}

func newStubUserRepository() *stubUserRepository {
	return &stubUserRepository{data: map[string]*pkgmodels.User{}}
}

func (s *stubUserRepository) FindByEmail(ctx context.Context, email string) (*pkgmodels.User, error) {
	if user, ok := s.data[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepository) Create(ctx context.Context, dto users.CreateUserDTO) (*pkgmodels.User, error) {
	user := &pkgmodels.User{
		ID:           uuid.New(),
		Email:        dto.Email,
		PasswordHash: dto.PasswordHash,
		FullName:     dto.FullName,
		Phone:        dto.Phone,
		Role:         dto.Role,
		Active:       true,
	}
	s.data[dto.Email] = user
	s.created = user
	return user, nil
}

type stubVendorRepository struct {
	created *pkgmodels.Vendor
}

func (s *stubVendorRepository) Create(ctx context.Context, vendor *pkgmodels.Vendor) error {
	vendor.ID = uuid.New()
	s.created = vendor
	return nil
}

type stubRiderRepository struct {
	created *pkgmodels.Rider
}

func (s *stubRiderRepository) Create(ctx context.Context, rider *pkgmodels.Rider) error {
	rider.ID = uuid.New()
	s.created = rider
	return nil
}

type registerTestSetup struct {
	service    RegisterService
	userRepo   *stubUserRepository
	vendorRepo *stubVendorRepository
	riderRepo  *stubRiderRepository
}

func newRegisterTestSetup(t *testing.T) *registerTestSetup {
	t.Helper()
	userRepo := newStubUserRepository()
	vendorRepo := &stubVendorRepository{}
	riderRepo := &stubRiderRepository{}
	svc, err := NewRegisterService(RegisterServiceParams{
		TxRunner: stubTxRunner{},
		UserRepoFactory: func(tx *gorm.DB) registerUserRepository {
			return userRepo
		},
		VendorRepoFactory: func(tx *gorm.DB) registerVendorRepository {
			return vendorRepo
		},
		RiderRepoFactory: func(tx *gorm.DB) registerRiderRepository {
			return riderRepo
		},
		PasswordConfig: config.PasswordConfig{},
	})
	if err != nil {
		t.Fatalf("new register service: %v", err)
	}
	return &registerTestSetup{
		service:    svc,
		userRepo:   userRepo,
		vendorRepo: vendorRepo,
		riderRepo:  riderRepo,
	}
}

func strPtr(value string) *string { return &value }

func TestRegisterCustomer(t *testing.T) {
	setup := newRegisterTestSetup(t)

	dto, err := setup.service.Register(context.Background(), RegisterRequest{
		Email:    "New@Example.com",
		Password: "Secret123!",
		FullName: "Jamie Rivera",
		Role:     enums.UserRoleCustomer,
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if dto.Email != "new@example.com" {
		t.Fatalf("email not normalized: %s", dto.Email)
	}
	if setup.userRepo.created == nil || setup.userRepo.created.Role != enums.UserRoleCustomer {
		t.Fatalf("user not created with customer role")
	}
	if setup.vendorRepo.created != nil || setup.riderRepo.created != nil {
		t.Fatalf("profile row created for customer registration")
	}
	if setup.userRepo.created.PasswordHash == "Secret123!" {
		t.Fatalf("password stored in clear")
	}
}

func TestRegisterVendorCreatesProfile(t *testing.T) {
	setup := newRegisterTestSetup(t)

	_, err := setup.service.Register(context.Background(), RegisterRequest{
		Email:        "vendor@example.com",
		Password:     "Secret123!",
		FullName:     "Mama Kitchen",
		Role:         enums.UserRoleVendor,
		BusinessName: strPtr("Mama Kitchen"),
		Address:      strPtr("4 Awolowo Road, Ikoyi"),
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if setup.vendorRepo.created == nil {
		t.Fatalf("vendor profile not created")
	}
	if setup.vendorRepo.created.UserID != setup.userRepo.created.ID {
		t.Fatalf("vendor profile not linked to user")
	}
	if setup.vendorRepo.created.Open {
		t.Fatalf("new vendor should start closed")
	}
}

func TestRegisterRiderCreatesProfile(t *testing.T) {
	setup := newRegisterTestSetup(t)

	_, err := setup.service.Register(context.Background(), RegisterRequest{
		Email:       "rider@example.com",
		Password:    "Secret123!",
		FullName:    "Tunde Bello",
		Role:        enums.UserRoleRider,
		VehicleType: strPtr("motorcycle"),
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if setup.riderRepo.created == nil {
		t.Fatalf("rider profile not created")
	}
	if setup.riderRepo.created.Available {
		t.Fatalf("new rider should start unavailable")
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	setup := newRegisterTestSetup(t)
	req := RegisterRequest{
		Email:    "dup@example.com",
		Password: "Secret123!",
		FullName: "Jamie Rivera",
		Role:     enums.UserRoleCustomer,
	}

	if _, err := setup.service.Register(context.Background(), req); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := setup.service.Register(context.Background(), req)
	if pkgerrors.CodeOf(err) != pkgerrors.CodeConflict {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	setup := newRegisterTestSetup(t)

	tests := []struct {
		name string
		req  RegisterRequest
	}{
		{
			name: "admin role not self-served",
			req:  RegisterRequest{Email: "a@example.com", Password: "x", FullName: "A", Role: enums.UserRoleAdmin},
		},
		{
			name: "vendor without business name",
			req:  RegisterRequest{Email: "b@example.com", Password: "x", FullName: "B", Role: enums.UserRoleVendor, Address: strPtr("somewhere")},
		},
		{
			name: "rider without vehicle type",
			req:  RegisterRequest{Email: "c@example.com", Password: "x", FullName: "C", Role: enums.UserRoleRider},
		},
		{
			name: "blank email",
			req:  RegisterRequest{Email: "  ", Password: "x", FullName: "D", Role: enums.UserRoleCustomer},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := setup.service.Register(context.Background(), test.req); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
				t.Fatalf("err = %v, want validation", err)
			}
		})
	}
}
