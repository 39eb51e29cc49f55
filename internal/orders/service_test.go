package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/swifteats/swifteats-backend/internal/notifications"
	"github.com/swifteats/swifteats-backend/internal/wallet"
	"github.com/swifteats/swifteats-backend/pkg/db/models"
	"github.com/swifteats/swifteats-backend/pkg/enums"
	pkgerrors "github.com/swifteats/swifteats-backend/pkg/errors"
	"github.com/swifteats/swifteats-backend/pkg/logger"
	"github.com/swifteats/swifteats-backend/pkg/pagination"
)

type fakeRepository struct {
	orders       map[uuid.UUID]*models.Order
	forceNoRows  bool
	statusCalls  int
	locationLat  float64
	locationLng  float64
	locationSets int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{orders: make(map[uuid.UUID]*models.Order)}
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	copied := *order
	f.orders[order.ID] = &copied
	return nil
}

func (f *fakeRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *order
	return &copied, nil
}

func (f *fakeRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, extra map[string]any) (int64, error) {
	f.statusCalls++
	if f.forceNoRows {
		return 0, nil
	}
	order, ok := f.orders[id]
	if !ok || order.Status != from {
		return 0, nil
	}
	order.Status = to
	if at, ok := extra["delivered_at"].(time.Time); ok {
		order.DeliveredAt = &at
	}
	if at, ok := extra["canceled_at"].(time.Time); ok {
		order.CanceledAt = &at
	}
	if riderID, ok := extra["rider_id"].(uuid.UUID); ok {
		order.RiderID = &riderID
	}
	return 1, nil
}

func (f *fakeRepository) UpdateRiderLocation(ctx context.Context, id uuid.UUID, lat, lng float64) error {
	f.locationLat, f.locationLng = lat, lng
	f.locationSets++
	return nil
}

func (f *fakeRepository) MarkHasReview(ctx context.Context, id uuid.UUID) (int64, error) {
	order, ok := f.orders[id]
	if !ok || order.HasReview {
		return 0, nil
	}
	order.HasReview = true
	return 1, nil
}

func (f *fakeRepository) List(ctx context.Context, params listOrdersParams) ([]models.Order, *pagination.Cursor, error) {
	var out []models.Order
	for _, order := range f.orders {
		if params.CustomerID != nil && order.CustomerID != *params.CustomerID {
			continue
		}
		if params.VendorID != nil && order.VendorID != *params.VendorID {
			continue
		}
		if params.RiderID != nil && (order.RiderID == nil || *order.RiderID != *params.RiderID) {
			continue
		}
		if params.Status != nil && order.Status != *params.Status {
			continue
		}
		out = append(out, *order)
	}
	return out, nil, nil
}

func (f *fakeRepository) ListStaleNew(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	return nil, nil
}

// fakeTxRunner restores the repository's orders on rollback so a failed
// debit leaves no order behind, mirroring a real transaction.
type fakeTxRunner struct {
	repo *fakeRepository
}

func (f *fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	before := make(map[uuid.UUID]*models.Order, len(f.repo.orders))
	for id, order := range f.repo.orders {
		copied := *order
		before[id] = &copied
	}
	if err := fn(nil); err != nil {
		f.repo.orders = before
		return err
	}
	return nil
}

type fakeWallet struct {
	balance decimal.Decimal
	debits  []wallet.DebitInput
}

func (f *fakeWallet) DebitInTx(ctx context.Context, tx *gorm.DB, input wallet.DebitInput) (*models.WalletTransaction, error) {
	if f.balance.LessThan(input.Amount) {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "insufficient wallet balance")
	}
	f.balance = f.balance.Sub(input.Amount)
	f.debits = append(f.debits, input)
	return &models.WalletTransaction{ID: uuid.New(), Reference: input.Reference, Amount: input.Amount}, nil
}

type fakeProducts struct {
	products map[uuid.UUID]models.Product
}

func (f *fakeProducts) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	var out []models.Product
	for _, id := range ids {
		if product, ok := f.products[id]; ok {
			out = append(out, product)
		}
	}
	return out, nil
}

type fakeVendors struct {
	vendors map[uuid.UUID]*models.Vendor
}

func (f *fakeVendors) FindByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	vendor, ok := f.vendors[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return vendor, nil
}

func (f *fakeVendors) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Vendor, error) {
	for _, vendor := range f.vendors {
		if vendor.UserID == userID {
			return vendor, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeRiders struct {
	riders map[uuid.UUID]*models.Rider
}

func (f *fakeRiders) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Rider, error) {
	for _, rider := range f.riders {
		if rider.UserID == userID {
			return rider, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeDispatcher struct {
	dispatched []notifications.DispatchInput
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, input notifications.DispatchInput) (*models.Notification, error) {
	f.dispatched = append(f.dispatched, input)
	return &models.Notification{ID: uuid.New(), UserID: input.UserID, Type: input.Type}, nil
}

type fixture struct {
	svc        Service
	repo       *fakeRepository
	wallets    *fakeWallet
	products   *fakeProducts
	vendors    *fakeVendors
	riders     *fakeRiders
	dispatcher *fakeDispatcher

	customerID  uuid.UUID
	vendorUser  uuid.UUID
	riderUser   uuid.UUID
	vendorID    uuid.UUID
	riderID     uuid.UUID
	burgerID    uuid.UUID
	friesID     uuid.UUID
}

func newFixture(t *testing.T, balance string) *fixture {
	t.Helper()

	f := &fixture{
		repo:       newFakeRepository(),
		dispatcher: &fakeDispatcher{},
		customerID: uuid.New(),
		vendorUser: uuid.New(),
		riderUser:  uuid.New(),
		vendorID:   uuid.New(),
		riderID:    uuid.New(),
		burgerID:   uuid.New(),
		friesID:    uuid.New(),
	}
	f.wallets = &fakeWallet{balance: decimal.RequireFromString(balance)}
	f.vendors = &fakeVendors{vendors: map[uuid.UUID]*models.Vendor{
		f.vendorID: {ID: f.vendorID, UserID: f.vendorUser, BusinessName: "Mama Kitchen", Open: true},
	}}
	f.riders = &fakeRiders{riders: map[uuid.UUID]*models.Rider{
		f.riderID: {ID: f.riderID, UserID: f.riderUser},
	}}
	f.products = &fakeProducts{products: map[uuid.UUID]models.Product{
		f.burgerID: {ID: f.burgerID, VendorID: f.vendorID, Name: "Burger", Price: decimal.RequireFromString("1500.00"), Available: true},
		f.friesID:  {ID: f.friesID, VendorID: f.vendorID, Name: "Fries", Price: decimal.RequireFromString("600.00"), Available: true},
	}}

	svc, err := NewService(Deps{
		Repo:        f.repo,
		Tx:          &fakeTxRunner{repo: f.repo},
		Wallets:     f.wallets,
		Products:    f.products,
		Vendors:     f.vendors,
		Riders:      f.riders,
		Dispatcher:  f.dispatcher,
		Logger:      logger.New(logger.Options{Level: zerolog.ErrorLevel}),
		DeliveryFee: decimal.RequireFromString("500.00"),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	f.svc = svc
	return f
}

func (f *fixture) createOrder(t *testing.T) *models.Order {
	t.Helper()
	order, err := f.svc.Create(context.Background(), CreateInput{
		CustomerID:      f.customerID,
		VendorID:        f.vendorID,
		Items:           []ItemInput{{ProductID: f.burgerID, Qty: 2}, {ProductID: f.friesID, Qty: 1}},
		DeliveryAddress: "12 Allen Avenue, Ikeja",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return order
}

func TestCreateDebitsWalletOnce(t *testing.T) {
	f := newFixture(t, "10000.00")

	order := f.createOrder(t)

	if got := order.TotalAmount.StringFixed(2); got != "3600.00" {
		t.Fatalf("total = %s, want 3600.00", got)
	}
	if len(order.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(order.Items))
	}
	if len(f.wallets.debits) != 1 {
		t.Fatalf("debits = %d, want 1", len(f.wallets.debits))
	}
	debit := f.wallets.debits[0]
	if debit.Reference != "order:"+order.ID.String() {
		t.Fatalf("debit reference = %s", debit.Reference)
	}
	if got := debit.Amount.StringFixed(2); got != "4100.00" {
		t.Fatalf("debit amount = %s, want 4100.00 (total plus delivery fee)", got)
	}
	if len(f.dispatcher.dispatched) != 1 || f.dispatcher.dispatched[0].Type != enums.NotificationTypeOrderNew {
		t.Fatalf("expected one order_new notification to the vendor, got %+v", f.dispatcher.dispatched)
	}
	if f.dispatcher.dispatched[0].UserID != f.vendorUser {
		t.Fatalf("notification went to %s, want vendor user %s", f.dispatcher.dispatched[0].UserID, f.vendorUser)
	}
}

func TestCreateInsufficientFundsLeavesNoOrder(t *testing.T) {
	f := newFixture(t, "100.00")

	_, err := f.svc.Create(context.Background(), CreateInput{
		CustomerID:      f.customerID,
		VendorID:        f.vendorID,
		Items:           []ItemInput{{ProductID: f.burgerID, Qty: 1}},
		DeliveryAddress: "12 Allen Avenue, Ikeja",
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeInsufficientFunds {
		t.Fatalf("err = %v, want insufficient funds", err)
	}
	if len(f.repo.orders) != 0 {
		t.Fatalf("order persisted despite failed payment")
	}
	if len(f.dispatcher.dispatched) != 0 {
		t.Fatalf("notification sent despite failed payment")
	}
}

func TestCreateRejectsClosedVendor(t *testing.T) {
	f := newFixture(t, "10000.00")
	f.vendors.vendors[f.vendorID].Open = false

	_, err := f.svc.Create(context.Background(), CreateInput{
		CustomerID:      f.customerID,
		VendorID:        f.vendorID,
		Items:           []ItemInput{{ProductID: f.burgerID, Qty: 1}},
		DeliveryAddress: "12 Allen Avenue, Ikeja",
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeStateConflict {
		t.Fatalf("err = %v, want state conflict", err)
	}
}

func TestCreateRejectsForeignProduct(t *testing.T) {
	f := newFixture(t, "10000.00")
	foreign := uuid.New()
	f.products.products[foreign] = models.Product{
		ID: foreign, VendorID: uuid.New(), Name: "Smuggled", Price: decimal.RequireFromString("10.00"), Available: true,
	}

	_, err := f.svc.Create(context.Background(), CreateInput{
		CustomerID:      f.customerID,
		VendorID:        f.vendorID,
		Items:           []ItemInput{{ProductID: foreign, Qty: 1}},
		DeliveryAddress: "12 Allen Avenue, Ikeja",
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestTransitionFullLifecycle(t *testing.T) {
	f := newFixture(t, "10000.00")
	order := f.createOrder(t)
	f.dispatcher.dispatched = nil

	steps := []struct {
		actor uuid.UUID
		role  enums.UserRole
		next  enums.OrderStatus
	}{
		{f.customerID, enums.UserRoleCustomer, enums.OrderStatusPendingAcceptance},
		{f.vendorUser, enums.UserRoleVendor, enums.OrderStatusPreparing},
		{f.riderUser, enums.UserRoleRider, enums.OrderStatusReadyForPickup},
		{f.riderUser, enums.UserRoleRider, enums.OrderStatusInTransit},
		{f.riderUser, enums.UserRoleRider, enums.OrderStatusDelivered},
	}
	for _, step := range steps {
		updated, err := f.svc.Transition(context.Background(), TransitionInput{
			OrderID:     order.ID,
			ActorUserID: step.actor,
			ActorRole:   step.role,
			Next:        step.next,
		})
		if err != nil {
			t.Fatalf("transition to %s: %v", step.next, err)
		}
		if updated.Status != step.next {
			t.Fatalf("status = %s, want %s", updated.Status, step.next)
		}
	}

	final := f.repo.orders[order.ID]
	if final.RiderID == nil || *final.RiderID != f.riderID {
		t.Fatalf("rider claim did not assign the order")
	}
	if final.DeliveredAt == nil {
		t.Fatalf("delivered_at not stamped")
	}

	delivered := 0
	for _, note := range f.dispatcher.dispatched {
		if note.UserID != f.customerID {
			t.Fatalf("transition notification went to %s, want customer", note.UserID)
		}
		if note.Type == enums.NotificationTypeOrderDelivered {
			delivered++
		}
	}
	if len(f.dispatcher.dispatched) != len(steps) {
		t.Fatalf("notifications = %d, want one per transition (%d)", len(f.dispatcher.dispatched), len(steps))
	}
	if delivered != 1 {
		t.Fatalf("order_delivered notifications = %d, want exactly 1", delivered)
	}
}

func TestTransitionRejectsSkippedStep(t *testing.T) {
	f := newFixture(t, "10000.00")
	order := f.createOrder(t)

	_, err := f.svc.Transition(context.Background(), TransitionInput{
		OrderID:     order.ID,
		ActorUserID: f.vendorUser,
		ActorRole:   enums.UserRoleVendor,
		Next:        enums.OrderStatusPreparing,
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeStateConflict {
		t.Fatalf("err = %v, want state conflict", err)
	}
}

func TestTransitionEnforcesRoles(t *testing.T) {
	f := newFixture(t, "10000.00")
	order := f.createOrder(t)

	advance(t, f, order.ID, f.customerID, enums.UserRoleCustomer, enums.OrderStatusPendingAcceptance)

	_, err := f.svc.Transition(context.Background(), TransitionInput{
		OrderID:     order.ID,
		ActorUserID: f.customerID,
		ActorRole:   enums.UserRoleCustomer,
		Next:        enums.OrderStatusPreparing,
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeForbidden {
		t.Fatalf("customer accepted an order as vendor: %v", err)
	}
}

func TestTransitionRejectsForeignRider(t *testing.T) {
	f := newFixture(t, "10000.00")
	order := f.createOrder(t)
	advance(t, f, order.ID, f.customerID, enums.UserRoleCustomer, enums.OrderStatusPendingAcceptance)
	advance(t, f, order.ID, f.vendorUser, enums.UserRoleVendor, enums.OrderStatusPreparing)
	advance(t, f, order.ID, f.riderUser, enums.UserRoleRider, enums.OrderStatusReadyForPickup)

	otherRiderUser := uuid.New()
	f.riders.riders[uuid.New()] = &models.Rider{ID: uuid.New(), UserID: otherRiderUser}

	_, err := f.svc.Transition(context.Background(), TransitionInput{
		OrderID:     order.ID,
		ActorUserID: otherRiderUser,
		ActorRole:   enums.UserRoleRider,
		Next:        enums.OrderStatusInTransit,
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeForbidden {
		t.Fatalf("err = %v, want forbidden", err)
	}
}

func TestTransitionConcurrentConflict(t *testing.T) {
	f := newFixture(t, "10000.00")
	order := f.createOrder(t)
	f.repo.forceNoRows = true

	_, err := f.svc.Transition(context.Background(), TransitionInput{
		OrderID:     order.ID,
		ActorUserID: f.customerID,
		ActorRole:   enums.UserRoleCustomer,
		Next:        enums.OrderStatusPendingAcceptance,
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeStateConflict {
		t.Fatalf("err = %v, want state conflict", err)
	}
}

func TestCancelFromPreparingThenImmutable(t *testing.T) {
	f := newFixture(t, "10000.00")
	order := f.createOrder(t)
	advance(t, f, order.ID, f.customerID, enums.UserRoleCustomer, enums.OrderStatusPendingAcceptance)
	advance(t, f, order.ID, f.vendorUser, enums.UserRoleVendor, enums.OrderStatusPreparing)

	canceled, err := f.svc.Transition(context.Background(), TransitionInput{
		OrderID:     order.ID,
		ActorUserID: f.vendorUser,
		ActorRole:   enums.UserRoleVendor,
		Next:        enums.OrderStatusCanceled,
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if canceled.CanceledAt == nil {
		t.Fatalf("canceled_at not stamped")
	}

	_, err = f.svc.Transition(context.Background(), TransitionInput{
		OrderID:     order.ID,
		ActorUserID: f.vendorUser,
		ActorRole:   enums.UserRoleVendor,
		Next:        enums.OrderStatusPreparing,
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeStateConflict {
		t.Fatalf("terminal order accepted a transition: %v", err)
	}
}

func TestUpdateRiderLocation(t *testing.T) {
	f := newFixture(t, "10000.00")
	order := f.createOrder(t)
	advance(t, f, order.ID, f.customerID, enums.UserRoleCustomer, enums.OrderStatusPendingAcceptance)
	advance(t, f, order.ID, f.vendorUser, enums.UserRoleVendor, enums.OrderStatusPreparing)
	advance(t, f, order.ID, f.riderUser, enums.UserRoleRider, enums.OrderStatusReadyForPickup)
	advance(t, f, order.ID, f.riderUser, enums.UserRoleRider, enums.OrderStatusInTransit)

	err := f.svc.UpdateRiderLocation(context.Background(), RiderLocationInput{
		OrderID: order.ID, RiderUserID: f.riderUser, Lat: 6.601, Lng: 3.351,
	})
	if err != nil {
		t.Fatalf("UpdateRiderLocation: %v", err)
	}
	if f.repo.locationSets != 1 || f.repo.locationLat != 6.601 {
		t.Fatalf("location not recorded: sets=%d lat=%f", f.repo.locationSets, f.repo.locationLat)
	}

	err = f.svc.UpdateRiderLocation(context.Background(), RiderLocationInput{
		OrderID: order.ID, RiderUserID: f.riderUser, Lat: 120, Lng: 3.351,
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("err = %v, want validation for out-of-range latitude", err)
	}
}

func TestListScopesByRole(t *testing.T) {
	f := newFixture(t, "10000.00")
	order := f.createOrder(t)

	// An unrelated order belonging to nobody in the fixture.
	f.repo.orders[uuid.New()] = &models.Order{
		ID: uuid.New(), CustomerID: uuid.New(), VendorID: uuid.New(), Status: enums.OrderStatusNewOrder,
	}

	result, err := f.svc.List(context.Background(), ListParams{
		ActorUserID: f.customerID, ActorRole: enums.UserRoleCustomer,
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(result.Items) != 1 || result.Items[0].ID != order.ID {
		t.Fatalf("customer list = %+v, want only own order", result.Items)
	}

	result, err = f.svc.List(context.Background(), ListParams{
		ActorUserID: f.vendorUser, ActorRole: enums.UserRoleVendor,
	})
	if err != nil {
		t.Fatalf("List vendor: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("vendor list = %d rows, want 1", len(result.Items))
	}
}

func TestGetAuthorization(t *testing.T) {
	f := newFixture(t, "10000.00")
	order := f.createOrder(t)

	if _, err := f.svc.Get(context.Background(), GetInput{
		OrderID: order.ID, ActorUserID: f.customerID, ActorRole: enums.UserRoleCustomer,
	}); err != nil {
		t.Fatalf("owner read: %v", err)
	}

	_, err := f.svc.Get(context.Background(), GetInput{
		OrderID: order.ID, ActorUserID: uuid.New(), ActorRole: enums.UserRoleCustomer,
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeForbidden {
		t.Fatalf("err = %v, want forbidden", err)
	}
}

func advance(t *testing.T, f *fixture, orderID, actor uuid.UUID, role enums.UserRole, next enums.OrderStatus) {
	t.Helper()
	if _, err := f.svc.Transition(context.Background(), TransitionInput{
		OrderID: orderID, ActorUserID: actor, ActorRole: role, Next: next,
	}); err != nil {
		t.Fatalf("advance to %s: %v", next, err)
	}
}
