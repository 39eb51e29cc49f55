package reviews

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/swifteats/swifteats-backend/internal/notifications"
	"github.com/swifteats/swifteats-backend/pkg/db/models"
	"github.com/swifteats/swifteats-backend/pkg/enums"
	pkgerrors "github.com/swifteats/swifteats-backend/pkg/errors"
	"github.com/swifteats/swifteats-backend/pkg/logger"
	"github.com/swifteats/swifteats-backend/pkg/pagination"
)

type fakeRepository struct {
	reviews []models.Review
	byOrder map[uuid.UUID]bool
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{byOrder: make(map[uuid.UUID]bool)}
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Create(ctx context.Context, review *models.Review) error {
	if f.byOrder[review.OrderID] {
		return fmt.Errorf("duplicate key value violates unique constraint %q", orderConstraint)
	}
	review.ID = uuid.New()
	f.byOrder[review.OrderID] = true
	f.reviews = append(f.reviews, *review)
	return nil
}

func (f *fakeRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Review, error) {
	for _, review := range f.reviews {
		if review.OrderID == orderID {
			copied := review
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) ListByVendor(ctx context.Context, vendorID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Review, *pagination.Cursor, error) {
	var out []models.Review
	for _, review := range f.reviews {
		if review.VendorID == vendorID {
			out = append(out, review)
		}
	}
	return out, nil, nil
}

func (f *fakeRepository) VendorRatings(ctx context.Context, vendorID uuid.UUID) ([]int, error) {
	var ratings []int
	for _, review := range f.reviews {
		if review.VendorID == vendorID {
			ratings = append(ratings, review.VendorRating)
		}
	}
	return ratings, nil
}

func (f *fakeRepository) RiderRatings(ctx context.Context, riderID uuid.UUID) ([]int, error) {
	var ratings []int
	for _, review := range f.reviews {
		if review.RiderID != nil && *review.RiderID == riderID && review.RiderRating != nil {
			ratings = append(ratings, *review.RiderRating)
		}
	}
	return ratings, nil
}

func (f *fakeRepository) DistinctVendorIDs(ctx context.Context) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, review := range f.reviews {
		if !seen[review.VendorID] {
			seen[review.VendorID] = true
			ids = append(ids, review.VendorID)
		}
	}
	return ids, nil
}

func (f *fakeRepository) DistinctRiderIDs(ctx context.Context) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, review := range f.reviews {
		if review.RiderID != nil && !seen[*review.RiderID] {
			seen[*review.RiderID] = true
			ids = append(ids, *review.RiderID)
		}
	}
	return ids, nil
}

type fakeOrders struct {
	orders map[uuid.UUID]*models.Order
	marked int
}

func (f *fakeOrders) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *order
	return &copied, nil
}

func (f *fakeOrders) MarkHasReview(ctx context.Context, id uuid.UUID) (int64, error) {
	order, ok := f.orders[id]
	if !ok || order.HasReview {
		return 0, nil
	}
	order.HasReview = true
	f.marked++
	return 1, nil
}

type ratingUpdate struct {
	rating float64
	count  int
}

type fakeVendorSink struct {
	vendors map[uuid.UUID]*models.Vendor
	updates map[uuid.UUID]ratingUpdate
}

func (f *fakeVendorSink) FindByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	vendor, ok := f.vendors[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return vendor, nil
}

func (f *fakeVendorSink) UpdateRating(ctx context.Context, id uuid.UUID, rating float64, reviewCount int) error {
	f.updates[id] = ratingUpdate{rating: rating, count: reviewCount}
	return nil
}

type fakeRiderSink struct {
	updates map[uuid.UUID]ratingUpdate
}

func (f *fakeRiderSink) UpdateRating(ctx context.Context, id uuid.UUID, rating float64, reviewCount int) error {
	f.updates[id] = ratingUpdate{rating: rating, count: reviewCount}
	return nil
}

type fakeDispatcher struct {
	dispatched []notifications.DispatchInput
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, input notifications.DispatchInput) (*models.Notification, error) {
	f.dispatched = append(f.dispatched, input)
	return &models.Notification{ID: uuid.New()}, nil
}

type fixture struct {
	svc        Service
	repo       *fakeRepository
	orders     *fakeOrders
	vendorSink *fakeVendorSink
	riderSink  *fakeRiderSink
	dispatcher *fakeDispatcher

	customerID uuid.UUID
	vendorID   uuid.UUID
	vendorUser uuid.UUID
	riderID    uuid.UUID
	orderID    uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		repo:       newFakeRepository(),
		dispatcher: &fakeDispatcher{},
		customerID: uuid.New(),
		vendorID:   uuid.New(),
		vendorUser: uuid.New(),
		riderID:    uuid.New(),
		orderID:    uuid.New(),
	}
	riderID := f.riderID
	f.orders = &fakeOrders{orders: map[uuid.UUID]*models.Order{
		f.orderID: {
			ID:         f.orderID,
			CustomerID: f.customerID,
			VendorID:   f.vendorID,
			RiderID:    &riderID,
			Status:     enums.OrderStatusDelivered,
		},
	}}
	f.vendorSink = &fakeVendorSink{
		vendors: map[uuid.UUID]*models.Vendor{
			f.vendorID: {ID: f.vendorID, UserID: f.vendorUser, BusinessName: "Mama Kitchen"},
		},
		updates: make(map[uuid.UUID]ratingUpdate),
	}
	f.riderSink = &fakeRiderSink{updates: make(map[uuid.UUID]ratingUpdate)}

	svc, err := NewService(f.repo, f.orders, f.vendorSink, f.riderSink, f.dispatcher,
		logger.New(logger.Options{Level: zerolog.ErrorLevel}))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	f.svc = svc
	return f
}

func TestSubmitUpdatesAggregates(t *testing.T) {
	f := newFixture(t)

	riderRating := 4
	review, err := f.svc.Submit(context.Background(), SubmitInput{
		CustomerID:   f.customerID,
		OrderID:      f.orderID,
		VendorRating: 5,
		RiderRating:  &riderRating,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if review.RiderID == nil || *review.RiderID != f.riderID {
		t.Fatalf("rider not attached to review")
	}

	vendorUpdate, ok := f.vendorSink.updates[f.vendorID]
	if !ok || vendorUpdate.rating != 5.0 || vendorUpdate.count != 1 {
		t.Fatalf("vendor aggregate = %+v, want rating 5.0 count 1", vendorUpdate)
	}
	riderUpdate, ok := f.riderSink.updates[f.riderID]
	if !ok || riderUpdate.rating != 4.0 || riderUpdate.count != 1 {
		t.Fatalf("rider aggregate = %+v, want rating 4.0 count 1", riderUpdate)
	}
	if f.orders.marked != 1 {
		t.Fatalf("order not marked as reviewed")
	}
	if len(f.dispatcher.dispatched) != 1 || f.dispatcher.dispatched[0].Type != enums.NotificationTypeReviewReceived {
		t.Fatalf("expected one review_received notification, got %+v", f.dispatcher.dispatched)
	}
	if f.dispatcher.dispatched[0].UserID != f.vendorUser {
		t.Fatalf("notification went to %s, want vendor user", f.dispatcher.dispatched[0].UserID)
	}
}

func TestSubmitRoundsMeanToOneDecimal(t *testing.T) {
	f := newFixture(t)

	// Seed two earlier reviews for the same vendor on other orders.
	for _, rating := range []int{5, 4} {
		otherOrder := uuid.New()
		f.orders.orders[otherOrder] = &models.Order{
			ID: otherOrder, CustomerID: f.customerID, VendorID: f.vendorID, Status: enums.OrderStatusDelivered,
		}
		if _, err := f.svc.Submit(context.Background(), SubmitInput{
			CustomerID: f.customerID, OrderID: otherOrder, VendorRating: rating,
		}); err != nil {
			t.Fatalf("seed review: %v", err)
		}
	}

	if _, err := f.svc.Submit(context.Background(), SubmitInput{
		CustomerID: f.customerID, OrderID: f.orderID, VendorRating: 5,
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// (5 + 4 + 5) / 3 = 4.666..., stored as 4.7.
	update := f.vendorSink.updates[f.vendorID]
	if update.rating != 4.7 || update.count != 3 {
		t.Fatalf("aggregate = %+v, want rating 4.7 count 3", update)
	}
}

func TestSubmitRejectsDuplicate(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.Submit(context.Background(), SubmitInput{
		CustomerID: f.customerID, OrderID: f.orderID, VendorRating: 5,
	}); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	_, err := f.svc.Submit(context.Background(), SubmitInput{
		CustomerID: f.customerID, OrderID: f.orderID, VendorRating: 1,
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeDuplicateReview {
		t.Fatalf("err = %v, want duplicate review", err)
	}
	if len(f.repo.reviews) != 1 {
		t.Fatalf("duplicate review persisted")
	}
}

func TestSubmitGuards(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		input SubmitInput
		setup func()
		code  pkgerrors.Code
	}{
		{
			name:  "rating out of range",
			input: SubmitInput{CustomerID: f.customerID, OrderID: f.orderID, VendorRating: 6},
			code:  pkgerrors.CodeValidation,
		},
		{
			name:  "foreign order",
			input: SubmitInput{CustomerID: uuid.New(), OrderID: f.orderID, VendorRating: 5},
			code:  pkgerrors.CodeForbidden,
		},
		{
			name:  "order not delivered",
			input: SubmitInput{CustomerID: f.customerID, OrderID: f.orderID, VendorRating: 5},
			setup: func() { f.orders.orders[f.orderID].Status = enums.OrderStatusInTransit },
			code:  pkgerrors.CodeStateConflict,
		},
		{
			name:  "unknown order",
			input: SubmitInput{CustomerID: f.customerID, OrderID: uuid.New(), VendorRating: 5},
			code:  pkgerrors.CodeNotFound,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if test.setup != nil {
				test.setup()
			}
			_, err := f.svc.Submit(context.Background(), test.input)
			if pkgerrors.CodeOf(err) != test.code {
				t.Fatalf("err = %v, want code %s", err, test.code)
			}
		})
	}
}

func TestReconcileRecomputesAll(t *testing.T) {
	f := newFixture(t)

	riderRating := 3
	if _, err := f.svc.Submit(context.Background(), SubmitInput{
		CustomerID: f.customerID, OrderID: f.orderID, VendorRating: 4, RiderRating: &riderRating,
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// Clear the per-submit updates and confirm reconcile rebuilds them.
	f.vendorSink.updates = make(map[uuid.UUID]ratingUpdate)
	f.riderSink.updates = make(map[uuid.UUID]ratingUpdate)

	if err := f.svc.Reconcile(context.Background()); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if update := f.vendorSink.updates[f.vendorID]; update.rating != 4.0 || update.count != 1 {
		t.Fatalf("vendor aggregate = %+v after reconcile", update)
	}
	if update := f.riderSink.updates[f.riderID]; update.rating != 3.0 || update.count != 1 {
		t.Fatalf("rider aggregate = %+v after reconcile", update)
	}
}
