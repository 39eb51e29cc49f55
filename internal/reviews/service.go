package reviews

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/swifteats/swifteats-backend/internal/notifications"
	"github.com/swifteats/swifteats-backend/pkg/db"
	"github.com/swifteats/swifteats-backend/pkg/db/models"
	"github.com/swifteats/swifteats-backend/pkg/enums"
	pkgerrors "github.com/swifteats/swifteats-backend/pkg/errors"
	"github.com/swifteats/swifteats-backend/pkg/logger"
	"github.com/swifteats/swifteats-backend/pkg/pagination"
)

const orderConstraint = "reviews_order_id_key"

type orderSource interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	MarkHasReview(ctx context.Context, id uuid.UUID) (int64, error)
}

type vendorRatingSink interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
	UpdateRating(ctx context.Context, id uuid.UUID, rating float64, reviewCount int) error
}

type riderRatingSink interface {
	UpdateRating(ctx context.Context, id uuid.UUID, rating float64, reviewCount int) error
}

// Service handles review submission and keeps aggregate ratings current.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*models.Review, error)
	ListByVendor(ctx context.Context, params ListParams) (*ListResult, error)
	// Reconcile recomputes every vendor and rider aggregate from the raw
	// review rows. Run from the cron worker to repair drift.
	Reconcile(ctx context.Context) error
}

type service struct {
	repo       Repository
	orders     orderSource
	vendors    vendorRatingSink
	riders     riderRatingSink
	dispatcher notifications.Dispatcher
	logg       *logger.Logger
}

// SubmitInput rates a delivered order. RiderRating is optional and only
// recorded when the order had a rider assigned.
type SubmitInput struct {
	CustomerID   uuid.UUID
	OrderID      uuid.UUID
	VendorRating int
	RiderRating  *int
	Comment      *string
}

// ListParams pages a vendor's reviews, newest first.
type ListParams struct {
	VendorID uuid.UUID
	Limit    int
	Cursor   string
}

// ListResult wraps reviews and the cursor for the next page.
type ListResult struct {
	Items  []models.Review `json:"items"`
	Cursor string          `json:"cursor"`
}

func NewService(repo Repository, orders orderSource, vendors vendorRatingSink, riders riderRatingSink, dispatcher notifications.Dispatcher, logg *logger.Logger) (Service, error) {
	switch {
	case repo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "reviews repository required")
	case orders == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders source required")
	case vendors == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "vendors sink required")
	case riders == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "riders sink required")
	case logg == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		repo:       repo,
		orders:     orders,
		vendors:    vendors,
		riders:     riders,
		dispatcher: dispatcher,
		logg:       logg,
	}, nil
}

func (s *service) Submit(ctx context.Context, input SubmitInput) (*models.Review, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.VendorRating < 1 || input.VendorRating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor rating must be between 1 and 5")
	}
	if input.RiderRating != nil && (*input.RiderRating < 1 || *input.RiderRating > 5) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rider rating must be between 1 and 5")
	}

	order, err := s.orders.FindByID(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.CustomerID != input.CustomerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another customer")
	}
	if order.Status != enums.OrderStatusDelivered {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only delivered orders can be reviewed")
	}

	review := &models.Review{
		OrderID:      order.ID,
		CustomerID:   order.CustomerID,
		VendorID:     order.VendorID,
		VendorRating: input.VendorRating,
		Comment:      input.Comment,
	}
	if input.RiderRating != nil && order.RiderID != nil {
		review.RiderID = order.RiderID
		review.RiderRating = input.RiderRating
	}

	if err := s.repo.Create(ctx, review); err != nil {
		if db.IsUniqueViolation(err, orderConstraint) {
			return nil, pkgerrors.New(pkgerrors.CodeDuplicateReview, "review already exists for this order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create review")
	}

	if _, err := s.orders.MarkHasReview(ctx, order.ID); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "mark order reviewed failed")
	}

	if err := s.recomputeVendor(ctx, order.VendorID); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "vendor rating recompute failed")
	}
	if review.RiderID != nil {
		if err := s.recomputeRider(ctx, *review.RiderID); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "rider rating recompute failed")
		}
	}

	s.notifyVendor(ctx, order.VendorID, review)
	return review, nil
}

func (s *service) ListByVendor(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}

	var cursor *pagination.Cursor
	if params.Cursor != "" {
		parsed, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		cursor = parsed
	}

	rows, next, err := s.repo.ListByVendor(ctx, params.VendorID, params.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}

	result := &ListResult{Items: rows}
	if next != nil {
		result.Cursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

func (s *service) Reconcile(ctx context.Context) error {
	var errs error

	vendorIDs, err := s.repo.DistinctVendorIDs(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list rated vendors")
	}
	for _, id := range vendorIDs {
		if err := s.recomputeVendor(ctx, id); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("vendor %s: %w", id, err))
		}
	}

	riderIDs, err := s.repo.DistinctRiderIDs(ctx)
	if err != nil {
		return multierr.Append(errs, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list rated riders"))
	}
	for _, id := range riderIDs {
		if err := s.recomputeRider(ctx, id); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("rider %s: %w", id, err))
		}
	}
	return errs
}

// recomputeVendor walks every rating for the vendor in a single pass and
// stores the mean rounded to one decimal.
func (s *service) recomputeVendor(ctx context.Context, vendorID uuid.UUID) error {
	ratings, err := s.repo.VendorRatings(ctx, vendorID)
	if err != nil {
		return err
	}
	mean, count := aggregate(ratings)
	return s.vendors.UpdateRating(ctx, vendorID, mean, count)
}

func (s *service) recomputeRider(ctx context.Context, riderID uuid.UUID) error {
	ratings, err := s.repo.RiderRatings(ctx, riderID)
	if err != nil {
		return err
	}
	mean, count := aggregate(ratings)
	return s.riders.UpdateRating(ctx, riderID, mean, count)
}

func aggregate(ratings []int) (float64, int) {
	if len(ratings) == 0 {
		return 0, 0
	}
	sum := 0
	for _, rating := range ratings {
		sum += rating
	}
	mean := float64(sum) / float64(len(ratings))
	return math.Round(mean*10) / 10, len(ratings)
}

func (s *service) notifyVendor(ctx context.Context, vendorID uuid.UUID, review *models.Review) {
	if s.dispatcher == nil {
		return
	}
	vendor, err := s.vendors.FindByID(ctx, vendorID)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "load vendor for review notification failed")
		return
	}
	_, err = s.dispatcher.Dispatch(ctx, notifications.DispatchInput{
		UserID:  vendor.UserID,
		Type:    enums.NotificationTypeReviewReceived,
		Title:   "New review",
		Message: fmt.Sprintf("A customer rated your store %d out of 5", review.VendorRating),
		Data:    map[string]any{"order_id": review.OrderID.String(), "review_id": review.ID.String()},
	})
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "review notification failed")
	}
}
