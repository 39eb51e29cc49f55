package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/swifteats/swifteats-backend/api/responses"
	"github.com/swifteats/swifteats-backend/api/validators"
	"github.com/swifteats/swifteats-backend/internal/reviews"
	"github.com/swifteats/swifteats-backend/pkg/db/models"
	pkgerrors "github.com/swifteats/swifteats-backend/pkg/errors"
	"github.com/swifteats/swifteats-backend/pkg/logger"
	"github.com/swifteats/swifteats-backend/pkg/pagination"
)

const maxReviewCommentLen = 1000

type reviewsService interface {
	Submit(ctx context.Context, input reviews.SubmitInput) (*models.Review, error)
	ListByVendor(ctx context.Context, params reviews.ListParams) (*reviews.ListResult, error)
}

type submitReviewRequest struct {
	OrderID      uuid.UUID `json:"order_id" validate:"required"`
	VendorRating int       `json:"vendor_rating" validate:"required,min=1,max=5"`
	RiderRating  *int      `json:"rider_rating,omitempty" validate:"omitempty,min=1,max=5"`
	Comment      *string   `json:"comment,omitempty"`
}

// SubmitReview records a one-per-order rating for a delivered order.
func SubmitReview(svc reviewsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reviews service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body submitReviewRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if body.Comment != nil {
			clean := validators.SanitizeString(*body.Comment, maxReviewCommentLen)
			body.Comment = &clean
		}

		review, err := svc.Submit(r.Context(), reviews.SubmitInput{
			CustomerID:   userID,
			OrderID:      body.OrderID,
			VendorRating: body.VendorRating,
			RiderRating:  body.RiderRating,
			Comment:      body.Comment,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, review)
	}
}

// ListVendorReviews pages a vendor's reviews, newest first.
func ListVendorReviews(svc reviewsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reviews service unavailable"))
			return
		}

		vendorID, err := pathUUID(r, "vendorId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListByVendor(r.Context(), reviews.ListParams{
			VendorID: vendorID,
			Limit:    limit,
			Cursor:   strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
