package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/swifteats/swifteats-backend/api/responses"
	"github.com/swifteats/swifteats-backend/api/validators"
	"github.com/swifteats/swifteats-backend/internal/riders"
	"github.com/swifteats/swifteats-backend/pkg/db/models"
	pkgerrors "github.com/swifteats/swifteats-backend/pkg/errors"
	"github.com/swifteats/swifteats-backend/pkg/logger"
)

type ridersService interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Rider, error)
	SetAvailability(ctx context.Context, userID uuid.UUID, available bool) error
	UpdateLocation(ctx context.Context, input riders.UpdateLocationInput) error
	ListAvailable(ctx context.Context) ([]models.Rider, error)
}

// MyRiderProfile returns the caller's rider profile.
func MyRiderProfile(svc ridersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "riders service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rider, err := svc.GetByUserID(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rider)
	}
}

type setAvailabilityRequest struct {
	Available bool `json:"available"`
}

// SetRiderAvailability toggles whether the caller accepts delivery work.
func SetRiderAvailability(svc ridersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "riders service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body setAvailabilityRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SetAvailability(r.Context(), userID, body.Available); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"available": body.Available})
	}
}

// UpdateRiderPosition records the caller's current coordinates.
func UpdateRiderPosition(svc ridersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "riders service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body riderLocationRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.UpdateLocation(r.Context(), riders.UpdateLocationInput{
			UserID: userID,
			Lat:    body.Lat,
			Lng:    body.Lng,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"updated": true})
	}
}

// ListAvailableRiders returns riders currently open for assignments.
func ListAvailableRiders(svc ridersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "riders service unavailable"))
			return
		}

		riderList, err := svc.ListAvailable(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": riderList})
	}
}
