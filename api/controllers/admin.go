package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/swifteats/swifteats-backend/api/responses"
	"github.com/swifteats/swifteats-backend/api/validators"
	pkgerrors "github.com/swifteats/swifteats-backend/pkg/errors"
	"github.com/swifteats/swifteats-backend/pkg/logger"
)

type accountDeactivator interface {
	SetActive(ctx context.Context, userID uuid.UUID, active bool) error
}

type setUserActiveRequest struct {
	Active bool `json:"active"`
}

// AdminSetUserActive enables or disables an account. Disabled accounts
// fail login and token refresh.
func AdminSetUserActive(svc accountDeactivator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		userID, err := pathUUID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body setUserActiveRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SetActive(r.Context(), userID, body.Active); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"active": body.Active})
	}
}
