package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/swifteats/swifteats-backend/api/middleware"
	"github.com/swifteats/swifteats-backend/pkg/enums"
	pkgerrors "github.com/swifteats/swifteats-backend/pkg/errors"
)

// actorID returns the authenticated user's id from the request context.
func actorID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return id, nil
}

func actorRole(r *http.Request) (enums.UserRole, error) {
	raw := middleware.RoleFromContext(r.Context())
	if raw == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "role context missing")
	}
	role, err := enums.ParseUserRole(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "unknown role")
	}
	return role, nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, name+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}
