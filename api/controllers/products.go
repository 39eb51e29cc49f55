package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/swifteats/swifteats-backend/api/responses"
	"github.com/swifteats/swifteats-backend/api/validators"
	productsvc "github.com/swifteats/swifteats-backend/internal/products"
	"github.com/swifteats/swifteats-backend/pkg/db/models"
	pkgerrors "github.com/swifteats/swifteats-backend/pkg/errors"
	"github.com/swifteats/swifteats-backend/pkg/logger"
	"github.com/swifteats/swifteats-backend/pkg/pagination"
)

type productsService interface {
	Create(ctx context.Context, input productsvc.CreateInput) (*models.Product, error)
	Get(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	Update(ctx context.Context, input productsvc.UpdateInput) (*models.Product, error)
	Delete(ctx context.Context, vendorID, productID uuid.UUID) error
	ListByVendor(ctx context.Context, params productsvc.ListParams) (*productsvc.ListResult, error)
}

// vendorProfileSource resolves the vendor profile behind an authenticated
// vendor user.
type vendorProfileSource interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Vendor, error)
}

func callerVendorID(r *http.Request, vendors vendorProfileSource) (uuid.UUID, error) {
	userID, err := actorID(r)
	if err != nil {
		return uuid.Nil, err
	}
	vendor, err := vendors.GetByUserID(r.Context(), userID)
	if err != nil {
		return uuid.Nil, err
	}
	return vendor.ID, nil
}

type createProductRequest struct {
	Name        string          `json:"name" validate:"required"`
	Description *string         `json:"description,omitempty"`
	Category    string          `json:"category" validate:"required"`
	Price       decimal.Decimal `json:"price" validate:"required"`
	ImageURL    *string         `json:"image_url,omitempty"`
}

// VendorCreateProduct adds a catalog entry to the caller's menu.
func VendorCreateProduct(svc productsService, vendors vendorProfileSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || vendors == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products service unavailable"))
			return
		}

		vendorID, err := callerVendorID(r, vendors)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Create(r.Context(), productsvc.CreateInput{
			VendorID:    vendorID,
			Name:        strings.TrimSpace(body.Name),
			Description: body.Description,
			Category:    strings.TrimSpace(body.Category),
			Price:       body.Price,
			ImageURL:    body.ImageURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

type updateProductRequest struct {
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	ImageURL    *string          `json:"image_url,omitempty"`
	Available   *bool            `json:"available,omitempty"`
}

// VendorUpdateProduct mutates an entry on the caller's menu. Absent fields
// are left unchanged.
func VendorUpdateProduct(svc productsService, vendors vendorProfileSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || vendors == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products service unavailable"))
			return
		}

		vendorID, err := callerVendorID(r, vendors)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Update(r.Context(), productsvc.UpdateInput{
			VendorID:    vendorID,
			ProductID:   productID,
			Name:        body.Name,
			Description: body.Description,
			Category:    body.Category,
			Price:       body.Price,
			ImageURL:    body.ImageURL,
			Available:   body.Available,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// VendorDeleteProduct removes an entry from the caller's menu.
func VendorDeleteProduct(svc productsService, vendors vendorProfileSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || vendors == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products service unavailable"))
			return
		}

		vendorID, err := callerVendorID(r, vendors)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), vendorID, productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

// GetProduct returns one catalog entry.
func GetProduct(svc productsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products service unavailable"))
			return
		}

		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Get(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// ListVendorProducts pages a vendor's catalog. Public callers see available
// entries only unless they ask otherwise.
func ListVendorProducts(svc productsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products service unavailable"))
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

		params := productsvc.ListParams{
			VendorID:      vendorID,
			AvailableOnly: true,
			Category:      strings.TrimSpace(r.URL.Query().Get("category")),
			Limit:         limit,
			Cursor:        strings.TrimSpace(r.URL.Query().Get("cursor")),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("availableOnly")); raw != "" {
			value, err := strconv.ParseBool(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid availableOnly value"))
				return
			}
			params.AvailableOnly = value
		}

		result, err := svc.ListByVendor(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
