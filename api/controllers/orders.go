package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/swifteats/swifteats-backend/api/responses"
	"github.com/swifteats/swifteats-backend/api/validators"
	internalorders "github.com/swifteats/swifteats-backend/internal/orders"
	"github.com/swifteats/swifteats-backend/pkg/db/models"
	"github.com/swifteats/swifteats-backend/pkg/enums"
	pkgerrors "github.com/swifteats/swifteats-backend/pkg/errors"
	"github.com/swifteats/swifteats-backend/pkg/logger"
	"github.com/swifteats/swifteats-backend/pkg/pagination"
)

type ordersService interface {
	Create(ctx context.Context, input internalorders.CreateInput) (*models.Order, error)
	Get(ctx context.Context, input internalorders.GetInput) (*models.Order, error)
	Transition(ctx context.Context, input internalorders.TransitionInput) (*models.Order, error)
	UpdateRiderLocation(ctx context.Context, input internalorders.RiderLocationInput) error
	List(ctx context.Context, params internalorders.ListParams) (*internalorders.ListResult, error)
}

type orderItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Qty       int       `json:"qty" validate:"required,gt=0"`
}

type createOrderRequest struct {
	VendorID        uuid.UUID          `json:"vendor_id" validate:"required"`
	Items           []orderItemRequest `json:"items" validate:"required,min=1,dive"`
	DeliveryAddress string             `json:"delivery_address" validate:"required"`
}

// CreateOrder places a new order paid from the customer's wallet.
func CreateOrder(svc ordersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]internalorders.ItemInput, 0, len(body.Items))
		for _, item := range body.Items {
			items = append(items, internalorders.ItemInput{ProductID: item.ProductID, Qty: item.Qty})
		}

		order, err := svc.Create(r.Context(), internalorders.CreateInput{
			CustomerID:      userID,
			VendorID:        body.VendorID,
			Items:           items,
			DeliveryAddress: strings.TrimSpace(body.DeliveryAddress),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// GetOrder returns one order scoped to the requesting actor.
func GetOrder(svc ordersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		role, err := actorRole(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), internalorders.GetInput{
			OrderID:     orderID,
			ActorUserID: userID,
			ActorRole:   role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// ListOrders pages orders visible to the caller's role.
func ListOrders(svc ordersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		role, err := actorRole(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := internalorders.ListParams{
			ActorUserID: userID,
			ActorRole:   role,
			Limit:       limit,
			Cursor:      strings.TrimSpace(r.URL.Query().Get("cursor")),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			params.Status = &status
		}

		result, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type transitionOrderRequest struct {
	Status string `json:"status" validate:"required"`
}

// TransitionOrderStatus advances an order through its lifecycle on behalf
// of the calling actor.
func TransitionOrderStatus(svc ordersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		role, err := actorRole(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body transitionOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		next, err := enums.ParseOrderStatus(strings.TrimSpace(body.Status))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target status"))
			return
		}

		order, err := svc.Transition(r.Context(), internalorders.TransitionInput{
			OrderID:     orderID,
			ActorUserID: userID,
			ActorRole:   role,
			Next:        next,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type riderLocationRequest struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

// UpdateOrderRiderLocation records the assigned rider's live position for
// an in-flight order.
func UpdateOrderRiderLocation(svc ordersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body riderLocationRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.UpdateRiderLocation(r.Context(), internalorders.RiderLocationInput{
			OrderID:     orderID,
			RiderUserID: userID,
			Lat:         body.Lat,
			Lng:         body.Lng,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"updated": true})
	}
}
