package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
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

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type walletDebiter interface {
	DebitInTx(ctx context.Context, tx *gorm.DB, input wallet.DebitInput) (*models.WalletTransaction, error)
}

type productSource interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

type vendorSource interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Vendor, error)
}

type riderSource interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Rider, error)
}

// Service defines order lifecycle operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Order, error)
	Get(ctx context.Context, input GetInput) (*models.Order, error)
	Transition(ctx context.Context, input TransitionInput) (*models.Order, error)
	UpdateRiderLocation(ctx context.Context, input RiderLocationInput) error
	List(ctx context.Context, params ListParams) (*ListResult, error)
}

type service struct {
	repo        Repository
	tx          txRunner
	wallets     walletDebiter
	products    productSource
	vendors     vendorSource
	riders      riderSource
	dispatcher  notifications.Dispatcher
	logg        *logger.Logger
	deliveryFee decimal.Decimal
}

// Deps bundles the collaborators the orders service needs.
type Deps struct {
	Repo        Repository
	Tx          txRunner
	Wallets     walletDebiter
	Products    productSource
	Vendors     vendorSource
	Riders      riderSource
	Dispatcher  notifications.Dispatcher
	Logger      *logger.Logger
	DeliveryFee decimal.Decimal
}

// ItemInput selects a product and quantity at order time.
type ItemInput struct {
	ProductID uuid.UUID
	Qty       int
}

// CreateInput places a new order paid from the customer's wallet.
type CreateInput struct {
	CustomerID      uuid.UUID
	VendorID        uuid.UUID
	Items           []ItemInput
	DeliveryAddress string
}

// GetInput scopes an order read to the requesting actor.
type GetInput struct {
	OrderID     uuid.UUID
	ActorUserID uuid.UUID
	ActorRole   enums.UserRole
}

// TransitionInput moves an order to the next status on behalf of an actor.
type TransitionInput struct {
	OrderID     uuid.UUID
	ActorUserID uuid.UUID
	ActorRole   enums.UserRole
	Next        enums.OrderStatus
}

// RiderLocationInput updates the live position shown to the customer.
type RiderLocationInput struct {
	OrderID     uuid.UUID
	RiderUserID uuid.UUID
	Lat         float64
	Lng         float64
}

// ListParams pages orders scoped to one actor.
type ListParams struct {
	ActorUserID uuid.UUID
	ActorRole   enums.UserRole
	Status      *enums.OrderStatus
	Limit       int
	Cursor      string
}

// ListResult wraps orders and the cursor for the next page.
type ListResult struct {
	Items  []models.Order `json:"items"`
	Cursor string         `json:"cursor"`
}

// transitionRoles maps each target status to the roles allowed to set it.
var transitionRoles = map[enums.OrderStatus][]enums.UserRole{
	enums.OrderStatusPendingAcceptance: {enums.UserRoleCustomer, enums.UserRoleAdmin},
	enums.OrderStatusPreparing:         {enums.UserRoleVendor, enums.UserRoleAdmin},
	enums.OrderStatusReadyForPickup:    {enums.UserRoleRider, enums.UserRoleAdmin},
	enums.OrderStatusInTransit:         {enums.UserRoleRider, enums.UserRoleAdmin},
	enums.OrderStatusDelivered:         {enums.UserRoleRider, enums.UserRoleAdmin},
	enums.OrderStatusCanceled:          {enums.UserRoleCustomer, enums.UserRoleVendor, enums.UserRoleAdmin},
}

var statusMessages = map[enums.OrderStatus]string{
	enums.OrderStatusPendingAcceptance: "Your order is awaiting vendor acceptance",
	enums.OrderStatusPreparing:         "The vendor is preparing your order",
	enums.OrderStatusReadyForPickup:    "Your order is ready and a rider is on the way",
	enums.OrderStatusInTransit:         "Your order is on its way",
	enums.OrderStatusDelivered:         "Your order has been delivered",
	enums.OrderStatusCanceled:          "Your order has been canceled",
}

// NewService wires order dependencies.
func NewService(deps Deps) (Service, error) {
	switch {
	case deps.Repo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	case deps.Tx == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	case deps.Wallets == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "wallet service required")
	case deps.Products == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "products source required")
	case deps.Vendors == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "vendors source required")
	case deps.Riders == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "riders source required")
	case deps.Logger == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		repo:        deps.Repo,
		tx:          deps.Tx,
		wallets:     deps.Wallets,
		products:    deps.Products,
		vendors:     deps.Vendors,
		riders:      deps.Riders,
		dispatcher:  deps.Dispatcher,
		logg:        deps.Logger,
		deliveryFee: deps.DeliveryFee,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Order, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if input.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order needs at least one item")
	}
	if input.DeliveryAddress == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery address required")
	}

	vendor, err := s.vendors.FindByID(ctx, input.VendorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
	}
	if !vendor.Open {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "vendor is closed")
	}

	items, total, err := s.snapshotItems(ctx, vendor.ID, input.Items)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		ID:              uuid.New(),
		CustomerID:      input.CustomerID,
		VendorID:        vendor.ID,
		Status:          enums.OrderStatusNewOrder,
		TotalAmount:     total,
		DeliveryFee:     s.deliveryFee,
		DeliveryAddress: input.DeliveryAddress,
		OrderDate:       time.Now().UTC(),
		Items:           items,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		_, err := s.wallets.DebitInTx(ctx, tx, wallet.DebitInput{
			UserID:    input.CustomerID,
			Amount:    total.Add(s.deliveryFee),
			Reference: "order:" + order.ID.String(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, vendor.UserID, enums.NotificationTypeOrderNew, "New order received",
		fmt.Sprintf("A new order worth %s is waiting for you", total.StringFixed(2)), order.ID)
	return order, nil
}

func (s *service) snapshotItems(ctx context.Context, vendorID uuid.UUID, inputs []ItemInput) ([]models.OrderItem, decimal.Decimal, error) {
	ids := make([]uuid.UUID, 0, len(inputs))
	for _, item := range inputs {
		if item.Qty <= 0 {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
		ids = append(ids, item.ProductID)
	}

	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, product := range products {
		byID[product.ID] = product
	}

	items := make([]models.OrderItem, 0, len(inputs))
	total := decimal.Zero
	for _, item := range inputs {
		product, ok := byID[item.ProductID]
		if !ok {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", item.ProductID))
		}
		if product.VendorID != vendorID {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("product %s belongs to another vendor", product.ID))
		}
		if !product.Available {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("product %q is unavailable", product.Name))
		}

		productID := product.ID
		items = append(items, models.OrderItem{
			ProductID: &productID,
			Name:      product.Name,
			Qty:       item.Qty,
			UnitPrice: product.Price,
		})
		total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(item.Qty))))
	}
	return items, total, nil
}

func (s *service) Get(ctx context.Context, input GetInput) (*models.Order, error) {
	order, err := s.loadOrder(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeRead(ctx, order, input.ActorUserID, input.ActorRole); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) Transition(ctx context.Context, input TransitionInput) (*models.Order, error) {
	order, err := s.loadOrder(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}

	allowed, ok := transitionRoles[input.Next]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("cannot transition into %q", input.Next))
	}
	if !roleAllowed(allowed, input.ActorRole) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, fmt.Sprintf("role %s may not set status %s", input.ActorRole, input.Next))
	}
	if !order.Status.CanTransitionTo(input.Next) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("illegal transition from %s to %s", order.Status, input.Next))
	}

	extra := map[string]any{}
	now := time.Now().UTC()
	switch input.Next {
	case enums.OrderStatusDelivered:
		extra["delivered_at"] = now
	case enums.OrderStatusCanceled:
		extra["canceled_at"] = now
	}

	if err := s.authorizeTransition(ctx, order, input, extra); err != nil {
		return nil, err
	}

	affected, err := s.repo.UpdateStatus(ctx, order.ID, order.Status, input.Next, extra)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
	}

	notificationType := enums.NotificationTypeForOrderStatus(input.Next)
	s.notify(ctx, order.CustomerID, notificationType, "Order update", statusMessages[input.Next], order.ID)

	return s.loadOrder(ctx, order.ID)
}

// authorizeTransition enforces ownership per role and resolves rider claims.
func (s *service) authorizeTransition(ctx context.Context, order *models.Order, input TransitionInput, extra map[string]any) error {
	switch input.ActorRole {
	case enums.UserRoleAdmin:
		return nil

	case enums.UserRoleCustomer:
		if order.CustomerID != input.ActorUserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another customer")
		}
		return nil

	case enums.UserRoleVendor:
		vendor, err := s.vendors.FindByUserID(ctx, input.ActorUserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor profile")
		}
		if order.VendorID != vendor.ID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another vendor")
		}
		return nil

	case enums.UserRoleRider:
		rider, err := s.riders.FindByUserID(ctx, input.ActorUserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rider profile")
		}
		if order.RiderID == nil {
			// First rider action claims the order.
			if input.Next != enums.OrderStatusReadyForPickup {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no assigned rider")
			}
			extra["rider_id"] = rider.ID
			return nil
		}
		if *order.RiderID != rider.ID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order is assigned to another rider")
		}
		return nil

	default:
		return pkgerrors.New(pkgerrors.CodeForbidden, fmt.Sprintf("unknown role %q", input.ActorRole))
	}
}

func (s *service) authorizeRead(ctx context.Context, order *models.Order, actorUserID uuid.UUID, role enums.UserRole) error {
	switch role {
	case enums.UserRoleAdmin:
		return nil
	case enums.UserRoleCustomer:
		if order.CustomerID == actorUserID {
			return nil
		}
	case enums.UserRoleVendor:
		vendor, err := s.vendors.FindByUserID(ctx, actorUserID)
		if err == nil && order.VendorID == vendor.ID {
			return nil
		}
	case enums.UserRoleRider:
		rider, err := s.riders.FindByUserID(ctx, actorUserID)
		if err == nil && order.RiderID != nil && *order.RiderID == rider.ID {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "order not visible to this account")
}

func (s *service) UpdateRiderLocation(ctx context.Context, input RiderLocationInput) error {
	if input.Lat < -90 || input.Lat > 90 || input.Lng < -180 || input.Lng > 180 {
		return pkgerrors.New(pkgerrors.CodeValidation, "coordinates out of range")
	}

	order, err := s.loadOrder(ctx, input.OrderID)
	if err != nil {
		return err
	}
	rider, err := s.riders.FindByUserID(ctx, input.RiderUserID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rider profile")
	}
	if order.RiderID == nil || *order.RiderID != rider.ID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "order is assigned to another rider")
	}
	if order.Status != enums.OrderStatusInTransit && order.Status != enums.OrderStatusReadyForPickup {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not out for delivery")
	}

	if err := s.repo.UpdateRiderLocation(ctx, order.ID, input.Lat, input.Lng); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update rider location")
	}
	return nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	query := listOrdersParams{Status: params.Status, Limit: params.Limit}
	switch params.ActorRole {
	case enums.UserRoleCustomer:
		query.CustomerID = &params.ActorUserID
	case enums.UserRoleVendor:
		vendor, err := s.vendors.FindByUserID(ctx, params.ActorUserID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor profile")
		}
		query.VendorID = &vendor.ID
	case enums.UserRoleRider:
		rider, err := s.riders.FindByUserID(ctx, params.ActorUserID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rider profile")
		}
		query.RiderID = &rider.ID
	case enums.UserRoleAdmin:
		// unscoped
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, fmt.Sprintf("unknown role %q", params.ActorRole))
	}

	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	result := &ListResult{Items: rows}
	if next != nil {
		result.Cursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

func (s *service) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// notify is best-effort; order mutations never fail because of it.
func (s *service) notify(ctx context.Context, userID uuid.UUID, ntype enums.NotificationType, title, message string, orderID uuid.UUID) {
	if s.dispatcher == nil {
		return
	}
	_, err := s.dispatcher.Dispatch(ctx, notifications.DispatchInput{
		UserID:  userID,
		Type:    ntype,
		Title:   title,
		Message: message,
		Data:    map[string]any{"order_id": orderID.String()},
	})
	if err != nil {
		s.logg.Warn(s.logg.WithField(s.logg.WithOrderID(ctx, orderID.String()), "error", err.Error()), "order notification failed")
	}
}

func roleAllowed(allowed []enums.UserRole, role enums.UserRole) bool {
	for _, candidate := range allowed {
		if candidate == role {
			return true
		}
	}
	return false
}
