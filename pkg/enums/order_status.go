package enums

import "fmt"

// OrderStatus maps to the order_status enum in Postgres.
type OrderStatus string

const (
	OrderStatusNewOrder          OrderStatus = "new_order"
	OrderStatusPendingAcceptance OrderStatus = "pending_acceptance"
	OrderStatusPreparing         OrderStatus = "preparing"
	OrderStatusReadyForPickup    OrderStatus = "ready_for_pickup"
	OrderStatusInTransit         OrderStatus = "in_transit"
	OrderStatusDelivered         OrderStatus = "delivered"
	OrderStatusCanceled          OrderStatus = "canceled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusNewOrder,
	OrderStatusPendingAcceptance,
	OrderStatusPreparing,
	OrderStatusReadyForPickup,
	OrderStatusInTransit,
	OrderStatusDelivered,
	OrderStatusCanceled,
}

// orderStatusRank orders the normal delivery flow so transitions stay monotonic.
var orderStatusRank = map[OrderStatus]int{
	OrderStatusNewOrder:          0,
	OrderStatusPendingAcceptance: 1,
	OrderStatusPreparing:         2,
	OrderStatusReadyForPickup:    3,
	OrderStatusInTransit:         4,
	OrderStatusDelivered:         5,
}

// IsValid checks whether the given status matches the canonical enum.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed from the status.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCanceled
}

// CanTransitionTo reports whether moving from s to next honors the delivery flow.
// Canceled is reachable from any non-terminal state; every other move must be
// the immediate next step in the sequence.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if !s.IsValid() || !next.IsValid() {
		return false
	}
	if s.IsTerminal() {
		return false
	}
	if next == OrderStatusCanceled {
		return true
	}
	from, ok := orderStatusRank[s]
	if !ok {
		return false
	}
	to, ok := orderStatusRank[next]
	if !ok {
		return false
	}
	return to == from+1
}

// ParseOrderStatus converts raw strings into OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
