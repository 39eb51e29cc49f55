package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeOrderNew               NotificationType = "order_new"
	NotificationTypeOrderPendingAcceptance NotificationType = "order_pending_acceptance"
	NotificationTypeOrderPreparing         NotificationType = "order_preparing"
	NotificationTypeOrderReadyForPickup    NotificationType = "order_ready_for_pickup"
	NotificationTypeOrderInTransit         NotificationType = "order_in_transit"
	NotificationTypeOrderDelivered         NotificationType = "order_delivered"
	NotificationTypeOrderCanceled          NotificationType = "order_canceled"
	NotificationTypeWalletTopup            NotificationType = "wallet_topup"
	NotificationTypePayoutUpdate           NotificationType = "payout_update"
	NotificationTypeReviewReceived         NotificationType = "review_received"
	NotificationTypeSystemAnnouncement     NotificationType = "system_announcement"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrderNew,
	NotificationTypeOrderPendingAcceptance,
	NotificationTypeOrderPreparing,
	NotificationTypeOrderReadyForPickup,
	NotificationTypeOrderInTransit,
	NotificationTypeOrderDelivered,
	NotificationTypeOrderCanceled,
	NotificationTypeWalletTopup,
	NotificationTypePayoutUpdate,
	NotificationTypeReviewReceived,
	NotificationTypeSystemAnnouncement,
}

// NotificationTypeForOrderStatus maps an order status to the notification
// type fanned out to the customer when the order reaches that status.
func NotificationTypeForOrderStatus(status OrderStatus) NotificationType {
	switch status {
	case OrderStatusNewOrder:
		return NotificationTypeOrderNew
	case OrderStatusPendingAcceptance:
		return NotificationTypeOrderPendingAcceptance
	case OrderStatusPreparing:
		return NotificationTypeOrderPreparing
	case OrderStatusReadyForPickup:
		return NotificationTypeOrderReadyForPickup
	case OrderStatusInTransit:
		return NotificationTypeOrderInTransit
	case OrderStatusDelivered:
		return NotificationTypeOrderDelivered
	case OrderStatusCanceled:
		return NotificationTypeOrderCanceled
	}
	return NotificationTypeSystemAnnouncement
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
