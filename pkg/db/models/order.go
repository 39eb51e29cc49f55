package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/swifteats/swifteats-backend/pkg/enums"
)

// Order is owned jointly by the customer, the vendor, and (once assigned)
// the rider; each role mutates only the fields relevant to it.
type Order struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID      uuid.UUID         `gorm:"column:customer_id;type:uuid;not null;index"`
	VendorID        uuid.UUID         `gorm:"column:vendor_id;type:uuid;not null;index"`
	RiderID         *uuid.UUID        `gorm:"column:rider_id;type:uuid;index"`
	Status          enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'new_order'"`
	TotalAmount     decimal.Decimal   `gorm:"column:total_amount;type:numeric(14,2);not null"`
	DeliveryFee     decimal.Decimal   `gorm:"column:delivery_fee;type:numeric(14,2);not null;default:0"`
	DeliveryAddress string            `gorm:"column:delivery_address;not null"`
	RiderLat        *float64          `gorm:"column:rider_lat"`
	RiderLng        *float64          `gorm:"column:rider_lng"`
	HasReview       bool              `gorm:"column:has_review;not null;default:false"`
	OrderDate       time.Time         `gorm:"column:order_date;not null"`
	DeliveredAt     *time.Time        `gorm:"column:delivered_at"`
	CanceledAt      *time.Time        `gorm:"column:canceled_at"`
	Items           []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem captures the snapshot of each product line within an order.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID *uuid.UUID      `gorm:"column:product_id;type:uuid"`
	Name      string          `gorm:"column:name;not null"`
	Qty       int             `gorm:"column:qty;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(14,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
