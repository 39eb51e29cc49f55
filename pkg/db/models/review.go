package models

import (
	"time"

	"github.com/google/uuid"
)

// Review rates the vendor (and optionally the rider) of a delivered order.
// At most one review exists per order, enforced by the unique index.
type Review struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID      uuid.UUID  `gorm:"column:order_id;type:uuid;uniqueIndex:reviews_order_id_key;not null"`
	CustomerID   uuid.UUID  `gorm:"column:customer_id;type:uuid;not null"`
	VendorID     uuid.UUID  `gorm:"column:vendor_id;type:uuid;not null;index"`
	RiderID      *uuid.UUID `gorm:"column:rider_id;type:uuid;index"`
	VendorRating int        `gorm:"column:vendor_rating;not null"`
	RiderRating  *int       `gorm:"column:rider_rating"`
	Comment      *string    `gorm:"column:comment"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
}
