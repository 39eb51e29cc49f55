package models

import (
	"time"

	"github.com/google/uuid"
)

// Vendor is the storefront profile owned by a user with the vendor role.
// Rating and ReviewCount are derived from the review set by full recompute,
// not incrementally maintained.
type Vendor struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;uniqueIndex;not null"`
	BusinessName string    `gorm:"column:business_name;not null"`
	Description  *string   `gorm:"column:description"`
	Address      string    `gorm:"column:address;not null"`
	Phone        *string   `gorm:"column:phone"`
	LogoURL      *string   `gorm:"column:logo_url"`
	Open         bool      `gorm:"column:open;not null;default:true"`
	Rating       float64   `gorm:"column:rating;type:numeric(3,1);not null;default:0"`
	ReviewCount  int       `gorm:"column:review_count;not null;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
