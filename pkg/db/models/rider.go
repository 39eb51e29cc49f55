package models

import (
	"time"

	"github.com/google/uuid"
)

// Rider is the delivery profile owned by a user with the rider role.
type Rider struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;uniqueIndex;not null"`
	VehicleType string    `gorm:"column:vehicle_type;not null"`
	Available   bool      `gorm:"column:available;not null;default:false"`
	Rating      float64   `gorm:"column:rating;type:numeric(3,1);not null;default:0"`
	ReviewCount int       `gorm:"column:review_count;not null;default:0"`
	CurrentLat  *float64  `gorm:"column:current_lat"`
	CurrentLng  *float64  `gorm:"column:current_lng"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
