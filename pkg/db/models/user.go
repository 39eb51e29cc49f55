package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/swifteats/swifteats-backend/pkg/enums"
)

// User is a platform account. Vendor and rider accounts additionally own a
// profile row keyed 1:1 to this identity.
type User struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string         `gorm:"column:email;uniqueIndex;not null"`
	PasswordHash string         `gorm:"column:password_hash;not null"`
	FullName     string         `gorm:"column:full_name;not null"`
	Phone        *string        `gorm:"column:phone"`
	Role         enums.UserRole `gorm:"column:role;type:user_role;not null;default:'customer'"`
	Active       bool           `gorm:"column:active;not null;default:true"`
	DeviceToken  *string        `gorm:"column:device_token"`
	LastLoginAt  *time.Time     `gorm:"column:last_login_at"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
