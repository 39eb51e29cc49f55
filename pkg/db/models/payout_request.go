package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/swifteats/swifteats-backend/pkg/enums"
)

// PayoutRequest is created by a vendor or rider and transitioned exactly
// once by an admin decision.
type PayoutRequest struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID          `gorm:"column:user_id;type:uuid;not null;index"`
	UserType      enums.UserRole     `gorm:"column:user_type;type:user_role;not null"`
	Amount        decimal.Decimal    `gorm:"column:amount;type:numeric(14,2);not null"`
	Status        enums.PayoutStatus `gorm:"column:status;type:payout_status;not null;default:'pending'"`
	BankName      string             `gorm:"column:bank_name;not null"`
	AccountNumber string             `gorm:"column:account_number;not null"`
	AccountName   string             `gorm:"column:account_name;not null"`
	RequestedAt   time.Time          `gorm:"column:requested_at;not null"`
	ProcessedAt   *time.Time         `gorm:"column:processed_at"`
	ProcessedBy   *uuid.UUID         `gorm:"column:processed_by;type:uuid"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
