package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/swifteats/swifteats-backend/pkg/enums"
)

// Wallet holds the spendable balance for a user. Created lazily on first
// access and never deleted. Balance must never go negative; the service
// enforces this inside a transaction, there is no persisted constraint.
type Wallet struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID       `gorm:"column:user_id;type:uuid;uniqueIndex;not null"`
	Balance   decimal.Decimal `gorm:"column:balance;type:numeric(14,2);not null;default:0"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// WalletTransaction is the append-only ledger entry written alongside every
// wallet mutation. Reference carries the external gateway reference for
// credits and the order id for debits; its unique index deduplicates
// gateway callbacks.
type WalletTransaction struct {
	ID        uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID               `gorm:"column:user_id;type:uuid;not null;index"`
	Type      enums.TransactionType   `gorm:"column:type;type:transaction_type;not null"`
	Amount    decimal.Decimal         `gorm:"column:amount;type:numeric(14,2);not null"`
	Reference string                  `gorm:"column:reference;uniqueIndex:wallet_transactions_reference_key;not null"`
	Status    enums.TransactionStatus `gorm:"column:status;type:transaction_status;not null;default:'success'"`
	Metadata  json.RawMessage         `gorm:"column:metadata;type:jsonb"`
	CreatedAt time.Time               `gorm:"column:created_at;autoCreateTime"`
}
