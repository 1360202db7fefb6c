package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mercata/mercata-backend/pkg/enums"
)

// SellerBalance is the cached snapshot of a store's ledger-derived balance.
// It is a materialized view over seller_balance_entries: refreshed on every
// ledger write, recomputed and self-healed on read. Never the source of truth.
type SellerBalance struct {
	StoreID        uuid.UUID      `gorm:"column:store_id;type:uuid;primaryKey"`
	Currency       enums.Currency `gorm:"column:currency;type:text;primaryKey"`
	AvailableCents int64          `gorm:"column:available_cents;not null;default:0"`
	PendingCents   int64          `gorm:"column:pending_cents;not null;default:0"`
	LastPayoutAt   *time.Time     `gorm:"column:last_payout_at"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
