package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mercata/mercata-backend/pkg/enums"
)

// SellerBalanceEntry is one immutable, signed row of a store's ledger. The
// running balance for a store+currency is the sum of its entries; nothing in
// the engine ever updates or deletes a row. DedupeKey carries the idempotency
// identity of the money movement (payment id, refund ref, payout id) and is
// unique where present, so concurrent retries fail fast on insert.
type SellerBalanceEntry struct {
	ID             uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID        uuid.UUID              `gorm:"column:store_id;type:uuid;not null;index:idx_balance_entries_store_currency"`
	Type           enums.BalanceEntryType `gorm:"column:type;type:balance_entry_type;not null"`
	AmountCents    int64                  `gorm:"column:amount_cents;not null"`
	Currency       enums.Currency         `gorm:"column:currency;type:text;not null;index:idx_balance_entries_store_currency"`
	OrderID        *uuid.UUID             `gorm:"column:order_id;type:uuid"`
	OrderPaymentID *uuid.UUID             `gorm:"column:order_payment_id;type:uuid"`
	PayoutID       *uuid.UUID             `gorm:"column:payout_id;type:uuid"`
	DedupeKey      *string                `gorm:"column:dedupe_key;unique"`
	Description    string                 `gorm:"column:description"`
	CreatedAt      time.Time              `gorm:"column:created_at;autoCreateTime"`
}
