package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mercata/mercata-backend/pkg/enums"
)

// OrderPayment records one successful gateway charge against one order.
// ProviderPaymentID is the idempotency key: retried webhooks for the same
// charge must land on this row's unique constraint. Financial fields are
// never re-priced after insert; refunds only move Status/TransferStatus and
// add ledger rows.
type OrderPayment struct {
	ID                uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID                `gorm:"column:order_id;type:uuid;not null;index"`
	StoreID           uuid.UUID                `gorm:"column:store_id;type:uuid;not null;index"`
	Provider          string                   `gorm:"column:provider;not null"`
	ProviderPaymentID string                   `gorm:"column:provider_payment_id;not null;unique"`
	AmountCents       int64                    `gorm:"column:amount_cents;not null"`
	Currency          enums.Currency           `gorm:"column:currency;type:text;not null"`
	PlatformFeeCents  int64                    `gorm:"column:platform_fee_cents;not null"`
	NetToStoreCents   int64                    `gorm:"column:net_to_store_cents;not null"`
	Status            enums.OrderPaymentStatus `gorm:"column:status;type:order_payment_status;not null;default:'completed'"`
	TransferStatus    enums.TransferStatus     `gorm:"column:transfer_status;type:transfer_status;not null;default:'held'"`
	CreatedAt         time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
