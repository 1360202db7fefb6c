package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mercata/mercata-backend/pkg/enums"
)

// SellerPayout records one payout attempt. Status is terminal once completed;
// a failed attempt is retried on a later sweep as a new row.
type SellerPayout struct {
	ID               uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID          uuid.UUID          `gorm:"column:store_id;type:uuid;not null;index"`
	AmountCents      int64              `gorm:"column:amount_cents;not null"`
	Currency         enums.Currency     `gorm:"column:currency;type:text;not null"`
	Provider         string             `gorm:"column:provider;not null"`
	ProviderPayoutID *string            `gorm:"column:provider_payout_id;unique"`
	Status           enums.PayoutStatus `gorm:"column:status;type:payout_status;not null;default:'pending'"`
	FailureReason    *string            `gorm:"column:failure_reason"`
	RequestedAt      time.Time          `gorm:"column:requested_at;not null"`
	CompletedAt      *time.Time         `gorm:"column:completed_at"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
