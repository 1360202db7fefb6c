package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mercata/mercata-backend/pkg/enums"
)

// Order is the per-store aggregate produced from a checkout. A multi-store
// cart yields one Order per store, correlated only by CheckoutSessionID.
// Orders are never deleted, only archived.
type Order struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID           uuid.UUID               `gorm:"column:store_id;type:uuid;not null;index"`
	CheckoutSessionID uuid.UUID               `gorm:"column:checkout_session_id;type:uuid;not null;index"`
	Currency          enums.Currency          `gorm:"column:currency;type:text;not null;default:'USD'"`
	SubtotalCents     int64                   `gorm:"column:subtotal_cents;not null"`
	DiscountCents     int64                   `gorm:"column:discount_cents;not null;default:0"`
	ShippingCents     int64                   `gorm:"column:shipping_cents;not null;default:0"`
	TaxCents          int64                   `gorm:"column:tax_cents;not null;default:0"`
	TotalCents        int64                   `gorm:"column:total_cents;not null"`
	Status            enums.OrderStatus       `gorm:"column:status;type:order_status;not null;default:'open'"`
	PaymentStatus     enums.PaymentStatus     `gorm:"column:payment_status;type:payment_status;not null;default:'pending'"`
	FulfillmentStatus enums.FulfillmentStatus `gorm:"column:fulfillment_status;type:fulfillment_status;not null;default:'unfulfilled'"`
	PlacedAt          time.Time               `gorm:"column:placed_at;not null"`
	PaidAt            *time.Time              `gorm:"column:paid_at"`
	CanceledAt        *time.Time              `gorm:"column:canceled_at"`
	Items             []OrderItem             `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
