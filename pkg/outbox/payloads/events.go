package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/mercata/mercata-backend/pkg/enums"
)

// OrderCreatedEvent signals a checkout split into per-store orders.
type OrderCreatedEvent struct {
	CheckoutSessionID uuid.UUID   `json:"checkout_session_id"`
	OrderIDs          []uuid.UUID `json:"order_ids"`
	Currency          string      `json:"currency"`
	TotalCents        int64       `json:"total_cents"`
}

// PaymentReceivedEvent is emitted once per recorded gateway charge.
type PaymentReceivedEvent struct {
	OrderPaymentID    uuid.UUID `json:"order_payment_id"`
	OrderID           uuid.UUID `json:"order_id"`
	StoreID           uuid.UUID `json:"store_id"`
	ProviderPaymentID string    `json:"provider_payment_id"`
	AmountCents       int64     `json:"amount_cents"`
	PlatformFeeCents  int64     `json:"platform_fee_cents"`
	NetToStoreCents   int64     `json:"net_to_store_cents"`
	Currency          string    `json:"currency"`
}

// RefundProcessedEvent is emitted once per gateway refund.
type RefundProcessedEvent struct {
	OrderPaymentID   uuid.UUID        `json:"order_payment_id"`
	OrderID          uuid.UUID        `json:"order_id"`
	StoreID          uuid.UUID        `json:"store_id"`
	ProviderRefundID string           `json:"provider_refund_id"`
	AmountCents      int64            `json:"amount_cents"`
	FeeReversalCents int64            `json:"fee_reversal_cents"`
	Type             enums.RefundType `json:"type"`
}

// PayoutCompletedEvent reports a dispatched and recorded payout.
type PayoutCompletedEvent struct {
	PayoutID         uuid.UUID `json:"payout_id"`
	StoreID          uuid.UUID `json:"store_id"`
	AmountCents      int64     `json:"amount_cents"`
	Currency         string    `json:"currency"`
	ProviderPayoutID string    `json:"provider_payout_id"`
	CompletedAt      time.Time `json:"completed_at"`
}

// PayoutFailedEvent reports a payout attempt the gateway rejected.
type PayoutFailedEvent struct {
	PayoutID    uuid.UUID `json:"payout_id"`
	StoreID     uuid.UUID `json:"store_id"`
	AmountCents int64     `json:"amount_cents"`
	Reason      string    `json:"reason"`
}

// BalanceSnapshotRecoveredEvent reports a snapshot that disagreed with the
// ledger replay and was self-healed on read.
type BalanceSnapshotRecoveredEvent struct {
	StoreID                uuid.UUID `json:"store_id"`
	Currency               string    `json:"currency"`
	SnapshotAvailableCents int64     `json:"snapshot_available_cents"`
	ReplayAvailableCents   int64     `json:"replay_available_cents"`
	SnapshotPendingCents   int64     `json:"snapshot_pending_cents"`
	ReplayPendingCents     int64     `json:"replay_pending_cents"`
	RecoveredAt            time.Time `json:"recovered_at"`
}
