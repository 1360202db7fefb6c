// Package gateway abstracts the payment processor the settlement engine
// moves money through. The engine only ever sees this interface; the Stripe
// implementation lives in pkg/stripe.
package gateway

import (
	"context"

	"github.com/mercata/mercata-backend/pkg/enums"
)

// ConnectedAccount is the processor-side account a store's funds route to.
type ConnectedAccount struct {
	ID             string
	PayoutsEnabled bool
}

// ChargeRequest describes a destination charge against a store's account.
type ChargeRequest struct {
	AmountCents         int64
	Currency            enums.Currency
	DestinationAccount  string
	ApplicationFeeCents int64
	IdempotencyKey      string
	Description         string
}

// Charge is the processor's record of a completed charge.
type Charge struct {
	ProviderPaymentID string
	AmountCents       int64
}

// RefundRequest reverses part or all of a previously recorded charge.
type RefundRequest struct {
	ProviderPaymentID string
	AmountCents       int64
	IdempotencyKey    string
	Reason            string
}

// Refund is the processor's record of a completed refund.
type Refund struct {
	ProviderRefundID string
	AmountCents      int64
}

// PayoutRequest moves available funds from a connected account to its bank.
type PayoutRequest struct {
	ConnectedAccount string
	AmountCents      int64
	Currency         enums.Currency
	IdempotencyKey   string
	Description      string
}

// Payout is the processor's record of a dispatched payout.
type Payout struct {
	ProviderPayoutID string
	AmountCents      int64
}

// PaymentGateway is the full processor surface the engine depends on.
// Implementations must return coded gateway errors (pkg/errors CodeGateway)
// for transport and processor failures so callers can classify them.
type PaymentGateway interface {
	CreateConnectedAccount(ctx context.Context, storeName, email string) (*ConnectedAccount, error)
	ChargeWithDestination(ctx context.Context, req ChargeRequest) (*Charge, error)
	Refund(ctx context.Context, req RefundRequest) (*Refund, error)
	RetrieveBalance(ctx context.Context, connectedAccount string, currency enums.Currency) (int64, error)
	CreatePayout(ctx context.Context, req PayoutRequest) (*Payout, error)
}
