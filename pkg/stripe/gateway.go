package stripe

import (
	"context"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/account"
	"github.com/stripe/stripe-go/v84/balance"
	"github.com/stripe/stripe-go/v84/paymentintent"
	"github.com/stripe/stripe-go/v84/payout"
	"github.com/stripe/stripe-go/v84/refund"

	"github.com/mercata/mercata-backend/pkg/enums"
	pkgerrors "github.com/mercata/mercata-backend/pkg/errors"
	"github.com/mercata/mercata-backend/pkg/gateway"
)

// Gateway adapts the Stripe client to the processor surface the settlement
// engine consumes. Destination charges route funds to a store's connected
// account while the application fee stays on the platform account. Every call
// runs under the configured timeout.
type Gateway struct {
	client *Client
}

var _ gateway.PaymentGateway = (*Gateway)(nil)

// NewGateway wires the Stripe client into the gateway interface.
func NewGateway(client *Client) (*Gateway, error) {
	if client == nil {
		return nil, errors.New("stripe client is required")
	}
	return &Gateway{client: client}, nil
}

// CreateConnectedAccount provisions an express account with transfer
// capability requested. Payouts stay disabled until Stripe finishes
// onboarding, so callers persist the flag as returned.
func (g *Gateway) CreateConnectedAccount(ctx context.Context, storeName, email string) (*gateway.ConnectedAccount, error) {
	ctx, cancel := context.WithTimeout(ctx, g.client.callTimeout())
	defer cancel()

	params := &stripe.AccountParams{
		Type:  stripe.String(string(stripe.AccountTypeExpress)),
		Email: stripe.String(strings.TrimSpace(email)),
		Capabilities: &stripe.AccountCapabilitiesParams{
			Transfers: &stripe.AccountCapabilitiesTransfersParams{
				Requested: stripe.Bool(true),
			},
		},
		BusinessProfile: &stripe.AccountBusinessProfileParams{
			Name: stripe.String(storeName),
		},
	}
	params.Context = ctx

	acct, err := account.New(params)
	if err != nil {
		return nil, wrapStripeErr(err, "creating connected account")
	}
	return &gateway.ConnectedAccount{
		ID:             acct.ID,
		PayoutsEnabled: acct.PayoutsEnabled,
	}, nil
}

// ChargeWithDestination confirms a payment intent whose funds route to the
// store's connected account, net of the application fee.
func (g *Gateway) ChargeWithDestination(ctx context.Context, req gateway.ChargeRequest) (*gateway.Charge, error) {
	ctx, cancel := context.WithTimeout(ctx, g.client.callTimeout())
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountCents),
		Currency: stripe.String(strings.ToLower(string(req.Currency))),
		Confirm:  stripe.Bool(true),
		TransferData: &stripe.PaymentIntentTransferDataParams{
			Destination: stripe.String(req.DestinationAccount),
		},
	}
	if req.ApplicationFeeCents > 0 {
		params.ApplicationFeeAmount = stripe.Int64(req.ApplicationFeeCents)
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	params.Context = ctx

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, wrapStripeErr(err, "creating destination charge")
	}
	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "charge did not succeed").
			WithDetails(map[string]string{"status": string(intent.Status)})
	}
	return &gateway.Charge{
		ProviderPaymentID: intent.ID,
		AmountCents:       intent.Amount,
	}, nil
}

// Refund reverses a charge. The transfer to the connected account and the
// proportional application fee are reversed with it so the connected balance
// bears the refund.
func (g *Gateway) Refund(ctx context.Context, req gateway.RefundRequest) (*gateway.Refund, error) {
	ctx, cancel := context.WithTimeout(ctx, g.client.callTimeout())
	defer cancel()

	params := &stripe.RefundParams{
		PaymentIntent:        stripe.String(req.ProviderPaymentID),
		Amount:               stripe.Int64(req.AmountCents),
		ReverseTransfer:      stripe.Bool(true),
		RefundApplicationFee: stripe.Bool(true),
	}
	if req.Reason != "" {
		params.Reason = stripe.String(req.Reason)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	params.Context = ctx

	ref, err := refund.New(params)
	if err != nil {
		return nil, wrapStripeErr(err, "refunding charge")
	}
	return &gateway.Refund{
		ProviderRefundID: ref.ID,
		AmountCents:      ref.Amount,
	}, nil
}

// RetrieveBalance returns the connected account's available balance for the
// given currency, in cents.
func (g *Gateway) RetrieveBalance(ctx context.Context, connectedAccount string, currency enums.Currency) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, g.client.callTimeout())
	defer cancel()

	params := &stripe.BalanceParams{}
	params.SetStripeAccount(connectedAccount)
	params.Context = ctx

	bal, err := balance.Get(params)
	if err != nil {
		return 0, wrapStripeErr(err, "retrieving connected balance")
	}

	want := strings.ToLower(string(currency))
	var cents int64
	for _, amt := range bal.Available {
		if string(amt.Currency) == want {
			cents += amt.Amount
		}
	}
	return cents, nil
}

// CreatePayout dispatches a payout from the connected account's available
// balance to its external bank account.
func (g *Gateway) CreatePayout(ctx context.Context, req gateway.PayoutRequest) (*gateway.Payout, error) {
	ctx, cancel := context.WithTimeout(ctx, g.client.callTimeout())
	defer cancel()

	params := &stripe.PayoutParams{
		Amount:   stripe.Int64(req.AmountCents),
		Currency: stripe.String(strings.ToLower(string(req.Currency))),
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	params.SetStripeAccount(req.ConnectedAccount)
	params.Context = ctx

	po, err := payout.New(params)
	if err != nil {
		return nil, wrapStripeErr(err, "creating payout")
	}
	return &gateway.Payout{
		ProviderPayoutID: po.ID,
		AmountCents:      po.Amount,
	}, nil
}

func wrapStripeErr(err error, message string) error {
	if err == nil {
		return nil
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		switch stripeErr.Type {
		case stripe.ErrorTypeInvalidRequest:
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, message)
		case stripe.ErrorTypeCard:
			return pkgerrors.Wrap(pkgerrors.CodePaymentSetup, err, message)
		}
	}
	return pkgerrors.Wrap(pkgerrors.CodeGateway, err, message)
}
