package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/mercata/mercata-backend/api/responses"
	"github.com/mercata/mercata-backend/api/validators"
	"github.com/mercata/mercata-backend/internal/payments"
	"github.com/mercata/mercata-backend/pkg/db/models"
	pkgerrors "github.com/mercata/mercata-backend/pkg/errors"
	"github.com/mercata/mercata-backend/pkg/logger"
	"github.com/mercata/mercata-backend/pkg/money"
)

// RecordPayment settles a charge against an order. With no provider payment
// id in the body the engine performs the destination charge itself.
func RecordPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		orderID, err := uuidParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload recordPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.RecordPayment(r.Context(), payments.RecordPaymentInput{
			OrderID:           orderID,
			ProviderPaymentID: payload.ProviderPaymentID,
			AmountCents:       payload.AmountCents,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newPaymentResponse(payment))
	}
}

type recordPaymentRequest struct {
	ProviderPaymentID string `json:"provider_payment_id,omitempty"`
	AmountCents       int64  `json:"amount_cents,omitempty" validate:"min=0"`
}

type paymentResponse struct {
	PaymentID         uuid.UUID `json:"payment_id"`
	OrderID           uuid.UUID `json:"order_id"`
	StoreID           uuid.UUID `json:"store_id"`
	ProviderPaymentID string    `json:"provider_payment_id"`
	Currency          string    `json:"currency"`
	AmountCents       int64     `json:"amount_cents"`
	Amount            string    `json:"amount"`
	PlatformFeeCents  int64     `json:"platform_fee_cents"`
	PlatformFee       string    `json:"platform_fee"`
	NetToStoreCents   int64     `json:"net_to_store_cents"`
	NetToStore        string    `json:"net_to_store"`
	Status            string    `json:"status"`
}

func newPaymentResponse(payment *models.OrderPayment) paymentResponse {
	return paymentResponse{
		PaymentID:         payment.ID,
		OrderID:           payment.OrderID,
		StoreID:           payment.StoreID,
		ProviderPaymentID: payment.ProviderPaymentID,
		Currency:          string(payment.Currency),
		AmountCents:       payment.AmountCents,
		Amount:            money.FormatCents(payment.AmountCents),
		PlatformFeeCents:  payment.PlatformFeeCents,
		PlatformFee:       money.FormatCents(payment.PlatformFeeCents),
		NetToStoreCents:   payment.NetToStoreCents,
		NetToStore:        money.FormatCents(payment.NetToStoreCents),
		Status:            string(payment.Status),
	}
}
